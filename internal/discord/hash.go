package discord

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// commandShape is the part of a command Discord compares. IDs and versions
// are assigned by Discord and left out.
type commandShape struct {
	Name        string                           `json:"name"`
	Description string                           `json:"description"`
	Type        discordgo.ApplicationCommandType `json:"type"`
	Options     []optionShape                    `json:"options,omitempty"`
}

type optionShape struct {
	Name        string                                 `json:"name"`
	Description string                                 `json:"description"`
	Type        discordgo.ApplicationCommandOptionType `json:"type"`
	Required    bool                                   `json:"required"`
	Choices     []choiceShape                          `json:"choices,omitempty"`
	Options     []optionShape                          `json:"options,omitempty"`
}

type choiceShape struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// hashCommand fingerprints c so unchanged commands are not registered again
// on every start. Option order does not matter.
func hashCommand(c *discordgo.ApplicationCommand) string {
	data, _ := json.Marshal(commandShape{
		Name:        c.Name,
		Description: c.Description,
		Type:        c.Type,
		Options:     shapeOptions(c.Options),
	})
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

func shapeOptions(opts []*discordgo.ApplicationCommandOption) []optionShape {
	if len(opts) == 0 {
		return nil
	}
	out := make([]optionShape, 0, len(opts))
	for _, o := range opts {
		sh := optionShape{
			Name:        o.Name,
			Description: o.Description,
			Type:        o.Type,
			Required:    o.Required,
			Options:     shapeOptions(o.Options),
		}
		for _, ch := range o.Choices {
			sh.Choices = append(sh.Choices, choiceShape{Name: ch.Name, Value: ch.Value})
		}
		out = append(out, sh)
	}
	slices.SortFunc(out, func(a, b optionShape) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// hashCache keeps the last registered hash of every command, one JSON file
// per guild.
type hashCache struct {
	mu  sync.Mutex
	dir string
}

func (c *hashCache) path(guildID string) string {
	return filepath.Join(c.dir, guildID+".json")
}

func (c *hashCache) load(guildID string) map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string)
	if data, err := os.ReadFile(c.path(guildID)); err == nil {
		_ = json.Unmarshal(data, &out)
	}
	return out
}

func (c *hashCache) save(guildID string, hashes map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := json.MarshalIndent(hashes, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(c.path(guildID), data, 0o644)
}
