package discord

import (
	"strings"
	"unicode/utf8"

	"tod-bot/internal/command"

	"github.com/bwmarrin/discordgo"
)

// MessageLimit is the longest message Discord accepts.
const MessageLimit = 2000

// responder implements command.Responder so commands can reply without
// importing the discord package.
type responder struct{}

// DefaultResponder is injected into command contexts.
var DefaultResponder command.Responder = responder{}

// RespondText answers an interaction. Text beyond MessageLimit is sent as
// followups.
func (responder) RespondText(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	parts := SplitMessage(content, MessageLimit)
	if err := Respond(s, i, parts[0]); err != nil {
		return err
	}
	for _, part := range parts[1:] {
		if err := Followup(s, i, part); err != nil {
			return err
		}
	}
	return nil
}

func (responder) DeferText(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return RespondDeferred(s, i)
}

// EditText replaces the deferred placeholder. Text beyond MessageLimit is
// sent as followups.
func (responder) EditText(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	parts := SplitMessage(content, MessageLimit)
	if err := Edit(s, i, parts[0]); err != nil {
		return err
	}
	for _, part := range parts[1:] {
		if err := Followup(s, i, part); err != nil {
			return err
		}
	}
	return nil
}

func (responder) FollowupText(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	for _, part := range SplitMessage(content, MessageLimit) {
		if err := Followup(s, i, part); err != nil {
			return err
		}
	}
	return nil
}

func (responder) MessageText(s *discordgo.Session, channelID, content string) error {
	for _, part := range SplitMessage(content, MessageLimit) {
		if err := Message(s, channelID, part); err != nil {
			return err
		}
	}
	return nil
}

// Respond sends a public message response to an interaction.
func Respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
}

// RespondDeferred acknowledges an interaction with a public "thinking" state.
func RespondDeferred(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

// Edit replaces the original interaction response.
func Edit(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content})
	return err
}

// Followup sends a public followup message.
func Followup(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{Content: content})
	return err
}

// Message sends a plain text message to a channel.
func Message(s *discordgo.Session, channelID, content string) error {
	_, err := s.ChannelMessageSend(channelID, content)
	return err
}

// SplitMessage cuts content into pieces of at most limit characters,
// preferring to break after a newline. It always returns at least one piece.
func SplitMessage(content string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(content) <= limit {
		return []string{content}
	}

	var parts []string
	for utf8.RuneCountInString(content) > limit {
		cut := byteOffset(content, limit)
		if nl := strings.LastIndexByte(content[:cut], '\n'); nl > 0 {
			cut = nl + 1
		}
		parts = append(parts, content[:cut])
		content = content[cut:]
	}
	if content != "" {
		parts = append(parts, content)
	}
	return parts
}

// byteOffset returns the byte index just past the first n runes of s.
func byteOffset(s string, n int) int {
	i := 0
	for range n {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return i
}
