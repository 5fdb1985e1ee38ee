package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

var ErrUnsupportedContext = errors.New("unsupported command context")

// Request is the transport-neutral view of one command invocation. Slash
// options and message arguments both end up in Args.
type Request struct {
	GuildID   string
	ChannelID string
	UserID    string
	Args      []string

	reply  func(content string) error
	defers func() error
}

// NewRequest builds a Request that replies through reply.
func NewRequest(guildID, channelID, userID string, args []string, reply func(string) error) *Request {
	return &Request{GuildID: guildID, ChannelID: channelID, UserID: userID, Args: args, reply: reply}
}

func (r *Request) Reply(content string) error {
	if r.reply == nil {
		return nil
	}
	return r.reply(content)
}

// SetDefer installs the acknowledgement Defer sends.
func (r *Request) SetDefer(fn func() error) *Request {
	r.defers = fn
	return r
}

// Defer acknowledges the request before slow work. Later replies are
// delivered as edits and followups. It is a no-op for message commands.
func (r *Request) Defer() error {
	if r.defers == nil {
		return nil
	}
	return r.defers()
}

// Replyf formats and sends a reply.
func (r *Request) Replyf(format string, a ...any) error {
	return r.Reply(fmt.Sprintf(format, a...))
}

// RequestFrom extracts a Request from an invocation payload.
func RequestFrom(data any) (*Request, error) {
	switch v := data.(type) {
	case *Request:
		return v, nil
	case *SlashInteractionContext:
		return slashRequest(v), nil
	case *MessageContext:
		return messageRequest(v), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedContext, data)
	}
}

func slashRequest(c *SlashInteractionContext) *Request {
	e := c.Event
	var args []string
	if e.Type == discordgo.InteractionApplicationCommand {
		args = optionArgs(e.ApplicationCommandData().Options)
	}

	var deferred, responded bool
	req := NewRequest(e.GuildID, e.ChannelID, InteractionUserID(e), args, func(content string) error {
		if c.Responder == nil {
			return nil
		}
		switch {
		case responded:
			return c.Responder.FollowupText(c.Session, e, content)
		case deferred:
			responded = true
			return c.Responder.EditText(c.Session, e, content)
		default:
			responded = true
			return c.Responder.RespondText(c.Session, e, content)
		}
	})
	return req.SetDefer(func() error {
		if c.Responder == nil || deferred || responded {
			return nil
		}
		if err := c.Responder.DeferText(c.Session, e); err != nil {
			return err
		}
		deferred = true
		return nil
	})
}

func messageRequest(c *MessageContext) *Request {
	e := c.Event
	userID := ""
	if e.Author != nil {
		userID = e.Author.ID
	}
	return NewRequest(e.GuildID, e.ChannelID, userID, c.Args, func(content string) error {
		if c.Responder == nil {
			return nil
		}
		return c.Responder.MessageText(c.Session, e.ChannelID, content)
	})
}

// optionArgs flattens slash options into message-style arguments.
func optionArgs(opts []*discordgo.ApplicationCommandInteractionDataOption) []string {
	var args []string
	for _, o := range opts {
		switch o.Type {
		case discordgo.ApplicationCommandOptionString:
			args = append(args, strings.Fields(o.StringValue())...)
		case discordgo.ApplicationCommandOptionBoolean:
			args = append(args, strconv.FormatBool(o.BoolValue()))
		case discordgo.ApplicationCommandOptionUser:
			if id, ok := o.Value.(string); ok {
				args = append(args, UserMention(id))
			}
		}
	}
	return args
}

// InteractionUserID returns the invoking user for guild and DM interactions.
func InteractionUserID(e *discordgo.InteractionCreate) string {
	if e.Member != nil && e.Member.User != nil {
		return e.Member.User.ID
	}
	if e.User != nil {
		return e.User.ID
	}
	return ""
}

func UserMention(id string) string { return "<@" + id + ">" }

// ParseUserMention accepts <@id> and <@!id> and returns id.
func ParseUserMention(s string) (string, bool) {
	if !strings.HasPrefix(s, "<@") || !strings.HasSuffix(s, ">") {
		return "", false
	}
	id := strings.TrimPrefix(s[2:len(s)-1], "!")
	if id == "" {
		return "", false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return id, true
}
