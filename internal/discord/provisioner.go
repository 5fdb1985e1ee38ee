package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"tod-bot/internal/tod"
	"tod-bot/pkg/retrylimit"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// GuildAPI is the subset of *discordgo.Session the provisioner needs.
type GuildAPI interface {
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildRoleCreate(guildID string, data *discordgo.RoleParams, options ...discordgo.RequestOption) (*discordgo.Role, error)
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error
}

// StateCache is the read side of *discordgo.State. Hits save REST calls;
// misses fall back to the API.
type StateCache interface {
	Guild(guildID string) (*discordgo.Guild, error)
	Member(guildID, userID string) (*discordgo.Member, error)
}

// Names of the platform objects a game uses.
type Names struct {
	PlayerRole   string
	TextChannel  string
	VoiceChannel string
}

const (
	playerAllow = discordgo.PermissionViewChannel |
		discordgo.PermissionSendMessages |
		discordgo.PermissionReadMessageHistory |
		discordgo.PermissionVoiceConnect |
		discordgo.PermissionVoiceSpeak
	everyoneDeny = discordgo.PermissionViewChannel |
		discordgo.PermissionSendMessages |
		discordgo.PermissionVoiceConnect
	botAllow = discordgo.PermissionViewChannel |
		discordgo.PermissionSendMessages |
		discordgo.PermissionReadMessageHistory
)

// Provisioner implements tod.Provisioner and tod.Authorizer on top of the
// Discord REST API. Every call goes through an adaptive limiter and is
// retried on 429 and 5xx responses.
type Provisioner struct {
	api   GuildAPI
	state StateCache
	names Names
	self  func() string
	lim   *retrylimit.AdaptiveLimiter
	retry retrylimit.RetryConfig
	log   zerolog.Logger
}

// NewProvisioner returns a provisioner. self reports the bot's user id, which
// gets an explicit overwrite on the game channels.
func NewProvisioner(api GuildAPI, names Names, self func() string, rps float64, log zerolog.Logger) *Provisioner {
	if rps <= 0 {
		rps = 5
	}
	p := &Provisioner{
		api:   api,
		names: names,
		self:  self,
		lim:   retrylimit.NewAdaptiveLimiter(rate.Limit(rps), 1, rate.Limit(rps*4), 1, 0.5),
		retry: retrylimit.DefaultRetryConfig(),
		log:   log,
	}
	p.retry.OnRetry = func(attempt int, err error, wait time.Duration) {
		p.log.Warn().Err(err).Int("attempt", attempt).Dur("wait", wait).Msg("Discord request failed, retrying")
	}
	return p
}

// WithState makes role lookups consult the gateway cache first.
func (p *Provisioner) WithState(c StateCache) *Provisioner {
	p.state = c
	return p
}

var _ tod.Provisioner = (*Provisioner)(nil)
var _ tod.Authorizer = (*Provisioner)(nil)

// ProvisionComms makes sure the player role exists, creates the private text
// and voice channels and gives initial the role. Anything created before a
// failure is deleted again.
func (p *Provisioner) ProvisionComms(ctx context.Context, guildID string, initial tod.PlayerID) (tod.CommsHandle, error) {
	roleID, err := p.ensureRole(ctx, guildID)
	if err != nil {
		return tod.CommsHandle{}, err
	}
	h := tod.CommsHandle{GuildID: guildID, RoleID: roleID}
	overwrites := p.overwrites(guildID, roleID)

	text, err := p.createChannel(ctx, guildID, p.names.TextChannel, discordgo.ChannelTypeGuildText, overwrites)
	if err != nil {
		return tod.CommsHandle{}, err
	}
	h.TextChannelID = text.ID

	voice, err := p.createChannel(ctx, guildID, p.names.VoiceChannel, discordgo.ChannelTypeGuildVoice, overwrites)
	if err != nil {
		p.cleanup(ctx, h)
		return tod.CommsHandle{}, err
	}
	h.VoiceChannelID = voice.ID

	if err := p.GrantAccess(ctx, h, initial); err != nil {
		p.cleanup(ctx, h)
		return tod.CommsHandle{}, err
	}

	p.log.Info().Str("guild_id", guildID).Str("text_channel_id", h.TextChannelID).
		Str("voice_channel_id", h.VoiceChannelID).Msg("Game channels created")
	return h, nil
}

func (p *Provisioner) GrantAccess(ctx context.Context, h tod.CommsHandle, player tod.PlayerID) error {
	return p.do(ctx, "add player role", func(opt discordgo.RequestOption) error {
		return p.api.GuildMemberRoleAdd(h.GuildID, string(player), h.RoleID, opt)
	})
}

func (p *Provisioner) RevokeAccess(ctx context.Context, h tod.CommsHandle, player tod.PlayerID) error {
	err := p.do(ctx, "remove player role", func(opt discordgo.RequestOption) error {
		return p.api.GuildMemberRoleRemove(h.GuildID, string(player), h.RoleID, opt)
	})
	if isUnknown(err, discordgo.ErrCodeUnknownMember) {
		return nil
	}
	return err
}

// TeardownComms deletes both channels. Channels that are already gone count
// as deleted.
func (p *Provisioner) TeardownComms(ctx context.Context, h tod.CommsHandle) error {
	var errs []error
	for _, id := range []string{h.TextChannelID, h.VoiceChannelID} {
		if id == "" {
			continue
		}
		if err := p.deleteChannel(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	p.log.Info().Str("guild_id", h.GuildID).Msg("Game channels deleted")
	return nil
}

// IsCallerAuthorized reports whether requester holds the player role. A
// cached member holding the role is trusted; anything else is asked over REST
// since member updates need an intent the bot does not request.
func (p *Provisioner) IsCallerAuthorized(ctx context.Context, guildID string, requester tod.PlayerID, role tod.Role) (bool, error) {
	if role != tod.RolePlayer {
		return false, fmt.Errorf("unknown role %q", role)
	}
	if p.cachedHasRole(guildID, string(requester)) {
		return true, nil
	}

	roleID, found, err := p.findRole(ctx, guildID)
	if err != nil || !found {
		return false, err
	}

	var member *discordgo.Member
	err = p.do(ctx, "fetch member", func(opt discordgo.RequestOption) error {
		var err error
		member, err = p.api.GuildMember(guildID, string(requester), opt)
		return err
	})
	if isUnknown(err, discordgo.ErrCodeUnknownMember) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return slices.Contains(member.Roles, roleID), nil
}

func (p *Provisioner) ensureRole(ctx context.Context, guildID string) (string, error) {
	roleID, found, err := p.findRole(ctx, guildID)
	if err != nil || found {
		return roleID, err
	}

	var role *discordgo.Role
	mentionable := false
	err = p.do(ctx, "create player role", func(opt discordgo.RequestOption) error {
		var err error
		role, err = p.api.GuildRoleCreate(guildID, &discordgo.RoleParams{
			Name:        p.names.PlayerRole,
			Mentionable: &mentionable,
		}, opt)
		return err
	})
	if err != nil {
		return "", err
	}
	p.log.Info().Str("guild_id", guildID).Str("role", p.names.PlayerRole).Msg("Player role created")
	return role.ID, nil
}

func (p *Provisioner) cachedHasRole(guildID, userID string) bool {
	roleID, ok := p.cachedRole(guildID)
	if !ok {
		return false
	}
	m, err := p.state.Member(guildID, userID)
	if err != nil {
		return false
	}
	return slices.Contains(m.Roles, roleID)
}

func (p *Provisioner) cachedRole(guildID string) (string, bool) {
	if p.state == nil {
		return "", false
	}
	g, err := p.state.Guild(guildID)
	if err != nil {
		return "", false
	}
	for _, r := range g.Roles {
		if r.Name == p.names.PlayerRole {
			return r.ID, true
		}
	}
	return "", false
}

func (p *Provisioner) findRole(ctx context.Context, guildID string) (string, bool, error) {
	if id, ok := p.cachedRole(guildID); ok {
		return id, true, nil
	}

	var roles []*discordgo.Role
	err := p.do(ctx, "list roles", func(opt discordgo.RequestOption) error {
		var err error
		roles, err = p.api.GuildRoles(guildID, opt)
		return err
	})
	if err != nil {
		return "", false, err
	}
	for _, r := range roles {
		if r.Name == p.names.PlayerRole {
			return r.ID, true, nil
		}
	}
	return "", false, nil
}

func (p *Provisioner) overwrites(guildID, roleID string) []*discordgo.PermissionOverwrite {
	ow := []*discordgo.PermissionOverwrite{
		{ID: guildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: everyoneDeny},
		{ID: roleID, Type: discordgo.PermissionOverwriteTypeRole, Allow: playerAllow},
	}
	if p.self == nil {
		return ow
	}
	if self := p.self(); self != "" {
		ow = append(ow, &discordgo.PermissionOverwrite{ID: self, Type: discordgo.PermissionOverwriteTypeMember, Allow: botAllow})
	}
	return ow
}

func (p *Provisioner) createChannel(ctx context.Context, guildID, name string, kind discordgo.ChannelType, ow []*discordgo.PermissionOverwrite) (*discordgo.Channel, error) {
	var ch *discordgo.Channel
	err := p.do(ctx, "create channel "+name, func(opt discordgo.RequestOption) error {
		var err error
		ch, err = p.api.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
			Name:                 name,
			Type:                 kind,
			PermissionOverwrites: ow,
		}, opt)
		return err
	})
	return ch, err
}

func (p *Provisioner) deleteChannel(ctx context.Context, id string) error {
	err := p.do(ctx, "delete channel", func(opt discordgo.RequestOption) error {
		_, err := p.api.ChannelDelete(id, opt)
		return err
	})
	if isUnknown(err, discordgo.ErrCodeUnknownChannel) {
		return nil
	}
	return err
}

// cleanup removes channels created by a failed ProvisionComms.
func (p *Provisioner) cleanup(ctx context.Context, h tod.CommsHandle) {
	if err := p.TeardownComms(context.WithoutCancel(ctx), h); err != nil {
		p.log.Error().Err(err).Str("guild_id", h.GuildID).Msg("Failed to delete channels after provisioning error")
	}
}

func (p *Provisioner) do(ctx context.Context, op string, fn func(discordgo.RequestOption) error) error {
	err := retrylimit.WithRetryConfig(ctx, func() error {
		return classify(fn(discordgo.WithContext(ctx)))
	}, p.lim, p.retry)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// restError exposes the HTTP status of a discordgo REST failure to retrylimit.
type restError struct {
	*discordgo.RESTError
}

func (e restError) StatusCode() int { return e.Response.StatusCode }
func (e restError) Unwrap() error   { return e.RESTError }

func classify(err error) error {
	var re *discordgo.RESTError
	if errors.As(err, &re) && re.Response != nil {
		return restError{re}
	}
	return err
}

func isUnknown(err error, code int) bool {
	var re *discordgo.RESTError
	if !errors.As(err, &re) {
		return false
	}
	if re.Message != nil && re.Message.Code == code {
		return true
	}
	return re.Response != nil && re.Response.StatusCode == http.StatusNotFound
}
