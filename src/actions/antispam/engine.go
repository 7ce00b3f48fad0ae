package antispam

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/stake-plus/guildmod/src/shared/guild"
)

// Outcome is the result of one enforcement pass.
type Outcome int

const (
	// Ineligible: no guild, the author is the bot or a manager, the bot
	// cannot manage roles, or permissions could not be determined.
	Ineligible Outcome = iota
	// UnderLimit: the message mentions no more users than allowed.
	UnderLimit
	// MemberUnresolved: the author could not be fetched as a guild member.
	MemberUnresolved
	// NoMuteRole: the guild has no mute role configured.
	NoMuteRole
	// Muted: a pending case was recorded and the mute role was added.
	Muted
	// Compensated: the role add failed and the pending case was removed.
	Compensated
	// Failed: the config or ledger could not be used, or compensation itself
	// failed and a pending case may be left behind.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Ineligible:
		return "ineligible"
	case UnderLimit:
		return "under-limit"
	case MemberUnresolved:
		return "member-unresolved"
	case NoMuteRole:
		return "no-mute-role"
	case Muted:
		return "muted"
	case Compensated:
		return "compensated"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// MuteReason is the ledger reason for an automated mention-spam mute.
func MuteReason(limit int) string {
	return fmt.Sprintf("Automated Mute: User exceeded mention limit. (%d)", limit)
}

// MessageEvent is the platform-neutral view of an inbound message.
type MessageEvent struct {
	GuildID   string
	ChannelID string
	MessageID string
	AuthorID  string
	AuthorTag string
	// Mentions holds the IDs of mentioned users.
	Mentions []string
	Content  string
}

// Member is a resolved guild member.
type Member struct {
	UserID string
	Tag    string
}

// Platform is what the engine needs from the chat platform.
type Platform interface {
	SelfID() string
	Permissions(ctx context.Context, guildID, userID string) (int64, error)
	ResolveMember(ctx context.Context, guildID, userID string) (*Member, error)
	AddRole(ctx context.Context, guildID, userID, roleID string) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
}

// ConfigSource supplies guild configuration.
type ConfigSource interface {
	GetGuildConfig(ctx context.Context, guildID string) (*guild.GuildConfig, error)
}

// CaseLedger records moderation cases.
type CaseLedger interface {
	AddModAction(ctx context.Context, in guild.NewModAction) (*guild.ModAction, error)
	RemoveModAction(ctx context.Context, guildID, userID string, caseID uint64) error
}

// Engine enforces the mention limit. It keeps no state between messages, so
// one Engine serves any number of concurrent passes.
type Engine struct {
	platform Platform
	configs  ConfigSource
	ledger   CaseLedger
}

// NewEngine creates an engine.
func NewEngine(platform Platform, configs ConfigSource, ledger CaseLedger) *Engine {
	return &Engine{platform: platform, configs: configs, ledger: ledger}
}

// Result describes a pass for logging. CaseID is set once a case was allocated.
type Result struct {
	Outcome Outcome
	CaseID  uint64
	Limit   int
}

// HandleMessage runs one enforcement pass for ev. The returned error explains
// the outcome when something external went wrong; it is never retried.
func (e *Engine) HandleMessage(ctx context.Context, ev MessageEvent) (Result, error) {
	if ok, err := e.eligible(ctx, ev); !ok {
		return Result{Outcome: Ineligible}, err
	}

	cfg, err := e.configs.GetGuildConfig(ctx, ev.GuildID)
	if err != nil {
		return Result{Outcome: Failed}, err
	}
	res := Result{Limit: cfg.MaxMention}
	if len(ev.Mentions) <= cfg.MaxMention {
		res.Outcome = UnderLimit
		return res, nil
	}

	member, err := e.platform.ResolveMember(ctx, ev.GuildID, ev.AuthorID)
	if err != nil {
		res.Outcome = MemberUnresolved
		return res, &guild.ExternalActionError{Op: "resolve member", Err: err}
	}

	if cfg.MuteRole == nil || *cfg.MuteRole == "" {
		res.Outcome = NoMuteRole
		return res, nil
	}

	reason := MuteReason(cfg.MaxMention)
	action, err := e.ledger.AddModAction(ctx, guild.NewModAction{
		Action:  guild.ActionMute,
		GuildID: ev.GuildID,
		UserID:  member.UserID,
		UserTag: member.Tag,
		Reason:  &reason,
		Pending: true,
	})
	if err != nil {
		res.Outcome = Failed
		return res, err
	}
	res.CaseID = action.CaseID

	roleErr := e.platform.AddRole(ctx, ev.GuildID, member.UserID, *cfg.MuteRole)
	if roleErr == nil {
		res.Outcome = Muted
		return res, nil
	}
	roleErr = &guild.ExternalActionError{Op: "add mute role", Err: roleErr}

	// the role call may have consumed ctx; the case must still go
	if err := e.ledger.RemoveModAction(context.WithoutCancel(ctx), ev.GuildID, member.UserID, action.CaseID); err != nil {
		res.Outcome = Failed
		return res, errors.Join(roleErr, fmt.Errorf("remove case #%d: %w", action.CaseID, err))
	}
	res.Outcome = Compensated
	return res, roleErr
}

func (e *Engine) eligible(ctx context.Context, ev MessageEvent) (bool, error) {
	if ev.GuildID == "" || ev.AuthorID == "" {
		return false, nil
	}
	self := e.platform.SelfID()
	if ev.AuthorID == self {
		return false, nil
	}

	botPerms, err := e.platform.Permissions(ctx, ev.GuildID, self)
	if err != nil {
		return false, fmt.Errorf("bot permissions: %w", err)
	}
	if botPerms&discordgo.PermissionManageRoles == 0 {
		return false, nil
	}

	authorPerms, err := e.platform.Permissions(ctx, ev.GuildID, ev.AuthorID)
	if err != nil {
		return false, fmt.Errorf("author permissions: %w", err)
	}
	if authorPerms&discordgo.PermissionManageGuild != 0 {
		return false, nil
	}
	return true, nil
}
