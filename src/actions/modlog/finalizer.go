package modlog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	shareddiscord "github.com/stake-plus/guildmod/src/discord"
	"github.com/stake-plus/guildmod/src/shared/guild"
	"gorm.io/gorm"
)

// ConfigSource supplies guild configuration.
type ConfigSource interface {
	GetGuildConfig(ctx context.Context, guildID string) (*guild.GuildConfig, error)
}

// PendingLedger is the part of the ledger that confirms cases.
type PendingLedger interface {
	LatestPending(ctx context.Context, guildID, userID, kind string) (*guild.ModAction, error)
	FinalizeModAction(ctx context.Context, guildID string, caseID uint64) error
}

// Finalizer confirms pending mute cases once the platform reports the role.
type Finalizer struct {
	configs ConfigSource
	ledger  PendingLedger
}

// NewFinalizer creates a finalizer.
func NewFinalizer(configs ConfigSource, ledger PendingLedger) *Finalizer {
	return &Finalizer{configs: configs, ledger: ledger}
}

// Finalized is a case that was just confirmed, with where to log it.
type Finalized struct {
	Action     *guild.ModAction
	LogChannel string
}

// MemberUpdated handles a member update. It returns nil unless the update gave
// the member the guild's mute role and a pending mute exists for them. A nil
// before means the previous roles are unknown.
func (f *Finalizer) MemberUpdated(ctx context.Context, guildID string, before, after *discordgo.Member) (*Finalized, error) {
	if guildID == "" || after == nil || after.User == nil || len(after.Roles) == 0 {
		return nil, nil
	}

	cfg, err := f.configs.GetGuildConfig(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if cfg.MuteRole == nil || *cfg.MuteRole == "" {
		return nil, nil
	}
	muteRole := *cfg.MuteRole
	if !shareddiscord.HasRole(after, muteRole) || (before != nil && shareddiscord.HasRole(before, muteRole)) {
		return nil, nil
	}

	action, err := f.ledger.LatestPending(ctx, guildID, after.User.ID, guild.ActionMute)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := f.ledger.FinalizeModAction(ctx, guildID, action.CaseID); err != nil {
		return nil, err
	}
	action.Pending = false

	out := &Finalized{Action: action}
	if cfg.LogMod != nil {
		out.LogChannel = *cfg.LogMod
	}
	return out, nil
}

// FormatCase renders a one-line log entry.
func FormatCase(a *guild.ModAction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Case #%d** | %s | ", a.CaseID, strings.ToUpper(a.Action))
	if a.UserTag != "" {
		fmt.Fprintf(&b, "%s (%s)", a.UserTag, shareddiscord.MentionUser(a.UserID))
	} else {
		b.WriteString(shareddiscord.MentionUser(a.UserID))
	}
	if a.Reason != nil && *a.Reason != "" {
		fmt.Fprintf(&b, " | %s", *a.Reason)
	}
	if a.ExecutorID != nil {
		fmt.Fprintf(&b, " | by %s", shareddiscord.MentionUser(*a.ExecutorID))
	} else {
		b.WriteString(" | automatic")
	}
	return b.String()
}
