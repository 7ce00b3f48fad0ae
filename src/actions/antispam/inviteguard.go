package antispam

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/stake-plus/guildmod/src/discord"
)

// InviteGuard deletes invite links posted by members who cannot manage the
// guild, in guilds that turned the guard on.
type InviteGuard struct {
	platform Platform
	configs  ConfigSource
}

// NewInviteGuard creates an invite guard.
func NewInviteGuard(platform Platform, configs ConfigSource) *InviteGuard {
	return &InviteGuard{platform: platform, configs: configs}
}

// HandleMessage reports whether ev was deleted.
func (g *InviteGuard) HandleMessage(ctx context.Context, ev MessageEvent) (bool, error) {
	if ev.GuildID == "" || ev.AuthorID == "" || ev.AuthorID == g.platform.SelfID() {
		return false, nil
	}
	if !discord.ContainsInvite(ev.Content) {
		return false, nil
	}

	cfg, err := g.configs.GetGuildConfig(ctx, ev.GuildID)
	if err != nil {
		return false, err
	}
	if !cfg.InviteGuardEnabled() {
		return false, nil
	}

	botPerms, err := g.platform.Permissions(ctx, ev.GuildID, g.platform.SelfID())
	if err != nil {
		return false, fmt.Errorf("bot permissions: %w", err)
	}
	if botPerms&discordgo.PermissionManageMessages == 0 {
		return false, nil
	}

	authorPerms, err := g.platform.Permissions(ctx, ev.GuildID, ev.AuthorID)
	if err != nil {
		return false, fmt.Errorf("author permissions: %w", err)
	}
	if authorPerms&discordgo.PermissionManageGuild != 0 {
		return false, nil
	}

	if err := g.platform.DeleteMessage(ctx, ev.ChannelID, ev.MessageID); err != nil {
		return false, fmt.Errorf("delete invite: %w", err)
	}
	return true, nil
}
