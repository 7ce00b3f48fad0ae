package members

import (
	"context"
	"strings"

	shareddiscord "github.com/stake-plus/guildmod/src/discord"
	"github.com/stake-plus/guildmod/src/shared/guild"
)

// ConfigSource supplies guild configuration.
type ConfigSource interface {
	GetGuildConfig(ctx context.Context, guildID string) (*guild.GuildConfig, error)
}

// Event identifies the member who joined or left.
type Event struct {
	GuildID   string
	GuildName string
	UserID    string
	UserName  string
	Joined    bool
}

// Announcement is a rendered message and its destination.
type Announcement struct {
	ChannelID string
	Content   string
}

// Render substitutes {mention}, {user} and {server} in template.
func Render(template string, ev Event) string {
	return strings.NewReplacer(
		"{mention}", shareddiscord.MentionUser(ev.UserID),
		"{user}", ev.UserName,
		"{server}", ev.GuildName,
	).Replace(template)
}

// Announcer turns member events into announcements.
type Announcer struct {
	configs ConfigSource
}

// NewAnnouncer creates an announcer.
func NewAnnouncer(configs ConfigSource) *Announcer {
	return &Announcer{configs: configs}
}

// Announce returns nil when the guild has no member log or no message for
// this kind of event.
func (a *Announcer) Announce(ctx context.Context, ev Event) (*Announcement, error) {
	if ev.GuildID == "" {
		return nil, nil
	}
	cfg, err := a.configs.GetGuildConfig(ctx, ev.GuildID)
	if err != nil {
		return nil, err
	}
	if cfg.LogMember == nil || *cfg.LogMember == "" {
		return nil, nil
	}

	template := cfg.LeaveMsg
	if ev.Joined {
		template = cfg.JoinMsg
	}
	if template == nil || *template == "" {
		return nil, nil
	}

	return &Announcement{ChannelID: *cfg.LogMember, Content: Render(*template, ev)}, nil
}
