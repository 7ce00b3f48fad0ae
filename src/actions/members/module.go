package members

import (
	"context"
	"log"

	"github.com/bwmarrin/discordgo"
	"github.com/stake-plus/guildmod/src/actions/core"
	sharedconfig "github.com/stake-plus/guildmod/src/config"
	shareddiscord "github.com/stake-plus/guildmod/src/discord"
	"github.com/stake-plus/guildmod/src/shared/guild"
)

var _ core.Module = (*Module)(nil)

// Module posts join and leave messages to the member log.
type Module struct {
	config     *sharedconfig.MembersConfig
	session    *discordgo.Session
	announcer  *Announcer
	runtimeCtx context.Context
	cancel     context.CancelFunc
	removeFns  []func()
}

// NewModule creates the members module on a shared session.
func NewModule(cfg *sharedconfig.MembersConfig, session *discordgo.Session, store *guild.Store) *Module {
	return &Module{
		config:    cfg,
		session:   session,
		announcer: NewAnnouncer(store),
	}
}

// Name implements core.Module.
func (m *Module) Name() string { return "members" }

func (m *Module) Start(ctx context.Context) error {
	m.runtimeCtx, m.cancel = context.WithCancel(ctx)
	m.removeFns = append(m.removeFns,
		m.session.AddHandler(m.onMemberAdd),
		m.session.AddHandler(m.onMemberRemove),
	)
	return nil
}

func (m *Module) Stop(ctx context.Context) {
	for _, remove := range m.removeFns {
		remove()
	}
	m.removeFns = nil
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *Module) onMemberAdd(s *discordgo.Session, e *discordgo.GuildMemberAdd) {
	if e == nil || e.Member == nil || e.User == nil {
		return
	}
	m.announce(s, eventFor(s, e.GuildID, e.User, true))
}

func (m *Module) onMemberRemove(s *discordgo.Session, e *discordgo.GuildMemberRemove) {
	if e == nil || e.Member == nil || e.User == nil {
		return
	}
	m.announce(s, eventFor(s, e.GuildID, e.User, false))
}

func eventFor(s *discordgo.Session, guildID string, user *discordgo.User, joined bool) Event {
	ev := Event{GuildID: guildID, UserID: user.ID, UserName: user.String(), Joined: joined}
	if g, err := s.State.Guild(guildID); err == nil && g != nil {
		ev.GuildName = g.Name
	}
	return ev
}

func (m *Module) announce(s *discordgo.Session, ev Event) {
	if m.runtimeCtx == nil {
		return
	}
	out, err := m.announcer.Announce(m.runtimeCtx, ev)
	if err != nil {
		log.Printf("members: load config for %s: %v", ev.GuildID, err)
		return
	}
	if out == nil {
		return
	}
	if err := shareddiscord.SendLog(s, out.ChannelID, out.Content); err != nil {
		log.Printf("members: post to %s: %v", out.ChannelID, err)
	}
}
