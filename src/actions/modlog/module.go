package modlog

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

// Module finalises automated mutes and posts them to the mod log.
type Module struct {
	config     *sharedconfig.ModLogConfig
	session    *discordgo.Session
	finalizer  *Finalizer
	runtimeCtx context.Context
	cancel     context.CancelFunc
	removeFn   func()
}

// NewModule creates the mod-log module on a shared session.
func NewModule(cfg *sharedconfig.ModLogConfig, session *discordgo.Session, store *guild.Store, ledger *guild.Ledger) *Module {
	return &Module{
		config:    cfg,
		session:   session,
		finalizer: NewFinalizer(store, ledger),
	}
}

// Name implements core.Module.
func (m *Module) Name() string { return "modlog" }

func (m *Module) Start(ctx context.Context) error {
	m.runtimeCtx, m.cancel = context.WithCancel(ctx)
	m.removeFn = m.session.AddHandler(m.onMemberUpdate)
	return nil
}

func (m *Module) Stop(ctx context.Context) {
	if m.removeFn != nil {
		m.removeFn()
		m.removeFn = nil
	}
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *Module) onMemberUpdate(s *discordgo.Session, u *discordgo.GuildMemberUpdate) {
	if u == nil || u.Member == nil || u.User == nil || m.runtimeCtx == nil {
		return
	}

	done, err := m.finalizer.MemberUpdated(m.runtimeCtx, u.GuildID, u.BeforeUpdate, u.Member)
	if err != nil {
		log.Printf("modlog: finalize mute for %s in %s: %v", u.User.ID, u.GuildID, err)
		return
	}
	if done == nil {
		return
	}

	log.Printf("modlog: case #%d in %s confirmed", done.Action.CaseID, u.GuildID)
	if done.LogChannel == "" {
		return
	}
	if err := shareddiscord.SendLog(s, done.LogChannel, FormatCase(done.Action)); err != nil {
		log.Printf("modlog: post case #%d to %s: %v", done.Action.CaseID, done.LogChannel, err)
	}
}
