package antispam

import (
	"context"
	"log"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/stake-plus/guildmod/src/actions/core"
	sharedconfig "github.com/stake-plus/guildmod/src/config"
	shareddiscord "github.com/stake-plus/guildmod/src/discord"
	"github.com/stake-plus/guildmod/src/logging"
	"github.com/stake-plus/guildmod/src/shared/guild"
)

var _ core.Module = (*Module)(nil)

// Module feeds guild messages through the invite guard and the mention-limit
// engine.
type Module struct {
	config     *sharedconfig.AntiSpamConfig
	session    *discordgo.Session
	engine     *Engine
	guard      *InviteGuard
	runtimeCtx context.Context
	cancel     context.CancelFunc
	removeFn   func()
}

// NewModule wires the engine to a shared session.
func NewModule(cfg *sharedconfig.AntiSpamConfig, session *discordgo.Session, store *guild.Store, ledger *guild.Ledger) *Module {
	platform := NewSessionPlatform(session)
	return &Module{
		config:  cfg,
		session: session,
		engine:  NewEngine(platform, store, ledger),
		guard:   NewInviteGuard(platform, store),
	}
}

// Name implements core.Module.
func (m *Module) Name() string { return "antispam" }

func (m *Module) Start(ctx context.Context) error {
	m.runtimeCtx, m.cancel = context.WithCancel(ctx)
	m.removeFn = m.session.AddHandler(m.onMessageCreate)
	log.Printf("antispam: watching guild messages")
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

func (m *Module) onMessageCreate(s *discordgo.Session, msg *discordgo.MessageCreate) {
	ev, ok := eventFromMessage(msg)
	if !ok {
		return
	}
	ctx := m.runtimeCtx
	if ctx == nil || ctx.Err() != nil {
		return
	}
	trace := uuid.NewString()

	deleted, err := m.guard.HandleMessage(ctx, ev)
	if err != nil {
		log.Printf("antispam: [%s] invite guard guild=%s user=%s: %v (%s)", trace, ev.GuildID, ev.AuthorID, err, logging.Describe(err))
	} else if deleted {
		log.Printf("antispam: [%s] removed invite from guild=%s user=%s", trace, ev.GuildID, ev.AuthorID)
	}

	res, err := m.engine.HandleMessage(ctx, ev)
	switch {
	case res.Outcome == Muted:
		log.Printf("antispam: [%s] muted guild=%s user=%s case=#%d mentions=%d limit=%d",
			trace, ev.GuildID, ev.AuthorID, res.CaseID, len(ev.Mentions), res.Limit)
	case err != nil:
		log.Printf("antispam: [%s] %s guild=%s user=%s case=#%d: %v (%s)",
			trace, res.Outcome, ev.GuildID, ev.AuthorID, res.CaseID, err, logging.Describe(err))
	}
}

func eventFromMessage(msg *discordgo.MessageCreate) (MessageEvent, bool) {
	if msg == nil || msg.Message == nil || msg.Author == nil {
		return MessageEvent{}, false
	}
	if msg.GuildID == "" || msg.WebhookID != "" {
		return MessageEvent{}, false
	}

	mentions := make([]string, 0, len(msg.Mentions))
	for _, u := range msg.Mentions {
		if u != nil {
			mentions = append(mentions, u.ID)
		}
	}

	return MessageEvent{
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		MessageID: msg.ID,
		AuthorID:  msg.Author.ID,
		AuthorTag: msg.Author.String(),
		Mentions:  mentions,
		Content:   msg.Content,
	}, true
}

// SessionPlatform implements Platform on a discordgo session.
type SessionPlatform struct {
	session *discordgo.Session
}

// NewSessionPlatform wraps s.
func NewSessionPlatform(s *discordgo.Session) *SessionPlatform {
	return &SessionPlatform{session: s}
}

func (p *SessionPlatform) SelfID() string {
	if p.session.State == nil || p.session.State.User == nil {
		return ""
	}
	return p.session.State.User.ID
}

func (p *SessionPlatform) Permissions(ctx context.Context, guildID, userID string) (int64, error) {
	return shareddiscord.MemberPermissions(p.session, guildID, userID)
}

func (p *SessionPlatform) ResolveMember(ctx context.Context, guildID, userID string) (*Member, error) {
	member, err := p.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	out := &Member{UserID: userID}
	if member.User != nil {
		out.UserID = member.User.ID
		out.Tag = member.User.String()
	}
	return out, nil
}

func (p *SessionPlatform) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	return p.session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx))
}

func (p *SessionPlatform) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return p.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
}
