package settings

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"github.com/stake-plus/guildmod/src/actions/core"
	sharedconfig "github.com/stake-plus/guildmod/src/config"
	shareddiscord "github.com/stake-plus/guildmod/src/discord"
	"github.com/stake-plus/guildmod/src/shared/guild"
	"github.com/stake-plus/guildmod/src/webclient"
)

var _ core.Module = (*Module)(nil)

// Module serves the guild settings slash commands.
type Module struct {
	config     *sharedconfig.SettingsConfig
	session    *discordgo.Session
	handler    *Handler
	runtimeCtx context.Context
	cancel     context.CancelFunc
	removeFns  []func()
}

// NewModule creates the settings module on a shared session.
func NewModule(cfg *sharedconfig.SettingsConfig, session *discordgo.Session, store *guild.Store) *Module {
	return &Module{
		config:  cfg,
		session: session,
		handler: &Handler{
			Store:         store,
			Roles:         sessionRoles{session: session},
			Fetch:         webclient.NewDownloader(cfg.DownloadTimeout, maxRoleConfigBytes),
			DefaultPrefix: cfg.DefaultPrefix,
		},
	}
}

// Name implements core.Module.
func (m *Module) Name() string { return "settings" }

func (m *Module) Start(ctx context.Context) error {
	m.runtimeCtx, m.cancel = context.WithCancel(ctx)
	m.removeFns = append(m.removeFns,
		m.session.AddHandler(m.onReady),
		m.session.AddHandler(m.onInteractionCreate),
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

func (m *Module) onReady(s *discordgo.Session, r *discordgo.Ready) {
	if err := shareddiscord.RegisterSlashCommands(s, m.config.GuildID); err != nil {
		log.Printf("settings: failed to register slash commands: %v", err)
		return
	}
	log.Printf("settings: slash commands registered")
}

func (m *Module) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	name := i.ApplicationCommandData().Name
	if _, ok := shareddiscord.CommandDefinition(name); !ok {
		return
	}

	req := requestFromInteraction(i)
	ctx := m.runtimeCtx
	if ctx == nil {
		return
	}

	// downloads can outlive the three second response window
	if req.Attachment != nil {
		if err := shareddiscord.Defer(s, i.Interaction, false); err != nil {
			log.Printf("settings: defer %s: %v", name, err)
			return
		}
		reply := m.handler.Handle(ctx, req)
		if err := shareddiscord.EditDeferred(s, i.Interaction, reply); err != nil {
			log.Printf("settings: reply to %s: %v", name, err)
		}
		return
	}

	reply := m.handler.Handle(ctx, req)
	if err := shareddiscord.Respond(s, i.Interaction, reply); err != nil {
		log.Printf("settings: reply to %s: %v", name, err)
	}
}

func requestFromInteraction(i *discordgo.InteractionCreate) Request {
	data := i.ApplicationCommandData()
	req := Request{
		Command: data.Name,
		GuildID: i.GuildID,
		Args:    make(map[string]string, len(data.Options)),
	}
	if i.Member != nil {
		req.Permissions = i.Member.Permissions
		if i.Member.User != nil {
			req.UserID = i.Member.User.ID
		}
	} else if i.User != nil {
		req.UserID = i.User.ID
	}

	for _, opt := range data.Options {
		switch opt.Type {
		case discordgo.ApplicationCommandOptionInteger:
			req.Args[opt.Name] = strconv.FormatInt(opt.IntValue(), 10)
		case discordgo.ApplicationCommandOptionAttachment:
			id, _ := opt.Value.(string)
			if data.Resolved != nil {
				if att, ok := data.Resolved.Attachments[id]; ok && att != nil {
					req.Attachment = &Attachment{Filename: att.Filename, URL: att.URL, Size: att.Size}
				}
			}
		default:
			req.Args[opt.Name] = fmt.Sprint(opt.Value)
		}
	}
	return req
}

type sessionRoles struct {
	session *discordgo.Session
}

func (r sessionRoles) GuildRoles(ctx context.Context, guildID string) ([]*discordgo.Role, error) {
	if g, err := r.session.State.Guild(guildID); err == nil && g != nil && len(g.Roles) > 0 {
		return g.Roles, nil
	}
	return r.session.GuildRoles(guildID, discordgo.WithContext(ctx))
}
