package core

import (
	"context"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
)

var _ Module = (*Gateway)(nil)

// Gateway owns the shared Discord session. Register it after every module
// that adds handlers so the connection opens last and closes first.
type Gateway struct {
	session *discordgo.Session
}

// NewSession creates a bot session with the intents the action modules need.
func NewSession(token string) (*discordgo.Session, error) {
	if token == "" {
		return nil, fmt.Errorf("discord token is not configured")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent
	session.StateEnabled = true
	return session, nil
}

// NewGateway wraps an existing session.
func NewGateway(session *discordgo.Session) *Gateway {
	return &Gateway{session: session}
}

// Name implements Module.
func (g *Gateway) Name() string { return "gateway" }

func (g *Gateway) Start(ctx context.Context) error {
	g.session.AddHandlerOnce(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Printf("gateway: logged in as %s (%d guilds)", r.User.String(), len(r.Guilds))
	})
	if err := g.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}
	return nil
}

func (g *Gateway) Stop(ctx context.Context) {
	if err := g.session.Close(); err != nil {
		log.Printf("gateway: close: %v", err)
	}
}
