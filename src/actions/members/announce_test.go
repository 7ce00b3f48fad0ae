package members

import (
	"context"
	"errors"
	"testing"

	"github.com/stake-plus/guildmod/src/shared/guild"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticConfigs struct {
	cfg *guild.GuildConfig
	err error
}

func (s staticConfigs) GetGuildConfig(ctx context.Context, id string) (*guild.GuildConfig, error) {
	return s.cfg, s.err
}

func strptr(s string) *string { return &s }

func TestRender(t *testing.T) {
	ev := Event{GuildName: "Lounge", UserID: "42", UserName: "alice"}
	assert.Equal(t, "Welcome <@42> (alice) to Lounge! {unknown}", Render("Welcome {mention} ({user}) to {server}! {unknown}", ev))
}

func TestAnnounce(t *testing.T) {
	ctx := context.Background()
	cfg := &guild.GuildConfig{
		GuildID:   "1",
		JoinMsg:   strptr("hi {mention}"),
		LogMember: strptr("99"),
	}
	a := NewAnnouncer(staticConfigs{cfg: cfg})

	out, err := a.Announce(ctx, Event{GuildID: "1", UserID: "42", Joined: true})
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "99", out.ChannelID)
	assert.Equal(t, "hi <@42>", out.Content)

	// no leave message configured
	out, err = a.Announce(ctx, Event{GuildID: "1", UserID: "42"})
	require.NoError(t, err)
	assert.Nil(t, out)

	cfg.LogMember = nil
	out, err = a.Announce(ctx, Event{GuildID: "1", UserID: "42", Joined: true})
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestAnnounceConfigError(t *testing.T) {
	_, err := NewAnnouncer(staticConfigs{err: errors.New("down")}).Announce(context.Background(), Event{GuildID: "1"})
	assert.Error(t, err)
}
