package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	shareddiscord "github.com/stake-plus/guildmod/src/discord"
	"github.com/stake-plus/guildmod/src/shared/guild"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	guildID = "100000000000000001"
	adminID = "200000000000000001"
)

type fakeRoles struct {
	roles []*discordgo.Role
	err   error
}

func (f fakeRoles) GuildRoles(ctx context.Context, id string) ([]*discordgo.Role, error) {
	return f.roles, f.err
}

type fakeFetch struct {
	body  string
	err   error
	calls int
}

func (f *fakeFetch) Get(ctx context.Context, url string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.body), nil
}

type brokenStore struct {
	ConfigStore
}

func (brokenStore) GetGuildConfig(ctx context.Context, id string) (*guild.GuildConfig, error) {
	return nil, errors.New("connection refused")
}

func testStore(t *testing.T) *guild.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(guild.Models()...))
	return guild.NewStore(db, nil, guild.DefaultMaxMention)
}

func testRoles() []*discordgo.Role {
	return []*discordgo.Role{
		{ID: guildID, Name: "@everyone", Position: 0},
		{ID: "300000000000000002", Name: "Muted", Position: 2},
		{ID: "300000000000000001", Name: "Mods", Position: 5},
	}
}

func newHandler(t *testing.T) (*Handler, *guild.Store, *fakeFetch) {
	store := testStore(t)
	fetch := &fakeFetch{}
	return &Handler{
		Store:         store,
		Roles:         fakeRoles{roles: testRoles()},
		Fetch:         fetch,
		DefaultPrefix: "!",
	}, store, fetch
}

func req(command string, args map[string]string) Request {
	return Request{
		Command:     command,
		GuildID:     guildID,
		UserID:      adminID,
		Permissions: discordgo.PermissionManageGuild,
		Args:        args,
	}
}

func TestPrefixCommand(t *testing.T) {
	h, _, _ := newHandler(t)
	ctx := context.Background()

	assert.Equal(t, "The current prefix is `!`.", h.Handle(ctx, req(shareddiscord.CommandPrefix, nil)).Content)
	assert.Equal(t, "Prefix set to `?`.", h.Handle(ctx, req(shareddiscord.CommandPrefix, map[string]string{"value": "?"})).Content)
	assert.Equal(t, "The prefix is already `?`.", h.Handle(ctx, req(shareddiscord.CommandPrefix, map[string]string{"value": "?"})).Content)
	assert.Equal(t, "The current prefix is `?`.", h.Handle(ctx, req(shareddiscord.CommandPrefix, nil)).Content)

	bad := h.Handle(ctx, req(shareddiscord.CommandPrefix, map[string]string{"value": "a b"}))
	assert.Contains(t, bad.Content, "no spaces")

	dm := req(shareddiscord.CommandPrefix, nil)
	dm.GuildID = ""
	assert.Equal(t, "The current prefix is `!`.", h.Handle(ctx, dm).Content)
}

func TestCommandsNeedManageGuild(t *testing.T) {
	h, store, _ := newHandler(t)
	ctx := context.Background()

	r := req(shareddiscord.CommandMaxMentions, map[string]string{"limit": "3"})
	r.Permissions = discordgo.PermissionSendMessages
	reply := h.Handle(ctx, r)
	assert.Contains(t, reply.Content, "Manage Server")

	cfg, err := store.GetGuildConfig(ctx, guildID)
	require.NoError(t, err)
	assert.Equal(t, guild.DefaultMaxMention, cfg.MaxMention)

	r = req(shareddiscord.CommandPrefix, nil)
	r.Permissions = 0
	assert.Contains(t, h.Handle(ctx, r).Content, "current prefix")
}

func TestCommandsNeedGuild(t *testing.T) {
	h, _, _ := newHandler(t)
	r := req(shareddiscord.CommandListIDs, nil)
	r.GuildID = ""
	assert.Equal(t, guild.ErrNoGuild.Error(), h.Handle(context.Background(), r).Content)
}

func TestAnnouncementCommands(t *testing.T) {
	h, store, _ := newHandler(t)
	ctx := context.Background()

	assert.Equal(t, "No join message is set.", h.Handle(ctx, req(shareddiscord.CommandJoinMsg, nil)).Content)

	h.Handle(ctx, req(shareddiscord.CommandJoinMsg, map[string]string{"text": "Welcome {mention}!"}))
	h.Handle(ctx, req(shareddiscord.CommandLeaveMsg, map[string]string{"text": "Bye {user}"}))

	cfg, err := store.GetGuildConfig(ctx, guildID)
	require.NoError(t, err)
	require.NotNil(t, cfg.JoinMsg)
	assert.Equal(t, "Welcome {mention}!", *cfg.JoinMsg)
	assert.Equal(t, "Bye {user}", *cfg.LeaveMsg)

	assert.Contains(t, h.Handle(ctx, req(shareddiscord.CommandJoinMsg, nil)).Content, "Welcome {mention}!")

	assert.Equal(t, "The join message has been disabled.", h.Handle(ctx, req(shareddiscord.CommandJoinMsg, map[string]string{"text": "off"})).Content)
	cfg, err = store.GetGuildConfig(ctx, guildID)
	require.NoError(t, err)
	assert.Nil(t, cfg.JoinMsg)
	assert.NotNil(t, cfg.LeaveMsg)
}

func TestChannelCommands(t *testing.T) {
	h, store, _ := newHandler(t)
	ctx := context.Background()
	ch := "400000000000000001"

	for _, cmd := range []string{
		shareddiscord.CommandModLog,
		shareddiscord.CommandMsgLog,
		shareddiscord.CommandMemberLog,
		shareddiscord.CommandRolesChannel,
	} {
		reply := h.Handle(ctx, req(cmd, map[string]string{"channel": ch}))
		assert.Contains(t, reply.Content, "<#"+ch+">", cmd)
	}

	cfg, err := store.GetGuildConfig(ctx, guildID)
	require.NoError(t, err)
	for _, got := range []*string{cfg.LogMod, cfg.LogMsg, cfg.LogMember, cfg.RoleChannel} {
		require.NotNil(t, got)
		assert.Equal(t, ch, *got)
	}

	assert.Equal(t, "Please give a channel.", h.Handle(ctx, req(shareddiscord.CommandModLog, nil)).Content)
	assert.Equal(t, "That is not a valid channel.", h.Handle(ctx, req(shareddiscord.CommandModLog, map[string]string{"channel": "general"})).Content)
}

func TestInviteGuardCommand(t *testing.T) {
	h, store, _ := newHandler(t)
	ctx := context.Background()

	assert.Equal(t, "Invite guard has been enabled.", h.Handle(ctx, req(shareddiscord.CommandInviteGuard, map[string]string{"state": "enable"})).Content)
	cfg, err := store.GetGuildConfig(ctx, guildID)
	require.NoError(t, err)
	assert.True(t, cfg.InviteGuardEnabled())

	h.Handle(ctx, req(shareddiscord.CommandInviteGuard, map[string]string{"state": "disable"}))
	cfg, err = store.GetGuildConfig(ctx, guildID)
	require.NoError(t, err)
	require.NotNil(t, cfg.InviteGuard)
	assert.False(t, *cfg.InviteGuard)

	assert.Contains(t, h.Handle(ctx, req(shareddiscord.CommandInviteGuard, map[string]string{"state": "maybe"})).Content, "enable")
}

const validRoles = `{"colors": {"limit": 1, "roles": {"red": {"search": "^red$", "primary": 123456789012345678, "secondary": 0}}}}`

func TestRolesSetAndGet(t *testing.T) {
	h, store, _ := newHandler(t)
	ctx := context.Background()

	_, err := store.GetGuildConfig(ctx, guildID)
	require.NoError(t, err)
	assert.Equal(t, "No role configuration has been set.", h.Handle(ctx, req(shareddiscord.CommandRolesGet, nil)).Content)

	reply := h.Handle(ctx, req(shareddiscord.CommandRolesSet, map[string]string{"config": "```json\n" + validRoles + "\n```"}))
	assert.Equal(t, "The role configuration has been saved.", reply.Content)

	reply = h.Handle(ctx, req(shareddiscord.CommandRolesSet, map[string]string{"config": validRoles}))
	assert.Equal(t, "The role configuration is unchanged.", reply.Content)

	got := h.Handle(ctx, req(shareddiscord.CommandRolesGet, nil))
	assert.True(t, strings.HasPrefix(got.Content, "```json\n"))
	assert.Contains(t, got.Content, "123456789012345678")
}

func TestRolesSetReportsEveryProblem(t *testing.T) {
	h, store, _ := newHandler(t)
	ctx := context.Background()

	reply := h.Handle(ctx, req(shareddiscord.CommandRolesSet, map[string]string{
		"config": `{"a": {"roles": {}}, "b": {"limit": "x", "roles": []}}`,
	}))
	assert.Contains(t, reply.Content, "Missing category limit for `a`, set to 0 to disable")
	assert.Contains(t, reply.Content, "Roles for `a` cannot be empty")
	assert.Contains(t, reply.Content, "Category limit for `b` has to be a number")
	assert.Contains(t, reply.Content, "Roles in category `b` are not configured properly as an object")

	cfg, err := store.GetGuildConfig(ctx, guildID)
	require.NoError(t, err)
	assert.Nil(t, cfg.RoleConfig)

	reply = h.Handle(ctx, req(shareddiscord.CommandRolesSet, map[string]string{"config": "[1, 2]"}))
	assert.Contains(t, reply.Content, "Could not read the role configuration")

	reply = h.Handle(ctx, req(shareddiscord.CommandRolesSet, nil))
	assert.Contains(t, reply.Content, "as text or attach it")
}

func TestRolesSetFromAttachment(t *testing.T) {
	h, store, fetch := newHandler(t)
	ctx := context.Background()
	fetch.body = validRoles

	r := req(shareddiscord.CommandRolesSet, nil)
	r.Attachment = &Attachment{Filename: "roles.json", URL: "https://cdn.example/roles.json", Size: len(validRoles)}
	assert.Equal(t, "The role configuration has been saved.", h.Handle(ctx, r).Content)
	assert.Equal(t, 1, fetch.calls)

	cfg, err := store.GetGuildConfig(ctx, guildID)
	require.NoError(t, err)
	assert.NotNil(t, cfg.RoleConfig)

	r.Attachment.Size = maxRoleConfigBytes + 1
	assert.Contains(t, h.Handle(ctx, r).Content, "too large")
	assert.Equal(t, 1, fetch.calls)

	r.Attachment.Size = 10
	fetch.err = errors.New("cdn down")
	assert.Equal(t, genericFailureReply, h.Handle(ctx, r).Content)
}

func TestMuteRoleCommand(t *testing.T) {
	h, store, _ := newHandler(t)
	ctx := context.Background()

	for _, input := range []string{"<@&300000000000000002>", "300000000000000002", "Muted"} {
		reply := h.Handle(ctx, req(shareddiscord.CommandMuteRole, map[string]string{"role": input}))
		assert.Equal(t, "Mute role set to <@&300000000000000002>.", reply.Content, input)
	}

	cfg, err := store.GetGuildConfig(ctx, guildID)
	require.NoError(t, err)
	assert.Equal(t, "300000000000000002", *cfg.MuteRole)

	for _, input := range []string{"muted", "<@&399999999999999999>"} {
		reply := h.Handle(ctx, req(shareddiscord.CommandMuteRole, map[string]string{"role": input}))
		assert.Equal(t, "That role does not exist in this server.", reply.Content, input)
	}
}

func TestMaxMentionsCommand(t *testing.T) {
	h, store, _ := newHandler(t)
	ctx := context.Background()

	h.Handle(ctx, req(shareddiscord.CommandMaxMentions, map[string]string{"limit": "0"}))
	cfg, err := store.GetGuildConfig(ctx, guildID)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.MaxMention)

	reply := h.Handle(ctx, req(shareddiscord.CommandMaxMentions, map[string]string{"limit": "-1"}))
	assert.Contains(t, reply.Content, "zero or more")
}

func TestListIDs(t *testing.T) {
	h, _, _ := newHandler(t)
	ctx := context.Background()

	reply := h.Handle(ctx, req(shareddiscord.CommandListIDs, nil))
	assert.False(t, reply.HasFile())
	assert.Equal(t, "Server roles:\n```ruby\n"+
		"[05] 300000000000000001 - Mods\n"+
		"[02] 300000000000000002 - Muted\n"+
		"[00] "+guildID+" - @everyone\n"+
		"```", reply.Content)

	many := make([]*discordgo.Role, 0, 80)
	for i := 0; i < 80; i++ {
		many = append(many, &discordgo.Role{ID: fmt.Sprintf("3000000000000001%02d", i), Name: "role with a fairly long name", Position: i})
	}
	h.Roles = fakeRoles{roles: many}
	reply = h.Handle(ctx, req(shareddiscord.CommandListIDs, nil))
	require.True(t, reply.HasFile())
	assert.Equal(t, "roles.txt", reply.FileName)
	assert.True(t, strings.HasPrefix(string(reply.File), "[79] "))
	assert.GreaterOrEqual(t, len(reply.File), shareddiscord.MaxDiscordMessageLen)
}

func TestListIDsCountsCodeBlockFraming(t *testing.T) {
	h, _, _ := newHandler(t)

	// 20 lines of 99 bytes: the list fits in 2000 bytes, the framed message does not
	roles := make([]*discordgo.Role, 0, 20)
	for i := 0; i < 20; i++ {
		roles = append(roles, &discordgo.Role{ID: fmt.Sprintf("3000000000000002%02d", i), Name: strings.Repeat("n", 72), Position: i})
	}
	h.Roles = fakeRoles{roles: roles}
	require.Len(t, RoleList(roles), 1980)

	reply := h.Handle(context.Background(), req(shareddiscord.CommandListIDs, nil))
	require.True(t, reply.HasFile())
	assert.Equal(t, "roles.txt", reply.FileName)
	assert.Len(t, reply.File, 1980)

	// one line fewer leaves room for the framing
	h.Roles = fakeRoles{roles: roles[1:]}
	reply = h.Handle(context.Background(), req(shareddiscord.CommandListIDs, nil))
	assert.False(t, reply.HasFile())
	assert.LessOrEqual(t, len(reply.Content), shareddiscord.MaxDiscordMessageLen)
	assert.True(t, strings.HasSuffix(reply.Content, "```"))
}

func TestStorageFailureIsOneMessage(t *testing.T) {
	h, _, _ := newHandler(t)
	h.Store = brokenStore{}
	reply := h.Handle(context.Background(), req(shareddiscord.CommandMaxMentions, map[string]string{"limit": "4"}))
	assert.Equal(t, genericFailureReply, reply.Content)
}
