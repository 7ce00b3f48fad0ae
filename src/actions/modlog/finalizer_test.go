package modlog

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stake-plus/guildmod/src/shared/guild"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setup(t *testing.T) (*guild.Store, *guild.Ledger) {
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
	return guild.NewStore(db, nil, guild.DefaultMaxMention), guild.NewLedger(db)
}

func strptr(s string) *string { return &s }

func member(userID string, roles ...string) *discordgo.Member {
	return &discordgo.Member{User: &discordgo.User{ID: userID}, Roles: roles}
}

func TestMemberUpdatedFinalizesLatestPendingMute(t *testing.T) {
	ctx := context.Background()
	store, ledger := setup(t)

	cfg := store.DefaultConfig("1")
	cfg.MuteRole = strptr("555")
	cfg.LogMod = strptr("777")
	require.NoError(t, store.SaveGuildConfig(ctx, cfg))

	reason := "Automated Mute: User exceeded mention limit. (10)"
	_, err := ledger.AddModAction(ctx, guild.NewModAction{Action: guild.ActionMute, GuildID: "1", UserID: "u", UserTag: "user", Reason: &reason, Pending: true})
	require.NoError(t, err)

	f := NewFinalizer(store, ledger)

	done, err := f.MemberUpdated(ctx, "1", member("u"), member("u", "123"))
	require.NoError(t, err)
	assert.Nil(t, done)

	// the role was already held before this update
	done, err = f.MemberUpdated(ctx, "1", member("u", "555"), member("u", "123", "555"))
	require.NoError(t, err)
	assert.Nil(t, done)

	done, err = f.MemberUpdated(ctx, "1", member("u", "123"), member("u", "123", "555"))
	require.NoError(t, err)
	require.NotNil(t, done)
	assert.EqualValues(t, 1, done.Action.CaseID)
	assert.False(t, done.Action.Pending)
	assert.Equal(t, "777", done.LogChannel)

	stored, err := ledger.GetModAction(ctx, "1", 1)
	require.NoError(t, err)
	assert.False(t, stored.Pending)

	// nothing pending any more, and unknown previous roles count as added
	done, err = f.MemberUpdated(ctx, "1", nil, member("u", "555"))
	require.NoError(t, err)
	assert.Nil(t, done)
}

func TestMemberUpdatedUnknownBeforeState(t *testing.T) {
	ctx := context.Background()
	store, ledger := setup(t)

	cfg := store.DefaultConfig("1")
	cfg.MuteRole = strptr("555")
	require.NoError(t, store.SaveGuildConfig(ctx, cfg))
	_, err := ledger.AddModAction(ctx, guild.NewModAction{Action: guild.ActionMute, GuildID: "1", UserID: "u", Pending: true})
	require.NoError(t, err)

	done, err := NewFinalizer(store, ledger).MemberUpdated(ctx, "1", nil, member("u", "555"))
	require.NoError(t, err)
	require.NotNil(t, done)
	assert.Empty(t, done.LogChannel)
}

func TestMemberUpdatedWithoutMuteRole(t *testing.T) {
	store, ledger := setup(t)
	done, err := NewFinalizer(store, ledger).MemberUpdated(context.Background(), "1", nil, member("u", "555"))
	require.NoError(t, err)
	assert.Nil(t, done)
}

func TestFormatCase(t *testing.T) {
	reason := "Automated Mute: User exceeded mention limit. (10)"
	line := FormatCase(&guild.ModAction{CaseID: 7, Action: guild.ActionMute, UserID: "42", UserTag: "spammer", Reason: &reason})
	assert.Equal(t, "**Case #7** | MUTE | spammer (<@42>) | Automated Mute: User exceeded mention limit. (10) | automatic", line)

	mod := "9"
	line = FormatCase(&guild.ModAction{CaseID: 8, Action: guild.ActionBan, UserID: "42", ExecutorID: &mod})
	assert.Equal(t, "**Case #8** | BAN | <@42> | by <@9>", line)
}
