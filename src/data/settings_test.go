package data

import (
	"path/filepath"
	"testing"

	"github.com/stake-plus/guildmod/src/shared/guild"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectSQLiteMigrateAndLoadSettings(t *testing.T) {
	db, err := Connect(sqliteScheme + filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	require.NoError(t, db.Create(&guild.Setting{Name: "default_prefix", Value: "!", Active: 1}).Error)
	require.NoError(t, db.Create(&guild.Setting{Name: "retired", Value: "x", Active: 0}).Error)

	require.NoError(t, LoadSettings(db))
	assert.Equal(t, "!", GetSetting("default_prefix"))
	assert.Equal(t, "", GetSetting("retired"))
	assert.Equal(t, "", GetSetting("missing"))
}

func TestEnsureParam(t *testing.T) {
	assert.Equal(t, "u:p@tcp(h)/db?parseTime=true", ensureParam("u:p@tcp(h)/db", "parseTime", "true"))
	assert.Equal(t, "u:p@tcp(h)/db?a=b&parseTime=true", ensureParam("u:p@tcp(h)/db?a=b", "parseTime", "true"))
	assert.Equal(t, "u:p@tcp(h)/db?parseTime=false", ensureParam("u:p@tcp(h)/db?parseTime=false", "parseTime", "true"))
}
