package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	shareddata "github.com/stake-plus/guildmod/src/data"
	"github.com/stake-plus/guildmod/src/shared/guild"
	"gorm.io/gorm"
)

// LoadEnv reads a .env file if one exists. System environment always wins.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, using system environment")
	}
}

// Base contains common configuration fields
type Base struct {
	Token             string
	MySQLDSN          string
	DefaultPrefix     string
	DefaultMaxMention int
}

// LoadBase loads common configuration (discord token, DSN, process defaults)
func LoadBase(db *gorm.DB) Base {
	if err := shareddata.LoadSettings(db); err != nil {
		log.Printf("config: settings table unavailable, using env only: %v", err)
	}

	dsn, err := shareddata.GetMySQLDSN()
	if err != nil {
		log.Printf("config: %v", err)
	}

	return Base{
		Token:             GetSetting("discord_token", "DISCORD_TOKEN", ""),
		MySQLDSN:          dsn,
		DefaultPrefix:     GetSetting("default_prefix", "DEFAULT_PREFIX", ""),
		DefaultMaxMention: getIntSetting("default_max_mention", "DEFAULT_MAX_MENTION", guild.DefaultMaxMention),
	}
}

// GetSetting retrieves a setting with env fallback
func GetSetting(name, envKey, defaultValue string) string {
	val := shareddata.GetSetting(name)
	if val == "" && envKey != "" {
		val = os.Getenv(envKey)
	}
	if val == "" {
		val = defaultValue
	}
	return val
}

func getBoolSetting(settingKey, envKey string, defaultValue bool) bool {
	return parseBoolDefault(GetSetting(settingKey, envKey, ""), defaultValue)
}

func getIntSetting(settingKey, envKey string, defaultValue int) int {
	v := strings.TrimSpace(GetSetting(settingKey, envKey, ""))
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: %s=%q is not a number, using %d", settingKey, v, defaultValue)
		return defaultValue
	}
	return n
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
