package config

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// CacheConfig selects the guild config cache backend.
type CacheConfig struct {
	RedisURL string
	TTL      time.Duration
}

// LoadCacheConfig loads cache configuration. An empty RedisURL means the
// in-process cache is used.
func LoadCacheConfig(db *gorm.DB) CacheConfig {
	ttl := getIntSetting("config_cache_ttl_seconds", "CONFIG_CACHE_TTL_SECONDS", 300)
	return CacheConfig{
		RedisURL: GetSetting("redis_url", "REDIS_URL", ""),
		TTL:      time.Duration(ttl) * time.Second,
	}
}

// AntiSpamConfig holds mention-spam enforcement configuration
type AntiSpamConfig struct {
	Base
	Enabled bool
}

// LoadAntiSpamConfig loads anti-spam configuration
func LoadAntiSpamConfig(db *gorm.DB) AntiSpamConfig {
	return AntiSpamConfig{
		Base:    LoadBase(db),
		Enabled: getBoolSetting("enable_antispam", "ENABLE_ANTISPAM", true),
	}
}

// SettingsConfig holds configuration for the settings commands
type SettingsConfig struct {
	Base
	// GuildID limits slash command registration to one guild when set.
	GuildID         string
	DownloadTimeout time.Duration
	Enabled         bool
}

// LoadSettingsConfig loads settings command configuration
func LoadSettingsConfig(db *gorm.DB) SettingsConfig {
	return SettingsConfig{
		Base:            LoadBase(db),
		GuildID:         GetSetting("guild_id", "GUILD_ID", ""),
		DownloadTimeout: time.Duration(getIntSetting("download_timeout_seconds", "DOWNLOAD_TIMEOUT_SECONDS", 30)) * time.Second,
		Enabled:         getBoolSetting("enable_settings", "ENABLE_SETTINGS", true),
	}
}

// ModLogConfig holds configuration for the mod-log finaliser
type ModLogConfig struct {
	Base
	Enabled bool
}

// LoadModLogConfig loads mod-log configuration
func LoadModLogConfig(db *gorm.DB) ModLogConfig {
	return ModLogConfig{
		Base:    LoadBase(db),
		Enabled: getBoolSetting("enable_modlog", "ENABLE_MODLOG", true),
	}
}

// MembersConfig holds configuration for join/leave announcements
type MembersConfig struct {
	Base
	Enabled bool
}

// LoadMembersConfig loads member announcement configuration
func LoadMembersConfig(db *gorm.DB) MembersConfig {
	return MembersConfig{
		Base:    LoadBase(db),
		Enabled: getBoolSetting("enable_members", "ENABLE_MEMBERS", true),
	}
}

// WebConfig holds the admin HTTP API configuration
type WebConfig struct {
	Port        string
	JWTSecret   string
	CORSOrigins []string
	Enabled     bool
}

// LoadWebConfig loads admin API configuration
func LoadWebConfig(db *gorm.DB) WebConfig {
	var origins []string
	for _, o := range strings.Split(GetSetting("cors_origins", "CORS_ORIGINS", ""), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	secret := GetSetting("jwt_secret", "JWT_SECRET", "")
	return WebConfig{
		Port:        GetSetting("web_port", "WEB_PORT", "8080"),
		JWTSecret:   secret,
		CORSOrigins: origins,
		// the API refuses to start without a signing secret
		Enabled: getBoolSetting("enable_web", "ENABLE_WEB", false) && secret != "",
	}
}
