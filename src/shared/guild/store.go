package guild

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/OneOfOne/xxhash"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store persists guild configuration. Every call checks a connection out of
// the pool and returns it before returning, so no lock is ever held across a
// Discord API call.
type Store struct {
	db                *gorm.DB
	cache             ConfigCache
	defaultMaxMention int

	// writes counts committed saves per guild stripe. A read only fills the
	// cache when no save landed on its stripe while it was loading.
	writes [writeStripes]atomic.Uint64
}

const writeStripes = 64

// NewStore creates a config store. cache may be nil.
func NewStore(db *gorm.DB, cache ConfigCache, defaultMaxMention int) *Store {
	if defaultMaxMention < 0 {
		defaultMaxMention = DefaultMaxMention
	}
	return &Store{db: db, cache: cache, defaultMaxMention: defaultMaxMention}
}

// DefaultConfig returns the record a guild has before anything was saved.
func (s *Store) DefaultConfig(guildID string) *GuildConfig {
	return &GuildConfig{
		GuildID:    guildID,
		MaxMention: s.defaultMaxMention,
	}
}

// GetGuildConfig returns the stored config, or a default one when the guild
// has none. The default is not persisted.
func (s *Store) GetGuildConfig(ctx context.Context, guildID string) (*GuildConfig, error) {
	if cfg, ok := s.cached(ctx, guildID); ok {
		return cfg, nil
	}

	seen := s.writeCounter(guildID).Load()
	var cfg GuildConfig
	err := s.db.WithContext(ctx).Where("guild_id = ?", guildID).Take(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.DefaultConfig(guildID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("guild: load config %s: %w", guildID, err)
	}

	s.remember(ctx, &cfg, seen)
	return &cfg, nil
}

// SaveGuildConfig replaces the whole stored record for cfg.GuildID.
// Concurrent saves for one guild are last-writer-wins.
func (s *Store) SaveGuildConfig(ctx context.Context, cfg *GuildConfig) error {
	if cfg == nil || cfg.GuildID == "" {
		return ErrNoGuild
	}

	cfg.UpdatedAt = time.Now()
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "guild_id"}},
			UpdateAll: true,
		}).
		Create(cfg).Error
	if err != nil {
		return fmt.Errorf("guild: save config %s: %w", cfg.GuildID, err)
	}

	s.invalidate(ctx, cfg.GuildID)
	return nil
}

// Exists reports whether a config row is stored for the guild.
func (s *Store) Exists(ctx context.Context, guildID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&GuildConfig{}).Where("guild_id = ?", guildID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("guild: check config %s: %w", guildID, err)
	}
	return count > 0, nil
}

// GetPrefix returns the guild's prefix override, or nil when unset.
func (s *Store) GetPrefix(ctx context.Context, guildID string) (*string, error) {
	cfg, err := s.GetGuildConfig(ctx, guildID)
	if err != nil {
		return nil, err
	}
	return cfg.Prefix, nil
}

// ResolvePrefix returns the guild's override or fallback, failing with
// ErrNoDefaultPrefix when neither is set.
func (s *Store) ResolvePrefix(ctx context.Context, guildID, fallback string) (string, error) {
	if guildID != "" {
		prefix, err := s.GetPrefix(ctx, guildID)
		if err != nil {
			return "", err
		}
		if prefix != nil {
			return *prefix, nil
		}
	}
	if fallback == "" {
		return "", ErrNoDefaultPrefix
	}
	return fallback, nil
}

// SetPrefix stores a prefix override. It reports true when the stored value
// was absent or different and has been written, and false when the guild
// already used exactly this prefix. Other fields are left untouched.
func (s *Store) SetPrefix(ctx context.Context, guildID, prefix string) (bool, error) {
	if guildID == "" {
		return false, ErrNoGuild
	}

	changed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur GuildConfig
		err := tx.Select("guild_id", "prefix").Where("guild_id = ?", guildID).Take(&cur).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			cfg := s.DefaultConfig(guildID)
			cfg.Prefix = &prefix
			changed = true
			return tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "guild_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"prefix", "updated_at"}),
			}).Create(cfg).Error
		}
		if err != nil {
			return err
		}

		if cur.Prefix != nil && *cur.Prefix == prefix {
			return nil
		}
		changed = true
		return tx.Model(&GuildConfig{}).Where("guild_id = ?", guildID).Update("prefix", prefix).Error
	})
	if err != nil {
		return false, fmt.Errorf("guild: set prefix %s: %w", guildID, err)
	}

	if changed {
		s.invalidate(ctx, guildID)
	}
	return changed, nil
}

func (s *Store) cached(ctx context.Context, guildID string) (*GuildConfig, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, ok, err := s.cache.Get(ctx, guildID)
	if err != nil {
		log.Printf("guild: config cache get %s: %v", guildID, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var cfg GuildConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		log.Printf("guild: config cache decode %s: %v", guildID, err)
		return nil, false
	}
	return &cfg, true
}

func (s *Store) writeCounter(guildID string) *atomic.Uint64 {
	return &s.writes[xxhash.Checksum64([]byte(guildID))%writeStripes]
}

// remember caches cfg as loaded when the write counter read seen. A save
// that commits around the Set either stops it or is caught by the recheck.
func (s *Store) remember(ctx context.Context, cfg *GuildConfig, seen uint64) {
	if s.cache == nil {
		return
	}
	counter := s.writeCounter(cfg.GuildID)
	if counter.Load() != seen {
		return
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		log.Printf("guild: config cache encode %s: %v", cfg.GuildID, err)
		return
	}
	if err := s.cache.Set(ctx, cfg.GuildID, raw); err != nil {
		log.Printf("guild: config cache set %s: %v", cfg.GuildID, err)
		return
	}
	if counter.Load() != seen {
		s.forget(ctx, cfg.GuildID)
	}
}

// invalidate runs after a committed save.
func (s *Store) invalidate(ctx context.Context, guildID string) {
	s.writeCounter(guildID).Add(1)
	s.forget(ctx, guildID)
}

func (s *Store) forget(ctx context.Context, guildID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Purge(ctx, guildID); err != nil {
		log.Printf("guild: config cache purge %s: %v", guildID, err)
	}
}
