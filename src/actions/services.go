package actions

import (
	"context"
	"fmt"
	"log"

	sharedconfig "github.com/stake-plus/guildmod/src/config"
	shareddata "github.com/stake-plus/guildmod/src/data"
	"github.com/stake-plus/guildmod/src/shared/guild"
	"gorm.io/gorm"
)

const memCacheSize = 4096

// Services are the storage components shared by every module and the API.
type Services struct {
	Store  *guild.Store
	Ledger *guild.Ledger
	close  func()
}

// Close releases the cache backend.
func (s *Services) Close() {
	if s.close != nil {
		s.close()
	}
}

// NewServices builds the config store (with its cache) and the ledger.
func NewServices(ctx context.Context, db *gorm.DB) (*Services, error) {
	base := sharedconfig.LoadBase(db)
	cacheCfg := sharedconfig.LoadCacheConfig(db)

	svc := &Services{Ledger: guild.NewLedger(db)}

	var cache guild.ConfigCache
	if cacheCfg.RedisURL != "" {
		rdb, err := shareddata.ConnectRedis(ctx, cacheCfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("actions: config cache: %w", err)
		}
		cache = guild.NewRedisConfigCache(rdb, cacheCfg.TTL)
		svc.close = func() { rdb.Close() }
		log.Printf("actions: guild config cache on redis (ttl=%v)", cacheCfg.TTL)
	} else {
		cache = guild.NewMemConfigCache(memCacheSize, cacheCfg.TTL)
		log.Printf("actions: guild config cache in process (ttl=%v)", cacheCfg.TTL)
	}

	svc.Store = guild.NewStore(db, cache, base.DefaultMaxMention)
	return svc, nil
}
