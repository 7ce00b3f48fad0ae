package webserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	sharedconfig "github.com/stake-plus/guildmod/src/config"
)

// New builds the admin API engine.
func New(ctx context.Context, cfg sharedconfig.WebConfig, configs ConfigReader, cases CaseReader) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	attachRoutes(ctx, r, cfg, configs, cases)
	return r
}

func attachRoutes(ctx context.Context, r *gin.Engine, cfg sharedconfig.WebConfig, configs ConfigReader, cases CaseReader) {
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	guildsH := NewGuilds(configs, cases)
	limiter := NewRateLimiter(ctx, 120, time.Minute)

	v1 := r.Group("/v1")
	v1.Use(JWTMiddleware([]byte(cfg.JWTSecret)), RateLimitMiddleware(limiter))
	{
		g := v1.Group("/guilds/:guild", GuildScope())
		g.GET("/config", guildsH.Config)
		g.GET("/cases", guildsH.Cases)
	}
}
