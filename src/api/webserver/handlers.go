package webserver

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	shareddiscord "github.com/stake-plus/guildmod/src/discord"
	"github.com/stake-plus/guildmod/src/shared/guild"
)

// ConfigReader reads guild configuration.
type ConfigReader interface {
	GetGuildConfig(ctx context.Context, guildID string) (*guild.GuildConfig, error)
	Exists(ctx context.Context, guildID string) (bool, error)
}

// CaseReader lists ledger cases.
type CaseReader interface {
	ListModActions(ctx context.Context, guildID, userID string, limit int) ([]guild.ModAction, error)
}

// Guilds serves read-only guild state.
type Guilds struct {
	configs ConfigReader
	cases   CaseReader
}

func NewGuilds(configs ConfigReader, cases CaseReader) Guilds {
	return Guilds{configs: configs, cases: cases}
}

func (g Guilds) Config(c *gin.Context) {
	guildID := c.Param("guild")
	if !shareddiscord.IsSnowflake(guildID) {
		c.JSON(http.StatusBadRequest, gin.H{"err": "invalid guild id"})
		return
	}

	ctx := c.Request.Context()
	stored, err := g.configs.Exists(ctx, guildID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": "storage unavailable"})
		return
	}
	cfg, err := g.configs.GetGuildConfig(ctx, guildID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": "storage unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"stored": stored, "config": cfg})
}

func (g Guilds) Cases(c *gin.Context) {
	guildID := c.Param("guild")
	if !shareddiscord.IsSnowflake(guildID) {
		c.JSON(http.StatusBadRequest, gin.H{"err": "invalid guild id"})
		return
	}

	var userID string
	if raw := c.Query("user"); raw != "" {
		id, ok := shareddiscord.ParseUser(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"err": "invalid user"})
			return
		}
		userID = id
	}

	limit := 25
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"err": "limit must be a positive number"})
			return
		}
		limit = n
	}

	cases, err := g.cases.ListModActions(c.Request.Context(), guildID, userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": "storage unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cases": cases})
}
