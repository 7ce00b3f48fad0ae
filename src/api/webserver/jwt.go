package webserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ctxSubject = "subject"
	ctxGuilds  = "guilds"
)

// JWTMiddleware accepts HS256 bearer tokens signed with secret. A token may
// carry a "guilds" claim listing the only guilds it can read.
func JWTMiddleware(secret []byte) gin.HandlerFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"err": "missing bearer token"})
			return
		}
		claims := jwt.MapClaims{}
		tok, err := parser.ParseWithClaims(h[7:], claims, func(t *jwt.Token) (interface{}, error) { return secret, nil })
		if err != nil || !tok.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"err": "invalid token"})
			return
		}

		if sub, err := claims.GetSubject(); err == nil {
			c.Set(ctxSubject, sub)
		}
		if raw, ok := claims["guilds"].([]interface{}); ok {
			guilds := make(map[string]struct{}, len(raw))
			for _, g := range raw {
				if id, ok := g.(string); ok {
					guilds[id] = struct{}{}
				}
			}
			c.Set(ctxGuilds, guilds)
		}
		c.Next()
	}
}

// GuildScope rejects requests for a :guild the token is not scoped to.
func GuildScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(ctxGuilds)
		if !ok {
			c.Next()
			return
		}
		if _, allowed := v.(map[string]struct{})[c.Param("guild")]; !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"err": "token is not valid for this guild"})
			return
		}
		c.Next()
	}
}

// IssueToken signs an HS256 token for subject. An empty guilds list grants
// every guild.
func IssueToken(secret []byte, subject string, guilds []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if len(guilds) > 0 {
		claims["guilds"] = guilds
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
