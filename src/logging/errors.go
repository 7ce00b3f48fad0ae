package logging

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// IsRateLimit reports whether err is a Discord 429.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	var rl *discordgo.RateLimitError
	if errors.As(err, &rl) {
		return true
	}
	if status(err) == http.StatusTooManyRequests {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "rate_limit") || strings.Contains(msg, "429")
}

// IsMissingPermissions reports whether Discord refused an action because the
// bot lacks a permission or its role sits too low in the hierarchy.
func IsMissingPermissions(err error) bool {
	return code(err) == discordgo.ErrCodeMissingPermissions || status(err) == http.StatusForbidden
}

// IsUnknownMember reports whether the target member left the guild.
func IsUnknownMember(err error) bool {
	return code(err) == discordgo.ErrCodeUnknownMember
}

// Describe returns a short classification for log lines.
func Describe(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsRateLimit(err):
		return "rate limited"
	case IsMissingPermissions(err):
		return "missing permissions"
	case IsUnknownMember(err):
		return "unknown member"
	default:
		return "error"
	}
}

func status(err error) int {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		return rest.Response.StatusCode
	}
	return 0
}

func code(err error) int {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Message != nil {
		return rest.Message.Code
	}
	return 0
}
