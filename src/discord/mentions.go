package discord

import (
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"
)

var (
	snowflakeRegex  = regexp.MustCompile(`^\d{15,21}$`)
	roleMention     = regexp.MustCompile(`^<@&(\d{15,21})>$`)
	userMention     = regexp.MustCompile(`^<@!?(\d{15,21})>$`)
	inviteLinkRegex = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?(?:discord\.gg|discord(?:app)?\.com/invite)/[a-z0-9-]+`)
)

// IsSnowflake reports whether s looks like a Discord ID.
func IsSnowflake(s string) bool {
	return snowflakeRegex.MatchString(s)
}

// ParseRole accepts a role mention or a bare ID.
func ParseRole(s string) (string, bool) {
	return parseMention(roleMention, s)
}

// ParseUser accepts a user mention (with or without the nickname bang) or a bare ID.
func ParseUser(s string) (string, bool) {
	return parseMention(userMention, s)
}

func parseMention(re *regexp.Regexp, s string) (string, bool) {
	s = strings.TrimSpace(s)
	if m := re.FindStringSubmatch(s); m != nil {
		return m[1], true
	}
	if IsSnowflake(s) {
		return s, true
	}
	return "", false
}

// FindRoleByName returns the first role whose name matches exactly.
func FindRoleByName(roles []*discordgo.Role, name string) *discordgo.Role {
	for _, role := range roles {
		if role != nil && role.Name == name {
			return role
		}
	}
	return nil
}

// ContainsInvite reports whether text carries a Discord invite link.
func ContainsInvite(text string) bool {
	return inviteLinkRegex.MatchString(text)
}

// MentionUser formats a user mention.
func MentionUser(id string) string { return "<@" + id + ">" }

// MentionChannel formats a channel mention.
func MentionChannel(id string) string { return "<#" + id + ">" }

// MentionRole formats a role mention.
func MentionRole(id string) string { return "<@&" + id + ">" }
