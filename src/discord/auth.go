package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// HasRole checks whether a member holds a role. Empty roleID always returns true.
func HasRole(member *discordgo.Member, roleID string) bool {
	if roleID == "" {
		return true
	}
	if member == nil {
		return false
	}
	for _, role := range member.Roles {
		if role == roleID {
			return true
		}
	}
	return false
}

// GuildPermissions computes a member's guild-wide permission bits from the
// @everyone role and the member's roles. The owner and administrators get
// every permission.
func GuildPermissions(guild *discordgo.Guild, member *discordgo.Member) int64 {
	if guild == nil || member == nil {
		return 0
	}
	if member.User != nil && member.User.ID == guild.OwnerID {
		return discordgo.PermissionAll
	}

	held := make(map[string]struct{}, len(member.Roles))
	for _, id := range member.Roles {
		held[id] = struct{}{}
	}

	var perms int64
	for _, role := range guild.Roles {
		if role == nil {
			continue
		}
		if _, ok := held[role.ID]; ok || role.ID == guild.ID {
			perms |= role.Permissions
		}
	}

	if perms&discordgo.PermissionAdministrator != 0 {
		return discordgo.PermissionAll
	}
	return perms
}

// HasPermission reports whether perms includes permission.
func HasPermission(perms, permission int64) bool {
	return perms&permission == permission
}

// MemberPermissions looks up guild and member (state first, REST second) and
// returns the member's guild-wide permissions. Values from the state cache are
// copied before they are filled in.
func MemberPermissions(s *discordgo.Session, guildID, userID string) (int64, error) {
	guild, err := s.State.Guild(guildID)
	if err != nil || guild == nil {
		guild, err = s.Guild(guildID)
		if err != nil {
			return 0, fmt.Errorf("discord: load guild %s: %w", guildID, err)
		}
	}
	if len(guild.Roles) == 0 {
		roles, err := s.GuildRoles(guildID)
		if err != nil {
			return 0, fmt.Errorf("discord: load roles %s: %w", guildID, err)
		}
		filled := *guild
		filled.Roles = roles
		guild = &filled
	}

	member, err := s.State.Member(guildID, userID)
	if err != nil || member == nil {
		member, err = s.GuildMember(guildID, userID)
		if err != nil {
			return 0, fmt.Errorf("discord: load member %s/%s: %w", guildID, userID, err)
		}
	}
	if member.User == nil {
		filled := *member
		filled.User = &discordgo.User{ID: userID}
		member = &filled
	}

	return GuildPermissions(guild, member), nil
}
