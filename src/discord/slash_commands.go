package discord

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const (
	CommandPrefix       = "prefix"
	CommandJoinMsg      = "joinmsg"
	CommandLeaveMsg     = "leavemsg"
	CommandModLog       = "modlog"
	CommandMsgLog       = "msglog"
	CommandMemberLog    = "memberlog"
	CommandInviteGuard  = "inviteguard"
	CommandRolesSet     = "roles-set"
	CommandRolesChannel = "roles-channel"
	CommandRolesGet     = "roles-get"
	CommandMuteRole     = "muterole"
	CommandMaxMentions  = "maxmentions"
	CommandListIDs      = "listids"
)

var manageGuild = int64(discordgo.PermissionManageGuild)

func channelOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionChannel,
		Name:         "channel",
		Description:  description,
		ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
		Required:     true,
	}
}

func textOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "text",
		Description: description,
	}
}

var commandDefinitions = map[string]*discordgo.ApplicationCommand{
	CommandPrefix: {
		Name:        CommandPrefix,
		Description: "Show or change the command prefix",
		Options: []*discordgo.ApplicationCommandOption{{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "value",
			Description: "New prefix",
			MaxLength:   16,
		}},
	},
	CommandJoinMsg: {
		Name:        CommandJoinMsg,
		Description: "Set the join message ({mention}, {user}, {server}); 'off' disables it",
		Options:     []*discordgo.ApplicationCommandOption{textOption("Message text or 'off'")},
	},
	CommandLeaveMsg: {
		Name:        CommandLeaveMsg,
		Description: "Set the leave message ({mention}, {user}, {server}); 'off' disables it",
		Options:     []*discordgo.ApplicationCommandOption{textOption("Message text or 'off'")},
	},
	CommandModLog: {
		Name:        CommandModLog,
		Description: "Set the moderation log channel",
		Options:     []*discordgo.ApplicationCommandOption{channelOption("Channel for moderation cases")},
	},
	CommandMsgLog: {
		Name:        CommandMsgLog,
		Description: "Set the message log channel",
		Options:     []*discordgo.ApplicationCommandOption{channelOption("Channel for message logs")},
	},
	CommandMemberLog: {
		Name:        CommandMemberLog,
		Description: "Set the member log channel",
		Options:     []*discordgo.ApplicationCommandOption{channelOption("Channel for join and leave messages")},
	},
	CommandInviteGuard: {
		Name:        CommandInviteGuard,
		Description: "Delete invite links posted by regular members",
		Options: []*discordgo.ApplicationCommandOption{{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "state",
			Description: "enable or disable",
			Required:    true,
			Choices: []*discordgo.ApplicationCommandOptionChoice{
				{Name: "enable", Value: "enable"},
				{Name: "disable", Value: "disable"},
			},
		}},
	},
	CommandRolesSet: {
		Name:        CommandRolesSet,
		Description: "Upload the self-assignable role configuration (JSON)",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "config",
				Description: "Role configuration as JSON",
			},
			{
				Type:        discordgo.ApplicationCommandOptionAttachment,
				Name:        "file",
				Description: "Role configuration as a JSON file",
			},
		},
	},
	CommandRolesChannel: {
		Name:        CommandRolesChannel,
		Description: "Set the channel used for role assignment",
		Options:     []*discordgo.ApplicationCommandOption{channelOption("Role assignment channel")},
	},
	CommandRolesGet: {
		Name:        CommandRolesGet,
		Description: "Show the stored role configuration",
	},
	CommandMuteRole: {
		Name:        CommandMuteRole,
		Description: "Set the role given to muted members",
		Options: []*discordgo.ApplicationCommandOption{{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "role",
			Description: "Role mention, ID or exact name",
			Required:    true,
		}},
	},
	CommandMaxMentions: {
		Name:        CommandMaxMentions,
		Description: "Set how many mentions one message may carry before the author is muted",
		Options: []*discordgo.ApplicationCommandOption{{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "limit",
			Description: "Mention limit",
			Required:    true,
			MinValue:    new(float64),
			MaxValue:    1000,
		}},
	},
	CommandListIDs: {
		Name:        CommandListIDs,
		Description: "List every role with its ID",
	},
}

var defaultCommandOrder = []string{
	CommandPrefix,
	CommandJoinMsg,
	CommandLeaveMsg,
	CommandModLog,
	CommandMsgLog,
	CommandMemberLog,
	CommandInviteGuard,
	CommandRolesSet,
	CommandRolesChannel,
	CommandRolesGet,
	CommandMuteRole,
	CommandMaxMentions,
	CommandListIDs,
}

func init() {
	for _, def := range commandDefinitions {
		def.DefaultMemberPermissions = &manageGuild
	}
}

// CommandNames returns every known command in registration order.
func CommandNames() []string {
	return append([]string(nil), defaultCommandOrder...)
}

// CommandDefinition returns the definition registered for name.
func CommandDefinition(name string) (*discordgo.ApplicationCommand, bool) {
	def, ok := commandDefinitions[name]
	return def, ok
}

// RegisterSlashCommands registers the requested slash commands. An empty
// guildID registers them globally. When no command names are provided, all
// known commands are registered.
func RegisterSlashCommands(s *discordgo.Session, guildID string, names ...string) error {
	if len(names) == 0 {
		names = defaultCommandOrder
	}

	var failures []string
	for _, name := range names {
		definition, ok := commandDefinitions[name]
		if !ok {
			log.Printf("discord: unknown slash command %q", name)
			continue
		}

		_, err := s.ApplicationCommandCreate(s.State.User.ID, guildID, definition)
		if err != nil {
			if isDuplicateCommandError(err) {
				log.Printf("discord: slash command %q already registered", name)
				continue
			}
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
			log.Printf("discord: failed to register command %q: %v", name, err)
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("discord: slash command registration errors: %s", strings.Join(failures, "; "))
	}

	return nil
}

// DeleteSlashCommands removes all registered slash commands for a guild, or
// the global ones when guildID is empty.
func DeleteSlashCommands(s *discordgo.Session, guildID string) error {
	commands, err := s.ApplicationCommands(s.State.User.ID, guildID)
	if err != nil {
		return err
	}

	for _, cmd := range commands {
		if err := s.ApplicationCommandDelete(s.State.User.ID, guildID, cmd.ID); err != nil {
			return err
		}
	}

	return nil
}

func isDuplicateCommandError(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Message != nil {
			msg := strings.ToLower(restErr.Message.Message)
			if strings.Contains(msg, "already exists") {
				return true
			}
		}
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "50035") && strings.Contains(msg, "already exists")
}
