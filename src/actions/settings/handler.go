package settings

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/bwmarrin/discordgo"
	shareddiscord "github.com/stake-plus/guildmod/src/discord"
	"github.com/stake-plus/guildmod/src/shared/guild"
	"github.com/stake-plus/guildmod/src/shared/roleconfig"
)

const (
	maxPrefixLen        = 16
	maxRoleConfigBytes  = 256 << 10
	genericFailureReply = "Something went wrong while updating the settings. Please try again later."
)

// ConfigStore is the part of guild.Store the commands use.
type ConfigStore interface {
	GetGuildConfig(ctx context.Context, guildID string) (*guild.GuildConfig, error)
	SaveGuildConfig(ctx context.Context, cfg *guild.GuildConfig) error
	SetPrefix(ctx context.Context, guildID, prefix string) (bool, error)
	ResolvePrefix(ctx context.Context, guildID, fallback string) (string, error)
}

// RoleSource lists a guild's roles.
type RoleSource interface {
	GuildRoles(ctx context.Context, guildID string) ([]*discordgo.Role, error)
}

// Fetcher downloads an uploaded attachment.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Attachment is an uploaded file referenced by a command.
type Attachment struct {
	Filename string
	URL      string
	Size     int
}

// Request is one settings command invocation.
type Request struct {
	Command     string
	GuildID     string
	UserID      string
	Permissions int64
	Args        map[string]string
	Attachment  *Attachment
}

func (r Request) arg(name string) (string, bool) {
	v, ok := r.Args[name]
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// argError is a problem with the command input, shown to the user verbatim.
type argError string

func (e argError) Error() string { return string(e) }

// Handler executes settings commands. Each command is at most one store
// mutation followed by a confirmation.
type Handler struct {
	Store         ConfigStore
	Roles         RoleSource
	Fetch         Fetcher
	DefaultPrefix string
}

// Handle runs req and always produces a reply.
func (h *Handler) Handle(ctx context.Context, req Request) shareddiscord.Reply {
	reply, err := h.dispatch(ctx, req)
	if err != nil {
		return errorReply(req, err)
	}
	return reply
}

func (h *Handler) dispatch(ctx context.Context, req Request) (shareddiscord.Reply, error) {
	if req.GuildID == "" {
		if req.Command == shareddiscord.CommandPrefix {
			return h.showPrefix(ctx, "")
		}
		return shareddiscord.Reply{}, guild.ErrNoGuild
	}

	// reading the prefix is open to everyone
	if req.Command == shareddiscord.CommandPrefix {
		if _, ok := req.arg("value"); !ok {
			return h.showPrefix(ctx, req.GuildID)
		}
	}
	if !shareddiscord.HasPermission(req.Permissions, discordgo.PermissionManageGuild) {
		return shareddiscord.Reply{}, &guild.PermissionError{Permission: "Manage Server"}
	}

	switch req.Command {
	case shareddiscord.CommandPrefix:
		return h.setPrefix(ctx, req)
	case shareddiscord.CommandJoinMsg:
		return h.announcement(ctx, req, "join", func(c *guild.GuildConfig) **string { return &c.JoinMsg })
	case shareddiscord.CommandLeaveMsg:
		return h.announcement(ctx, req, "leave", func(c *guild.GuildConfig) **string { return &c.LeaveMsg })
	case shareddiscord.CommandModLog:
		return h.channel(ctx, req, "Moderation log", func(c *guild.GuildConfig) **string { return &c.LogMod })
	case shareddiscord.CommandMsgLog:
		return h.channel(ctx, req, "Message log", func(c *guild.GuildConfig) **string { return &c.LogMsg })
	case shareddiscord.CommandMemberLog:
		return h.channel(ctx, req, "Member log", func(c *guild.GuildConfig) **string { return &c.LogMember })
	case shareddiscord.CommandRolesChannel:
		return h.channel(ctx, req, "Role channel", func(c *guild.GuildConfig) **string { return &c.RoleChannel })
	case shareddiscord.CommandInviteGuard:
		return h.inviteGuard(ctx, req)
	case shareddiscord.CommandRolesSet:
		return h.rolesSet(ctx, req)
	case shareddiscord.CommandRolesGet:
		return h.rolesGet(ctx, req)
	case shareddiscord.CommandMuteRole:
		return h.muteRole(ctx, req)
	case shareddiscord.CommandMaxMentions:
		return h.maxMentions(ctx, req)
	case shareddiscord.CommandListIDs:
		return h.listIDs(ctx, req)
	default:
		return shareddiscord.Reply{}, argError(fmt.Sprintf("Unknown command `%s`.", req.Command))
	}
}

func errorReply(req Request, err error) shareddiscord.Reply {
	var (
		perm    *guild.PermissionError
		invalid *roleconfig.ValidationError
		arg     argError
	)
	switch {
	case errors.As(err, &perm), errors.As(err, &arg), errors.Is(err, guild.ErrNoGuild), errors.Is(err, guild.ErrNoDefaultPrefix):
		return shareddiscord.Reply{Content: err.Error()}
	case errors.As(err, &invalid):
		return shareddiscord.CodeBlockOrFile("The role configuration has problems:", "", strings.Join(invalid.Problems, "\n"), "problems.txt")
	default:
		log.Printf("settings: %s in guild %s failed: %v", req.Command, req.GuildID, err)
		return shareddiscord.Reply{Content: genericFailureReply}
	}
}

// update loads the guild record, applies fn and saves the whole record.
func (h *Handler) update(ctx context.Context, guildID string, fn func(cfg *guild.GuildConfig)) error {
	cfg, err := h.Store.GetGuildConfig(ctx, guildID)
	if err != nil {
		return err
	}
	fn(cfg)
	return h.Store.SaveGuildConfig(ctx, cfg)
}

func (h *Handler) showPrefix(ctx context.Context, guildID string) (shareddiscord.Reply, error) {
	prefix, err := h.Store.ResolvePrefix(ctx, guildID, h.DefaultPrefix)
	if err != nil {
		return shareddiscord.Reply{}, err
	}
	return shareddiscord.Reply{Content: fmt.Sprintf("The current prefix is `%s`.", prefix)}, nil
}

func (h *Handler) setPrefix(ctx context.Context, req Request) (shareddiscord.Reply, error) {
	prefix, _ := req.arg("value")
	if len(prefix) > maxPrefixLen || strings.IndexFunc(prefix, unicode.IsSpace) >= 0 {
		return shareddiscord.Reply{}, argError(fmt.Sprintf("A prefix is at most %d characters and has no spaces.", maxPrefixLen))
	}

	changed, err := h.Store.SetPrefix(ctx, req.GuildID, prefix)
	if err != nil {
		return shareddiscord.Reply{}, err
	}
	if !changed {
		return shareddiscord.Reply{Content: fmt.Sprintf("The prefix is already `%s`.", prefix)}, nil
	}
	return shareddiscord.Reply{Content: fmt.Sprintf("Prefix set to `%s`.", prefix)}, nil
}

func (h *Handler) announcement(ctx context.Context, req Request, kind string, field func(*guild.GuildConfig) **string) (shareddiscord.Reply, error) {
	text, ok := req.arg("text")
	if !ok {
		cfg, err := h.Store.GetGuildConfig(ctx, req.GuildID)
		if err != nil {
			return shareddiscord.Reply{}, err
		}
		if cur := *field(cfg); cur != nil {
			return shareddiscord.Reply{Content: fmt.Sprintf("The %s message is:\n%s", kind, *cur)}, nil
		}
		return shareddiscord.Reply{Content: fmt.Sprintf("No %s message is set.", kind)}, nil
	}

	if strings.EqualFold(text, "off") {
		if err := h.update(ctx, req.GuildID, func(cfg *guild.GuildConfig) { *field(cfg) = nil }); err != nil {
			return shareddiscord.Reply{}, err
		}
		return shareddiscord.Reply{Content: fmt.Sprintf("The %s message has been disabled.", kind)}, nil
	}

	if err := h.update(ctx, req.GuildID, func(cfg *guild.GuildConfig) { *field(cfg) = &text }); err != nil {
		return shareddiscord.Reply{}, err
	}
	return shareddiscord.Reply{Content: fmt.Sprintf("The %s message has been set to:\n%s", kind, text)}, nil
}

func (h *Handler) channel(ctx context.Context, req Request, label string, field func(*guild.GuildConfig) **string) (shareddiscord.Reply, error) {
	channelID, ok := req.arg("channel")
	if !ok {
		return shareddiscord.Reply{}, argError("Please give a channel.")
	}
	if !shareddiscord.IsSnowflake(channelID) {
		return shareddiscord.Reply{}, argError("That is not a valid channel.")
	}

	if err := h.update(ctx, req.GuildID, func(cfg *guild.GuildConfig) { *field(cfg) = &channelID }); err != nil {
		return shareddiscord.Reply{}, err
	}
	return shareddiscord.Reply{Content: fmt.Sprintf("%s channel set to %s.", label, shareddiscord.MentionChannel(channelID))}, nil
}

func (h *Handler) inviteGuard(ctx context.Context, req Request) (shareddiscord.Reply, error) {
	state, _ := req.arg("state")
	var enabled bool
	switch strings.ToLower(state) {
	case "enable":
		enabled = true
	case "disable":
	default:
		return shareddiscord.Reply{}, argError("Please choose `enable` or `disable`.")
	}

	if err := h.update(ctx, req.GuildID, func(cfg *guild.GuildConfig) { cfg.InviteGuard = &enabled }); err != nil {
		return shareddiscord.Reply{}, err
	}
	if enabled {
		return shareddiscord.Reply{Content: "Invite guard has been enabled."}, nil
	}
	return shareddiscord.Reply{Content: "Invite guard has been disabled."}, nil
}

func (h *Handler) rolesSet(ctx context.Context, req Request) (shareddiscord.Reply, error) {
	raw, ok := req.arg("config")
	if !ok && req.Attachment != nil {
		if req.Attachment.Size > maxRoleConfigBytes {
			return shareddiscord.Reply{}, argError("That file is too large for a role configuration.")
		}
		if h.Fetch == nil {
			return shareddiscord.Reply{}, errors.New("no attachment fetcher configured")
		}
		body, err := h.Fetch.Get(ctx, req.Attachment.URL)
		if err != nil {
			return shareddiscord.Reply{}, fmt.Errorf("download %s: %w", req.Attachment.Filename, err)
		}
		raw, ok = string(body), true
	}
	if !ok {
		return shareddiscord.Reply{}, argError("Please give the role configuration as text or attach it as a file.")
	}

	doc, err := roleconfig.Parse(raw)
	if err != nil {
		return shareddiscord.Reply{}, argError(fmt.Sprintf("Could not read the role configuration: %v", err))
	}
	if err := roleconfig.Check(doc); err != nil {
		return shareddiscord.Reply{}, err
	}

	cfg, err := h.Store.GetGuildConfig(ctx, req.GuildID)
	if err != nil {
		return shareddiscord.Reply{}, err
	}
	if cfg.RoleConfig != nil && roleconfig.Fingerprint(cfg.RoleConfig) == roleconfig.Fingerprint(doc) {
		return shareddiscord.Reply{Content: "The role configuration is unchanged."}, nil
	}
	cfg.RoleConfig = doc
	if err := h.Store.SaveGuildConfig(ctx, cfg); err != nil {
		return shareddiscord.Reply{}, err
	}
	return shareddiscord.Reply{Content: "The role configuration has been saved."}, nil
}

func (h *Handler) rolesGet(ctx context.Context, req Request) (shareddiscord.Reply, error) {
	cfg, err := h.Store.GetGuildConfig(ctx, req.GuildID)
	if err != nil {
		return shareddiscord.Reply{}, err
	}
	if cfg.RoleConfig == nil {
		return shareddiscord.Reply{}, argError("No role configuration has been set.")
	}
	pretty, err := roleconfig.Pretty(cfg.RoleConfig)
	if err != nil {
		return shareddiscord.Reply{}, err
	}
	return shareddiscord.CodeBlockOrFile("", "json", pretty, "roles.json"), nil
}

func (h *Handler) muteRole(ctx context.Context, req Request) (shareddiscord.Reply, error) {
	value, ok := req.arg("role")
	if !ok {
		return shareddiscord.Reply{}, argError("Please give a role.")
	}

	roles, err := h.Roles.GuildRoles(ctx, req.GuildID)
	if err != nil {
		return shareddiscord.Reply{}, err
	}

	roleID, ok := shareddiscord.ParseRole(value)
	if ok {
		found := false
		for _, r := range roles {
			if r != nil && r.ID == roleID {
				found = true
				break
			}
		}
		if !found {
			roleID = ""
		}
	}
	if roleID == "" {
		if r := shareddiscord.FindRoleByName(roles, value); r != nil {
			roleID = r.ID
		}
	}
	if roleID == "" {
		return shareddiscord.Reply{}, argError("That role does not exist in this server.")
	}

	if err := h.update(ctx, req.GuildID, func(cfg *guild.GuildConfig) { cfg.MuteRole = &roleID }); err != nil {
		return shareddiscord.Reply{}, err
	}
	return shareddiscord.Reply{Content: fmt.Sprintf("Mute role set to %s.", shareddiscord.MentionRole(roleID))}, nil
}

func (h *Handler) maxMentions(ctx context.Context, req Request) (shareddiscord.Reply, error) {
	raw, _ := req.arg("limit")
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return shareddiscord.Reply{}, argError("The mention limit has to be a number of zero or more.")
	}

	if err := h.update(ctx, req.GuildID, func(cfg *guild.GuildConfig) { cfg.MaxMention = limit }); err != nil {
		return shareddiscord.Reply{}, err
	}
	return shareddiscord.Reply{Content: fmt.Sprintf("Members mentioning more than %d users in one message will be muted.", limit)}, nil
}

func (h *Handler) listIDs(ctx context.Context, req Request) (shareddiscord.Reply, error) {
	roles, err := h.Roles.GuildRoles(ctx, req.GuildID)
	if err != nil {
		return shareddiscord.Reply{}, err
	}

	text := RoleList(roles)
	inline := "Server roles:\n```ruby\n" + text + "```"
	if len(text) >= shareddiscord.MaxDiscordMessageLen || len(inline) > shareddiscord.MaxDiscordMessageLen {
		return shareddiscord.Reply{Content: "Server roles are attached.", FileName: "roles.txt", File: []byte(text)}, nil
	}
	return shareddiscord.Reply{Content: inline}, nil
}

// RoleList renders one "[NN] id - name" line per role, highest position first.
func RoleList(roles []*discordgo.Role) string {
	sorted := make([]*discordgo.Role, 0, len(roles))
	for _, r := range roles {
		if r != nil {
			sorted = append(sorted, r)
		}
	}
	sort.SliceStable(sorted, func(a, b int) bool { return sorted[a].Position > sorted[b].Position })

	var b strings.Builder
	for _, r := range sorted {
		fmt.Fprintf(&b, "[%02d] %s - %s\n", r.Position, r.ID, r.Name)
	}
	return b.String()
}
