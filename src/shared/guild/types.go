package guild

import (
	"time"

	"github.com/stake-plus/guildmod/src/shared/roleconfig"
)

// Moderation action kinds recorded in the ledger.
const (
	ActionMute = "mute"
	ActionKick = "kick"
	ActionBan  = "ban"
	ActionWarn = "warn"
)

// DefaultMaxMention is used when neither the guild nor the process settings
// define a mention limit.
const DefaultMaxMention = 10

// GuildConfig is the per-guild settings record.
type GuildConfig struct {
	GuildID     string              `gorm:"primaryKey;size:32" json:"guildId"`
	Prefix      *string             `gorm:"size:32" json:"prefix,omitempty"`
	JoinMsg     *string             `gorm:"type:text" json:"joinMsg,omitempty"`
	LeaveMsg    *string             `gorm:"type:text" json:"leaveMsg,omitempty"`
	LogMod      *string             `gorm:"size:32" json:"logMod,omitempty"`
	LogMsg      *string             `gorm:"size:32" json:"logMsg,omitempty"`
	LogMember   *string             `gorm:"size:32" json:"logMember,omitempty"`
	InviteGuard *bool               `json:"inviteGuard,omitempty"`
	MuteRole    *string             `gorm:"size:32" json:"muteRole,omitempty"`
	MaxMention  int                 `gorm:"not null" json:"maxMention"`
	RoleConfig  roleconfig.Document `gorm:"type:text" json:"roleConfig,omitempty"`
	RoleChannel *string             `gorm:"size:32" json:"roleChannel,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// InviteGuardEnabled treats an unset flag as disabled.
func (c *GuildConfig) InviteGuardEnabled() bool {
	return c.InviteGuard != nil && *c.InviteGuard
}

// ModAction is one moderation case. CaseID is unique per guild.
type ModAction struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	GuildID    string    `gorm:"size:32;not null;uniqueIndex:idx_mod_actions_guild_case;index:idx_mod_actions_guild_user" json:"guildId"`
	CaseID     uint64    `gorm:"not null;uniqueIndex:idx_mod_actions_guild_case" json:"caseId"`
	Action     string    `gorm:"size:16;not null" json:"action"`
	UserID     string    `gorm:"size:32;not null;index:idx_mod_actions_guild_user" json:"userId"`
	UserTag    string    `gorm:"size:64" json:"userTag"`
	Reason     *string   `gorm:"type:text" json:"reason,omitempty"`
	ExecutorID *string   `gorm:"size:32" json:"executorId,omitempty"`
	Pending    bool      `gorm:"not null" json:"pending"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// CaseCounter holds the last allocated case number for a guild. It only
// ever increases, so a deleted case never frees its number.
type CaseCounter struct {
	GuildID  string `gorm:"primaryKey;size:32"`
	LastCase uint64 `gorm:"not null"`
}

// Setting represents a process-wide configuration setting stored in the database.
type Setting struct {
	ID     uint   `gorm:"primaryKey"`
	Name   string `gorm:"size:64;uniqueIndex;not null"`
	Value  string `gorm:"type:text;not null"`
	Active uint8  `gorm:"not null"`
}

// NewModAction describes a case to be allocated by the ledger.
type NewModAction struct {
	Action     string
	GuildID    string
	UserID     string
	UserTag    string
	Reason     *string
	Pending    bool
	ExecutorID *string
}

// Models lists every table owned by this package, in migration order.
func Models() []any {
	return []any{&Setting{}, &GuildConfig{}, &CaseCounter{}, &ModAction{}}
}
