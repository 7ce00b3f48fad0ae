package guild

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger records moderation cases with per-guild sequential case numbers.
type Ledger struct {
	db *gorm.DB
}

// NewLedger creates a ledger on db.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// AddModAction allocates the next case number for the guild and stores the
// case. Allocation and insert share one transaction, and the counter is
// bumped with a single UPDATE, so concurrent callers for the same guild are
// serialised on the counter row and never see the same number.
func (l *Ledger) AddModAction(ctx context.Context, in NewModAction) (*ModAction, error) {
	if in.GuildID == "" {
		return nil, ErrNoGuild
	}
	if in.UserID == "" {
		return nil, errors.New("guild: mod action needs a target user")
	}

	action := &ModAction{
		GuildID:    in.GuildID,
		Action:     in.Action,
		UserID:     in.UserID,
		UserTag:    in.UserTag,
		Reason:     in.Reason,
		ExecutorID: in.ExecutorID,
		Pending:    in.Pending,
	}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := CaseCounter{GuildID: in.GuildID}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "guild_id"}},
			DoNothing: true,
		}).Create(&seed).Error; err != nil {
			return fmt.Errorf("seed counter: %w", err)
		}

		res := tx.Model(&CaseCounter{}).
			Where("guild_id = ?", in.GuildID).
			UpdateColumn("last_case", gorm.Expr("last_case + ?", 1))
		if res.Error != nil {
			return fmt.Errorf("bump counter: %w", res.Error)
		}

		var counter CaseCounter
		if err := tx.Where("guild_id = ?", in.GuildID).Take(&counter).Error; err != nil {
			return fmt.Errorf("read counter: %w", err)
		}

		action.CaseID = counter.LastCase
		return tx.Create(action).Error
	})
	if err != nil {
		return nil, fmt.Errorf("guild: add mod action %s: %w", in.GuildID, err)
	}

	return action, nil
}

// RemoveModAction deletes the case only if guild, user and case number all
// match. Deleting a case that does not exist is not an error.
func (l *Ledger) RemoveModAction(ctx context.Context, guildID, userID string, caseID uint64) error {
	err := l.db.WithContext(ctx).
		Where("guild_id = ? AND user_id = ? AND case_id = ?", guildID, userID, caseID).
		Delete(&ModAction{}).Error
	if err != nil {
		return fmt.Errorf("guild: remove case %s#%d: %w", guildID, caseID, err)
	}
	return nil
}

// FinalizeModAction marks a pending case as confirmed.
func (l *Ledger) FinalizeModAction(ctx context.Context, guildID string, caseID uint64) error {
	err := l.db.WithContext(ctx).Model(&ModAction{}).
		Where("guild_id = ? AND case_id = ?", guildID, caseID).
		Update("pending", false).Error
	if err != nil {
		return fmt.Errorf("guild: finalize case %s#%d: %w", guildID, caseID, err)
	}
	return nil
}

// GetModAction returns a case, or gorm.ErrRecordNotFound.
func (l *Ledger) GetModAction(ctx context.Context, guildID string, caseID uint64) (*ModAction, error) {
	var action ModAction
	err := l.db.WithContext(ctx).Where("guild_id = ? AND case_id = ?", guildID, caseID).Take(&action).Error
	if err != nil {
		return nil, err
	}
	return &action, nil
}

// LatestPending returns the newest pending case of the given kind for a user,
// or gorm.ErrRecordNotFound.
func (l *Ledger) LatestPending(ctx context.Context, guildID, userID, kind string) (*ModAction, error) {
	var action ModAction
	err := l.db.WithContext(ctx).
		Where("guild_id = ? AND user_id = ? AND action = ? AND pending = ?", guildID, userID, kind, true).
		Order("case_id DESC").
		Take(&action).Error
	if err != nil {
		return nil, err
	}
	return &action, nil
}

// ListModActions returns up to limit cases, newest first. An empty userID
// lists the whole guild.
func (l *Ledger) ListModActions(ctx context.Context, guildID, userID string, limit int) ([]ModAction, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	q := l.db.WithContext(ctx).Where("guild_id = ?", guildID)
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}

	var actions []ModAction
	if err := q.Order("case_id DESC").Limit(limit).Find(&actions).Error; err != nil {
		return nil, fmt.Errorf("guild: list cases %s: %w", guildID, err)
	}
	return actions, nil
}
