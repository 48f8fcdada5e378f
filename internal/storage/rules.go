package storage

import (
	"context"
	"fmt"

	"github.com/pocketledger/tally/internal/common"
	"github.com/pocketledger/tally/internal/model"
)

// SaveRule inserts or updates a learning rule. The (user_id, id) pair is
// the primary key, so reinforcing an existing rule is an upsert.
func (s *SQLiteStorage) SaveRule(ctx context.Context, userID string, rule *model.LearningRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	if rule == nil {
		return fmt.Errorf("rule cannot be nil: %w", common.ErrInvalidConfig)
	}
	if err := validateString(rule.ID, "rule.ID"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO learning_rules (
			id, user_id, merchant_pattern, suggested_category,
			confidence, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, id) DO UPDATE SET
			suggested_category = excluded.suggested_category,
			confidence = excluded.confidence,
			updated_at = excluded.updated_at
	`, rule.ID, userID, rule.MerchantPattern, rule.SuggestedCategory,
		rule.Confidence, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save rule: %w", err)
	}
	return nil
}

// GetRules returns all learning rules for a user.
func (s *SQLiteStorage) GetRules(ctx context.Context, userID string) ([]model.LearningRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, merchant_pattern, suggested_category, confidence, created_at, updated_at
		FROM learning_rules
		WHERE user_id = ?
		ORDER BY merchant_pattern
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []model.LearningRule
	for rows.Next() {
		var r model.LearningRule
		if err := rows.Scan(&r.ID, &r.MerchantPattern, &r.SuggestedCategory,
			&r.Confidence, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}
