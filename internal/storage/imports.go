package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/pocketledger/tally/internal/common"
	"github.com/pocketledger/tally/internal/model"
)

// CreateImport records a new import in the parsed state.
func (s *SQLiteStorage) CreateImport(ctx context.Context, imp *model.Import) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if imp == nil {
		return fmt.Errorf("import cannot be nil: %w", common.ErrInvalidConfig)
	}
	if err := validateString(imp.ID, "imp.ID"); err != nil {
		return err
	}
	if err := validateString(imp.UserID, "imp.UserID"); err != nil {
		return err
	}

	if imp.Status == "" {
		imp.Status = model.ImportStatusParsed
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO imports (id, user_id, document_id, status)
		VALUES (?, ?, ?, ?)
	`, imp.ID, imp.UserID, imp.DocumentID, imp.Status)
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("import %s: %w", imp.ID, common.ErrDuplicateEntry)
	}
	if err != nil {
		return fmt.Errorf("failed to create import: %w", err)
	}
	return nil
}

// GetImport retrieves an import by ID.
func (s *SQLiteStorage) GetImport(ctx context.Context, userID, id string) (*model.Import, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var (
		imp         model.Import
		committedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, COALESCE(document_id, ''), status,
			committed_count, committed_at, created_at, updated_at
		FROM imports
		WHERE user_id = ? AND id = ?
	`, userID, id).Scan(&imp.ID, &imp.UserID, &imp.DocumentID, &imp.Status,
		&imp.CommittedCount, &committedAt, &imp.CreatedAt, &imp.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("import %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get import: %w", err)
	}

	if committedAt.Valid {
		imp.CommittedAt = &committedAt.Time
	}
	return &imp, nil
}

// MarkImportCommitted transitions an import to the committed state. A
// second commit attempt fails with ErrAlreadyCommitted; the transition is
// one-way.
func (s *SQLiteStorage) MarkImportCommitted(ctx context.Context, userID, id string, count int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE imports
		SET status = ?, committed_count = ?, committed_at = ?, updated_at = ?
		WHERE user_id = ? AND id = ? AND status = ?
	`, model.ImportStatusCommitted, count, now, now, userID, id, model.ImportStatusParsed)
	if err != nil {
		return fmt.Errorf("failed to mark import committed: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check commit result: %w", err)
	}
	if affected == 0 {
		// Distinguish a missing import from a double commit.
		imp, getErr := s.GetImport(ctx, userID, id)
		if getErr != nil {
			return getErr
		}
		if imp.Status == model.ImportStatusCommitted {
			return fmt.Errorf("import %s: %w", id, common.ErrAlreadyCommitted)
		}
		return fmt.Errorf("import %s in status %q: %w", id, imp.Status, common.ErrNotCommittable)
	}
	return nil
}
