package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pocketledger/tally/internal/common"
	"github.com/pocketledger/tally/internal/model"
)

const committedColumns = `id, user_id, posted_at, merchant_name, amount,
	COALESCE(category, ''), COALESCE(subcategory, ''),
	COALESCE(import_id, ''), COALESCE(document_id, ''), COALESCE(hash, ''),
	source, confidence, recurring, items_json, created_at`

// SaveCommitted writes a transaction into the permanent ledger.
func (s *SQLiteStorage) SaveCommitted(ctx context.Context, txn *model.CommittedTransaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if txn == nil {
		return fmt.Errorf("transaction cannot be nil: %w", common.ErrInvalidConfig)
	}
	if err := validateString(txn.ID, "txn.ID"); err != nil {
		return err
	}
	if err := validateString(txn.UserID, "txn.UserID"); err != nil {
		return err
	}

	var itemsJSON []byte
	if len(txn.Items) > 0 {
		var err error
		itemsJSON, err = json.Marshal(txn.Items)
		if err != nil {
			return fmt.Errorf("failed to marshal items: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO transactions (
			id, user_id, posted_at, merchant_name, amount,
			category, subcategory, import_id, document_id, hash,
			source, confidence, recurring, items_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, txn.ID, txn.UserID, txn.PostedAt, txn.MerchantName, txn.Amount,
		txn.Category, txn.Subcategory, txn.ImportID, txn.DocumentID, txn.Hash,
		txn.Source, txn.Confidence, txn.Recurring, itemsJSON)
	if err != nil {
		return fmt.Errorf("failed to save committed transaction: %w", err)
	}
	return nil
}

// GetCommittedByDateRange returns non-archived ledger rows posted inside
// [start, end], oldest first.
func (s *SQLiteStorage) GetCommittedByDateRange(ctx context.Context, userID string, start, end time.Time) ([]model.CommittedTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+committedColumns+`
		FROM transactions
		WHERE user_id = ? AND archived = 0 AND posted_at >= ? AND posted_at <= ?
		ORDER BY posted_at, id
	`, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions by date: %w", err)
	}
	defer rows.Close()

	return collectCommitted(rows)
}

// GetCommittedHistory returns the full non-archived ledger for a user,
// oldest first.
func (s *SQLiteStorage) GetCommittedHistory(ctx context.Context, userID string) ([]model.CommittedTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+committedColumns+`
		FROM transactions
		WHERE user_id = ? AND archived = 0
		ORDER BY posted_at, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction history: %w", err)
	}
	defer rows.Close()

	return collectCommitted(rows)
}

// UpdateCommittedCategory changes the category of a ledger row.
func (s *SQLiteStorage) UpdateCommittedCategory(ctx context.Context, userID, id, category, subcategory string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	if err := validateString(category, "category"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE transactions SET category = ?, subcategory = ?
		WHERE user_id = ? AND id = ?
	`, category, subcategory, userID, id)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	return nil
}

// MarkCommittedRecurring tags a ledger row as part of a recurring series.
func (s *SQLiteStorage) MarkCommittedRecurring(ctx context.Context, userID, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET recurring = 1 WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to mark transaction recurring: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check recurring result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	return nil
}

// ArchiveCommitted hides a ledger row from queries without deleting it.
func (s *SQLiteStorage) ArchiveCommitted(ctx context.Context, userID, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET archived = 1 WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to archive transaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check archive result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func collectCommitted(rows *sql.Rows) ([]model.CommittedTransaction, error) {
	var txns []model.CommittedTransaction
	for rows.Next() {
		var (
			t         model.CommittedTransaction
			itemsJSON sql.NullString
		)
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.PostedAt, &t.MerchantName, &t.Amount,
			&t.Category, &t.Subcategory, &t.ImportID, &t.DocumentID, &t.Hash,
			&t.Source, &t.Confidence, &t.Recurring, &itemsJSON, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if itemsJSON.Valid && itemsJSON.String != "" {
			if err := json.Unmarshal([]byte(itemsJSON.String), &t.Items); err != nil {
				return nil, fmt.Errorf("failed to unmarshal items: %w", err)
			}
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}
