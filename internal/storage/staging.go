package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pocketledger/tally/internal/common"
	"github.com/pocketledger/tally/internal/model"
	"github.com/pocketledger/tally/internal/service"
)

// SavePending inserts staged transactions in a single transaction. Rows
// whose (import_id, hash) pair already exists are replaced, so re-parsing
// the same document is idempotent.
func (s *SQLiteStorage) SavePending(ctx context.Context, txns []model.PendingTransaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(txns) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO transactions_staging (
			id, user_id, import_id, hash, parsed_at, data_json,
			conf_overall, conf_merchant, conf_amount, conf_date,
			needs_review, possible_duplicate, suggestions, split_confidence
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := range txns {
		p := &txns[i]
		dataJSON, dupJSON, sugJSON, err := marshalPending(p)
		if err != nil {
			return err
		}

		if _, err := stmt.ExecContext(ctx,
			p.ID, p.UserID, p.ImportID, p.Hash, p.ParsedAt, dataJSON,
			p.Confidence.Overall, p.Confidence.Merchant, p.Confidence.Amount, p.Confidence.Date,
			p.NeedsReview, dupJSON, sugJSON, p.SplitConfidence,
		); err != nil {
			return fmt.Errorf("failed to save pending transaction %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetPendingByID retrieves a single staged transaction.
func (s *SQLiteStorage) GetPendingByID(ctx context.Context, userID, id string) (*model.PendingTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+stagingColumns+`
		FROM transactions_staging
		WHERE user_id = ? AND id = ?
	`, userID, id)

	p, err := scanPending(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pending transaction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListPending returns staged transactions matching the filter, newest first.
func (s *SQLiteStorage) ListPending(ctx context.Context, userID string, filter service.PendingFilter) ([]model.PendingTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	var conditions []string
	args := []any{userID}
	conditions = append(conditions, "user_id = ?")

	if filter.ImportID != "" {
		conditions = append(conditions, "import_id = ?")
		args = append(args, filter.ImportID)
	}
	if filter.NeedsReview != nil {
		conditions = append(conditions, "needs_review = ?")
		args = append(args, *filter.NeedsReview)
	}

	query := `SELECT ` + stagingColumns + `
		FROM transactions_staging
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY parsed_at DESC, id`

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending transactions: %w", err)
	}
	defer rows.Close()

	var txns []model.PendingTransaction
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *p)
	}
	return txns, rows.Err()
}

// UpdatePending rewrites a staged transaction's derived fields.
func (s *SQLiteStorage) UpdatePending(ctx context.Context, txn *model.PendingTransaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if txn == nil {
		return fmt.Errorf("transaction cannot be nil: %w", common.ErrInvalidConfig)
	}

	dataJSON, dupJSON, sugJSON, err := marshalPending(txn)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE transactions_staging
		SET data_json = ?,
			conf_overall = ?, conf_merchant = ?, conf_amount = ?, conf_date = ?,
			needs_review = ?, possible_duplicate = ?, suggestions = ?, split_confidence = ?
		WHERE user_id = ? AND id = ?
	`, dataJSON,
		txn.Confidence.Overall, txn.Confidence.Merchant, txn.Confidence.Amount, txn.Confidence.Date,
		txn.NeedsReview, dupJSON, sugJSON, txn.SplitConfidence,
		txn.UserID, txn.ID)
	if err != nil {
		return fmt.Errorf("failed to update pending transaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("pending transaction %s: %w", txn.ID, common.ErrNotFound)
	}
	return nil
}

// DeletePending removes a staged transaction after promotion or rejection.
func (s *SQLiteStorage) DeletePending(ctx context.Context, userID, id string) error {
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
		`DELETE FROM transactions_staging WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete pending transaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("pending transaction %s: %w", id, common.ErrNotFound)
	}
	return nil
}

const stagingColumns = `id, user_id, import_id, hash, parsed_at, data_json,
	conf_overall, conf_merchant, conf_amount, conf_date,
	needs_review, possible_duplicate, suggestions, split_confidence`

func marshalPending(p *model.PendingTransaction) (data, dup, sug []byte, err error) {
	data, err = json.Marshal(p.Data)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal transaction data: %w", err)
	}
	if p.PossibleDuplicate != nil {
		dup, err = json.Marshal(p.PossibleDuplicate)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal duplicate info: %w", err)
		}
	}
	if len(p.Suggestions) > 0 {
		sug, err = json.Marshal(p.Suggestions)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal suggestions: %w", err)
		}
	}
	return data, dup, sug, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPending(row rowScanner) (*model.PendingTransaction, error) {
	var (
		p        model.PendingTransaction
		dataJSON []byte
		dupJSON  sql.NullString
		sugJSON  sql.NullString
	)

	err := row.Scan(
		&p.ID, &p.UserID, &p.ImportID, &p.Hash, &p.ParsedAt, &dataJSON,
		&p.Confidence.Overall, &p.Confidence.Merchant, &p.Confidence.Amount, &p.Confidence.Date,
		&p.NeedsReview, &dupJSON, &sugJSON, &p.SplitConfidence,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(dataJSON, &p.Data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction data: %w", err)
	}
	if dupJSON.Valid && dupJSON.String != "" {
		p.PossibleDuplicate = &model.PossibleDuplicate{}
		if err := json.Unmarshal([]byte(dupJSON.String), p.PossibleDuplicate); err != nil {
			return nil, fmt.Errorf("failed to unmarshal duplicate info: %w", err)
		}
	}
	if sugJSON.Valid && sugJSON.String != "" {
		if err := json.Unmarshal([]byte(sugJSON.String), &p.Suggestions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal suggestions: %w", err)
		}
	}
	return &p, nil
}
