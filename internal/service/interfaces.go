// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/pocketledger/tally/internal/model"
)

// PendingFilter defines filtering options for staging queries.
type PendingFilter struct {
	ImportID    string
	NeedsReview *bool
	Limit       int
	Offset      int
}

// Storage defines the contract for the persistence layer. The
// reconciliation pipeline treats it as an external collaborator; every
// method can fail with a connectivity or query error.
type Storage interface {
	// Staging operations
	SavePending(ctx context.Context, txns []model.PendingTransaction) error
	GetPendingByID(ctx context.Context, userID, id string) (*model.PendingTransaction, error)
	ListPending(ctx context.Context, userID string, filter PendingFilter) ([]model.PendingTransaction, error)
	UpdatePending(ctx context.Context, txn *model.PendingTransaction) error
	DeletePending(ctx context.Context, userID, id string) error

	// Committed ledger operations
	SaveCommitted(ctx context.Context, txn *model.CommittedTransaction) error
	GetCommittedByDateRange(ctx context.Context, userID string, start, end time.Time) ([]model.CommittedTransaction, error)
	GetCommittedHistory(ctx context.Context, userID string) ([]model.CommittedTransaction, error)
	UpdateCommittedCategory(ctx context.Context, userID, id, category, subcategory string) error
	MarkCommittedRecurring(ctx context.Context, userID, id string) error
	ArchiveCommitted(ctx context.Context, userID, id string) error

	// Learning rule operations
	SaveRule(ctx context.Context, userID string, rule *model.LearningRule) error
	GetRules(ctx context.Context, userID string) ([]model.LearningRule, error)

	// Import lifecycle
	CreateImport(ctx context.Context, imp *model.Import) error
	GetImport(ctx context.Context, userID, id string) (*model.Import, error)
	MarkImportCommitted(ctx context.Context, userID, id string, count int) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// CommittedReader is the narrow read surface the duplicate detector
// needs; the full Storage satisfies it.
type CommittedReader interface {
	GetCommittedByDateRange(ctx context.Context, userID string, start, end time.Time) ([]model.CommittedTransaction, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
