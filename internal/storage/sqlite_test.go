package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketledger/tally/internal/common"
	"github.com/pocketledger/tally/internal/model"
	"github.com/pocketledger/tally/internal/service"
)

func setupTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))

	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func amountPtr(v float64) *float64 { return &v }

func makePending(id, importID string) model.PendingTransaction {
	return model.PendingTransaction{
		ID:       id,
		UserID:   "user-1",
		ImportID: importID,
		Hash:     model.StagingHash(model.NormalizedTransaction{Date: "2024-04-01", Merchant: id}),
		ParsedAt: time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC),
		Data: model.NormalizedTransaction{
			Date:     "2024-04-01",
			Merchant: "STARBUCKS #1234",
			Currency: "CAD",
			Amount:   amountPtr(-6.45),
			Items:    []string{"latte", "muffin"},
		},
		Confidence: model.ConfidenceScores{
			Overall:  0.94,
			Merchant: 1.0,
			Amount:   1.0,
			Date:     0.7,
		},
		NeedsReview: false,
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := setupTestStorage(t)
	require.NoError(t, store.Migrate(context.Background()))
}

func TestPendingLifecycle(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	p := makePending("pending-1", "import-1")
	p.Suggestions = []model.Suggestion{
		{ID: "cat-restaurants", Type: model.SuggestionCategory, Reason: "matched 2 dining keywords", Confidence: 0.8},
	}
	p.PossibleDuplicate = &model.PossibleDuplicate{TransactionID: "committed-9", Similarity: 88.9}

	require.NoError(t, store.SavePending(ctx, []model.PendingTransaction{p}))

	got, err := store.GetPendingByID(ctx, "user-1", "pending-1")
	require.NoError(t, err)
	assert.Equal(t, p.Hash, got.Hash)
	assert.Equal(t, p.Data.Merchant, got.Data.Merchant)
	assert.Equal(t, p.Data.Items, got.Data.Items)
	require.NotNil(t, got.Data.Amount)
	assert.InDelta(t, -6.45, *got.Data.Amount, 1e-9)
	assert.InDelta(t, 0.94, got.Confidence.Overall, 1e-9)
	require.Len(t, got.Suggestions, 1)
	assert.Equal(t, "cat-restaurants", got.Suggestions[0].ID)
	require.NotNil(t, got.PossibleDuplicate)
	assert.Equal(t, "committed-9", got.PossibleDuplicate.TransactionID)

	got.NeedsReview = true
	got.Confidence.Overall = 0.6
	require.NoError(t, store.UpdatePending(ctx, got))

	updated, err := store.GetPendingByID(ctx, "user-1", "pending-1")
	require.NoError(t, err)
	assert.True(t, updated.NeedsReview)
	assert.InDelta(t, 0.6, updated.Confidence.Overall, 1e-9)

	require.NoError(t, store.DeletePending(ctx, "user-1", "pending-1"))

	_, err = store.GetPendingByID(ctx, "user-1", "pending-1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSavePendingReplacesSameImportHash(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	first := makePending("pending-1", "import-1")
	second := first
	second.ID = "pending-2" // same hash, same import: re-parse of the same document

	require.NoError(t, store.SavePending(ctx, []model.PendingTransaction{first}))
	require.NoError(t, store.SavePending(ctx, []model.PendingTransaction{second}))

	txns, err := store.ListPending(ctx, "user-1", service.PendingFilter{ImportID: "import-1"})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "pending-2", txns[0].ID)
}

func TestListPendingFilters(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	a := makePending("pending-a", "import-1")
	b := makePending("pending-b", "import-1")
	b.Data.Merchant = "NETFLIX.COM"
	b.Hash = model.StagingHash(b.Data)
	b.NeedsReview = true
	c := makePending("pending-c", "import-2")
	c.Data.Merchant = "COSTCO WHOLESALE"
	c.Hash = model.StagingHash(c.Data)

	require.NoError(t, store.SavePending(ctx, []model.PendingTransaction{a, b, c}))

	byImport, err := store.ListPending(ctx, "user-1", service.PendingFilter{ImportID: "import-1"})
	require.NoError(t, err)
	assert.Len(t, byImport, 2)

	needsReview := true
	flagged, err := store.ListPending(ctx, "user-1", service.PendingFilter{NeedsReview: &needsReview})
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, "pending-b", flagged[0].ID)

	limited, err := store.ListPending(ctx, "user-1", service.PendingFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	other, err := store.ListPending(ctx, "user-2", service.PendingFilter{})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestCommittedLedger(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	march := model.CommittedTransaction{
		ID:           "tx-1",
		UserID:       "user-1",
		PostedAt:     time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		MerchantName: "Tim Hortons",
		Amount:       -5.25,
		Category:     "Restaurants",
		Source:       "import",
		Confidence:   0.88,
		Items:        []string{"coffee"},
	}
	april := model.CommittedTransaction{
		ID:           "tx-2",
		UserID:       "user-1",
		PostedAt:     time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC),
		MerchantName: "Netflix",
		Amount:       -16.99,
		Source:       "manual",
		Confidence:   1,
	}

	require.NoError(t, store.SaveCommitted(ctx, &march))
	require.NoError(t, store.SaveCommitted(ctx, &april))

	history, err := store.GetCommittedHistory(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "tx-1", history[0].ID, "history is oldest first")
	assert.Equal(t, []string{"coffee"}, history[0].Items)
	assert.True(t, history[1].Locked())

	inMarch, err := store.GetCommittedByDateRange(ctx, "user-1",
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, inMarch, 1)
	assert.Equal(t, "tx-1", inMarch[0].ID)

	require.NoError(t, store.UpdateCommittedCategory(ctx, "user-1", "tx-2", "Entertainment", "Streaming"))
	history, err = store.GetCommittedHistory(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Entertainment", history[1].Category)
	assert.Equal(t, "Streaming", history[1].Subcategory)

	require.NoError(t, store.ArchiveCommitted(ctx, "user-1", "tx-1"))
	history, err = store.GetCommittedHistory(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "tx-2", history[0].ID)

	err = store.ArchiveCommitted(ctx, "user-1", "no-such-id")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestMarkCommittedRecurring(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	txn := model.CommittedTransaction{
		ID:           "tx-1",
		UserID:       "user-1",
		PostedAt:     time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC),
		MerchantName: "Netflix",
		Amount:       -16.99,
		Source:       "import",
	}
	require.NoError(t, store.SaveCommitted(ctx, &txn))

	require.NoError(t, store.MarkCommittedRecurring(ctx, "user-1", "tx-1"))

	history, err := store.GetCommittedHistory(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Recurring)

	err = store.MarkCommittedRecurring(ctx, "user-1", "no-such-id")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRuleUpsert(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	now := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	rule := model.LearningRule{
		ID:                "abc123",
		MerchantPattern:   "starbucks",
		SuggestedCategory: "Restaurants",
		Confidence:        0.8,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, store.SaveRule(ctx, "user-1", &rule))

	rule.Confidence = 0.85
	rule.UpdatedAt = now.Add(time.Hour)
	require.NoError(t, store.SaveRule(ctx, "user-1", &rule))

	rules, err := store.GetRules(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.InDelta(t, 0.85, rules[0].Confidence, 1e-9)
	assert.Equal(t, now, rules[0].CreatedAt.UTC())

	other, err := store.GetRules(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestImportLifecycle(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	imp := model.Import{ID: "import-1", UserID: "user-1", DocumentID: "doc-7"}
	require.NoError(t, store.CreateImport(ctx, &imp))

	dup := model.Import{ID: "import-1", UserID: "user-1", DocumentID: "doc-8"}
	assert.ErrorIs(t, store.CreateImport(ctx, &dup), common.ErrDuplicateEntry)

	got, err := store.GetImport(ctx, "user-1", "import-1")
	require.NoError(t, err)
	assert.Equal(t, model.ImportStatusParsed, got.Status)
	assert.Nil(t, got.CommittedAt)

	require.NoError(t, store.MarkImportCommitted(ctx, "user-1", "import-1", 12))

	got, err = store.GetImport(ctx, "user-1", "import-1")
	require.NoError(t, err)
	assert.Equal(t, model.ImportStatusCommitted, got.Status)
	assert.Equal(t, 12, got.CommittedCount)
	require.NotNil(t, got.CommittedAt)

	err = store.MarkImportCommitted(ctx, "user-1", "import-1", 12)
	assert.ErrorIs(t, err, common.ErrAlreadyCommitted)

	_, err = store.GetImport(ctx, "user-1", "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestValidation(t *testing.T) {
	store := setupTestStorage(t)

	_, err := store.GetPendingByID(context.Background(), "", "id")
	assert.Error(t, err)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.GetRules(canceled, "user-1")
	assert.Error(t, err)

	_, err = NewSQLiteStorage("")
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}
