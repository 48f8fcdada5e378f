package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketledger/tally/internal/common"
	"github.com/pocketledger/tally/internal/model"
	"github.com/pocketledger/tally/internal/service"
)

// memStorage is an in-memory service.Storage for controller tests.
type memStorage struct {
	pending   map[string]model.PendingTransaction
	committed map[string]model.CommittedTransaction
	rules     map[string]model.LearningRule
	imports   map[string]model.Import

	failUpdateCategory map[string]error
}

func newMemStorage() *memStorage {
	return &memStorage{
		pending:            make(map[string]model.PendingTransaction),
		committed:          make(map[string]model.CommittedTransaction),
		rules:              make(map[string]model.LearningRule),
		imports:            make(map[string]model.Import),
		failUpdateCategory: make(map[string]error),
	}
}

func (m *memStorage) SavePending(_ context.Context, txns []model.PendingTransaction) error {
	for _, p := range txns {
		m.pending[p.ID] = p
	}
	return nil
}

func (m *memStorage) GetPendingByID(_ context.Context, _, id string) (*model.PendingTransaction, error) {
	p, ok := m.pending[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &p, nil
}

func (m *memStorage) ListPending(_ context.Context, userID string, filter service.PendingFilter) ([]model.PendingTransaction, error) {
	var out []model.PendingTransaction
	for _, p := range m.pending {
		if p.UserID != userID {
			continue
		}
		if filter.ImportID != "" && p.ImportID != filter.ImportID {
			continue
		}
		if filter.NeedsReview != nil && p.NeedsReview != *filter.NeedsReview {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memStorage) UpdatePending(_ context.Context, txn *model.PendingTransaction) error {
	if _, ok := m.pending[txn.ID]; !ok {
		return common.ErrNotFound
	}
	m.pending[txn.ID] = *txn
	return nil
}

func (m *memStorage) DeletePending(_ context.Context, _, id string) error {
	if _, ok := m.pending[id]; !ok {
		return common.ErrNotFound
	}
	delete(m.pending, id)
	return nil
}

func (m *memStorage) SaveCommitted(_ context.Context, txn *model.CommittedTransaction) error {
	m.committed[txn.ID] = *txn
	return nil
}

func (m *memStorage) GetCommittedByDateRange(_ context.Context, userID string, start, end time.Time) ([]model.CommittedTransaction, error) {
	var out []model.CommittedTransaction
	for _, t := range m.committed {
		if t.UserID != userID || t.PostedAt.Before(start) || t.PostedAt.After(end) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *memStorage) GetCommittedHistory(_ context.Context, userID string) ([]model.CommittedTransaction, error) {
	var out []model.CommittedTransaction
	for _, t := range m.committed {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStorage) UpdateCommittedCategory(_ context.Context, _, id, category, subcategory string) error {
	if err := m.failUpdateCategory[id]; err != nil {
		return err
	}
	t, ok := m.committed[id]
	if !ok {
		return common.ErrNotFound
	}
	t.Category = category
	t.Subcategory = subcategory
	m.committed[id] = t
	return nil
}

func (m *memStorage) MarkCommittedRecurring(_ context.Context, _, id string) error {
	t, ok := m.committed[id]
	if !ok {
		return common.ErrNotFound
	}
	t.Recurring = true
	m.committed[id] = t
	return nil
}

func (m *memStorage) ArchiveCommitted(_ context.Context, _, id string) error {
	if _, ok := m.committed[id]; !ok {
		return common.ErrNotFound
	}
	delete(m.committed, id)
	return nil
}

func (m *memStorage) SaveRule(_ context.Context, _ string, rule *model.LearningRule) error {
	m.rules[rule.ID] = *rule
	return nil
}

func (m *memStorage) GetRules(_ context.Context, _ string) ([]model.LearningRule, error) {
	var out []model.LearningRule
	for _, r := range m.rules {
		out = append(out, r)
	}
	return out, nil
}

func (m *memStorage) CreateImport(_ context.Context, imp *model.Import) error {
	m.imports[imp.ID] = *imp
	return nil
}

func (m *memStorage) GetImport(_ context.Context, _, id string) (*model.Import, error) {
	imp, ok := m.imports[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &imp, nil
}

func (m *memStorage) MarkImportCommitted(_ context.Context, _, id string, count int) error {
	imp, ok := m.imports[id]
	if !ok {
		return common.ErrNotFound
	}
	if imp.Status == model.ImportStatusCommitted {
		return common.ErrAlreadyCommitted
	}
	imp.Status = model.ImportStatusCommitted
	imp.CommittedCount = count
	m.imports[id] = imp
	return nil
}

func (m *memStorage) Migrate(context.Context) error { return nil }
func (m *memStorage) Close() error                  { return nil }

func amountPtr(v float64) *float64 { return &v }

func newTestController(store service.Storage) *ReconciliationController {
	seq := 0
	return New(store,
		WithClock(func() time.Time {
			return time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)
		}),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		}),
	)
}

func TestIngestStagingScoresAndFlags(t *testing.T) {
	store := newMemStorage()
	c := newTestController(store)
	ctx := context.Background()

	// An existing ledger entry that the first parsed transaction duplicates.
	store.committed["existing"] = model.CommittedTransaction{
		ID:           "existing",
		UserID:       "user-1",
		PostedAt:     time.Date(2024, 4, 8, 0, 0, 0, 0, time.UTC),
		MerchantName: "Starbucks",
		Amount:       -6.45,
	}

	imp, pending, err := c.IngestStaging(ctx, "user-1", "doc-1", []ParsedTransaction{
		{
			Data: model.NormalizedTransaction{
				Date:     "2024-04-09",
				Merchant: "STARBUCKS",
				Amount:   amountPtr(-6.45),
			},
			RawText: "STARBUCKS 2024-04-09 $6.45",
		},
		{
			Data: model.NormalizedTransaction{
				Merchant: "unclear scrawl",
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, model.ImportStatusParsed, imp.Status)

	dup := pending[0]
	require.NotNil(t, dup.PossibleDuplicate)
	assert.Equal(t, "existing", dup.PossibleDuplicate.TransactionID)
	assert.GreaterOrEqual(t, dup.Confidence.Overall, model.ReviewThreshold)
	assert.False(t, dup.NeedsReview, "the duplicate flag is advisory; confidence alone gates review")
	assert.Equal(t, imp.ID, dup.ImportID)
	assert.NotEmpty(t, dup.Hash)

	vague := pending[1]
	assert.Nil(t, vague.PossibleDuplicate)
	assert.True(t, vague.NeedsReview, "missing fields score below threshold")
	assert.Less(t, vague.Confidence.Overall, model.ReviewThreshold)

	assert.Len(t, store.pending, 2)
}

func TestIngestStagingPrefersLearnedRule(t *testing.T) {
	store := newMemStorage()
	store.rules["r1"] = model.LearningRule{
		ID:                "r1",
		MerchantPattern:   "starbucks",
		SuggestedCategory: "Coffee Runs",
		Confidence:        0.9,
	}
	c := newTestController(store)

	_, pending, err := c.IngestStaging(context.Background(), "user-1", "", []ParsedTransaction{
		{Data: model.NormalizedTransaction{
			Date:     "2024-04-09",
			Merchant: "STARBUCKS #1234",
			Amount:   amountPtr(-6.45),
		}},
	})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.NotEmpty(t, pending[0].Suggestions)

	top := pending[0].Suggestions[0]
	assert.Equal(t, "Coffee Runs", top.Category)
	assert.InDelta(t, 0.9, top.Confidence, 1e-9)
}

func TestApprovePromotesAndLearns(t *testing.T) {
	store := newMemStorage()
	c := newTestController(store)
	ctx := context.Background()

	_, pending, err := c.IngestStaging(ctx, "user-1", "", []ParsedTransaction{
		{Data: model.NormalizedTransaction{
			Date:     "2024-04-09",
			Merchant: "FRESH MART #22",
			Amount:   amountPtr(-84.12),
		}},
	})
	require.NoError(t, err)

	committed, err := c.Approve(ctx, "user-1", pending[0].ID, "Groceries", "")
	require.NoError(t, err)

	assert.Equal(t, "manual", committed.Source)
	assert.Equal(t, 1.0, committed.Confidence)
	assert.True(t, committed.Locked())
	assert.Equal(t, "Groceries", committed.Category)
	assert.Equal(t, time.Date(2024, 4, 9, 0, 0, 0, 0, time.UTC), committed.PostedAt)

	assert.Empty(t, store.pending, "approval clears the staging row")
	require.Len(t, store.rules, 1)
	for _, r := range store.rules {
		assert.Equal(t, "fresh mart", r.MerchantPattern)
		assert.Equal(t, "Groceries", r.SuggestedCategory)
		assert.InDelta(t, 0.8, r.Confidence, 1e-9)
	}
}

func TestApproveReinforcesExistingRule(t *testing.T) {
	store := newMemStorage()
	c := newTestController(store)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, pending, err := c.IngestStaging(ctx, "user-1", "", []ParsedTransaction{
			{Data: model.NormalizedTransaction{
				Date:     "2024-04-09",
				Merchant: "FRESH MART",
				Amount:   amountPtr(-20),
			}},
		})
		require.NoError(t, err)
		_, err = c.Approve(ctx, "user-1", pending[0].ID, "Groceries", "")
		require.NoError(t, err)
	}

	require.Len(t, store.rules, 1, "repeat approval reinforces, not duplicates")
	for _, r := range store.rules {
		assert.InDelta(t, 0.85, r.Confidence, 1e-9)
	}
}

func TestRejectDiscardsStagingRow(t *testing.T) {
	store := newMemStorage()
	c := newTestController(store)
	ctx := context.Background()

	_, pending, err := c.IngestStaging(ctx, "user-1", "", []ParsedTransaction{
		{Data: model.NormalizedTransaction{Merchant: "NOISE"}},
	})
	require.NoError(t, err)

	require.NoError(t, c.Reject(ctx, "user-1", pending[0].ID))
	assert.Empty(t, store.pending)
	assert.Empty(t, store.committed)

	assert.ErrorIs(t, c.Reject(ctx, "user-1", "missing"), common.ErrNotFound)
}

func TestCommitImportPromotesAllAndRejectsSecondCommit(t *testing.T) {
	store := newMemStorage()
	store.rules["r1"] = model.LearningRule{
		ID:                "r1",
		MerchantPattern:   "netflix",
		SuggestedCategory: "Entertainment",
		Confidence:        0.9,
	}
	c := newTestController(store)
	ctx := context.Background()

	imp, _, err := c.IngestStaging(ctx, "user-1", "doc-1", []ParsedTransaction{
		{Data: model.NormalizedTransaction{Date: "2024-04-01", Merchant: "NETFLIX.COM", Amount: amountPtr(-16.99)}},
		{Data: model.NormalizedTransaction{Date: "2024-04-02", Merchant: "CORNER SHOP", Amount: amountPtr(-12.30)}},
	})
	require.NoError(t, err)

	n, err := c.CommitImport(ctx, "user-1", imp.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Empty(t, store.pending)
	require.Len(t, store.committed, 2)

	var netflix model.CommittedTransaction
	for _, tx := range store.committed {
		if tx.MerchantName == "NETFLIX.COM" {
			netflix = tx
		}
	}
	assert.Equal(t, "Entertainment", netflix.Category, "rules categorize at commit")
	assert.Equal(t, "import", netflix.Source)
	assert.False(t, netflix.Locked())

	_, err = c.CommitImport(ctx, "user-1", imp.ID)
	assert.ErrorIs(t, err, common.ErrAlreadyCommitted)
}

func TestApplyCorrectionsBestEffort(t *testing.T) {
	store := newMemStorage()
	store.committed["t1"] = model.CommittedTransaction{ID: "t1", UserID: "user-1", MerchantName: "Corner Shop"}
	store.committed["t2"] = model.CommittedTransaction{ID: "t2", UserID: "user-1", MerchantName: "Gas Plus"}
	store.failUpdateCategory["t2"] = errors.New("disk full")
	c := newTestController(store)

	result := c.ApplyCorrections(context.Background(), "user-1", []Correction{
		{TransactionID: "t1", Category: "Shopping"},
		{TransactionID: "t2", Category: "Transportation"},
		{TransactionID: "missing", Category: "Misc"},
	})

	assert.Equal(t, BatchResult{Total: 3, Succeeded: 1, Failed: 2}, result)
	assert.Equal(t, "Shopping", store.committed["t1"].Category)
	require.Len(t, store.rules, 1, "only the successful correction learns a rule")
}

func TestRecomputePendingRefreshesAnalysis(t *testing.T) {
	store := newMemStorage()
	c := newTestController(store)
	ctx := context.Background()

	_, pending, err := c.IngestStaging(ctx, "user-1", "", []ParsedTransaction{
		{Data: model.NormalizedTransaction{Date: "2024-04-09", Merchant: "FRESH MART", Amount: amountPtr(-30)}},
	})
	require.NoError(t, err)

	// A rule learned after staging changes the top suggestion on recompute.
	store.rules["r1"] = model.LearningRule{
		ID:                "r1",
		MerchantPattern:   "fresh mart",
		SuggestedCategory: "Groceries",
		Confidence:        0.95,
	}

	result, err := c.RecomputePending(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Total: 1, Succeeded: 1}, result)

	refreshed := store.pending[pending[0].ID]
	require.NotEmpty(t, refreshed.Suggestions)
	assert.Equal(t, "Groceries", refreshed.Suggestions[0].Category)
}

func TestApplyRulesToCommittedSkipsLockedAndCategorized(t *testing.T) {
	store := newMemStorage()
	store.rules["r1"] = model.LearningRule{
		ID:                "r1",
		MerchantPattern:   "netflix",
		SuggestedCategory: "Entertainment",
		Confidence:        0.9,
	}
	store.committed["plain"] = model.CommittedTransaction{
		ID: "plain", UserID: "user-1", MerchantName: "Netflix", Source: "import",
	}
	store.committed["locked"] = model.CommittedTransaction{
		ID: "locked", UserID: "user-1", MerchantName: "Netflix Store",
		Source: "manual", Confidence: 1,
	}
	store.committed["done"] = model.CommittedTransaction{
		ID: "done", UserID: "user-1", MerchantName: "Netflix", Category: "Subscriptions",
	}
	c := newTestController(store)

	result, err := c.ApplyRulesToCommitted(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Total: 1, Succeeded: 1}, result)

	assert.Equal(t, "Entertainment", store.committed["plain"].Category)
	assert.Empty(t, store.committed["locked"].Category, "manual promotions are final")
	assert.Equal(t, "Subscriptions", store.committed["done"].Category)
}

func TestStatsCountsReviewStates(t *testing.T) {
	store := newMemStorage()
	c := newTestController(store)
	ctx := context.Background()

	store.committed["t1"] = model.CommittedTransaction{ID: "t1", UserID: "user-1"}

	store.pending["p1"] = model.PendingTransaction{
		ID: "p1", UserID: "user-1",
		Confidence: model.ConfidenceScores{Overall: 0.9},
	}
	store.pending["p2"] = model.PendingTransaction{
		ID: "p2", UserID: "user-1",
		Confidence:        model.ConfidenceScores{Overall: 0.5},
		PossibleDuplicate: &model.PossibleDuplicate{TransactionID: "t1"},
		NeedsReview:       true,
	}

	stats, err := c.Stats(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, model.ProgressStats{
		Total:          3,
		Reviewed:       1,
		HighConfidence: 1,
		LowConfidence:  1,
		Duplicates:     1,
	}, stats)
}
