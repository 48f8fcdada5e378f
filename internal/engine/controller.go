// Package engine orchestrates the reconciliation pipeline: scoring,
// duplicate detection, suggestions, and the staging-to-ledger lifecycle.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pocketledger/tally/internal/common"
	"github.com/pocketledger/tally/internal/dedupe"
	"github.com/pocketledger/tally/internal/model"
	"github.com/pocketledger/tally/internal/recurring"
	"github.com/pocketledger/tally/internal/rules"
	"github.com/pocketledger/tally/internal/scoring"
	"github.com/pocketledger/tally/internal/service"
	"github.com/pocketledger/tally/internal/split"
	"github.com/pocketledger/tally/internal/suggest"
)

// ParsedTransaction pairs an extracted transaction with the raw text it
// was extracted from. The raw text feeds the confidence scorer.
type ParsedTransaction struct {
	Data    model.NormalizedTransaction
	RawText string
}

// Correction is a single category fix in a batch.
type Correction struct {
	TransactionID string
	Category      string
	Subcategory   string
}

// BatchResult summarizes a best-effort batch operation.
type BatchResult struct {
	Total     int
	Succeeded int
	Failed    int
}

// ReconciliationController drives transactions from staging into the
// permanent ledger.
type ReconciliationController struct {
	store          service.Storage
	scorer         *scoring.Scorer
	dupes          *dedupe.Detector
	suggester      *suggest.Engine
	splits         *split.Detector
	recurring      *recurring.Detector
	now            func() time.Time
	newID          func() string
	maxSuggestions int
}

// Option configures a ReconciliationController.
type Option func(*ReconciliationController)

// WithClock overrides the wall clock, used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *ReconciliationController) { c.now = now }
}

// WithIDGenerator overrides pending-transaction ID generation.
func WithIDGenerator(newID func() string) Option {
	return func(c *ReconciliationController) { c.newID = newID }
}

// WithScorer replaces the default confidence scorer.
func WithScorer(s *scoring.Scorer) Option {
	return func(c *ReconciliationController) { c.scorer = s }
}

// WithDedupeConfig replaces the default duplicate-detection thresholds.
func WithDedupeConfig(cfg dedupe.Config) Option {
	return func(c *ReconciliationController) {
		c.dupes = dedupe.NewDetectorWithConfig(c.store, cfg)
	}
}

// WithRecurringConfig replaces the default pattern-mining thresholds.
func WithRecurringConfig(cfg recurring.Config) Option {
	return func(c *ReconciliationController) {
		c.recurring = recurring.NewDetectorWithConfig(cfg)
	}
}

// WithSuggestionLimit bounds the suggestion list per transaction.
func WithSuggestionLimit(limit int) Option {
	return func(c *ReconciliationController) {
		c.suggester = suggest.NewEngineWithLimit(suggest.NewDefaultClassifier(), limit)
		if limit > 0 {
			c.maxSuggestions = limit
		}
	}
}

// New creates a controller over the given storage with default components.
func New(store service.Storage, opts ...Option) *ReconciliationController {
	c := &ReconciliationController{
		store:          store,
		scorer:         scoring.NewScorer(),
		dupes:          dedupe.NewDetector(store),
		suggester:      suggest.NewEngine(suggest.NewDefaultClassifier()),
		splits:         split.NewDetector(),
		recurring:      recurring.NewDetector(),
		now:            time.Now,
		newID:          uuid.NewString,
		maxSuggestions: suggest.DefaultMaxSuggestions,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IngestStaging runs the full analysis pipeline over parsed transactions
// and writes them to staging under a new import. Every transaction is
// scored, checked against the committed ledger for duplicates, and
// annotated with category and action suggestions.
func (c *ReconciliationController) IngestStaging(ctx context.Context, userID, documentID string, parsed []ParsedTransaction) (*model.Import, []model.PendingTransaction, error) {
	if userID == "" {
		return nil, nil, fmt.Errorf("userID cannot be empty: %w", common.ErrInvalidConfig)
	}

	imp := &model.Import{
		ID:         c.newID(),
		UserID:     userID,
		DocumentID: documentID,
		Status:     model.ImportStatusParsed,
	}
	if err := c.store.CreateImport(ctx, imp); err != nil {
		return nil, nil, fmt.Errorf("failed to create import: %w", err)
	}

	ruleSet, err := c.store.GetRules(ctx, userID)
	if err != nil {
		slog.Warn("Rule lookup failed, ingesting without learned rules",
			"user_id", userID,
			"error", err)
		ruleSet = nil
	}

	parsedAt := c.now().UTC()
	pending := make([]model.PendingTransaction, 0, len(parsed))
	for _, item := range parsed {
		p := c.analyze(ctx, userID, ruleSet, item)
		p.ImportID = imp.ID
		p.ParsedAt = parsedAt
		pending = append(pending, p)
	}

	if err := c.store.SavePending(ctx, pending); err != nil {
		return nil, nil, fmt.Errorf("failed to stage transactions: %w", err)
	}

	slog.Info("Staged import",
		"user_id", userID,
		"import_id", imp.ID,
		"transactions", len(pending))
	return imp, pending, nil
}

// analyze runs scoring, deduplication, and suggestion for one transaction.
func (c *ReconciliationController) analyze(ctx context.Context, userID string, ruleSet []model.LearningRule, item ParsedTransaction) model.PendingTransaction {
	p := model.PendingTransaction{
		ID:         c.newID(),
		UserID:     userID,
		Hash:       model.StagingHash(item.Data),
		Data:       item.Data,
		Confidence: c.scorer.Score(item.Data, item.RawText),
	}

	if matches := c.dupes.FindDuplicates(ctx, userID, item.Data); len(matches) > 0 {
		p.PossibleDuplicate = &matches[0]
	}

	p.Suggestions = c.suggestFor(ruleSet, item.Data)
	p.NeedsReview = p.Confidence.NeedsReview()

	if candidate, ok := c.splits.Evaluate(p); ok {
		p.SplitConfidence = candidate.Confidence
	}
	return p
}

// suggestFor merges learned-rule matches with keyword suggestions. A rule
// hit is primary: it carries the user's own history, so it outranks a
// keyword suggestion for the same category.
func (c *ReconciliationController) suggestFor(ruleSet []model.LearningRule, tx model.NormalizedTransaction) []model.Suggestion {
	keyword := c.suggester.Suggest(tx)

	rule := rules.Apply(ruleSet, tx)
	if rule == nil {
		return keyword
	}

	fromRule := []model.Suggestion{{
		ID:         "cat-rule-" + rule.ID,
		Type:       model.SuggestionCategory,
		Category:   rule.SuggestedCategory,
		Reason:     fmt.Sprintf("learned rule for %q", rule.MerchantPattern),
		Confidence: rule.Confidence,
	}}
	return suggest.MergeSuggestionSets(fromRule, keyword, c.maxSuggestions)
}

// Approve promotes a staged transaction into the ledger as a manual,
// full-confidence entry, learns a categorization rule from the chosen
// category, and removes the staging row.
func (c *ReconciliationController) Approve(ctx context.Context, userID, id, category, subcategory string) (*model.CommittedTransaction, error) {
	p, err := c.store.GetPendingByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	committed := c.promote(p, "manual", 1)
	committed.Category = category
	committed.Subcategory = subcategory

	if err := c.store.SaveCommitted(ctx, committed); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if category != "" {
		if err := c.learnRule(ctx, userID, p.Data, category); err != nil {
			slog.Warn("Failed to learn rule from approval",
				"user_id", userID,
				"merchant", p.Data.Merchant,
				"error", err)
		}
	}

	if err := c.store.DeletePending(ctx, userID, id); err != nil {
		return nil, fmt.Errorf("failed to clear staging row: %w", err)
	}
	return committed, nil
}

// Reject discards a staged transaction without committing it.
func (c *ReconciliationController) Reject(ctx context.Context, userID, id string) error {
	return c.store.DeletePending(ctx, userID, id)
}

// learnRule derives or reinforces a rule from a confirmed categorization.
func (c *ReconciliationController) learnRule(ctx context.Context, userID string, tx model.NormalizedTransaction, category string) error {
	now := c.now().UTC()
	rule := rules.Derive(tx, category, now)

	existing, err := c.store.GetRules(ctx, userID)
	if err != nil {
		return err
	}
	for i := range existing {
		if existing[i].ID == rule.ID {
			rules.Reinforce(&existing[i], now)
			return c.store.SaveRule(ctx, userID, &existing[i])
		}
	}
	return c.store.SaveRule(ctx, userID, &rule)
}

// ApplyCorrections applies a batch of category fixes to committed
// transactions, learning a rule from each. Failures are logged and
// counted; the batch never halts.
func (c *ReconciliationController) ApplyCorrections(ctx context.Context, userID string, corrections []Correction) BatchResult {
	result := BatchResult{Total: len(corrections)}

	history, err := c.store.GetCommittedHistory(ctx, userID)
	if err != nil {
		slog.Warn("History lookup failed, corrections applied without rule learning",
			"user_id", userID,
			"error", err)
	}
	byID := make(map[string]model.CommittedTransaction, len(history))
	for _, t := range history {
		byID[t.ID] = t
	}

	for _, fix := range corrections {
		if err := c.store.UpdateCommittedCategory(ctx, userID, fix.TransactionID, fix.Category, fix.Subcategory); err != nil {
			slog.Warn("Correction failed",
				"user_id", userID,
				"transaction_id", fix.TransactionID,
				"error", err)
			result.Failed++
			continue
		}
		result.Succeeded++

		if t, ok := byID[fix.TransactionID]; ok {
			tx := model.NormalizedTransaction{Merchant: t.MerchantName}
			if err := c.learnRule(ctx, userID, tx, fix.Category); err != nil {
				slog.Warn("Failed to learn rule from correction",
					"user_id", userID,
					"merchant", t.MerchantName,
					"error", err)
			}
		}
	}
	return result
}

// CommitImport promotes every staged transaction of an import into the
// ledger and marks the import committed. Committing twice fails; the
// first commit wins.
func (c *ReconciliationController) CommitImport(ctx context.Context, userID, importID string) (int, error) {
	imp, err := c.store.GetImport(ctx, userID, importID)
	if err != nil {
		return 0, err
	}
	if imp.Status == model.ImportStatusCommitted {
		return 0, fmt.Errorf("import %s: %w", importID, common.ErrAlreadyCommitted)
	}

	pending, err := c.store.ListPending(ctx, userID, service.PendingFilter{ImportID: importID})
	if err != nil {
		return 0, fmt.Errorf("failed to list staged transactions: %w", err)
	}

	ruleSet, err := c.store.GetRules(ctx, userID)
	if err != nil {
		ruleSet = nil
	}

	committed := 0
	for i := range pending {
		p := &pending[i]

		promoted := c.promote(p, "import", p.Confidence.Overall)
		if rule := rules.Apply(ruleSet, p.Data); rule != nil {
			promoted.Category = rule.SuggestedCategory
		}

		if err := c.store.SaveCommitted(ctx, promoted); err != nil {
			slog.Warn("Failed to commit staged transaction",
				"user_id", userID,
				"transaction_id", p.ID,
				"error", err)
			continue
		}
		if err := c.store.DeletePending(ctx, userID, p.ID); err != nil {
			slog.Warn("Committed but failed to clear staging row",
				"user_id", userID,
				"transaction_id", p.ID,
				"error", err)
		}
		committed++
	}

	if err := c.store.MarkImportCommitted(ctx, userID, importID, committed); err != nil {
		return committed, err
	}

	slog.Info("Committed import",
		"user_id", userID,
		"import_id", importID,
		"committed", committed,
		"staged", len(pending))
	return committed, nil
}

// promote converts a staging row into a ledger entry.
func (c *ReconciliationController) promote(p *model.PendingTransaction, source string, confidence float64) *model.CommittedTransaction {
	postedAt := c.now().UTC()
	if p.Data.Date != "" {
		if d, err := time.Parse("2006-01-02", p.Data.Date); err == nil {
			postedAt = d
		}
	}
	return &model.CommittedTransaction{
		ID:           p.ID,
		UserID:       p.UserID,
		PostedAt:     postedAt,
		MerchantName: p.Data.Merchant,
		Amount:       p.Data.AmountValue(),
		ImportID:     p.ImportID,
		DocumentID:   p.Data.DocID,
		Hash:         p.Hash,
		Source:       source,
		Confidence:   confidence,
		Items:        p.Data.Items,
	}
}

// RecomputePending re-runs scoring, deduplication, and suggestions over
// every staged transaction for a user. Used after rules change or
// thresholds are reconfigured.
func (c *ReconciliationController) RecomputePending(ctx context.Context, userID string) (BatchResult, error) {
	pending, err := c.store.ListPending(ctx, userID, service.PendingFilter{})
	if err != nil {
		return BatchResult{}, fmt.Errorf("failed to list staged transactions: %w", err)
	}

	ruleSet, err := c.store.GetRules(ctx, userID)
	if err != nil {
		ruleSet = nil
	}

	result := BatchResult{Total: len(pending)}
	for i := range pending {
		p := &pending[i]

		refreshed := c.analyze(ctx, userID, ruleSet, ParsedTransaction{Data: p.Data})
		p.Confidence = refreshed.Confidence
		p.PossibleDuplicate = refreshed.PossibleDuplicate
		p.Suggestions = refreshed.Suggestions
		p.NeedsReview = refreshed.NeedsReview
		p.SplitConfidence = refreshed.SplitConfidence

		if err := c.store.UpdatePending(ctx, p); err != nil {
			slog.Warn("Failed to update staged transaction",
				"user_id", userID,
				"transaction_id", p.ID,
				"error", err)
			result.Failed++
			continue
		}
		result.Succeeded++
	}
	return result, nil
}

// ApplyRulesToCommitted re-categorizes uncategorized ledger entries using
// the current rule set. Manually promoted entries are never touched.
func (c *ReconciliationController) ApplyRulesToCommitted(ctx context.Context, userID string) (BatchResult, error) {
	history, err := c.store.GetCommittedHistory(ctx, userID)
	if err != nil {
		return BatchResult{}, fmt.Errorf("failed to load history: %w", err)
	}
	ruleSet, err := c.store.GetRules(ctx, userID)
	if err != nil {
		return BatchResult{}, fmt.Errorf("failed to load rules: %w", err)
	}

	var result BatchResult
	for _, t := range history {
		if t.Locked() || t.Category != "" {
			continue
		}
		rule := rules.Apply(ruleSet, model.NormalizedTransaction{Merchant: t.MerchantName})
		if rule == nil {
			continue
		}

		result.Total++
		if err := c.store.UpdateCommittedCategory(ctx, userID, t.ID, rule.SuggestedCategory, ""); err != nil {
			slog.Warn("Failed to apply rule",
				"user_id", userID,
				"transaction_id", t.ID,
				"error", err)
			result.Failed++
			continue
		}
		result.Succeeded++
	}
	return result, nil
}

// Patterns detects recurring merchants across the committed ledger.
func (c *ReconciliationController) Patterns(ctx context.Context, userID string) ([]model.RecurringPattern, error) {
	history, err := c.store.GetCommittedHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return c.recurring.Detect(history), nil
}

// SplitCandidates scans a user's staged transactions for shared bills.
func (c *ReconciliationController) SplitCandidates(ctx context.Context, userID string) ([]model.SplitCandidate, error) {
	pending, err := c.store.ListPending(ctx, userID, service.PendingFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list staged transactions: %w", err)
	}
	return c.splits.Detect(pending), nil
}

// Stats summarizes the review state of a user's staged transactions.
func (c *ReconciliationController) Stats(ctx context.Context, userID string) (model.ProgressStats, error) {
	pending, err := c.store.ListPending(ctx, userID, service.PendingFilter{})
	if err != nil {
		return model.ProgressStats{}, fmt.Errorf("failed to list staged transactions: %w", err)
	}

	history, err := c.store.GetCommittedHistory(ctx, userID)
	if err != nil {
		return model.ProgressStats{}, fmt.Errorf("failed to load history: %w", err)
	}

	stats := model.ProgressStats{
		Total:    len(pending) + len(history),
		Reviewed: len(history),
	}
	for _, p := range pending {
		if p.PossibleDuplicate != nil {
			stats.Duplicates++
		}
		switch {
		case p.Confidence.NeedsReview():
			stats.LowConfidence++
		default:
			stats.HighConfidence++
		}
	}
	return stats, nil
}
