// Package rules derives merchant→category rules from user corrections
// and applies them to new transactions.
package rules

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/pocketledger/tally/internal/model"
)

// InitialConfidence is the fixed starting confidence for a derived rule.
const InitialConfidence = 0.8

// MaxConfidence caps reinforcement of an existing rule.
const MaxConfidence = 0.95

// reinforceStep is added each time a correction re-derives a rule.
const reinforceStep = 0.05

// Derive builds a rule from a corrected transaction. The id is
// deterministic over the normalized merchant and category, so repeated
// corrections upsert the same rule instead of multiplying it.
func Derive(tx model.NormalizedTransaction, category string, now time.Time) model.LearningRule {
	pattern := model.NormalizeMerchant(tx.Merchant)
	return model.LearningRule{
		ID:                RuleID(pattern, category),
		MerchantPattern:   pattern,
		SuggestedCategory: category,
		Confidence:        InitialConfidence,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// RuleID derives the deterministic rule identifier.
func RuleID(normalizedMerchant, category string) string {
	sum := sha256.Sum256([]byte(normalizedMerchant + ":" + category))
	return fmt.Sprintf("%x", sum[:8])
}

// Apply matches a transaction against a rule set. A rule matches when
// either normalized string contains the other; among matches the single
// highest-confidence rule wins. Returns nil when nothing matches.
//
// Matching is deliberately confidence-only: no recency or specificity
// weighting, so a short merchant substring can outrank a longer rule.
func Apply(ruleSet []model.LearningRule, tx model.NormalizedTransaction) *model.LearningRule {
	merchant := model.NormalizeMerchant(tx.Merchant)
	if merchant == "" {
		return nil
	}

	var best *model.LearningRule
	for i := range ruleSet {
		rule := &ruleSet[i]
		if rule.MerchantPattern == "" {
			continue
		}
		if !strings.Contains(merchant, rule.MerchantPattern) &&
			!strings.Contains(rule.MerchantPattern, merchant) {
			continue
		}
		if best == nil || rule.Confidence > best.Confidence {
			best = rule
		}
	}

	if best == nil {
		return nil
	}
	found := *best
	return &found
}

// Reinforce bumps an existing rule's confidence after a repeat
// correction, capped at MaxConfidence.
func Reinforce(rule *model.LearningRule, now time.Time) {
	rule.Confidence += reinforceStep
	if rule.Confidence > MaxConfidence {
		rule.Confidence = MaxConfidence
	}
	rule.UpdatedAt = now
}
