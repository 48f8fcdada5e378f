package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeMerchant(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "strips store number and hash",
			input: "STARBUCKS #4521",
			want:  "starbucks",
		},
		{
			name:  "collapses whitespace",
			input: "Tim   Hortons   0102",
			want:  "tim hortons",
		},
		{
			name:  "already clean",
			input: "Netflix",
			want:  "netflix",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
		{
			name:  "digits embedded in word",
			input: "7-Eleven 33012",
			want:  "-eleven",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeMerchant(tt.input))
		})
	}
}

func TestStagingHash(t *testing.T) {
	amount := 4.75
	tx := NormalizedTransaction{
		Date:     "2024-01-15",
		Merchant: "STARBUCKS #4521",
		Amount:   &amount,
	}

	first := StagingHash(tx)
	second := StagingHash(tx)
	assert.Equal(t, first, second, "hash must be deterministic")
	assert.Len(t, first, 64)

	other := tx
	otherAmount := 4.76
	other.Amount = &otherAmount
	assert.NotEqual(t, first, StagingHash(other), "amount change must change hash")

	missing := NormalizedTransaction{Date: "2024-01-15", Merchant: "STARBUCKS #4521"}
	assert.NotEqual(t, first, StagingHash(missing))
}

func TestCommittedTransactionLocked(t *testing.T) {
	assert.True(t, CommittedTransaction{Source: "manual", Confidence: 1}.Locked())
	assert.False(t, CommittedTransaction{Source: "manual", Confidence: 0.9}.Locked())
	assert.False(t, CommittedTransaction{Source: "import", Confidence: 1}.Locked())
}

func TestConfidenceScoresNeedsReview(t *testing.T) {
	assert.True(t, ConfidenceScores{Overall: 0.74}.NeedsReview())
	assert.False(t, ConfidenceScores{Overall: 0.75}.NeedsReview())
}
