package model

import "time"

// LearningRule is a merchant→category mapping derived from a user
// correction. Rules are never auto-deleted; repeated corrections
// reinforce an existing rule instead of creating a new one.
type LearningRule struct {
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ID                string
	MerchantPattern   string // normalized merchant
	SuggestedCategory string
	Confidence        float64
}
