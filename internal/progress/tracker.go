// Package progress converts reconciliation counters into progress and
// gamification metrics. Everything here is derived on demand; nothing is
// stored as ground truth.
package progress

import (
	"math"

	"github.com/pocketledger/tally/internal/common"
	"github.com/pocketledger/tally/internal/model"
)

// XP weights per counter. Harder review work earns more.
const (
	xpPerReviewed       = 1
	xpPerHighConfidence = 2
	xpPerLowConfidence  = 5
	xpPerDuplicate      = 3
)

// xpPerLevel is the XP span of a single level.
const xpPerLevel = 100

// Progress returns the reconciliation completion fraction in [0,1].
// Low-confidence and duplicate items weigh extra because they demand
// attention beyond a plain review.
func Progress(stats model.ProgressStats) float64 {
	if stats.Total == 0 {
		return 0
	}

	total := float64(stats.Total)
	p := float64(stats.Reviewed)/total +
		0.2*float64(stats.LowConfidence+stats.Duplicates)/total
	return common.Round2(math.Min(p, 1.0))
}

// Gamification derives XP, level, and progress toward the next level.
func Gamification(stats model.ProgressStats) model.GamificationState {
	xp := stats.Reviewed*xpPerReviewed +
		stats.HighConfidence*xpPerHighConfidence +
		stats.LowConfidence*xpPerLowConfidence +
		stats.Duplicates*xpPerDuplicate

	level := xp/xpPerLevel + 1
	toNext := common.Clamp01(float64(xp-(level-1)*xpPerLevel) / xpPerLevel)

	return model.GamificationState{
		XP:                  xp,
		Level:               level,
		ProgressToNextLevel: toNext,
	}
}
