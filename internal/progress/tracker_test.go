package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pocketledger/tally/internal/model"
)

func TestProgressAndGamification(t *testing.T) {
	stats := model.ProgressStats{
		Total:          10,
		Reviewed:       5,
		HighConfidence: 3,
		LowConfidence:  1,
		Duplicates:     1,
	}

	assert.InDelta(t, 0.54, Progress(stats), 1e-9)

	g := Gamification(stats)
	assert.Equal(t, 19, g.XP)
	assert.Equal(t, 1, g.Level)
	assert.InDelta(t, 0.19, g.ProgressToNextLevel, 1e-9)
}

func TestProgressEmptyAndCapped(t *testing.T) {
	assert.Zero(t, Progress(model.ProgressStats{}))

	capped := Progress(model.ProgressStats{
		Total:         10,
		Reviewed:      10,
		LowConfidence: 10,
		Duplicates:    10,
	})
	assert.InDelta(t, 1.0, capped, 1e-9)
}

func TestXPMonotonicInReviewed(t *testing.T) {
	stats := model.ProgressStats{
		Total:          50,
		Reviewed:       7,
		HighConfidence: 4,
		LowConfidence:  2,
		Duplicates:     3,
	}

	base := Gamification(stats).XP
	stats.Reviewed++
	assert.Equal(t, base+1, Gamification(stats).XP)
}

func TestLevelBoundaries(t *testing.T) {
	tests := []struct {
		name       string
		stats      model.ProgressStats
		wantXP     int
		wantLevel  int
		wantToNext float64
	}{
		{
			name:       "zero",
			stats:      model.ProgressStats{},
			wantLevel:  1,
			wantToNext: 0,
		},
		{
			name:       "just below level 2",
			stats:      model.ProgressStats{Reviewed: 99},
			wantXP:     99,
			wantLevel:  1,
			wantToNext: 0.99,
		},
		{
			name:       "exactly level 2",
			stats:      model.ProgressStats{Reviewed: 100},
			wantXP:     100,
			wantLevel:  2,
			wantToNext: 0,
		},
		{
			name:       "mid level 3",
			stats:      model.ProgressStats{Reviewed: 50, LowConfidence: 40},
			wantXP:     250,
			wantLevel:  3,
			wantToNext: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Gamification(tt.stats)
			assert.Equal(t, tt.wantXP, g.XP)
			assert.Equal(t, tt.wantLevel, g.Level)
			assert.InDelta(t, tt.wantToNext, g.ProgressToNextLevel, 1e-9)
		})
	}
}
