package model

// ProgressStats are pure counters over the pending and committed sets
// for a user. They carry no derived values.
type ProgressStats struct {
	Total          int
	Reviewed       int
	HighConfidence int
	LowConfidence  int
	Duplicates     int
}

// GamificationState is the derived XP/level summary of reconciliation
// activity. Recomputed on demand, never stored as ground truth.
type GamificationState struct {
	XP                  int
	Level               int
	ProgressToNextLevel float64
}
