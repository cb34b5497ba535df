package domain

import "time"

// GameRecord is one historical game reduced to its SAN move sequence.
type GameRecord struct {
	Account string
	Moves   []string
}

// DrillResult is the persisted outcome of one finished drill session.
type DrillResult struct {
	ID          int64
	SessionUUID string
	Color       string
	Opening     []string
	PliesDeep   int
	Deviations  int
	Outcome     string
	StartedAt   time.Time
	EndedAt     time.Time
}
