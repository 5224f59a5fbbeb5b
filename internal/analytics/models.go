package analytics

// GameStats is collected by the game controller over one run.
type GameStats struct {
	Score      int
	Missed     int
	MaxMissed  int
	Hits       int
	MissClicks int
	Spawned    int
	Reactions  []int // ms from appearance to hit
}

type Summary struct {
	Score        int
	Missed       int
	MaxMissed    int
	Hits         int
	MissClicks   int
	Accuracy     float64 // hits as a percentage of all clicks
	AvgReaction  float64
	BestReaction int
	Badges       []Badge
}
