package analytics

import (
	"fmt"
	"strings"
)

type BadgeID string

const (
	BadgeSharpshooter BadgeID = "sharpshooter"
	BadgeSpeedDemon   BadgeID = "speed_demon"
	BadgeFlawless     BadgeID = "flawless"
	BadgeCenturion    BadgeID = "centurion"
)

type Badge struct {
	ID          BadgeID
	Name        string
	Description string
	Icon        string
}

var AllBadges = map[BadgeID]Badge{
	BadgeSharpshooter: {ID: BadgeSharpshooter, Name: "Sharpshooter", Description: "20+ goblins whacked in one game", Icon: "🎯"},
	BadgeSpeedDemon:   {ID: BadgeSpeedDemon, Name: "Speed Demon", Description: "Average reaction under 450ms", Icon: "⚡"},
	BadgeFlawless:     {ID: BadgeFlawless, Name: "Flawless", Description: "10+ hits without a single miss-click", Icon: "✨"},
	BadgeCenturion:    {ID: BadgeCenturion, Name: "Centurion", Description: "100+ points in one game", Icon: "💯"},
}

// EvaluateBadges checks which badges a run earned, in a stable order.
func EvaluateBadges(s Summary) []Badge {
	var earned []Badge

	if s.Hits >= 20 {
		earned = append(earned, AllBadges[BadgeSharpshooter])
	}

	// Needs a few samples so one lucky click does not count
	if s.Hits >= 5 && s.AvgReaction > 0 && s.AvgReaction < 450 {
		earned = append(earned, AllBadges[BadgeSpeedDemon])
	}

	if s.Hits >= 10 && s.MissClicks == 0 {
		earned = append(earned, AllBadges[BadgeFlawless])
	}

	if s.Score >= 100 {
		earned = append(earned, AllBadges[BadgeCenturion])
	}

	return earned
}

// Summarize derives the end-of-game figures and badges from raw stats.
func Summarize(st GameStats) Summary {
	s := Summary{
		Score:      st.Score,
		Missed:     st.Missed,
		MaxMissed:  st.MaxMissed,
		Hits:       st.Hits,
		MissClicks: st.MissClicks,
	}
	if clicks := st.Hits + st.MissClicks; clicks > 0 {
		s.Accuracy = float64(st.Hits) * 100 / float64(clicks)
	}
	if len(st.Reactions) > 0 {
		total := 0
		s.BestReaction = st.Reactions[0]
		for _, r := range st.Reactions {
			total += r
			if r < s.BestReaction {
				s.BestReaction = r
			}
		}
		s.AvgReaction = float64(total) / float64(len(st.Reactions))
	}
	s.Badges = EvaluateBadges(s)
	return s
}

// Text renders the end-of-game alert body.
func (s Summary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Game over!\n\nScore: %d\nGoblins missed: %d", s.Score, s.Missed)
	if s.Hits > 0 {
		fmt.Fprintf(&b, "\nAccuracy: %.0f%%\nAverage reaction: %.0fms", s.Accuracy, s.AvgReaction)
	}
	for _, badge := range s.Badges {
		fmt.Fprintf(&b, "\n%s %s", badge.Icon, badge.Name)
	}
	return b.String()
}
