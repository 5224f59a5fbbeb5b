package server

import (
	"net/http"

	"whackgoblin/internal/gamedata"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}

	data := sess.Game.Snapshot()
	if data.Summary == nil {
		http.Error(w, "Game is not over", http.StatusNotFound)
		return
	}

	writeJSON(w, struct {
		Score        int      `json:"score"`
		Missed       int      `json:"missed"`
		Hits         int      `json:"hits"`
		MissClicks   int      `json:"missClicks"`
		Accuracy     float64  `json:"accuracy"`
		AvgReaction  float64  `json:"avgReaction"`
		BestReaction int      `json:"bestReaction"`
		Badges       []string `json:"badges"`
		Text         string   `json:"text"`
	}{
		Score:        data.Summary.Score,
		Missed:       data.Summary.Missed,
		Hits:         data.Summary.Hits,
		MissClicks:   data.Summary.MissClicks,
		Accuracy:     data.Summary.Accuracy,
		AvgReaction:  data.Summary.AvgReaction,
		BestReaction: data.Summary.BestReaction,
		Badges:       badgeIDs(data),
		Text:         data.Summary.Text(),
	})
}

func badgeIDs(data gamedata.GameData) []string {
	ids := make([]string, 0, len(data.Summary.Badges))
	for _, b := range data.Summary.Badges {
		ids = append(ids, string(b.ID))
	}
	return ids
}
