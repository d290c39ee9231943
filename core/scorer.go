package core

import (
	"sort"

	"github.com/itemwatch/itemwatch/schema"
)

// RawScores tallies the number of correct responses per session across the
// window. Every session that appears in the responses gets an entry, even
// with zero correct answers.
func RawScores(responses []schema.ResponseRecord) map[string]int {
	scores := make(map[string]int)
	for _, r := range responses {
		if _, ok := scores[r.SessionID]; !ok {
			scores[r.SessionID] = 0
		}
		if r.Correct() {
			scores[r.SessionID]++
		}
	}
	return scores
}

// SessionScores standardizes raw scores into theta proxies. Theta is the
// z-score of the session's raw score across all sessions in the window; a
// zero standard deviation (all sessions tied) degrades to theta 0 for every
// session rather than dividing by zero.
func SessionScores(responses []schema.ResponseRecord) []schema.SessionScore {
	raw := RawScores(responses)

	sessionIDs := make([]string, 0, len(raw))
	for id := range raw {
		sessionIDs = append(sessionIDs, id)
	}
	sort.Strings(sessionIDs)

	values := make([]float64, 0, len(raw))
	for _, id := range sessionIDs {
		values = append(values, float64(raw[id]))
	}

	mean := Mean(values)
	std := SampleStdDev(values)
	if std == 0 {
		std = 1
	}

	scores := make([]schema.SessionScore, 0, len(raw))
	for _, id := range sessionIDs {
		scores = append(scores, schema.SessionScore{
			SessionID: id,
			RawScore:  raw[id],
			Theta:     (float64(raw[id]) - mean) / std,
		})
	}
	return scores
}

// ThetaMap returns the theta proxy keyed by session id.
func ThetaMap(responses []schema.ResponseRecord) map[string]float64 {
	scores := SessionScores(responses)
	thetas := make(map[string]float64, len(scores))
	for _, s := range scores {
		thetas[s.SessionID] = s.Theta
	}
	return thetas
}
