package detector

import (
	"log/slog"
	"sort"
)

// MinAcceptScore is the lowest score a best candidate may have.
const MinAcceptScore = 50.0

// SelectBest returns the highest scoring candidate, keeping the first one on ties.
// It reports false when the list is empty or the best score is below MinAcceptScore.
func SelectBest(cands []Candidate) (Candidate, bool) {
	bestIdx := -1
	bestScore := 0.0
	for i, c := range cands {
		if c.Score > bestScore {
			bestScore = c.Score
			bestIdx = i
		}
	}
	if bestIdx < 0 || bestScore < MinAcceptScore {
		slog.Debug("No candidate accepted", "candidates", len(cands), "best_score", bestScore)
		return Candidate{}, false
	}
	return cands[bestIdx], true
}

// RankCandidates returns a copy sorted by descending score. Equal scores keep
// their enumeration order.
func RankCandidates(cands []Candidate) []Candidate {
	out := append([]Candidate(nil), cands...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
