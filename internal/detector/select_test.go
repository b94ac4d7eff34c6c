package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectBest(t *testing.T) {
	tests := []struct {
		name      string
		scores    []float64
		wantOK    bool
		wantScore float64
		wantArea  int
	}{
		{name: "empty", scores: nil, wantOK: false},
		{name: "all below floor", scores: []float64{10, 49.9, 0}, wantOK: false},
		{name: "exactly at floor", scores: []float64{50}, wantOK: true, wantScore: 50, wantArea: 0},
		{name: "max wins", scores: []float64{60, 200, 150}, wantOK: true, wantScore: 200, wantArea: 1},
		{name: "first of ties wins", scores: []float64{120, 180, 180}, wantOK: true, wantScore: 180, wantArea: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cands := make([]Candidate, len(tt.scores))
			for i, s := range tt.scores {
				cands[i] = Candidate{Score: s, Area: i}
			}
			best, ok := SelectBest(cands)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantScore, best.Score)
				assert.Equal(t, tt.wantArea, best.Area)
			}
		})
	}
}

func TestSelectBest_IgnoresValidity(t *testing.T) {
	best, ok := SelectBest([]Candidate{{Score: 90, Valid: false}, {Score: 70, Valid: true}})
	assert.True(t, ok)
	assert.Equal(t, 90.0, best.Score)
}

func TestRankCandidates(t *testing.T) {
	cands := []Candidate{{Score: 10, Area: 0}, {Score: 30, Area: 1}, {Score: 10, Area: 2}, {Score: 20, Area: 3}}
	ranked := RankCandidates(cands)

	areas := make([]int, len(ranked))
	for i, c := range ranked {
		areas[i] = c.Area
	}
	assert.Equal(t, []int{1, 3, 0, 2}, areas)
	assert.Equal(t, 0, cands[0].Area, "input order untouched")
}
