package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var ErrInvalidScore = errors.New("invalid raw score")

// RawEntry is one judged (competitor, score) pair for a single event and
// class, after the class name has been resolved to a class id at ingestion.
type RawEntry struct {
	MecaID         string
	CompetitorName string
	Score          float64
}

// Ranked is a RawEntry with its assigned placement (1 is best).
type Ranked struct {
	RawEntry
	Placement int
}

// TiePolicy decides the placement of the entry at sorted index idx (0-based,
// best score first), given the placement assigned to the previous entry and
// whether its score ties the previous one.
type TiePolicy func(idx int, prevPlacement int, tiedWithPrev bool) int

// StandardCompetitionRanking: tied scores share the lower ordinal and the
// next distinct score skips the vacated ordinals (98,95,95,90 -> 1,2,2,4).
func StandardCompetitionRanking(idx int, prevPlacement int, tiedWithPrev bool) int {
	if tiedWithPrev {
		return prevPlacement
	}
	return idx + 1
}

// DenseRanking: tied scores share a rank and the next distinct score takes
// the immediately following one (98,95,95,90 -> 1,2,2,3).
func DenseRanking(idx int, prevPlacement int, tiedWithPrev bool) int {
	if tiedWithPrev {
		return prevPlacement
	}
	return prevPlacement + 1
}

// Normalize sorts raw entries by score descending and assigns placements via
// the tie policy. Entries with equal scores are ordered by meca id, then
// name, so unchanged input always produces an identical ranking. Fails fast
// on malformed input; a class with bad data must produce no awards at all.
func Normalize(entries []RawEntry, policy TiePolicy) ([]Ranked, error) {
	if policy == nil {
		policy = StandardCompetitionRanking
	}

	for _, e := range entries {
		if math.IsNaN(e.Score) || math.IsInf(e.Score, 0) || e.Score < 0 {
			return nil, fmt.Errorf("%w: %q scored %v", ErrInvalidScore, e.CompetitorName, e.Score)
		}
	}

	sorted := make([]RawEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		if sorted[i].MecaID != sorted[j].MecaID {
			return sorted[i].MecaID < sorted[j].MecaID
		}
		return sorted[i].CompetitorName < sorted[j].CompetitorName
	})

	ranked := make([]Ranked, 0, len(sorted))
	prev := 0
	for i, e := range sorted {
		tied := i > 0 && e.Score == sorted[i-1].Score
		placement := policy(i, prev, tied)
		ranked = append(ranked, Ranked{RawEntry: e, Placement: placement})
		prev = placement
	}

	return ranked, nil
}
