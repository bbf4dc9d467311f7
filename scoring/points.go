package scoring

import (
	"errors"
	"fmt"

	"github.com/mecacaraudio/scoring-engine/models"
)

var (
	ErrInvalidTier      = errors.New("invalid event tier")
	ErrInvalidPlacement = errors.New("invalid placement")
)

// PointsTable holds the point values used by the placement formulas. Seasons
// may override it through the points configuration; the zero value is not
// usable, call DefaultPointsTable for the standard rulebook values.
type PointsTable struct {
	// StandardPlaces are the base points for placements 1-5 at tier 1.
	// Tiers 2 and 3 multiply the base by the tier.
	StandardPlaces [5]int

	// ChampionshipTop are the points for placements 1-5 at the championship
	// tier; every other entrant receives ChampionshipFloor.
	ChampionshipTop   [5]int
	ChampionshipFloor int
}

// DefaultPointsTable returns the rulebook point values.
func DefaultPointsTable() PointsTable {
	return PointsTable{
		StandardPlaces:    [5]int{5, 4, 3, 2, 1},
		ChampionshipTop:   [5]int{20, 19, 18, 17, 16},
		ChampionshipFloor: 15,
	}
}

// PlacementPoints converts a placement at an event of the given tier into
// points. Deterministic, no side effects, safe for concurrent use.
func (t PointsTable) PlacementPoints(tier models.EventTier, placement int) (int, error) {
	if !tier.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidTier, tier)
	}
	if placement < 1 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPlacement, placement)
	}

	switch tier {
	case models.TierNonCompetitive:
		return 0, nil

	case models.TierChampionship:
		if placement <= len(t.ChampionshipTop) {
			return t.ChampionshipTop[placement-1], nil
		}
		// Participation floor: every championship entrant scores.
		return t.ChampionshipFloor, nil

	default: // tiers 1-3
		if placement > len(t.StandardPlaces) {
			return 0, nil
		}
		return t.StandardPlaces[placement-1] * int(tier), nil
	}
}

// PlacementPoints applies the default table.
func PlacementPoints(tier models.EventTier, placement int) (int, error) {
	return DefaultPointsTable().PlacementPoints(tier, placement)
}
