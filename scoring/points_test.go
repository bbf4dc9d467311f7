package scoring

import (
	"errors"
	"testing"

	"github.com/mecacaraudio/scoring-engine/models"
)

func TestPlacementPointsTierTables(t *testing.T) {
	cases := []struct {
		name      string
		tier      models.EventTier
		placement int
		want      int
	}{
		{"tier0 winner earns nothing", models.TierNonCompetitive, 1, 0},
		{"tier1 first", models.TierStandard, 1, 5},
		{"tier1 fifth", models.TierStandard, 5, 1},
		{"tier1 sixth", models.TierStandard, 6, 0},
		{"tier2 first", models.TierDouble, 1, 10},
		{"tier2 third", models.TierDouble, 3, 6},
		{"tier2 fifth", models.TierDouble, 5, 2},
		{"tier3 first", models.TierTriple, 1, 15},
		{"tier3 fourth", models.TierTriple, 4, 6},
		{"tier3 beyond ranked range", models.TierTriple, 12, 0},
		{"championship first", models.TierChampionship, 1, 20},
		{"championship fifth", models.TierChampionship, 5, 16},
		{"championship sixth gets floor", models.TierChampionship, 6, 15},
		{"championship fiftieth gets floor", models.TierChampionship, 50, 15},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := PlacementPoints(tc.tier, tc.placement)
			if err != nil {
				t.Fatalf("PlacementPoints(%d, %d) returned error: %v", tc.tier, tc.placement, err)
			}
			if got != tc.want {
				t.Fatalf("PlacementPoints(%d, %d) = %d, want %d", tc.tier, tc.placement, got, tc.want)
			}
		})
	}
}

func TestPlacementPointsUnknownTier(t *testing.T) {
	for _, tier := range []models.EventTier{-1, 5, 99} {
		if _, err := PlacementPoints(tier, 1); !errors.Is(err, ErrInvalidTier) {
			t.Fatalf("tier %d: expected ErrInvalidTier, got %v", tier, err)
		}
	}
}

func TestPlacementPointsInvalidPlacement(t *testing.T) {
	if _, err := PlacementPoints(models.TierStandard, 0); !errors.Is(err, ErrInvalidPlacement) {
		t.Fatalf("expected ErrInvalidPlacement, got %v", err)
	}
}

// Points must never increase as placement worsens within any valid tier.
func TestPlacementPointsMonotonic(t *testing.T) {
	for tier := models.TierNonCompetitive; tier <= models.TierChampionship; tier++ {
		prev := -1
		for placement := 1; placement <= 20; placement++ {
			points, err := PlacementPoints(tier, placement)
			if err != nil {
				t.Fatalf("tier %d placement %d: %v", tier, placement, err)
			}
			if points < 0 {
				t.Fatalf("tier %d placement %d: negative points %d", tier, placement, points)
			}
			if prev >= 0 && points > prev {
				t.Fatalf("tier %d: points increased from %d to %d at placement %d", tier, prev, points, placement)
			}
			prev = points
		}
	}
}

func TestSeasonOverrideTable(t *testing.T) {
	table := PointsTable{
		StandardPlaces:    [5]int{10, 8, 6, 4, 2},
		ChampionshipTop:   [5]int{30, 27, 24, 21, 18},
		ChampionshipFloor: 15,
	}

	got, err := table.PlacementPoints(models.TierDouble, 1)
	if err != nil {
		t.Fatalf("PlacementPoints returned error: %v", err)
	}
	if got != 20 {
		t.Fatalf("override tier2 first = %d, want 20", got)
	}

	got, err = table.PlacementPoints(models.TierChampionship, 2)
	if err != nil {
		t.Fatalf("PlacementPoints returned error: %v", err)
	}
	if got != 27 {
		t.Fatalf("override championship second = %d, want 27", got)
	}
}
