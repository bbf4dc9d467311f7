package scoring

import (
	"fmt"
	"sort"

	"github.com/mecacaraudio/scoring-engine/models"
)

// DayResults carries one member day's raw entries, grouped by class id.
type DayResults struct {
	EventID        int
	Tier           models.EventTier
	EntriesByClass map[int][]RawEntry
}

// Award is a scored placement produced by the aggregator: the class, the
// competitor, the placement within the class and the points it earned.
type Award struct {
	ClassID        int
	MecaID         string
	CompetitorName string
	Score          float64
	Placement      int
	Points         int
}

// GroupResult is the outcome of combining a multi-day group.
//
// For the separate mode each member day is scored independently and its
// awards appear under PerEvent. For the combined modes the group is scored
// as one unit and the awards appear under Combined.
type GroupResult struct {
	// Tentative is set while member days are still missing; the partial
	// result stands until every group member has reported.
	Tentative bool

	PerEvent map[int][]Award
	Combined []Award
}

// CombineGroup combines placements and scores across a day-group according
// to the group's combination mode. Pure and idempotent: unchanged inputs
// always yield an identical result, regardless of submission order.
func CombineGroup(group models.MultiDayGroup, days []DayResults, table PointsTable, policy TiePolicy) (GroupResult, error) {
	if !group.Mode.Valid() {
		return GroupResult{}, fmt.Errorf("unknown combination mode %q for group %d", group.Mode, group.ID)
	}

	res := GroupResult{
		Tentative: len(group.Events) > 0 && len(days) < len(group.Events),
	}

	// Submission order must not matter.
	ordered := make([]DayResults, len(days))
	copy(ordered, days)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].EventID < ordered[j].EventID })

	switch group.Mode {
	case models.CombinationSeparate:
		res.PerEvent = make(map[int][]Award, len(ordered))
		for _, day := range ordered {
			awards, err := ScoreEvent(day, table, policy)
			if err != nil {
				return GroupResult{}, err
			}
			res.PerEvent[day.EventID] = awards
		}
		return res, nil

	case models.CombinationCombinedScore:
		combined, err := combineScores(group, ordered, table, policy)
		if err != nil {
			return GroupResult{}, err
		}
		res.Combined = combined
		return res, nil

	case models.CombinationCombinedPoints:
		combined, err := combinePoints(ordered, table, policy)
		if err != nil {
			return GroupResult{}, err
		}
		res.Combined = combined
		return res, nil
	}

	return GroupResult{}, fmt.Errorf("unknown combination mode %q for group %d", group.Mode, group.ID)
}

// ScoreEvent ranks and scores a single day on its own: normalize each class,
// then convert placements to points at the day's tier.
func ScoreEvent(day DayResults, table PointsTable, policy TiePolicy) ([]Award, error) {
	awards := make([]Award, 0)
	for _, classID := range sortedClassIDs(day.EntriesByClass) {
		ranked, err := Normalize(day.EntriesByClass[classID], policy)
		if err != nil {
			return nil, fmt.Errorf("event %d class %d: %w", day.EventID, classID, err)
		}
		for _, r := range ranked {
			points, err := table.PlacementPoints(day.Tier, r.Placement)
			if err != nil {
				return nil, fmt.Errorf("event %d class %d: %w", day.EventID, classID, err)
			}
			awards = append(awards, Award{
				ClassID:        classID,
				MecaID:         r.MecaID,
				CompetitorName: r.CompetitorName,
				Score:          r.Score,
				Placement:      r.Placement,
				Points:         points,
			})
		}
	}
	return awards, nil
}

// combineScores sums raw scores per competitor and class across the days,
// then places and scores the totals as a single virtual event at the group's
// declared tier.
func combineScores(group models.MultiDayGroup, days []DayResults, table PointsTable, policy TiePolicy) ([]Award, error) {
	type key struct {
		classID int
		mecaID  string
		name    string
	}
	totals := make(map[key]float64)
	for _, day := range days {
		for classID, entries := range day.EntriesByClass {
			for _, e := range entries {
				totals[key{classID, e.MecaID, e.CompetitorName}] += e.Score
			}
		}
	}

	byClass := make(map[int][]RawEntry)
	for k, total := range totals {
		byClass[k.classID] = append(byClass[k.classID], RawEntry{
			MecaID:         k.mecaID,
			CompetitorName: k.name,
			Score:          total,
		})
	}

	virtual := DayResults{EventID: group.ID, Tier: group.Tier, EntriesByClass: byClass}
	return ScoreEvent(virtual, table, policy)
}

// combinePoints scores each day independently, then sums the per-day points
// per competitor and class. No re-placement happens on the sum; the reported
// placement is the competitor's best single-day finish.
func combinePoints(days []DayResults, table PointsTable, policy TiePolicy) ([]Award, error) {
	type key struct {
		classID int
		mecaID  string
		name    string
	}
	agg := make(map[key]*Award)
	for _, day := range days {
		awards, err := ScoreEvent(day, table, policy)
		if err != nil {
			return nil, err
		}
		for _, a := range awards {
			k := key{a.ClassID, a.MecaID, a.CompetitorName}
			cur, ok := agg[k]
			if !ok {
				copied := a
				agg[k] = &copied
				continue
			}
			cur.Points += a.Points
			cur.Score += a.Score
			if a.Placement < cur.Placement {
				cur.Placement = a.Placement
			}
		}
	}

	combined := make([]Award, 0, len(agg))
	for _, a := range agg {
		combined = append(combined, *a)
	}
	sortAwards(combined)
	return combined, nil
}

func sortedClassIDs(m map[int][]RawEntry) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func sortAwards(awards []Award) {
	sort.Slice(awards, func(i, j int) bool {
		if awards[i].ClassID != awards[j].ClassID {
			return awards[i].ClassID < awards[j].ClassID
		}
		if awards[i].Points != awards[j].Points {
			return awards[i].Points > awards[j].Points
		}
		if awards[i].MecaID != awards[j].MecaID {
			return awards[i].MecaID < awards[j].MecaID
		}
		return awards[i].CompetitorName < awards[j].CompetitorName
	})
}
