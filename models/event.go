package models

import "time"

// EventTier classifies an event's competitive weight (0-4) and drives the
// point formula. Tier 0 events are non-competitive, tier 4 is the
// season-ending championship.
type EventTier int

const (
	TierNonCompetitive EventTier = 0
	TierStandard       EventTier = 1
	TierDouble         EventTier = 2
	TierTriple         EventTier = 3
	TierChampionship   EventTier = 4
)

func (t EventTier) Valid() bool {
	return t >= TierNonCompetitive && t <= TierChampionship
}

// CombinationMode describes how a multi-day group's member events are scored
// together, matching the multi_day_results_mode ENUM in the database.
type CombinationMode string

const (
	// CombinationSeparate scores each member day independently.
	CombinationSeparate CombinationMode = "separate"
	// CombinationCombinedScore sums raw scores across days, then places the
	// totals as a single virtual event at the group's tier.
	CombinationCombinedScore CombinationMode = "combined_score"
	// CombinationCombinedPoints scores each day independently, then sums the
	// per-day points per competitor and class.
	CombinationCombinedPoints CombinationMode = "combined_points"
)

func (m CombinationMode) Valid() bool {
	switch m {
	case CombinationSeparate, CombinationCombinedScore, CombinationCombinedPoints:
		return true
	}
	return false
}

type Event struct {
	ID              int       `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	SeasonID        int       `json:"season_id" db:"season_id"`
	Tier            EventTier `json:"tier" db:"tier"`
	MultiDayGroupID *int      `json:"multi_day_group_id,omitempty" db:"multi_day_group_id"`
	EventDate       time.Time `json:"event_date" db:"event_date"`
	Finalized       bool      `json:"finalized" db:"finalized"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// MultiDayGroup links the member days of a multi-day event under one
// combination mode. Member events are ordered by event_date.
type MultiDayGroup struct {
	ID       int             `json:"id" db:"id"`
	Name     string          `json:"name" db:"name"`
	SeasonID int             `json:"season_id" db:"season_id"`
	Tier     EventTier       `json:"tier" db:"tier"`
	Mode     CombinationMode `json:"mode" db:"mode"`

	Events []Event `json:"events,omitempty" db:"-"`
}
