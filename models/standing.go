package models

import "time"

// StandingEntity distinguishes the two materialized standings ledgers.
type StandingEntity string

const (
	StandingCompetitor StandingEntity = "competitor"
	StandingTeam       StandingEntity = "team"
)

// SeasonStanding is the materialized sum of point awards for one entity in
// one class across a season. Fully derived; recompute replaces it wholesale.
type SeasonStanding struct {
	ID         int            `json:"id" db:"id"`
	SeasonID   int            `json:"season_id" db:"season_id"`
	ClassID    int            `json:"class_id" db:"class_id"`
	EntityType StandingEntity `json:"entity_type" db:"entity_type"`

	// EntityKey is the meca_id for competitors, the team id (stringified)
	// for teams.
	EntityKey   string `json:"entity_key" db:"entity_key"`
	DisplayName string `json:"display_name" db:"display_name"`

	TotalPoints        int `json:"total_points" db:"total_points"`
	EventsParticipated int `json:"events_participated" db:"events_participated"`
	FirstPlaces        int `json:"first_places" db:"first_places"`
	SecondPlaces       int `json:"second_places" db:"second_places"`
	ThirdPlaces        int `json:"third_places" db:"third_places"`

	Rank      *int      `json:"rank,omitempty" db:"rank"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CompetitorStats is the per-competitor season summary exposed on the read
// side, broken down by format and class.
type CompetitorStats struct {
	MecaID             string               `json:"meca_id"`
	TotalPoints        int                  `json:"total_points"`
	Ranking            int                  `json:"ranking"`
	EventsParticipated int                  `json:"events_participated"`
	FirstPlaces        int                  `json:"first_places"`
	SecondPlaces       int                  `json:"second_places"`
	ThirdPlaces        int                  `json:"third_places"`
	ByClass            []ClassPointsSummary `json:"by_class"`
}

type ClassPointsSummary struct {
	ClassID int    `json:"class_id"`
	Format  string `json:"format"`
	Class   string `json:"class"`
	Points  int    `json:"points"`
	Events  int    `json:"events"`
}
