package models

import "time"

type Season struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Year int    `json:"year" db:"year"`

	// QualificationPointsThreshold is nullable: a season without a threshold
	// never auto-qualifies anybody for the championship.
	QualificationPointsThreshold *int `json:"qualification_points_threshold,omitempty" db:"qualification_points_threshold"`

	IsCurrent bool      `json:"is_current" db:"is_current"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// PointsTableConfig holds the per-season admin overrides for the point
// formulas. A missing row means the default table applies.
type PointsTableConfig struct {
	ID       int `json:"id" db:"id"`
	SeasonID int `json:"season_id" db:"season_id"`

	StandardPlaces    [5]int `json:"standard_places" db:"-"`
	ChampionshipTop   [5]int `json:"championship_top" db:"-"`
	ChampionshipFloor int    `json:"championship_floor" db:"championship_floor"`

	IsActive    bool      `json:"is_active" db:"is_active"`
	Description *string   `json:"description,omitempty" db:"description"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
