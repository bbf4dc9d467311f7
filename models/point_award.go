package models

import "time"

// AwardScope says whether a PointAward belongs to a single event or to a
// multi-day group scored as one unit.
type AwardScope string

const (
	ScopeEvent AwardScope = "event"
	ScopeGroup AwardScope = "group"
)

// PointAward is the computed point value for a competitor in a class at an
// event or day-group. Awards for a scope are recomputed in full and replaced
// inside one transaction, never patched row by row.
type PointAward struct {
	ID             int        `json:"id" db:"id"`
	ScopeKind      AwardScope `json:"scope_kind" db:"scope_kind"`
	ScopeID        int        `json:"scope_id" db:"scope_id"`
	SeasonID       int        `json:"season_id" db:"season_id"`
	ClassID        int        `json:"class_id" db:"class_id"`
	MecaID         string     `json:"meca_id" db:"meca_id"`
	CompetitorName string     `json:"competitor_name" db:"competitor_name"`
	Placement      int        `json:"placement" db:"placement"`
	Points         int        `json:"points" db:"points"`

	// Tentative marks awards computed from an incomplete multi-day group;
	// cleared automatically once every member day has reported.
	Tentative bool `json:"tentative" db:"tentative"`

	ComputedAt time.Time `json:"computed_at" db:"computed_at"`
}
