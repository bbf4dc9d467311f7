package models

import "time"

type TeamType string

const (
	TeamRetailer     TeamType = "retailer"
	TeamManufacturer TeamType = "manufacturer"
	TeamCompetitor   TeamType = "competitor_team"
)

type Team struct {
	ID                 int      `json:"id" db:"id"`
	Name               string   `json:"name" db:"name"`
	Type               TeamType `json:"type" db:"type"`
	RepresentativeName string   `json:"representative_name" db:"representative_name"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`

	Members []TeamRosterEntry `json:"members,omitempty" db:"-"`
}

// TeamRosterEntry links a competitor to a team for the season. A competitor
// may appear on zero or more rosters; their results count toward each.
type TeamRosterEntry struct {
	ID       int    `json:"id" db:"id"`
	TeamID   int    `json:"team_id" db:"team_id"`
	SeasonID int    `json:"season_id" db:"season_id"`
	MecaID   string `json:"meca_id" db:"meca_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
