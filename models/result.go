package models

import "time"

// Guest MECA IDs used by the legacy import tools. Guests are placed and
// scored within their class but never accumulate standings or qualify.
const (
	GuestMecaID     = "999999"
	GuestMecaIDZero = "0"
)

func IsGuestMecaID(mecaID string) bool {
	return mecaID == "" || mecaID == GuestMecaID || mecaID == GuestMecaIDZero
}

// PlacementRecord is one judged result for a competitor in a class at an
// event: raw score plus the placement assigned by the normalizer. Immutable
// once the event is finalized; corrections replace the row.
type PlacementRecord struct {
	ID             int     `json:"id" db:"id"`
	EventID        int     `json:"event_id" db:"event_id"`
	ClassID        int     `json:"class_id" db:"class_id"`
	MecaID         string  `json:"meca_id" db:"meca_id"`
	CompetitorName string  `json:"competitor_name" db:"competitor_name"`
	Score          float64 `json:"score" db:"score"`
	Placement      *int    `json:"placement,omitempty" db:"placement"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
