package models

import "time"

type CompetitionClass struct {
	ID       int    `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Format   string `json:"format" db:"format"` // e.g. "SPL", "SQL", "SSI", "MK"
	SeasonID int    `json:"season_id" db:"season_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ClassNameMapping resolves a free-text class name from a result source
// system (e.g. "termlab") into a CompetitionClass foreign key. Resolution
// happens once at ingestion; results are never re-matched by string at read
// time.
type ClassNameMapping struct {
	ID            int     `json:"id" db:"id"`
	SourceName    string  `json:"source_name" db:"source_name"`
	SourceSystem  string  `json:"source_system" db:"source_system"`
	TargetClassID *int    `json:"target_class_id,omitempty" db:"target_class_id"`
	IsActive      bool    `json:"is_active" db:"is_active"`
	Notes         *string `json:"notes,omitempty" db:"notes"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	TargetClass *CompetitionClass `json:"target_class,omitempty" db:"-"`
}
