package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mecacaraudio/scoring-engine/models"
)

var ErrStandingNotFound = errors.New("season standing not found")

type StandingRepository interface {
	// ReplaceSeason swaps the full derived standings set for a season inside
	// one transaction. Standings are never hand-edited, so wholesale
	// replacement is always safe.
	ReplaceSeason(ctx context.Context, tx *sql.Tx, seasonID int, standings []*models.SeasonStanding) error

	ListByClass(ctx context.Context, seasonID, classID int, entityType models.StandingEntity) ([]*models.SeasonStanding, error)
	ListByEntity(ctx context.Context, seasonID int, entityType models.StandingEntity, entityKey string) ([]*models.SeasonStanding, error)
	ListTeams(ctx context.Context, seasonID int) ([]*models.SeasonStanding, error)
}

type postgresStandingRepository struct {
	db *sql.DB
}

func NewPostgresStandingRepository(db *sql.DB) StandingRepository {
	return &postgresStandingRepository{db: db}
}

func (r *postgresStandingRepository) ReplaceSeason(ctx context.Context, tx *sql.Tx, seasonID int, standings []*models.SeasonStanding) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM season_standings WHERE season_id = $1`, seasonID); err != nil {
		return err
	}

	if len(standings) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO season_standings
			(season_id, class_id, entity_type, entity_key, display_name,
			 total_points, events_participated, first_places, second_places, third_places, rank, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, s := range standings {
		if s.UpdatedAt.IsZero() {
			s.UpdatedAt = now
		}
		err = stmt.QueryRowContext(ctx,
			s.SeasonID, s.ClassID, s.EntityType, s.EntityKey, s.DisplayName,
			s.TotalPoints, s.EventsParticipated, s.FirstPlaces, s.SecondPlaces, s.ThirdPlaces,
			s.Rank, s.UpdatedAt,
		).Scan(&s.ID)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresStandingRepository) scanStanding(row interface{ Scan(...interface{}) error }) (*models.SeasonStanding, error) {
	var s models.SeasonStanding
	err := row.Scan(
		&s.ID,
		&s.SeasonID,
		&s.ClassID,
		&s.EntityType,
		&s.EntityKey,
		&s.DisplayName,
		&s.TotalPoints,
		&s.EventsParticipated,
		&s.FirstPlaces,
		&s.SecondPlaces,
		&s.ThirdPlaces,
		&s.Rank,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStandingNotFound
		}
		return nil, err
	}
	return &s, nil
}

const standingColumns = `id, season_id, class_id, entity_type, entity_key, display_name,
	total_points, events_participated, first_places, second_places, third_places, rank, updated_at`

func (r *postgresStandingRepository) ListByClass(ctx context.Context, seasonID, classID int, entityType models.StandingEntity) ([]*models.SeasonStanding, error) {
	query := `
		SELECT ` + standingColumns + `
		FROM season_standings
		WHERE season_id = $1 AND class_id = $2 AND entity_type = $3
		ORDER BY total_points DESC, first_places DESC, entity_key ASC`

	rows, err := r.db.QueryContext(ctx, query, seasonID, classID, entityType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *postgresStandingRepository) ListByEntity(ctx context.Context, seasonID int, entityType models.StandingEntity, entityKey string) ([]*models.SeasonStanding, error) {
	query := `
		SELECT ` + standingColumns + `
		FROM season_standings
		WHERE season_id = $1 AND entity_type = $2 AND entity_key = $3
		ORDER BY total_points DESC, class_id ASC`

	rows, err := r.db.QueryContext(ctx, query, seasonID, entityType, entityKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *postgresStandingRepository) ListTeams(ctx context.Context, seasonID int) ([]*models.SeasonStanding, error) {
	query := `
		SELECT ` + standingColumns + `
		FROM season_standings
		WHERE season_id = $1 AND entity_type = $2
		ORDER BY total_points DESC, first_places DESC, entity_key ASC`

	rows, err := r.db.QueryContext(ctx, query, seasonID, models.StandingTeam)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *postgresStandingRepository) collect(rows *sql.Rows) ([]*models.SeasonStanding, error) {
	standings := make([]*models.SeasonStanding, 0)
	for rows.Next() {
		s, scanErr := r.scanStanding(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		standings = append(standings, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return standings, nil
}
