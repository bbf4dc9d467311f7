package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/mecacaraudio/scoring-engine/models"
)

var (
	ErrResultNotFound     = errors.New("placement record not found")
	ErrResultEventInvalid = errors.New("placement record event conflict or invalid")
	ErrResultClassInvalid = errors.New("placement record class conflict or invalid")
)

type ResultRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, records []*models.PlacementRecord) error
	ListByEvent(ctx context.Context, exec SQLExecutor, eventID int) ([]*models.PlacementRecord, error)
	ListByEvents(ctx context.Context, exec SQLExecutor, eventIDs []int) ([]*models.PlacementRecord, error)

	// UpdatePlacements writes the normalizer's assigned placements back onto
	// the raw rows. Called inside the recompute transaction.
	UpdatePlacements(ctx context.Context, exec SQLExecutor, records []*models.PlacementRecord) error

	// DeleteByEventClass removes a class's rows for an event so a correction
	// can replace them.
	DeleteByEventClass(ctx context.Context, exec SQLExecutor, eventID, classID int) (int64, error)
}

type postgresResultRepository struct {
	db *sql.DB
}

func NewPostgresResultRepository(db *sql.DB) ResultRepository {
	return &postgresResultRepository{db: db}
}

func (r *postgresResultRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresResultRepository) CreateBatch(ctx context.Context, exec SQLExecutor, records []*models.PlacementRecord) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO placement_records (event_id, class_id, meca_id, competitor_name, score, placement)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	for _, rec := range records {
		err := executor.QueryRowContext(ctx, query,
			rec.EventID,
			rec.ClassID,
			rec.MecaID,
			rec.CompetitorName,
			rec.Score,
			rec.Placement,
		).Scan(&rec.ID, &rec.CreatedAt)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
				switch pqErr.Constraint {
				case "placement_records_event_id_fkey":
					return ErrResultEventInvalid
				case "placement_records_class_id_fkey":
					return ErrResultClassInvalid
				}
			}
			return err
		}
	}
	return nil
}

func (r *postgresResultRepository) scanRecord(row interface{ Scan(...interface{}) error }) (*models.PlacementRecord, error) {
	var rec models.PlacementRecord
	err := row.Scan(
		&rec.ID,
		&rec.EventID,
		&rec.ClassID,
		&rec.MecaID,
		&rec.CompetitorName,
		&rec.Score,
		&rec.Placement,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *postgresResultRepository) ListByEvent(ctx context.Context, exec SQLExecutor, eventID int) ([]*models.PlacementRecord, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, event_id, class_id, meca_id, competitor_name, score, placement, created_at
		FROM placement_records
		WHERE event_id = $1
		ORDER BY class_id ASC, score DESC, meca_id ASC`

	rows, err := executor.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *postgresResultRepository) ListByEvents(ctx context.Context, exec SQLExecutor, eventIDs []int) ([]*models.PlacementRecord, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, event_id, class_id, meca_id, competitor_name, score, placement, created_at
		FROM placement_records
		WHERE event_id = ANY($1)
		ORDER BY event_id ASC, class_id ASC, score DESC, meca_id ASC`

	rows, err := executor.QueryContext(ctx, query, pq.Array(eventIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *postgresResultRepository) collect(rows *sql.Rows) ([]*models.PlacementRecord, error) {
	records := make([]*models.PlacementRecord, 0)
	for rows.Next() {
		rec, scanErr := r.scanRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *postgresResultRepository) UpdatePlacements(ctx context.Context, exec SQLExecutor, records []*models.PlacementRecord) error {
	executor := r.getExecutor(exec)
	query := `UPDATE placement_records SET placement = $1 WHERE id = $2`

	for _, rec := range records {
		result, err := executor.ExecContext(ctx, query, rec.Placement, rec.ID)
		if err != nil {
			return err
		}
		if err := checkAffectedRows(result, ErrResultNotFound); err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresResultRepository) DeleteByEventClass(ctx context.Context, exec SQLExecutor, eventID, classID int) (int64, error) {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`DELETE FROM placement_records WHERE event_id = $1 AND class_id = $2`, eventID, classID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
