package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mecacaraudio/scoring-engine/models"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrGroupNotFound = errors.New("multi-day group not found")
)

type EventRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Event, error)
	ListBySeason(ctx context.Context, seasonID int) ([]*models.Event, error)

	// GetGroupByID loads a multi-day group with its member events ordered by
	// event date.
	GetGroupByID(ctx context.Context, exec SQLExecutor, id int) (*models.MultiDayGroup, error)

	// LockEvent and LockGroup take a row-level lock inside the caller's
	// transaction so recomputation of one scope is serialized across
	// processes.
	LockEvent(ctx context.Context, tx *sql.Tx, id int) error
	LockGroup(ctx context.Context, tx *sql.Tx, id int) error
}

type postgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) EventRepository {
	return &postgresEventRepository{db: db}
}

func (r *postgresEventRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresEventRepository) scanEvent(row interface{ Scan(...interface{}) error }) (*models.Event, error) {
	var e models.Event
	err := row.Scan(
		&e.ID,
		&e.Name,
		&e.SeasonID,
		&e.Tier,
		&e.MultiDayGroupID,
		&e.EventDate,
		&e.Finalized,
		&e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *postgresEventRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Event, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, name, season_id, tier, multi_day_group_id, event_date, finalized, created_at
		FROM events
		WHERE id = $1`
	return r.scanEvent(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresEventRepository) ListBySeason(ctx context.Context, seasonID int) ([]*models.Event, error) {
	query := `
		SELECT id, name, season_id, tier, multi_day_group_id, event_date, finalized, created_at
		FROM events
		WHERE season_id = $1
		ORDER BY event_date ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, seasonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*models.Event, 0)
	for rows.Next() {
		e, scanErr := r.scanEvent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		events = append(events, e)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *postgresEventRepository) GetGroupByID(ctx context.Context, exec SQLExecutor, id int) (*models.MultiDayGroup, error) {
	executor := r.getExecutor(exec)

	query := `
		SELECT id, name, season_id, tier, mode
		FROM multi_day_groups
		WHERE id = $1`

	group := &models.MultiDayGroup{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&group.ID,
		&group.Name,
		&group.SeasonID,
		&group.Tier,
		&group.Mode,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}

	memberQuery := `
		SELECT id, name, season_id, tier, multi_day_group_id, event_date, finalized, created_at
		FROM events
		WHERE multi_day_group_id = $1
		ORDER BY event_date ASC, id ASC`

	rows, err := executor.QueryContext(ctx, memberQuery, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		e, scanErr := r.scanEvent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		group.Events = append(group.Events, *e)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return group, nil
}

func (r *postgresEventRepository) LockEvent(ctx context.Context, tx *sql.Tx, id int) error {
	var locked int
	err := tx.QueryRowContext(ctx, `SELECT id FROM events WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEventNotFound
		}
		return err
	}
	return nil
}

func (r *postgresEventRepository) LockGroup(ctx context.Context, tx *sql.Tx, id int) error {
	var locked int
	err := tx.QueryRowContext(ctx, `SELECT id FROM multi_day_groups WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrGroupNotFound
		}
		return err
	}
	return nil
}
