package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mecacaraudio/scoring-engine/models"
)

var ErrAwardNotFound = errors.New("point award not found")

type AwardRepository interface {
	// ReplaceScope atomically swaps a scope's awards: everything previously
	// stored for (scope_kind, scope_id) is deleted and the new set inserted.
	// Must be called inside the recompute transaction.
	ReplaceScope(ctx context.Context, tx *sql.Tx, kind models.AwardScope, scopeID int, awards []*models.PointAward) error

	ListByScope(ctx context.Context, exec SQLExecutor, kind models.AwardScope, scopeID int) ([]*models.PointAward, error)
	ListBySeason(ctx context.Context, exec SQLExecutor, seasonID int) ([]*models.PointAward, error)
}

type postgresAwardRepository struct {
	db *sql.DB
}

func NewPostgresAwardRepository(db *sql.DB) AwardRepository {
	return &postgresAwardRepository{db: db}
}

func (r *postgresAwardRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresAwardRepository) ReplaceScope(ctx context.Context, tx *sql.Tx, kind models.AwardScope, scopeID int, awards []*models.PointAward) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM point_awards WHERE scope_kind = $1 AND scope_id = $2`, kind, scopeID); err != nil {
		return err
	}

	if len(awards) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO point_awards
			(scope_kind, scope_id, season_id, class_id, meca_id, competitor_name, placement, points, tentative, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, a := range awards {
		if a.ComputedAt.IsZero() {
			a.ComputedAt = now
		}
		err = stmt.QueryRowContext(ctx,
			a.ScopeKind, a.ScopeID, a.SeasonID, a.ClassID, a.MecaID,
			a.CompetitorName, a.Placement, a.Points, a.Tentative, a.ComputedAt,
		).Scan(&a.ID)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresAwardRepository) scanAward(row interface{ Scan(...interface{}) error }) (*models.PointAward, error) {
	var a models.PointAward
	err := row.Scan(
		&a.ID,
		&a.ScopeKind,
		&a.ScopeID,
		&a.SeasonID,
		&a.ClassID,
		&a.MecaID,
		&a.CompetitorName,
		&a.Placement,
		&a.Points,
		&a.Tentative,
		&a.ComputedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAwardNotFound
		}
		return nil, err
	}
	return &a, nil
}

const awardColumns = `id, scope_kind, scope_id, season_id, class_id, meca_id, competitor_name, placement, points, tentative, computed_at`

func (r *postgresAwardRepository) ListByScope(ctx context.Context, exec SQLExecutor, kind models.AwardScope, scopeID int) ([]*models.PointAward, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT ` + awardColumns + `
		FROM point_awards
		WHERE scope_kind = $1 AND scope_id = $2
		ORDER BY class_id ASC, placement ASC, meca_id ASC`

	rows, err := executor.QueryContext(ctx, query, kind, scopeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *postgresAwardRepository) ListBySeason(ctx context.Context, exec SQLExecutor, seasonID int) ([]*models.PointAward, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT ` + awardColumns + `
		FROM point_awards
		WHERE season_id = $1
		ORDER BY class_id ASC, points DESC, meca_id ASC`

	rows, err := executor.QueryContext(ctx, query, seasonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *postgresAwardRepository) collect(rows *sql.Rows) ([]*models.PointAward, error) {
	awards := make([]*models.PointAward, 0)
	for rows.Next() {
		a, scanErr := r.scanAward(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		awards = append(awards, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return awards, nil
}
