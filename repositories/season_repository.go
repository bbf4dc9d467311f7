package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mecacaraudio/scoring-engine/models"
)

var (
	ErrSeasonNotFound       = errors.New("season not found")
	ErrPointsConfigNotFound = errors.New("points configuration not found")
)

type SeasonRepository interface {
	GetByID(ctx context.Context, id int) (*models.Season, error)

	// GetCurrent returns the season flagged as current, the default scope
	// for background jobs.
	GetCurrent(ctx context.Context) (*models.Season, error)

	// GetPointsConfig returns the active points table override for a season,
	// or ErrPointsConfigNotFound when the season uses the defaults.
	GetPointsConfig(ctx context.Context, seasonID int) (*models.PointsTableConfig, error)
}

type postgresSeasonRepository struct {
	db *sql.DB
}

func NewPostgresSeasonRepository(db *sql.DB) SeasonRepository {
	return &postgresSeasonRepository{db: db}
}

func (r *postgresSeasonRepository) GetByID(ctx context.Context, id int) (*models.Season, error) {
	query := `
		SELECT id, name, year, qualification_points_threshold, is_current, created_at
		FROM seasons
		WHERE id = $1`

	season := &models.Season{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&season.ID,
		&season.Name,
		&season.Year,
		&season.QualificationPointsThreshold,
		&season.IsCurrent,
		&season.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeasonNotFound
		}
		return nil, err
	}

	return season, nil
}

func (r *postgresSeasonRepository) GetCurrent(ctx context.Context) (*models.Season, error) {
	query := `
		SELECT id, name, year, qualification_points_threshold, is_current, created_at
		FROM seasons
		WHERE is_current = true
		ORDER BY year DESC
		LIMIT 1`

	season := &models.Season{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&season.ID,
		&season.Name,
		&season.Year,
		&season.QualificationPointsThreshold,
		&season.IsCurrent,
		&season.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeasonNotFound
		}
		return nil, err
	}

	return season, nil
}

func (r *postgresSeasonRepository) GetPointsConfig(ctx context.Context, seasonID int) (*models.PointsTableConfig, error) {
	query := `
		SELECT id, season_id,
		       standard_1st, standard_2nd, standard_3rd, standard_4th, standard_5th,
		       championship_1st, championship_2nd, championship_3rd, championship_4th, championship_5th,
		       championship_floor, is_active, description, updated_at
		FROM points_configurations
		WHERE season_id = $1 AND is_active = true`

	cfg := &models.PointsTableConfig{}
	err := r.db.QueryRowContext(ctx, query, seasonID).Scan(
		&cfg.ID,
		&cfg.SeasonID,
		&cfg.StandardPlaces[0], &cfg.StandardPlaces[1], &cfg.StandardPlaces[2], &cfg.StandardPlaces[3], &cfg.StandardPlaces[4],
		&cfg.ChampionshipTop[0], &cfg.ChampionshipTop[1], &cfg.ChampionshipTop[2], &cfg.ChampionshipTop[3], &cfg.ChampionshipTop[4],
		&cfg.ChampionshipFloor,
		&cfg.IsActive,
		&cfg.Description,
		&cfg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPointsConfigNotFound
		}
		return nil, err
	}

	return cfg, nil
}
