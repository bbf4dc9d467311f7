package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/mecacaraudio/scoring-engine/models"
	"github.com/lib/pq"
)

var (
	ErrClassNotFound   = errors.New("competition class not found")
	ErrMappingNotFound = errors.New("class name mapping not found")
	ErrMappingConflict = errors.New("mapping already exists for source name and system")
)

type ClassRepository interface {
	GetClassByID(ctx context.Context, exec SQLExecutor, id int) (*models.CompetitionClass, error)
	ListClassesBySeason(ctx context.Context, seasonID int) ([]*models.CompetitionClass, error)

	CreateMapping(ctx context.Context, exec SQLExecutor, m *models.ClassNameMapping) error
	UpdateMapping(ctx context.Context, exec SQLExecutor, m *models.ClassNameMapping) error
	DeleteMapping(ctx context.Context, exec SQLExecutor, id int) error
	GetMappingByID(ctx context.Context, exec SQLExecutor, id int) (*models.ClassNameMapping, error)

	// ResolveClassName returns the active mapping for a raw class label,
	// matched case-insensitively within the source system.
	ResolveClassName(ctx context.Context, exec SQLExecutor, sourceName, sourceSystem string) (*models.ClassNameMapping, error)
	ListMappings(ctx context.Context, sourceSystem string) ([]*models.ClassNameMapping, error)
	ListUnmapped(ctx context.Context, sourceSystem string) ([]*models.ClassNameMapping, error)
}

type postgresClassRepository struct {
	db *sql.DB
}

func NewPostgresClassRepository(db *sql.DB) ClassRepository {
	return &postgresClassRepository{db: db}
}

func (r *postgresClassRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresClassRepository) GetClassByID(ctx context.Context, exec SQLExecutor, id int) (*models.CompetitionClass, error) {
	executor := r.getExecutor(exec)
	var c models.CompetitionClass
	err := executor.QueryRowContext(ctx, `
		SELECT id, name, format, season_id, created_at
		FROM competition_classes WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Format, &c.SeasonID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClassNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *postgresClassRepository) ListClassesBySeason(ctx context.Context, seasonID int) ([]*models.CompetitionClass, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, format, season_id, created_at
		FROM competition_classes
		WHERE season_id = $1
		ORDER BY format ASC, name ASC`, seasonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	classes := make([]*models.CompetitionClass, 0)
	for rows.Next() {
		var c models.CompetitionClass
		if scanErr := rows.Scan(&c.ID, &c.Name, &c.Format, &c.SeasonID, &c.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		classes = append(classes, &c)
	}
	return classes, rows.Err()
}

func (r *postgresClassRepository) CreateMapping(ctx context.Context, exec SQLExecutor, m *models.ClassNameMapping) error {
	executor := r.getExecutor(exec)
	err := executor.QueryRowContext(ctx, `
		INSERT INTO class_name_mappings
			(source_name, source_system, target_class_id, is_active, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		strings.TrimSpace(m.SourceName), m.SourceSystem, m.TargetClassID, m.IsActive, m.Notes).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				return ErrMappingConflict
			case "23503":
				return ErrClassNotFound
			}
		}
		return err
	}
	return nil
}

func (r *postgresClassRepository) UpdateMapping(ctx context.Context, exec SQLExecutor, m *models.ClassNameMapping) error {
	executor := r.getExecutor(exec)
	m.UpdatedAt = time.Now()
	result, err := executor.ExecContext(ctx, `
		UPDATE class_name_mappings
		SET target_class_id = $1, is_active = $2, notes = $3, updated_at = $4
		WHERE id = $5`,
		m.TargetClassID, m.IsActive, m.Notes, m.UpdatedAt, m.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrClassNotFound
		}
		return err
	}
	return checkAffectedRows(result, ErrMappingNotFound)
}

func (r *postgresClassRepository) DeleteMapping(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `DELETE FROM class_name_mappings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMappingNotFound)
}

const mappingColumns = `m.id, m.source_name, m.source_system, m.target_class_id,
	m.is_active, m.notes, m.created_at, m.updated_at`

func (r *postgresClassRepository) scanMapping(row interface{ Scan(...interface{}) error }) (*models.ClassNameMapping, error) {
	var m models.ClassNameMapping
	err := row.Scan(
		&m.ID, &m.SourceName, &m.SourceSystem, &m.TargetClassID,
		&m.IsActive, &m.Notes, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMappingNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *postgresClassRepository) GetMappingByID(ctx context.Context, exec SQLExecutor, id int) (*models.ClassNameMapping, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + mappingColumns + ` FROM class_name_mappings m WHERE m.id = $1`
	return r.scanMapping(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresClassRepository) ResolveClassName(ctx context.Context, exec SQLExecutor, sourceName, sourceSystem string) (*models.ClassNameMapping, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT ` + mappingColumns + `
		FROM class_name_mappings m
		WHERE LOWER(m.source_name) = LOWER($1)
		  AND m.source_system = $2
		  AND m.is_active = true`
	return r.scanMapping(executor.QueryRowContext(ctx, query, strings.TrimSpace(sourceName), sourceSystem))
}

func (r *postgresClassRepository) ListMappings(ctx context.Context, sourceSystem string) ([]*models.ClassNameMapping, error) {
	query := `
		SELECT ` + mappingColumns + `,
			c.id, c.name, c.format, c.season_id, c.created_at
		FROM class_name_mappings m
		LEFT JOIN competition_classes c ON c.id = m.target_class_id
		WHERE m.source_system = $1
		ORDER BY m.source_name ASC`

	rows, err := r.db.QueryContext(ctx, query, sourceSystem)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mappings := make([]*models.ClassNameMapping, 0)
	for rows.Next() {
		var m models.ClassNameMapping
		var classID, classSeasonID sql.NullInt64
		var className, classFormat sql.NullString
		var classCreatedAt sql.NullTime
		scanErr := rows.Scan(
			&m.ID, &m.SourceName, &m.SourceSystem, &m.TargetClassID,
			&m.IsActive, &m.Notes, &m.CreatedAt, &m.UpdatedAt,
			&classID, &className, &classFormat, &classSeasonID, &classCreatedAt,
		)
		if scanErr != nil {
			return nil, scanErr
		}
		if classID.Valid {
			m.TargetClass = &models.CompetitionClass{
				ID:        int(classID.Int64),
				Name:      className.String,
				Format:    classFormat.String,
				SeasonID:  int(classSeasonID.Int64),
				CreatedAt: classCreatedAt.Time,
			}
		}
		mappings = append(mappings, &m)
	}
	return mappings, rows.Err()
}

func (r *postgresClassRepository) ListUnmapped(ctx context.Context, sourceSystem string) ([]*models.ClassNameMapping, error) {
	query := `
		SELECT ` + mappingColumns + `
		FROM class_name_mappings m
		WHERE m.source_system = $1 AND m.target_class_id IS NULL
		ORDER BY m.source_name ASC`

	rows, err := r.db.QueryContext(ctx, query, sourceSystem)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mappings := make([]*models.ClassNameMapping, 0)
	for rows.Next() {
		m, scanErr := r.scanMapping(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}
