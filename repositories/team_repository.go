package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mecacaraudio/scoring-engine/models"
)

var ErrTeamNotFound = errors.New("team not found")

type TeamRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error)
	List(ctx context.Context) ([]*models.Team, error)

	// RosterBySeason maps each rostered meca id to the teams it competes
	// for in the season. A competitor may appear on several team types.
	RosterBySeason(ctx context.Context, seasonID int) (map[string][]*models.Team, error)
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error) {
	executor := r.getExecutor(exec)
	var t models.Team
	err := executor.QueryRowContext(ctx, `
		SELECT id, name, team_type, created_at FROM teams WHERE id = $1`, id).
		Scan(&t.ID, &t.Name, &t.Type, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *postgresTeamRepository) List(ctx context.Context) ([]*models.Team, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, team_type, created_at FROM teams ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		var t models.Team
		if scanErr := rows.Scan(&t.ID, &t.Name, &t.Type, &t.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		teams = append(teams, &t)
	}
	return teams, rows.Err()
}

func (r *postgresTeamRepository) RosterBySeason(ctx context.Context, seasonID int) (map[string][]*models.Team, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT tr.meca_id, t.id, t.name, t.team_type, t.created_at
		FROM team_roster_entries tr
		JOIN teams t ON t.id = tr.team_id
		WHERE tr.season_id = $1
		ORDER BY tr.meca_id ASC, t.id ASC`, seasonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roster := make(map[string][]*models.Team)
	for rows.Next() {
		var mecaID string
		var t models.Team
		if scanErr := rows.Scan(&mecaID, &t.ID, &t.Name, &t.Type, &t.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		roster[mecaID] = append(roster[mecaID], &t)
	}
	return roster, rows.Err()
}
