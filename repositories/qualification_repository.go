package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mecacaraudio/scoring-engine/models"
	"github.com/lib/pq"
)

var (
	ErrQualificationNotFound = errors.New("qualification record not found")
	// ErrQualificationConflict signals a concurrent insert for the same
	// (season, meca_id, class) key; the losing writer retries as an update.
	ErrQualificationConflict = errors.New("qualification already exists for season, meca id and class")
	ErrTokenConflict         = errors.New("invitation token conflict")
	// ErrTransitionDone is returned by the guarded lifecycle updates when the
	// flag was already set; callers treat it as an idempotent no-op.
	ErrTransitionDone = errors.New("lifecycle transition already completed")
)

type QualificationRepository interface {
	Create(ctx context.Context, exec SQLExecutor, q *models.QualificationRecord) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.QualificationRecord, error)
	GetByKey(ctx context.Context, exec SQLExecutor, seasonID int, mecaID string, classID int) (*models.QualificationRecord, error)
	UpdateTotalPoints(ctx context.Context, exec SQLExecutor, id, totalPoints int) error

	// Lifecycle transitions. Each is settable at most once: the UPDATE is
	// guarded on the flag still being false and reports ErrTransitionDone
	// when another caller got there first.
	MarkNotificationSent(ctx context.Context, exec SQLExecutor, id int, at time.Time) error
	MarkEmailSent(ctx context.Context, exec SQLExecutor, id int, at time.Time) error
	MarkInvitationSent(ctx context.Context, exec SQLExecutor, id int, token string, at time.Time) error

	// Redeem flips invitation_redeemed for the record holding the token,
	// failing with ErrQualificationNotFound when the token is unknown or
	// already redeemed.
	Redeem(ctx context.Context, exec SQLExecutor, token string, at time.Time) (*models.QualificationRecord, error)

	ListBySeason(ctx context.Context, seasonID int) ([]*models.QualificationRecord, error)
	ListPendingInvitations(ctx context.Context, seasonID int) ([]*models.QualificationRecord, error)
}

type postgresQualificationRepository struct {
	db *sql.DB
}

func NewPostgresQualificationRepository(db *sql.DB) QualificationRepository {
	return &postgresQualificationRepository{db: db}
}

func (r *postgresQualificationRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresQualificationRepository) Create(ctx context.Context, exec SQLExecutor, q *models.QualificationRecord) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO qualification_records
			(season_id, meca_id, competitor_name, class_id, class_name, total_points, qualified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	if q.QualifiedAt.IsZero() {
		q.QualifiedAt = time.Now()
	}

	err := executor.QueryRowContext(ctx, query,
		q.SeasonID,
		q.MecaID,
		q.CompetitorName,
		q.ClassID,
		q.ClassName,
		q.TotalPoints,
		q.QualifiedAt,
	).Scan(&q.ID)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			switch pqErr.Constraint {
			case "qualification_records_season_meca_class_key":
				return ErrQualificationConflict
			case "qualification_records_invitation_token_key":
				return ErrTokenConflict
			}
			return ErrQualificationConflict
		}
		return err
	}
	return nil
}

const qualificationColumns = `id, season_id, meca_id, competitor_name, class_id, class_name,
	total_points, qualified_at,
	notification_sent, notification_sent_at,
	email_sent, email_sent_at,
	invitation_sent, invitation_sent_at, invitation_token,
	invitation_redeemed, invitation_redeemed_at`

func (r *postgresQualificationRepository) scanQualification(row interface{ Scan(...interface{}) error }) (*models.QualificationRecord, error) {
	var q models.QualificationRecord
	err := row.Scan(
		&q.ID,
		&q.SeasonID,
		&q.MecaID,
		&q.CompetitorName,
		&q.ClassID,
		&q.ClassName,
		&q.TotalPoints,
		&q.QualifiedAt,
		&q.NotificationSent,
		&q.NotificationSentAt,
		&q.EmailSent,
		&q.EmailSentAt,
		&q.InvitationSent,
		&q.InvitationSentAt,
		&q.InvitationToken,
		&q.InvitationRedeemed,
		&q.InvitationRedeemedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQualificationNotFound
		}
		return nil, err
	}
	return &q, nil
}

func (r *postgresQualificationRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.QualificationRecord, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + qualificationColumns + ` FROM qualification_records WHERE id = $1`
	return r.scanQualification(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresQualificationRepository) GetByKey(ctx context.Context, exec SQLExecutor, seasonID int, mecaID string, classID int) (*models.QualificationRecord, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT ` + qualificationColumns + `
		FROM qualification_records
		WHERE season_id = $1 AND meca_id = $2 AND class_id = $3`
	return r.scanQualification(executor.QueryRowContext(ctx, query, seasonID, mecaID, classID))
}

func (r *postgresQualificationRepository) UpdateTotalPoints(ctx context.Context, exec SQLExecutor, id, totalPoints int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE qualification_records SET total_points = $1 WHERE id = $2`, totalPoints, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrQualificationNotFound)
}

func (r *postgresQualificationRepository) MarkNotificationSent(ctx context.Context, exec SQLExecutor, id int, at time.Time) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `
		UPDATE qualification_records
		SET notification_sent = true, notification_sent_at = $1
		WHERE id = $2 AND notification_sent = false`, at, id)
	if err != nil {
		return err
	}
	return r.checkTransition(ctx, executor, result, id)
}

func (r *postgresQualificationRepository) MarkEmailSent(ctx context.Context, exec SQLExecutor, id int, at time.Time) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `
		UPDATE qualification_records
		SET email_sent = true, email_sent_at = $1
		WHERE id = $2 AND email_sent = false`, at, id)
	if err != nil {
		return err
	}
	return r.checkTransition(ctx, executor, result, id)
}

func (r *postgresQualificationRepository) MarkInvitationSent(ctx context.Context, exec SQLExecutor, id int, token string, at time.Time) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `
		UPDATE qualification_records
		SET invitation_sent = true, invitation_sent_at = $1, invitation_token = $2
		WHERE id = $3 AND invitation_sent = false`, at, token, id)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrTokenConflict
		}
		return err
	}
	return r.checkTransition(ctx, executor, result, id)
}

// checkTransition distinguishes "row missing" from "flag already set" after
// a guarded lifecycle UPDATE touched zero rows.
func (r *postgresQualificationRepository) checkTransition(ctx context.Context, executor SQLExecutor, result sql.Result, id int) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected > 0 {
		return nil
	}

	var exists int
	err = executor.QueryRowContext(ctx, `SELECT 1 FROM qualification_records WHERE id = $1`, id).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrQualificationNotFound
		}
		return err
	}
	return ErrTransitionDone
}

func (r *postgresQualificationRepository) Redeem(ctx context.Context, exec SQLExecutor, token string, at time.Time) (*models.QualificationRecord, error) {
	executor := r.getExecutor(exec)
	query := `
		UPDATE qualification_records
		SET invitation_redeemed = true, invitation_redeemed_at = $1
		WHERE invitation_token = $2 AND invitation_redeemed = false
		RETURNING ` + qualificationColumns

	return r.scanQualification(executor.QueryRowContext(ctx, query, at, token))
}

func (r *postgresQualificationRepository) ListBySeason(ctx context.Context, seasonID int) ([]*models.QualificationRecord, error) {
	query := `
		SELECT ` + qualificationColumns + `
		FROM qualification_records
		WHERE season_id = $1
		ORDER BY class_name ASC, total_points DESC, meca_id ASC`

	rows, err := r.db.QueryContext(ctx, query, seasonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *postgresQualificationRepository) ListPendingInvitations(ctx context.Context, seasonID int) ([]*models.QualificationRecord, error) {
	query := `
		SELECT ` + qualificationColumns + `
		FROM qualification_records
		WHERE season_id = $1 AND invitation_sent = false
		ORDER BY qualified_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, seasonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *postgresQualificationRepository) collect(rows *sql.Rows) ([]*models.QualificationRecord, error) {
	records := make([]*models.QualificationRecord, 0)
	for rows.Next() {
		q, scanErr := r.scanQualification(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
