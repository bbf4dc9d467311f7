package services

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mecacaraudio/scoring-engine/models"
	"github.com/mecacaraudio/scoring-engine/repositories"
)

// QualificationSummary reports the outcome of a season-wide evaluation.
type QualificationSummary struct {
	NewQualifications     int `json:"newQualifications"`
	UpdatedQualifications int `json:"updatedQualifications"`
}

// InvitationBatchSummary reports a bulk invitation send.
type InvitationBatchSummary struct {
	Sent   int      `json:"sent"`
	Failed int      `json:"failed"`
	Errors []string `json:"errors,omitempty"`
}

// InvitationMailer delivers qualification and invitation emails. Satisfied by
// EmailService; tests substitute a recorder.
type InvitationMailer interface {
	SendQualificationNotice(ctx context.Context, q *models.QualificationRecord) error
	SendInvitation(ctx context.Context, q *models.QualificationRecord, token string) error
}

type QualificationService struct {
	seasonRepo repositories.SeasonRepository
	awardRepo  repositories.AwardRepository
	classRepo  repositories.ClassRepository
	qualRepo   repositories.QualificationRepository
	mailer     InvitationMailer
	logger     *slog.Logger
}

func NewQualificationService(
	seasonRepo repositories.SeasonRepository,
	awardRepo repositories.AwardRepository,
	classRepo repositories.ClassRepository,
	qualRepo repositories.QualificationRepository,
	mailer InvitationMailer,
	logger *slog.Logger,
) *QualificationService {
	return &QualificationService{
		seasonRepo: seasonRepo,
		awardRepo:  awardRepo,
		classRepo:  classRepo,
		qualRepo:   qualRepo,
		mailer:     mailer,
		logger:     logger,
	}
}

// Recompute evaluates every competitor in the season against the season's
// qualification threshold. Records are upserted by (season, meca id, class);
// qualification is sticky, so a competitor whose total later drops below the
// threshold keeps the record with the updated total.
func (s *QualificationService) Recompute(ctx context.Context, seasonID int) (*QualificationSummary, error) {
	season, err := s.seasonRepo.GetByID(ctx, seasonID)
	if err != nil {
		if errors.Is(err, repositories.ErrSeasonNotFound) {
			return nil, ErrSeasonNotFound
		}
		return nil, err
	}
	if season.QualificationPointsThreshold == nil {
		// Without a configured threshold nobody auto-qualifies.
		s.logger.Info("season has no qualification threshold, skipping", "seasonId", seasonID)
		return &QualificationSummary{}, nil
	}
	threshold := *season.QualificationPointsThreshold

	awards, err := s.awardRepo.ListBySeason(ctx, nil, seasonID)
	if err != nil {
		return nil, err
	}

	type entry struct {
		mecaID         string
		classID        int
		competitorName string
	}
	totals := make(map[entry]int)
	for _, award := range awards {
		if models.IsGuestMecaID(award.MecaID) {
			continue
		}
		k := entry{award.MecaID, award.ClassID, award.CompetitorName}
		totals[k] += award.Points
	}

	// Deterministic order keeps logs and summaries stable across runs.
	keys := make([]entry, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].mecaID != keys[j].mecaID {
			return keys[i].mecaID < keys[j].mecaID
		}
		return keys[i].classID < keys[j].classID
	})

	summary := &QualificationSummary{}
	var newlyQualified []*models.QualificationRecord
	for _, k := range keys {
		total := totals[k]
		created, updated, upsertErr := s.upsert(ctx, seasonID, k.mecaID, k.competitorName, k.classID, total, threshold)
		if upsertErr != nil {
			return nil, upsertErr
		}
		if created != nil {
			summary.NewQualifications++
			newlyQualified = append(newlyQualified, created)
		}
		if updated {
			summary.UpdatedQualifications++
		}
	}

	s.notifyNewlyQualified(ctx, newlyQualified)

	s.logger.Info("evaluated season qualifications",
		"seasonId", seasonID,
		"threshold", threshold,
		"new", summary.NewQualifications,
		"updated", summary.UpdatedQualifications)
	return summary, nil
}

// CheckAndUpdate evaluates a single competitor and class, used after a scoped
// points recompute so qualifications track standings without a full season
// pass.
func (s *QualificationService) CheckAndUpdate(ctx context.Context, seasonID int, mecaID string, classID int) (bool, error) {
	if models.IsGuestMecaID(mecaID) {
		return false, nil
	}

	season, err := s.seasonRepo.GetByID(ctx, seasonID)
	if err != nil {
		if errors.Is(err, repositories.ErrSeasonNotFound) {
			return false, ErrSeasonNotFound
		}
		return false, err
	}
	if season.QualificationPointsThreshold == nil {
		return false, nil
	}

	awards, err := s.awardRepo.ListBySeason(ctx, nil, seasonID)
	if err != nil {
		return false, err
	}
	total := 0
	name := ""
	for _, award := range awards {
		if award.MecaID == mecaID && award.ClassID == classID {
			total += award.Points
			name = award.CompetitorName
		}
	}

	created, _, err := s.upsert(ctx, seasonID, mecaID, name, classID, total, *season.QualificationPointsThreshold)
	if err != nil {
		return false, err
	}
	if created != nil {
		s.notifyNewlyQualified(ctx, []*models.QualificationRecord{created})
		return true, nil
	}
	return false, nil
}

// notifyNewlyQualified emails the qualification notice for records a pass just
// created. A failed send is logged and skipped; the pass result stands.
func (s *QualificationService) notifyNewlyQualified(ctx context.Context, records []*models.QualificationRecord) {
	for _, record := range records {
		if err := s.mailer.SendQualificationNotice(ctx, record); err != nil {
			s.logger.Error("qualification notice failed", "qualificationId", record.ID, "error", err)
			continue
		}
		if err := s.qualRepo.MarkNotificationSent(ctx, nil, record.ID, time.Now()); err != nil && !errors.Is(err, repositories.ErrTransitionDone) {
			s.logger.Error("marking notification failed", "qualificationId", record.ID, "error", err)
		}
	}
}

// upsert creates or refreshes one qualification record. Below-threshold
// totals never create a record but do refresh an existing one. A non-nil
// created return is the record the call inserted.
func (s *QualificationService) upsert(ctx context.Context, seasonID int, mecaID, competitorName string, classID, total, threshold int) (created *models.QualificationRecord, updated bool, err error) {
	existing, err := s.qualRepo.GetByKey(ctx, nil, seasonID, mecaID, classID)
	switch {
	case err == nil:
		if existing.TotalPoints == total {
			return nil, false, nil
		}
		if err = s.qualRepo.UpdateTotalPoints(ctx, nil, existing.ID, total); err != nil {
			return nil, false, err
		}
		return nil, true, nil
	case errors.Is(err, repositories.ErrQualificationNotFound):
		// fall through to create
	default:
		return nil, false, err
	}

	if total < threshold {
		return nil, false, nil
	}

	className := ""
	if class, classErr := s.classRepo.GetClassByID(ctx, nil, classID); classErr == nil {
		className = class.Name
	} else if !errors.Is(classErr, repositories.ErrClassNotFound) {
		return nil, false, classErr
	}

	record := &models.QualificationRecord{
		SeasonID:       seasonID,
		MecaID:         mecaID,
		CompetitorName: competitorName,
		ClassID:        classID,
		ClassName:      className,
		TotalPoints:    total,
		QualifiedAt:    time.Now(),
	}
	if err = s.qualRepo.Create(ctx, nil, record); err != nil {
		// A concurrent evaluation created the row first; refresh it instead.
		if errors.Is(err, repositories.ErrQualificationConflict) {
			raced, getErr := s.qualRepo.GetByKey(ctx, nil, seasonID, mecaID, classID)
			if getErr != nil {
				return nil, false, getErr
			}
			if raced.TotalPoints != total {
				if updErr := s.qualRepo.UpdateTotalPoints(ctx, nil, raced.ID, total); updErr != nil {
					return nil, false, updErr
				}
				return nil, true, nil
			}
			return nil, false, nil
		}
		return nil, false, err
	}
	return record, false, nil
}

func (s *QualificationService) GetByID(ctx context.Context, id int) (*models.QualificationRecord, error) {
	record, err := s.qualRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrQualificationNotFound) {
			return nil, ErrQualificationNotFound
		}
		return nil, err
	}
	return record, nil
}

func (s *QualificationService) ListBySeason(ctx context.Context, seasonID int) ([]*models.QualificationRecord, error) {
	return s.qualRepo.ListBySeason(ctx, seasonID)
}

// Stats summarizes the season's qualification and invitation lifecycle.
func (s *QualificationService) Stats(ctx context.Context, seasonID int) (*models.QualificationStats, error) {
	season, err := s.seasonRepo.GetByID(ctx, seasonID)
	if err != nil {
		if errors.Is(err, repositories.ErrSeasonNotFound) {
			return nil, ErrSeasonNotFound
		}
		return nil, err
	}

	records, err := s.qualRepo.ListBySeason(ctx, seasonID)
	if err != nil {
		return nil, err
	}

	stats := &models.QualificationStats{
		TotalQualifications:    len(records),
		QualificationThreshold: season.QualificationPointsThreshold,
	}
	competitors := make(map[string]bool)
	classCounts := make(map[string]int)
	for _, q := range records {
		competitors[q.MecaID] = true
		classCounts[q.ClassName]++
		if q.NotificationSent {
			stats.NotificationsSent++
		}
		if q.EmailSent {
			stats.EmailsSent++
		}
		if q.InvitationSent {
			stats.InvitationsSent++
		}
		if q.InvitationRedeemed {
			stats.InvitationsRedeemed++
		}
	}
	stats.UniqueCompetitors = len(competitors)

	classNames := make([]string, 0, len(classCounts))
	for name := range classCounts {
		classNames = append(classNames, name)
	}
	sort.Strings(classNames)
	for _, name := range classNames {
		stats.ClassesByQualifications = append(stats.ClassesByQualifications, models.ClassQualificationCount{
			ClassName: name,
			Count:     classCounts[name],
		})
	}
	return stats, nil
}

// SendInvitation issues the single invitation for a qualification record. A
// repeat call returns the already-sent record without re-emailing.
func (s *QualificationService) SendInvitation(ctx context.Context, id int) (*models.QualificationRecord, error) {
	record, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.InvitationSent {
		return record, nil
	}

	token := uuid.NewString()
	now := time.Now()
	err = s.qualRepo.MarkInvitationSent(ctx, nil, id, token, now)
	if err != nil {
		if errors.Is(err, repositories.ErrTransitionDone) {
			return s.GetByID(ctx, id)
		}
		return nil, err
	}

	if err = s.mailer.SendInvitation(ctx, record, token); err != nil {
		s.logger.Error("invitation email failed", "qualificationId", id, "error", err)
		return nil, err
	}
	if err = s.qualRepo.MarkEmailSent(ctx, nil, id, now); err != nil && !errors.Is(err, repositories.ErrTransitionDone) {
		return nil, err
	}

	s.logger.Info("sent invitation", "qualificationId", id, "mecaId", record.MecaID)
	return s.GetByID(ctx, id)
}

// SendAllPendingInvitations issues invitations for every record in the season
// that has none yet. One failed send does not stop the batch.
func (s *QualificationService) SendAllPendingInvitations(ctx context.Context, seasonID int) (*InvitationBatchSummary, error) {
	pending, err := s.qualRepo.ListPendingInvitations(ctx, seasonID)
	if err != nil {
		return nil, err
	}

	summary := &InvitationBatchSummary{}
	for _, record := range pending {
		if _, sendErr := s.SendInvitation(ctx, record.ID); sendErr != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, sendErr.Error())
			continue
		}
		summary.Sent++
	}

	s.logger.Info("sent pending invitations",
		"seasonId", seasonID, "sent", summary.Sent, "failed", summary.Failed)
	return summary, nil
}

// RedeemInvitation consumes a token exactly once. Unknown and already
// redeemed tokens are indistinguishable to the caller.
func (s *QualificationService) RedeemInvitation(ctx context.Context, token string) (*models.QualificationRecord, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	record, err := s.qualRepo.Redeem(ctx, nil, token, time.Now())
	if err != nil {
		if errors.Is(err, repositories.ErrQualificationNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	s.logger.Info("invitation redeemed", "qualificationId", record.ID, "mecaId", record.MecaID)
	return record, nil
}

// MarkNotified records the in-app notification for a qualification. Repeat
// calls are no-ops.
func (s *QualificationService) MarkNotified(ctx context.Context, id int) (*models.QualificationRecord, error) {
	err := s.qualRepo.MarkNotificationSent(ctx, nil, id, time.Now())
	if err != nil && !errors.Is(err, repositories.ErrTransitionDone) {
		if errors.Is(err, repositories.ErrQualificationNotFound) {
			return nil, ErrQualificationNotFound
		}
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// NotifyQualified emails the qualification notice to records that have not
// had one, typically right after a recompute surfaces new qualifiers.
func (s *QualificationService) NotifyQualified(ctx context.Context, seasonID int) (*InvitationBatchSummary, error) {
	records, err := s.qualRepo.ListBySeason(ctx, seasonID)
	if err != nil {
		return nil, err
	}

	summary := &InvitationBatchSummary{}
	for _, record := range records {
		if record.NotificationSent {
			continue
		}
		if mailErr := s.mailer.SendQualificationNotice(ctx, record); mailErr != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, mailErr.Error())
			continue
		}
		if markErr := s.qualRepo.MarkNotificationSent(ctx, nil, record.ID, time.Now()); markErr != nil && !errors.Is(markErr, repositories.ErrTransitionDone) {
			return nil, markErr
		}
		summary.Sent++
	}
	return summary, nil
}
