package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/mecacaraudio/scoring-engine/models"
	"github.com/mecacaraudio/scoring-engine/repositories"
)

// RawResult is one judged entry as a source system reports it: a free-text
// class label plus score.
type RawResult struct {
	ClassName      string  `json:"class_name"`
	MecaID         string  `json:"meca_id"`
	CompetitorName string  `json:"competitor_name"`
	Score          float64 `json:"score"`
}

// IngestSummary reports what a result submission stored and what it could not
// resolve.
type IngestSummary struct {
	Stored           int      `json:"stored"`
	Replaced         int      `json:"replaced"`
	UnresolvedLabels []string `json:"unresolved_labels,omitempty"`
}

type ResultsService struct {
	db         *sql.DB
	eventRepo  repositories.EventRepository
	resultRepo repositories.ResultRepository
	classRepo  repositories.ClassRepository
	logger     *slog.Logger
}

func NewResultsService(
	db *sql.DB,
	eventRepo repositories.EventRepository,
	resultRepo repositories.ResultRepository,
	classRepo repositories.ClassRepository,
	logger *slog.Logger,
) *ResultsService {
	return &ResultsService{
		db:         db,
		eventRepo:  eventRepo,
		resultRepo: resultRepo,
		classRepo:  classRepo,
		logger:     logger,
	}
}

// Ingest stores a batch of raw results for an event, resolving class labels
// through the mapping table once at write time. Results for a class already
// present on the event are replaced wholesale; an unresolvable label fails
// the whole batch so partial imports never reach scoring.
func (s *ResultsService) Ingest(ctx context.Context, eventID int, sourceSystem string, raw []RawResult) (*IngestSummary, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrInvalidResults)
	}

	if _, err := s.eventRepo.GetByID(ctx, nil, eventID); err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	classIDs := make(map[string]int)
	unresolved := make(map[string]bool)
	for _, r := range raw {
		label := strings.TrimSpace(r.ClassName)
		if label == "" {
			return nil, fmt.Errorf("%w: entry for %q has no class label", ErrInvalidResults, r.CompetitorName)
		}
		if r.Score < 0 || math.IsNaN(r.Score) || math.IsInf(r.Score, 0) {
			return nil, fmt.Errorf("%w: %q scored %v", ErrInvalidResults, r.CompetitorName, r.Score)
		}
		key := strings.ToLower(label)
		if _, seen := classIDs[key]; seen || unresolved[key] {
			continue
		}
		mapping, err := s.classRepo.ResolveClassName(ctx, nil, label, sourceSystem)
		if err != nil {
			if errors.Is(err, repositories.ErrMappingNotFound) {
				unresolved[key] = true
				continue
			}
			return nil, err
		}
		if mapping.TargetClassID == nil {
			unresolved[key] = true
			continue
		}
		classIDs[key] = *mapping.TargetClassID
	}

	if len(unresolved) > 0 {
		labels := make([]string, 0, len(unresolved))
		for label := range unresolved {
			labels = append(labels, label)
		}
		return &IngestSummary{UnresolvedLabels: labels},
			fmt.Errorf("%w: %d unresolved class labels", ErrClassUnmapped, len(labels))
	}

	records := make([]*models.PlacementRecord, 0, len(raw))
	replaceClasses := make(map[int]bool)
	for _, r := range raw {
		classID := classIDs[strings.ToLower(strings.TrimSpace(r.ClassName))]
		replaceClasses[classID] = true
		records = append(records, &models.PlacementRecord{
			EventID:        eventID,
			ClassID:        classID,
			MecaID:         strings.TrimSpace(r.MecaID),
			CompetitorName: strings.TrimSpace(r.CompetitorName),
			Score:          r.Score,
		})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	summary := &IngestSummary{}
	for classID := range replaceClasses {
		removed, delErr := s.resultRepo.DeleteByEventClass(ctx, tx, eventID, classID)
		if delErr != nil {
			return nil, delErr
		}
		summary.Replaced += int(removed)
	}
	if err = s.resultRepo.CreateBatch(ctx, tx, records); err != nil {
		switch {
		case errors.Is(err, repositories.ErrResultEventInvalid):
			return nil, ErrEventNotFound
		case errors.Is(err, repositories.ErrResultClassInvalid):
			return nil, ErrClassNotFound
		}
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	summary.Stored = len(records)
	s.logger.Info("ingested results",
		"eventId", eventID,
		"source", sourceSystem,
		"stored", summary.Stored,
		"replaced", summary.Replaced)
	return summary, nil
}

// ListByEvent returns the stored rows for an event, placements included once
// a recompute has run.
func (s *ResultsService) ListByEvent(ctx context.Context, eventID int) ([]*models.PlacementRecord, error) {
	if _, err := s.eventRepo.GetByID(ctx, nil, eventID); err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return s.resultRepo.ListByEvent(ctx, nil, eventID)
}
