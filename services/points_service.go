package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mecacaraudio/scoring-engine/models"
	"github.com/mecacaraudio/scoring-engine/repositories"
	"github.com/mecacaraudio/scoring-engine/scoring"
	"golang.org/x/sync/errgroup"
)

// RecomputeSummary reports what a points recompute changed for one scope.
type RecomputeSummary struct {
	ScopeKind models.AwardScope `json:"scopeKind"`
	ScopeID   int               `json:"scopeId"`
	Awards    int               `json:"awards"`
	Created   int               `json:"created"`
	Updated   int               `json:"updated"`
	Unchanged int               `json:"unchanged"`
	Tentative bool              `json:"tentative"`
}

// SeasonRecomputeSummary aggregates the per-scope summaries of a season-wide
// recompute.
type SeasonRecomputeSummary struct {
	SeasonID int                `json:"seasonId"`
	Scopes   []RecomputeSummary `json:"scopes"`
}

type PointsService struct {
	db          *sql.DB
	seasonRepo  repositories.SeasonRepository
	eventRepo   repositories.EventRepository
	resultRepo  repositories.ResultRepository
	awardRepo   repositories.AwardRepository
	logger      *slog.Logger
	scopeLocks  map[string]*sync.Mutex
	scopeLockMu sync.Mutex
}

func NewPointsService(
	db *sql.DB,
	seasonRepo repositories.SeasonRepository,
	eventRepo repositories.EventRepository,
	resultRepo repositories.ResultRepository,
	awardRepo repositories.AwardRepository,
	logger *slog.Logger,
) *PointsService {
	return &PointsService{
		db:         db,
		seasonRepo: seasonRepo,
		eventRepo:  eventRepo,
		resultRepo: resultRepo,
		awardRepo:  awardRepo,
		logger:     logger,
		scopeLocks: make(map[string]*sync.Mutex),
	}
}

// lockScope serializes recomputes of the same scope within this process.
// The row lock taken inside the transaction covers other processes.
func (s *PointsService) lockScope(kind models.AwardScope, id int) func() {
	key := fmt.Sprintf("%s:%d", kind, id)
	s.scopeLockMu.Lock()
	mu, ok := s.scopeLocks[key]
	if !ok {
		mu = &sync.Mutex{}
		s.scopeLocks[key] = mu
	}
	s.scopeLockMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

func (s *PointsService) pointsTable(ctx context.Context, seasonID int) (scoring.PointsTable, error) {
	cfg, err := s.seasonRepo.GetPointsConfig(ctx, seasonID)
	if err != nil {
		if errors.Is(err, repositories.ErrPointsConfigNotFound) {
			return scoring.DefaultPointsTable(), nil
		}
		return scoring.PointsTable{}, err
	}
	return scoring.PointsTable{
		StandardPlaces:    cfg.StandardPlaces,
		ChampionshipTop:   cfg.ChampionshipTop,
		ChampionshipFloor: cfg.ChampionshipFloor,
	}, nil
}

// RecomputeEvent rescores a standalone event. Events belonging to a multi day
// group are always scored through their group so that combined modes stay
// consistent.
func (s *PointsService) RecomputeEvent(ctx context.Context, eventID int) (*RecomputeSummary, error) {
	event, err := s.eventRepo.GetByID(ctx, nil, eventID)
	if err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if event.MultiDayGroupID != nil {
		summary, groupErr := s.RecomputeGroup(ctx, *event.MultiDayGroupID)
		if groupErr != nil {
			return nil, groupErr
		}
		return summary, nil
	}

	unlock := s.lockScope(models.ScopeEvent, eventID)
	defer unlock()

	table, err := s.pointsTable(ctx, event.SeasonID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err = s.eventRepo.LockEvent(ctx, tx, eventID); err != nil {
		return nil, err
	}

	records, err := s.resultRepo.ListByEvent(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}

	day := dayFromRecords(event, records)
	scored, err := scoring.ScoreEvent(day, table, scoring.StandardCompetitionRanking)
	if err != nil {
		return nil, s.invalidResults(err)
	}

	if err = s.writePlacements(ctx, tx, records, scored); err != nil {
		return nil, err
	}

	newAwards := awardsFromScored(models.ScopeEvent, eventID, event.SeasonID, scored, false)
	summary, err := s.replaceScope(ctx, tx, models.ScopeEvent, eventID, newAwards)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("recomputed event points",
		"eventId", eventID,
		"awards", summary.Awards,
		"created", summary.Created,
		"updated", summary.Updated)
	return summary, nil
}

// RecomputeGroup rescores a multi day group under its combination mode.
// Separate mode writes per-event award scopes; the combined modes write a
// single group scope and clear any stale per-event scopes.
func (s *PointsService) RecomputeGroup(ctx context.Context, groupID int) (*RecomputeSummary, error) {
	unlock := s.lockScope(models.ScopeGroup, groupID)
	defer unlock()

	group, err := s.eventRepo.GetGroupByID(ctx, nil, groupID)
	if err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}

	table, err := s.pointsTable(ctx, group.SeasonID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err = s.eventRepo.LockGroup(ctx, tx, groupID); err != nil {
		return nil, err
	}

	eventIDs := make([]int, 0, len(group.Events))
	eventsByID := make(map[int]*models.Event, len(group.Events))
	for i := range group.Events {
		eventIDs = append(eventIDs, group.Events[i].ID)
		eventsByID[group.Events[i].ID] = &group.Events[i]
	}

	records, err := s.resultRepo.ListByEvents(ctx, tx, eventIDs)
	if err != nil {
		return nil, err
	}

	days := make([]scoring.DayResults, 0, len(group.Events))
	recordsByEvent := make(map[int][]*models.PlacementRecord)
	for _, rec := range records {
		recordsByEvent[rec.EventID] = append(recordsByEvent[rec.EventID], rec)
	}
	for _, id := range eventIDs {
		eventRecords := recordsByEvent[id]
		if len(eventRecords) == 0 {
			continue
		}
		days = append(days, dayFromRecords(eventsByID[id], eventRecords))
	}

	result, err := scoring.CombineGroup(*group, days, table, scoring.StandardCompetitionRanking)
	if err != nil {
		return nil, s.invalidResults(err)
	}

	var summary *RecomputeSummary
	switch group.Mode {
	case models.CombinationSeparate:
		summary = &RecomputeSummary{ScopeKind: models.ScopeGroup, ScopeID: groupID, Tentative: result.Tentative}
		for _, id := range eventIDs {
			awards := result.PerEvent[id]
			if err = s.writePlacements(ctx, tx, recordsByEvent[id], awards); err != nil {
				return nil, err
			}
			eventAwards := awardsFromScored(models.ScopeEvent, id, group.SeasonID, awards, result.Tentative)
			eventSummary, replaceErr := s.replaceScope(ctx, tx, models.ScopeEvent, id, eventAwards)
			if replaceErr != nil {
				return nil, replaceErr
			}
			summary.Awards += eventSummary.Awards
			summary.Created += eventSummary.Created
			summary.Updated += eventSummary.Updated
			summary.Unchanged += eventSummary.Unchanged
		}
		// A group switched to separate mode may carry an old combined scope.
		if err = s.awardRepo.ReplaceScope(ctx, tx, models.ScopeGroup, groupID, nil); err != nil {
			return nil, err
		}
	case models.CombinationCombinedScore, models.CombinationCombinedPoints:
		groupAwards := awardsFromScored(models.ScopeGroup, groupID, group.SeasonID, result.Combined, result.Tentative)
		summary, err = s.replaceScope(ctx, tx, models.ScopeGroup, groupID, groupAwards)
		if err != nil {
			return nil, err
		}
		summary.Tentative = result.Tentative
		for _, id := range eventIDs {
			if err = s.awardRepo.ReplaceScope(ctx, tx, models.ScopeEvent, id, nil); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("%w: unknown combination mode %q", ErrInvalidScope, group.Mode)
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("recomputed group points",
		"groupId", groupID,
		"mode", group.Mode,
		"tentative", summary.Tentative,
		"awards", summary.Awards)
	return summary, nil
}

// RecomputeSeason rescores every standalone event and every group in the
// season. Distinct scopes are independent, so they run concurrently.
func (s *PointsService) RecomputeSeason(ctx context.Context, seasonID int) (*SeasonRecomputeSummary, error) {
	if _, err := s.seasonRepo.GetByID(ctx, seasonID); err != nil {
		if errors.Is(err, repositories.ErrSeasonNotFound) {
			return nil, ErrSeasonNotFound
		}
		return nil, err
	}

	events, err := s.eventRepo.ListBySeason(ctx, seasonID)
	if err != nil {
		return nil, err
	}

	standalone := make([]int, 0, len(events))
	groupIDs := make([]int, 0)
	seenGroups := make(map[int]bool)
	for _, e := range events {
		if e.MultiDayGroupID == nil {
			standalone = append(standalone, e.ID)
			continue
		}
		if !seenGroups[*e.MultiDayGroupID] {
			seenGroups[*e.MultiDayGroupID] = true
			groupIDs = append(groupIDs, *e.MultiDayGroupID)
		}
	}

	summaries := make([]RecomputeSummary, len(standalone)+len(groupIDs))
	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, eventID := range standalone {
		i, eventID := i, eventID
		g.Go(func() error {
			summary, recomputeErr := s.RecomputeEvent(groupCtx, eventID)
			if recomputeErr != nil {
				return recomputeErr
			}
			summaries[i] = *summary
			return nil
		})
	}
	for i, groupID := range groupIDs {
		i, groupID := len(standalone)+i, groupID
		g.Go(func() error {
			summary, recomputeErr := s.RecomputeGroup(groupCtx, groupID)
			if recomputeErr != nil {
				return recomputeErr
			}
			summaries[i] = *summary
			return nil
		})
	}

	if err = g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info("recomputed season points", "seasonId", seasonID, "scopes", len(summaries))
	return &SeasonRecomputeSummary{SeasonID: seasonID, Scopes: summaries}, nil
}

// ListSeasonAwards returns every award row for the season across all scopes.
func (s *PointsService) ListSeasonAwards(ctx context.Context, seasonID int) ([]*models.PointAward, error) {
	return s.awardRepo.ListBySeason(ctx, nil, seasonID)
}

func (s *PointsService) replaceScope(ctx context.Context, tx *sql.Tx, kind models.AwardScope, scopeID int, awards []*models.PointAward) (*RecomputeSummary, error) {
	previous, err := s.awardRepo.ListByScope(ctx, tx, kind, scopeID)
	if err != nil {
		return nil, err
	}

	if err = s.awardRepo.ReplaceScope(ctx, tx, kind, scopeID, awards); err != nil {
		return nil, err
	}

	summary := &RecomputeSummary{ScopeKind: kind, ScopeID: scopeID, Awards: len(awards)}
	prevByKey := make(map[string]*models.PointAward, len(previous))
	for _, p := range previous {
		prevByKey[fmt.Sprintf("%d:%s", p.ClassID, p.MecaID)] = p
	}
	for _, a := range awards {
		prev, existed := prevByKey[fmt.Sprintf("%d:%s", a.ClassID, a.MecaID)]
		switch {
		case !existed:
			summary.Created++
		case prev.Points != a.Points || prev.Placement != a.Placement:
			summary.Updated++
		default:
			summary.Unchanged++
		}
	}
	return summary, nil
}

// writePlacements persists the normalized placements back onto the raw rows
// so exports show the same ordering the awards were computed from.
func (s *PointsService) writePlacements(ctx context.Context, tx *sql.Tx, records []*models.PlacementRecord, awards []scoring.Award) error {
	placements := make(map[string]int, len(awards))
	for _, a := range awards {
		placements[fmt.Sprintf("%d:%s", a.ClassID, a.MecaID)] = a.Placement
	}

	changed := make([]*models.PlacementRecord, 0, len(records))
	for _, rec := range records {
		p, ok := placements[fmt.Sprintf("%d:%s", rec.ClassID, rec.MecaID)]
		if !ok {
			continue
		}
		if rec.Placement != nil && *rec.Placement == p {
			continue
		}
		rec.Placement = &p
		changed = append(changed, rec)
	}
	if len(changed) == 0 {
		return nil
	}
	return s.resultRepo.UpdatePlacements(ctx, tx, changed)
}

func (s *PointsService) invalidResults(err error) error {
	switch {
	case errors.Is(err, scoring.ErrInvalidScore),
		errors.Is(err, scoring.ErrInvalidTier),
		errors.Is(err, scoring.ErrInvalidPlacement):
		return fmt.Errorf("%w: %v", ErrInvalidResults, err)
	}
	return err
}

func dayFromRecords(event *models.Event, records []*models.PlacementRecord) scoring.DayResults {
	day := scoring.DayResults{
		EventID:        event.ID,
		Tier:           event.Tier,
		EntriesByClass: make(map[int][]scoring.RawEntry),
	}
	for _, rec := range records {
		day.EntriesByClass[rec.ClassID] = append(day.EntriesByClass[rec.ClassID], scoring.RawEntry{
			MecaID:         rec.MecaID,
			CompetitorName: rec.CompetitorName,
			Score:          rec.Score,
		})
	}
	return day
}

func awardsFromScored(kind models.AwardScope, scopeID, seasonID int, scored []scoring.Award, tentative bool) []*models.PointAward {
	awards := make([]*models.PointAward, 0, len(scored))
	for _, a := range scored {
		awards = append(awards, &models.PointAward{
			ScopeKind:      kind,
			ScopeID:        scopeID,
			SeasonID:       seasonID,
			ClassID:        a.ClassID,
			MecaID:         a.MecaID,
			CompetitorName: a.CompetitorName,
			Placement:      a.Placement,
			Points:         a.Points,
			Tentative:      tentative,
		})
	}
	return awards
}
