package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/mecacaraudio/scoring-engine/models"
	"github.com/mecacaraudio/scoring-engine/repositories"
)

const standingsCacheTTL = 5 * time.Minute

type standingsCacheEntry struct {
	standings []*models.SeasonStanding
	expiresAt time.Time
}

type StandingsService struct {
	db           *sql.DB
	seasonRepo   repositories.SeasonRepository
	awardRepo    repositories.AwardRepository
	standingRepo repositories.StandingRepository
	classRepo    repositories.ClassRepository
	teamRepo     repositories.TeamRepository
	logger       *slog.Logger

	cacheMu sync.RWMutex
	cache   map[string]standingsCacheEntry
}

func NewStandingsService(
	db *sql.DB,
	seasonRepo repositories.SeasonRepository,
	awardRepo repositories.AwardRepository,
	standingRepo repositories.StandingRepository,
	classRepo repositories.ClassRepository,
	teamRepo repositories.TeamRepository,
	logger *slog.Logger,
) *StandingsService {
	return &StandingsService{
		db:           db,
		seasonRepo:   seasonRepo,
		awardRepo:    awardRepo,
		standingRepo: standingRepo,
		classRepo:    classRepo,
		teamRepo:     teamRepo,
		logger:       logger,
		cache:        make(map[string]standingsCacheEntry),
	}
}

type standingAccumulator struct {
	displayName        string
	totalPoints        int
	eventsParticipated int
	firstPlaces        int
	secondPlaces       int
	thirdPlaces        int
}

func (a *standingAccumulator) add(award *models.PointAward) {
	a.totalPoints += award.Points
	a.eventsParticipated++
	switch award.Placement {
	case 1:
		a.firstPlaces++
	case 2:
		a.secondPlaces++
	case 3:
		a.thirdPlaces++
	}
}

// Recompute rebuilds the season standings ledger, competitor and team, from
// the current point awards. Guest entries earn placements at events but
// never appear in standings.
func (s *StandingsService) Recompute(ctx context.Context, seasonID int) error {
	if _, err := s.seasonRepo.GetByID(ctx, seasonID); err != nil {
		if errors.Is(err, repositories.ErrSeasonNotFound) {
			return ErrSeasonNotFound
		}
		return err
	}

	awards, err := s.awardRepo.ListBySeason(ctx, nil, seasonID)
	if err != nil {
		return err
	}
	roster, err := s.teamRepo.RosterBySeason(ctx, seasonID)
	if err != nil {
		return err
	}

	standings := buildStandings(seasonID, awards, roster)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err = s.standingRepo.ReplaceSeason(ctx, tx, seasonID, standings); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}

	s.invalidateSeason(seasonID)
	s.logger.Info("recomputed season standings", "seasonId", seasonID, "rows", len(standings))
	return nil
}

// buildStandings folds the season's awards into per-class ledgers for
// competitors and their rostered teams. Guest awards are skipped entirely.
func buildStandings(seasonID int, awards []*models.PointAward, roster map[string][]*models.Team) []*models.SeasonStanding {
	type key struct {
		classID    int
		entityType models.StandingEntity
		entityKey  string
	}
	acc := make(map[key]*standingAccumulator)

	for _, award := range awards {
		if models.IsGuestMecaID(award.MecaID) {
			continue
		}

		ck := key{award.ClassID, models.StandingCompetitor, award.MecaID}
		if acc[ck] == nil {
			acc[ck] = &standingAccumulator{displayName: award.CompetitorName}
		}
		acc[ck].add(award)

		for _, team := range roster[award.MecaID] {
			tk := key{award.ClassID, models.StandingTeam, strconv.Itoa(team.ID)}
			if acc[tk] == nil {
				acc[tk] = &standingAccumulator{displayName: team.Name}
			}
			acc[tk].add(award)
		}
	}

	now := time.Now()
	standings := make([]*models.SeasonStanding, 0, len(acc))
	for k, a := range acc {
		standings = append(standings, &models.SeasonStanding{
			SeasonID:           seasonID,
			ClassID:            k.classID,
			EntityType:         k.entityType,
			EntityKey:          k.entityKey,
			DisplayName:        a.displayName,
			TotalPoints:        a.totalPoints,
			EventsParticipated: a.eventsParticipated,
			FirstPlaces:        a.firstPlaces,
			SecondPlaces:       a.secondPlaces,
			ThirdPlaces:        a.thirdPlaces,
			UpdatedAt:          now,
		})
	}
	rankStandings(standings)
	return standings
}

// rankStandings assigns ranks within each class and entity type: total points
// descending, then first places, then the stable entity key.
func rankStandings(standings []*models.SeasonStanding) {
	type group struct {
		classID    int
		entityType models.StandingEntity
	}
	byGroup := make(map[group][]*models.SeasonStanding)
	for _, st := range standings {
		g := group{st.ClassID, st.EntityType}
		byGroup[g] = append(byGroup[g], st)
	}
	for _, members := range byGroup {
		sort.Slice(members, func(i, j int) bool {
			if members[i].TotalPoints != members[j].TotalPoints {
				return members[i].TotalPoints > members[j].TotalPoints
			}
			if members[i].FirstPlaces != members[j].FirstPlaces {
				return members[i].FirstPlaces > members[j].FirstPlaces
			}
			return members[i].EntityKey < members[j].EntityKey
		})
		for i, st := range members {
			rank := i + 1
			st.Rank = &rank
		}
	}
}

// ClassLeaderboard serves the competitor standings for one class, backed by a
// short lived cache so repeated public reads skip the database.
func (s *StandingsService) ClassLeaderboard(ctx context.Context, seasonID, classID int) ([]*models.SeasonStanding, error) {
	cacheKey := fmt.Sprintf("class:%d:%d", seasonID, classID)
	if cached, ok := s.fromCache(cacheKey); ok {
		return cached, nil
	}

	standings, err := s.standingRepo.ListByClass(ctx, seasonID, classID, models.StandingCompetitor)
	if err != nil {
		return nil, err
	}
	s.store(cacheKey, standings)
	return standings, nil
}

// TeamLeaderboard serves team standings, aggregated across classes.
func (s *StandingsService) TeamLeaderboard(ctx context.Context, seasonID int) ([]*models.SeasonStanding, error) {
	cacheKey := fmt.Sprintf("teams:%d", seasonID)
	if cached, ok := s.fromCache(cacheKey); ok {
		return cached, nil
	}

	standings, err := s.standingRepo.ListTeams(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	s.store(cacheKey, standings)
	return standings, nil
}

// CompetitorStats summarizes one competitor's season across the classes they
// entered.
func (s *StandingsService) CompetitorStats(ctx context.Context, seasonID int, mecaID string) (*models.CompetitorStats, error) {
	if models.IsGuestMecaID(mecaID) {
		return nil, ErrInvalidSeasonData
	}

	standings, err := s.standingRepo.ListByEntity(ctx, seasonID, models.StandingCompetitor, mecaID)
	if err != nil {
		return nil, err
	}

	stats := &models.CompetitorStats{MecaID: mecaID}
	bestRank := 0
	for _, st := range standings {
		stats.TotalPoints += st.TotalPoints
		stats.EventsParticipated += st.EventsParticipated
		stats.FirstPlaces += st.FirstPlaces
		stats.SecondPlaces += st.SecondPlaces
		stats.ThirdPlaces += st.ThirdPlaces
		if st.Rank != nil && (bestRank == 0 || *st.Rank < bestRank) {
			bestRank = *st.Rank
		}

		class, classErr := s.classRepo.GetClassByID(ctx, nil, st.ClassID)
		if classErr != nil {
			if errors.Is(classErr, repositories.ErrClassNotFound) {
				continue
			}
			return nil, classErr
		}
		stats.ByClass = append(stats.ByClass, models.ClassPointsSummary{
			ClassID: st.ClassID,
			Format:  class.Format,
			Class:   class.Name,
			Points:  st.TotalPoints,
			Events:  st.EventsParticipated,
		})
	}
	stats.Ranking = bestRank
	return stats, nil
}

// TeamProfile pairs a team's registration record with its standings rows for
// the season, one per class it scored in.
type TeamProfile struct {
	Team      *models.Team             `json:"team"`
	Standings []*models.SeasonStanding `json:"standings"`
}

// Teams lists every registered team regardless of season activity.
func (s *StandingsService) Teams(ctx context.Context) ([]*models.Team, error) {
	return s.teamRepo.List(ctx)
}

func (s *StandingsService) TeamProfile(ctx context.Context, seasonID, teamID int) (*TeamProfile, error) {
	team, err := s.teamRepo.GetByID(ctx, nil, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}

	standings, err := s.standingRepo.ListByEntity(ctx, seasonID, models.StandingTeam, strconv.Itoa(teamID))
	if err != nil {
		return nil, err
	}
	return &TeamProfile{Team: team, Standings: standings}, nil
}

// WarmCache preloads the leaderboards of every class in the season. Wired to
// the background scheduler so public reads mostly hit warm entries.
func (s *StandingsService) WarmCache(ctx context.Context, seasonID int) error {
	classes, err := s.classRepo.ListClassesBySeason(ctx, seasonID)
	if err != nil {
		return err
	}
	for _, class := range classes {
		if _, err = s.ClassLeaderboard(ctx, seasonID, class.ID); err != nil {
			return err
		}
	}
	if _, err = s.TeamLeaderboard(ctx, seasonID); err != nil {
		return err
	}
	s.logger.Debug("warmed standings cache", "seasonId", seasonID, "classes", len(classes))
	return nil
}

func (s *StandingsService) fromCache(key string) ([]*models.SeasonStanding, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	entry, ok := s.cache[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.standings, true
}

func (s *StandingsService) store(key string, standings []*models.SeasonStanding) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cache[key] = standingsCacheEntry{
		standings: standings,
		expiresAt: time.Now().Add(standingsCacheTTL),
	}
}

func (s *StandingsService) invalidateSeason(seasonID int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	for key := range s.cache {
		if keyMatchesSeason(key, seasonID) {
			delete(s.cache, key)
		}
	}
}

func keyMatchesSeason(key string, seasonID int) bool {
	var classSeason, classID int
	if n, _ := fmt.Sscanf(key, "class:%d:%d", &classSeason, &classID); n >= 1 && classSeason == seasonID {
		return true
	}
	var teamSeason int
	if n, _ := fmt.Sscanf(key, "teams:%d", &teamSeason); n == 1 && teamSeason == seasonID {
		return true
	}
	return false
}
