package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/mecacaraudio/scoring-engine/models"
	"github.com/mecacaraudio/scoring-engine/repositories"
	"github.com/mecacaraudio/scoring-engine/storage"
)

// ArchiveResult points at the exported artifacts for one season.
type ArchiveResult struct {
	SeasonID          int    `json:"season_id"`
	StandingsURL      string `json:"standings_url"`
	AwardsURL         string `json:"awards_url"`
	QualificationsURL string `json:"qualifications_url"`
}

// ArchiveService exports a season's derived data as CSV snapshots to object
// storage, the long term record once a season closes.
type ArchiveService struct {
	seasonRepo   repositories.SeasonRepository
	standingRepo repositories.StandingRepository
	awardRepo    repositories.AwardRepository
	qualRepo     repositories.QualificationRepository
	classRepo    repositories.ClassRepository
	uploader     storage.FileUploader
	logger       *slog.Logger
}

func NewArchiveService(
	seasonRepo repositories.SeasonRepository,
	standingRepo repositories.StandingRepository,
	awardRepo repositories.AwardRepository,
	qualRepo repositories.QualificationRepository,
	classRepo repositories.ClassRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) *ArchiveService {
	return &ArchiveService{
		seasonRepo:   seasonRepo,
		standingRepo: standingRepo,
		awardRepo:    awardRepo,
		qualRepo:     qualRepo,
		classRepo:    classRepo,
		uploader:     uploader,
		logger:       logger,
	}
}

// ArchiveSeason snapshots standings, point awards and qualifications.
// Re-running overwrites the previous snapshot under the same keys.
func (s *ArchiveService) ArchiveSeason(ctx context.Context, seasonID int) (*ArchiveResult, error) {
	season, err := s.seasonRepo.GetByID(ctx, seasonID)
	if err != nil {
		if errors.Is(err, repositories.ErrSeasonNotFound) {
			return nil, ErrSeasonNotFound
		}
		return nil, err
	}

	classNames, err := s.classNames(ctx, seasonID)
	if err != nil {
		return nil, err
	}

	result := &ArchiveResult{SeasonID: seasonID}
	prefix := fmt.Sprintf("archives/%d-%s", season.Year, slugify(season.Name))

	standingsCSV, err := s.standingsCSV(ctx, seasonID, classNames)
	if err != nil {
		return nil, err
	}
	if result.StandingsURL, err = s.upload(ctx, prefix+"/standings.csv", standingsCSV); err != nil {
		return nil, err
	}

	awardsCSV, err := s.awardsCSV(ctx, seasonID, classNames)
	if err != nil {
		return nil, err
	}
	if result.AwardsURL, err = s.upload(ctx, prefix+"/point_awards.csv", awardsCSV); err != nil {
		return nil, err
	}

	qualificationsCSV, err := s.qualificationsCSV(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	if result.QualificationsURL, err = s.upload(ctx, prefix+"/qualifications.csv", qualificationsCSV); err != nil {
		return nil, err
	}

	s.logger.Info("archived season", "seasonId", seasonID, "prefix", prefix)
	return result, nil
}

func (s *ArchiveService) classNames(ctx context.Context, seasonID int) (map[int]string, error) {
	classes, err := s.classRepo.ListClassesBySeason(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	names := make(map[int]string, len(classes))
	for _, c := range classes {
		names[c.ID] = c.Name
	}
	return names, nil
}

func (s *ArchiveService) standingsCSV(ctx context.Context, seasonID int, classNames map[int]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"entity_type", "entity_key", "display_name", "class", "rank", "total_points", "events", "first_places", "second_places", "third_places"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, entityType := range []models.StandingEntity{models.StandingCompetitor, models.StandingTeam} {
		for classID, className := range classNames {
			standings, err := s.standingRepo.ListByClass(ctx, seasonID, classID, entityType)
			if err != nil {
				return nil, err
			}
			for _, st := range standings {
				rank := ""
				if st.Rank != nil {
					rank = strconv.Itoa(*st.Rank)
				}
				row := []string{
					string(st.EntityType), st.EntityKey, st.DisplayName, className, rank,
					strconv.Itoa(st.TotalPoints), strconv.Itoa(st.EventsParticipated),
					strconv.Itoa(st.FirstPlaces), strconv.Itoa(st.SecondPlaces), strconv.Itoa(st.ThirdPlaces),
				}
				if err = w.Write(row); err != nil {
					return nil, err
				}
			}
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func (s *ArchiveService) awardsCSV(ctx context.Context, seasonID int, classNames map[int]string) ([]byte, error) {
	awards, err := s.awardRepo.ListBySeason(ctx, nil, seasonID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"scope_kind", "scope_id", "class", "meca_id", "competitor_name", "placement", "points", "tentative", "computed_at"}
	if err = w.Write(header); err != nil {
		return nil, err
	}
	for _, a := range awards {
		row := []string{
			string(a.ScopeKind), strconv.Itoa(a.ScopeID), classNames[a.ClassID],
			a.MecaID, a.CompetitorName,
			strconv.Itoa(a.Placement), strconv.Itoa(a.Points),
			strconv.FormatBool(a.Tentative), a.ComputedAt.Format(time.RFC3339),
		}
		if err = w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func (s *ArchiveService) qualificationsCSV(ctx context.Context, seasonID int) ([]byte, error) {
	records, err := s.qualRepo.ListBySeason(ctx, seasonID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"meca_id", "competitor_name", "class", "total_points", "qualified_at", "invitation_sent", "invitation_redeemed"}
	if err = w.Write(header); err != nil {
		return nil, err
	}
	for _, q := range records {
		row := []string{
			q.MecaID, q.CompetitorName, q.ClassName,
			strconv.Itoa(q.TotalPoints), q.QualifiedAt.Format(time.RFC3339),
			strconv.FormatBool(q.InvitationSent), strconv.FormatBool(q.InvitationRedeemed),
		}
		if err = w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func (s *ArchiveService) upload(ctx context.Context, key string, data []byte) (string, error) {
	result, err := s.uploader.Upload(ctx, key, "text/csv", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrArchiveFailed, err)
	}
	return result.Location, nil
}

func slugify(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case r == ' ' || r == '-' || r == '_':
			out = append(out, '-')
		}
	}
	return string(out)
}
