package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mecacaraudio/scoring-engine/models"
	"github.com/mecacaraudio/scoring-engine/repositories"
)

type fakeSeasonRepo struct {
	seasons map[int]*models.Season
	configs map[int]*models.PointsTableConfig
}

func newFakeSeasonRepo(seasons ...*models.Season) *fakeSeasonRepo {
	repo := &fakeSeasonRepo{
		seasons: make(map[int]*models.Season),
		configs: make(map[int]*models.PointsTableConfig),
	}
	for _, s := range seasons {
		repo.seasons[s.ID] = s
	}
	return repo
}

func (r *fakeSeasonRepo) GetByID(_ context.Context, id int) (*models.Season, error) {
	if s, ok := r.seasons[id]; ok {
		return s, nil
	}
	return nil, repositories.ErrSeasonNotFound
}

func (r *fakeSeasonRepo) GetCurrent(_ context.Context) (*models.Season, error) {
	for _, s := range r.seasons {
		if s.IsCurrent {
			return s, nil
		}
	}
	return nil, repositories.ErrSeasonNotFound
}

func (r *fakeSeasonRepo) GetPointsConfig(_ context.Context, seasonID int) (*models.PointsTableConfig, error) {
	if cfg, ok := r.configs[seasonID]; ok {
		return cfg, nil
	}
	return nil, repositories.ErrPointsConfigNotFound
}

type fakeAwardRepo struct {
	awards []*models.PointAward
}

func (r *fakeAwardRepo) ReplaceScope(_ context.Context, _ *sql.Tx, kind models.AwardScope, scopeID int, awards []*models.PointAward) error {
	kept := r.awards[:0]
	for _, a := range r.awards {
		if !(a.ScopeKind == kind && a.ScopeID == scopeID) {
			kept = append(kept, a)
		}
	}
	r.awards = append(kept, awards...)
	return nil
}

func (r *fakeAwardRepo) ListByScope(_ context.Context, _ repositories.SQLExecutor, kind models.AwardScope, scopeID int) ([]*models.PointAward, error) {
	out := make([]*models.PointAward, 0)
	for _, a := range r.awards {
		if a.ScopeKind == kind && a.ScopeID == scopeID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAwardRepo) ListBySeason(_ context.Context, _ repositories.SQLExecutor, seasonID int) ([]*models.PointAward, error) {
	out := make([]*models.PointAward, 0)
	for _, a := range r.awards {
		if a.SeasonID == seasonID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeClassRepo struct {
	classes  map[int]*models.CompetitionClass
	mappings []*models.ClassNameMapping
	nextID   int
}

func newFakeClassRepo(classes ...*models.CompetitionClass) *fakeClassRepo {
	repo := &fakeClassRepo{classes: make(map[int]*models.CompetitionClass), nextID: 1}
	for _, c := range classes {
		repo.classes[c.ID] = c
	}
	return repo
}

func (r *fakeClassRepo) GetClassByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.CompetitionClass, error) {
	if c, ok := r.classes[id]; ok {
		return c, nil
	}
	return nil, repositories.ErrClassNotFound
}

func (r *fakeClassRepo) ListClassesBySeason(_ context.Context, seasonID int) ([]*models.CompetitionClass, error) {
	out := make([]*models.CompetitionClass, 0)
	for _, c := range r.classes {
		if c.SeasonID == seasonID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeClassRepo) CreateMapping(_ context.Context, _ repositories.SQLExecutor, m *models.ClassNameMapping) error {
	for _, existing := range r.mappings {
		if strings.EqualFold(existing.SourceName, m.SourceName) && existing.SourceSystem == m.SourceSystem {
			return repositories.ErrMappingConflict
		}
	}
	m.ID = r.nextID
	r.nextID++
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt
	r.mappings = append(r.mappings, m)
	return nil
}

func (r *fakeClassRepo) UpdateMapping(_ context.Context, _ repositories.SQLExecutor, m *models.ClassNameMapping) error {
	for i, existing := range r.mappings {
		if existing.ID == m.ID {
			r.mappings[i] = m
			return nil
		}
	}
	return repositories.ErrMappingNotFound
}

func (r *fakeClassRepo) DeleteMapping(_ context.Context, _ repositories.SQLExecutor, id int) error {
	for i, existing := range r.mappings {
		if existing.ID == id {
			r.mappings = append(r.mappings[:i], r.mappings[i+1:]...)
			return nil
		}
	}
	return repositories.ErrMappingNotFound
}

func (r *fakeClassRepo) GetMappingByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.ClassNameMapping, error) {
	for _, m := range r.mappings {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, repositories.ErrMappingNotFound
}

func (r *fakeClassRepo) ResolveClassName(_ context.Context, _ repositories.SQLExecutor, sourceName, sourceSystem string) (*models.ClassNameMapping, error) {
	for _, m := range r.mappings {
		if strings.EqualFold(m.SourceName, strings.TrimSpace(sourceName)) && m.SourceSystem == sourceSystem && m.IsActive {
			return m, nil
		}
	}
	return nil, repositories.ErrMappingNotFound
}

func (r *fakeClassRepo) ListMappings(_ context.Context, sourceSystem string) ([]*models.ClassNameMapping, error) {
	out := make([]*models.ClassNameMapping, 0)
	for _, m := range r.mappings {
		if m.SourceSystem == sourceSystem {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeClassRepo) ListUnmapped(_ context.Context, sourceSystem string) ([]*models.ClassNameMapping, error) {
	out := make([]*models.ClassNameMapping, 0)
	for _, m := range r.mappings {
		if m.SourceSystem == sourceSystem && m.TargetClassID == nil {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeQualificationRepo struct {
	mu      sync.Mutex
	records map[int]*models.QualificationRecord
	nextID  int
}

func newFakeQualificationRepo() *fakeQualificationRepo {
	return &fakeQualificationRepo{records: make(map[int]*models.QualificationRecord), nextID: 1}
}

func (r *fakeQualificationRepo) Create(_ context.Context, _ repositories.SQLExecutor, q *models.QualificationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.records {
		if existing.SeasonID == q.SeasonID && existing.MecaID == q.MecaID && existing.ClassID == q.ClassID {
			return repositories.ErrQualificationConflict
		}
	}
	q.ID = r.nextID
	r.nextID++
	clone := *q
	r.records[q.ID] = &clone
	return nil
}

func (r *fakeQualificationRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.QualificationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.records[id]; ok {
		clone := *q
		return &clone, nil
	}
	return nil, repositories.ErrQualificationNotFound
}

func (r *fakeQualificationRepo) GetByKey(_ context.Context, _ repositories.SQLExecutor, seasonID int, mecaID string, classID int) (*models.QualificationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, q := range r.records {
		if q.SeasonID == seasonID && q.MecaID == mecaID && q.ClassID == classID {
			clone := *q
			return &clone, nil
		}
	}
	return nil, repositories.ErrQualificationNotFound
}

func (r *fakeQualificationRepo) UpdateTotalPoints(_ context.Context, _ repositories.SQLExecutor, id, totalPoints int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.records[id]
	if !ok {
		return repositories.ErrQualificationNotFound
	}
	q.TotalPoints = totalPoints
	return nil
}

func (r *fakeQualificationRepo) MarkNotificationSent(_ context.Context, _ repositories.SQLExecutor, id int, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.records[id]
	if !ok {
		return repositories.ErrQualificationNotFound
	}
	if q.NotificationSent {
		return repositories.ErrTransitionDone
	}
	q.NotificationSent = true
	q.NotificationSentAt = &at
	return nil
}

func (r *fakeQualificationRepo) MarkEmailSent(_ context.Context, _ repositories.SQLExecutor, id int, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.records[id]
	if !ok {
		return repositories.ErrQualificationNotFound
	}
	if q.EmailSent {
		return repositories.ErrTransitionDone
	}
	q.EmailSent = true
	q.EmailSentAt = &at
	return nil
}

func (r *fakeQualificationRepo) MarkInvitationSent(_ context.Context, _ repositories.SQLExecutor, id int, token string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.records[id]
	if !ok {
		return repositories.ErrQualificationNotFound
	}
	if q.InvitationSent {
		return repositories.ErrTransitionDone
	}
	q.InvitationSent = true
	q.InvitationSentAt = &at
	q.InvitationToken = &token
	return nil
}

func (r *fakeQualificationRepo) Redeem(_ context.Context, _ repositories.SQLExecutor, token string, at time.Time) (*models.QualificationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, q := range r.records {
		if q.InvitationToken != nil && *q.InvitationToken == token && !q.InvitationRedeemed {
			q.InvitationRedeemed = true
			q.InvitationRedeemedAt = &at
			clone := *q
			return &clone, nil
		}
	}
	return nil, repositories.ErrQualificationNotFound
}

func (r *fakeQualificationRepo) ListBySeason(_ context.Context, seasonID int) ([]*models.QualificationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.QualificationRecord, 0)
	for _, q := range r.records {
		if q.SeasonID == seasonID {
			clone := *q
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeQualificationRepo) ListPendingInvitations(_ context.Context, seasonID int) ([]*models.QualificationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.QualificationRecord, 0)
	for _, q := range r.records {
		if q.SeasonID == seasonID && !q.InvitationSent {
			clone := *q
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeStandingRepo struct {
	standings []*models.SeasonStanding
	listCalls int
}

func (r *fakeStandingRepo) ReplaceSeason(_ context.Context, _ *sql.Tx, seasonID int, standings []*models.SeasonStanding) error {
	kept := r.standings[:0]
	for _, st := range r.standings {
		if st.SeasonID != seasonID {
			kept = append(kept, st)
		}
	}
	r.standings = append(kept, standings...)
	return nil
}

func (r *fakeStandingRepo) ListByClass(_ context.Context, seasonID, classID int, entityType models.StandingEntity) ([]*models.SeasonStanding, error) {
	r.listCalls++
	out := make([]*models.SeasonStanding, 0)
	for _, st := range r.standings {
		if st.SeasonID == seasonID && st.ClassID == classID && st.EntityType == entityType {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalPoints != out[j].TotalPoints {
			return out[i].TotalPoints > out[j].TotalPoints
		}
		if out[i].FirstPlaces != out[j].FirstPlaces {
			return out[i].FirstPlaces > out[j].FirstPlaces
		}
		return out[i].EntityKey < out[j].EntityKey
	})
	return out, nil
}

func (r *fakeStandingRepo) ListByEntity(_ context.Context, seasonID int, entityType models.StandingEntity, entityKey string) ([]*models.SeasonStanding, error) {
	out := make([]*models.SeasonStanding, 0)
	for _, st := range r.standings {
		if st.SeasonID == seasonID && st.EntityType == entityType && st.EntityKey == entityKey {
			out = append(out, st)
		}
	}
	return out, nil
}

func (r *fakeStandingRepo) ListTeams(_ context.Context, seasonID int) ([]*models.SeasonStanding, error) {
	r.listCalls++
	out := make([]*models.SeasonStanding, 0)
	for _, st := range r.standings {
		if st.SeasonID == seasonID && st.EntityType == models.StandingTeam {
			out = append(out, st)
		}
	}
	return out, nil
}

type fakeTeamRepo struct {
	teams  map[int]*models.Team
	roster map[string][]*models.Team
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{teams: make(map[int]*models.Team), roster: make(map[string][]*models.Team)}
}

func (r *fakeTeamRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Team, error) {
	if t, ok := r.teams[id]; ok {
		return t, nil
	}
	return nil, repositories.ErrTeamNotFound
}

func (r *fakeTeamRepo) List(_ context.Context) ([]*models.Team, error) {
	out := make([]*models.Team, 0, len(r.teams))
	for _, t := range r.teams {
		out = append(out, t)
	}
	return out, nil
}

func (r *fakeTeamRepo) RosterBySeason(_ context.Context, _ int) (map[string][]*models.Team, error) {
	return r.roster, nil
}

type recordingMailer struct {
	notices     []int
	invitations []int
	failWith    error
	failFor     map[string]bool
}

func (m *recordingMailer) SendQualificationNotice(_ context.Context, q *models.QualificationRecord) error {
	if m.failWith != nil || m.failFor[q.MecaID] {
		return errSendFailed(m.failWith)
	}
	m.notices = append(m.notices, q.ID)
	return nil
}

func (m *recordingMailer) SendInvitation(_ context.Context, q *models.QualificationRecord, _ string) error {
	if m.failWith != nil || m.failFor[q.MecaID] {
		return errSendFailed(m.failWith)
	}
	m.invitations = append(m.invitations, q.ID)
	return nil
}

func errSendFailed(err error) error {
	if err != nil {
		return err
	}
	return errors.New("smtp connection refused")
}

type fakeEventRepo struct {
	events map[int]*models.Event
}

func newFakeEventRepo(events ...*models.Event) *fakeEventRepo {
	repo := &fakeEventRepo{events: make(map[int]*models.Event)}
	for _, e := range events {
		repo.events[e.ID] = e
	}
	return repo
}

func (r *fakeEventRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Event, error) {
	if e, ok := r.events[id]; ok {
		return e, nil
	}
	return nil, repositories.ErrEventNotFound
}

func (r *fakeEventRepo) ListBySeason(_ context.Context, seasonID int) ([]*models.Event, error) {
	out := make([]*models.Event, 0)
	for _, e := range r.events {
		if e.SeasonID == seasonID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeEventRepo) GetGroupByID(_ context.Context, _ repositories.SQLExecutor, _ int) (*models.MultiDayGroup, error) {
	return nil, repositories.ErrGroupNotFound
}

func (r *fakeEventRepo) LockEvent(_ context.Context, _ *sql.Tx, _ int) error { return nil }

func (r *fakeEventRepo) LockGroup(_ context.Context, _ *sql.Tx, _ int) error { return nil }
