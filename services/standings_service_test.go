package services

import (
	"context"
	"testing"

	"github.com/mecacaraudio/scoring-engine/models"
)

func TestBuildStandingsExcludesGuestsAndAggregatesTeams(t *testing.T) {
	roster := map[string][]*models.Team{
		"1001": {{ID: 3, Name: "Team Thunder", Type: models.TeamRetailer}},
		"1002": {{ID: 3, Name: "Team Thunder", Type: models.TeamRetailer}},
	}
	awards := []*models.PointAward{
		award(1, 7, "1001", "Alice", 1, 10),
		award(1, 7, "1002", "Bob", 2, 8),
		award(1, 7, models.GuestMecaID, "Guest", 3, 6),
	}

	standings := buildStandings(1, awards, roster)

	var teamStanding *models.SeasonStanding
	competitorCount := 0
	for _, st := range standings {
		switch st.EntityType {
		case models.StandingTeam:
			teamStanding = st
		case models.StandingCompetitor:
			competitorCount++
			if st.EntityKey == models.GuestMecaID {
				t.Error("guest appeared in standings")
			}
		}
	}
	if competitorCount != 2 {
		t.Errorf("competitor rows = %d, want 2", competitorCount)
	}
	if teamStanding == nil {
		t.Fatal("missing team standing")
	}
	if teamStanding.TotalPoints != 18 || teamStanding.EventsParticipated != 2 {
		t.Errorf("team totals = %d points over %d events, want 18 over 2",
			teamStanding.TotalPoints, teamStanding.EventsParticipated)
	}
	if teamStanding.FirstPlaces != 1 || teamStanding.SecondPlaces != 1 {
		t.Errorf("team podium counts = %d/%d, want 1/1",
			teamStanding.FirstPlaces, teamStanding.SecondPlaces)
	}
}

func TestRankStandingsPodiumTieBreak(t *testing.T) {
	standings := []*models.SeasonStanding{
		{ClassID: 7, EntityType: models.StandingCompetitor, EntityKey: "1003", TotalPoints: 40, FirstPlaces: 0},
		{ClassID: 7, EntityType: models.StandingCompetitor, EntityKey: "1001", TotalPoints: 50, FirstPlaces: 2},
		{ClassID: 7, EntityType: models.StandingCompetitor, EntityKey: "1002", TotalPoints: 50, FirstPlaces: 1},
	}

	rankStandings(standings)

	ranks := make(map[string]int)
	for _, st := range standings {
		ranks[st.EntityKey] = *st.Rank
	}
	if ranks["1001"] != 1 || ranks["1002"] != 2 || ranks["1003"] != 3 {
		t.Errorf("ranks = %v, want 1001=1 1002=2 1003=3", ranks)
	}
}

func TestRankStandingsStableOnFullTie(t *testing.T) {
	standings := []*models.SeasonStanding{
		{ClassID: 7, EntityType: models.StandingCompetitor, EntityKey: "2002", TotalPoints: 30, FirstPlaces: 1},
		{ClassID: 7, EntityType: models.StandingCompetitor, EntityKey: "2001", TotalPoints: 30, FirstPlaces: 1},
	}

	rankStandings(standings)

	for _, st := range standings {
		switch st.EntityKey {
		case "2001":
			if *st.Rank != 1 {
				t.Errorf("2001 rank = %d, want 1 (lower key wins full ties)", *st.Rank)
			}
		case "2002":
			if *st.Rank != 2 {
				t.Errorf("2002 rank = %d, want 2", *st.Rank)
			}
		}
	}
}

func TestRankStandingsSeparatesClassesAndEntityTypes(t *testing.T) {
	standings := []*models.SeasonStanding{
		{ClassID: 7, EntityType: models.StandingCompetitor, EntityKey: "1001", TotalPoints: 10},
		{ClassID: 8, EntityType: models.StandingCompetitor, EntityKey: "1001", TotalPoints: 5},
		{ClassID: 7, EntityType: models.StandingTeam, EntityKey: "3", TotalPoints: 1},
	}

	rankStandings(standings)

	for _, st := range standings {
		if *st.Rank != 1 {
			t.Errorf("%s/%d rank = %d, want 1 in own group", st.EntityKey, st.ClassID, *st.Rank)
		}
	}
}

func TestClassLeaderboardUsesCache(t *testing.T) {
	standingRepo := &fakeStandingRepo{standings: []*models.SeasonStanding{
		{SeasonID: 1, ClassID: 7, EntityType: models.StandingCompetitor, EntityKey: "1001", TotalPoints: 50},
	}}
	svc := NewStandingsService(nil, newFakeSeasonRepo(), &fakeAwardRepo{}, standingRepo, newFakeClassRepo(), newFakeTeamRepo(), testLogger())

	first, err := svc.ClassLeaderboard(context.Background(), 1, 7)
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	second, err := svc.ClassLeaderboard(context.Background(), 1, 7)
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("leaderboard sizes = %d/%d, want 1/1", len(first), len(second))
	}
	if standingRepo.listCalls != 1 {
		t.Errorf("repository queried %d times, want 1 (second read cached)", standingRepo.listCalls)
	}
}

func TestCompetitorStatsAggregatesClasses(t *testing.T) {
	rank1, rank3 := 1, 3
	standingRepo := &fakeStandingRepo{standings: []*models.SeasonStanding{
		{SeasonID: 1, ClassID: 7, EntityType: models.StandingCompetitor, EntityKey: "1001", DisplayName: "Alice",
			TotalPoints: 50, EventsParticipated: 4, FirstPlaces: 2, Rank: &rank1},
		{SeasonID: 1, ClassID: 8, EntityType: models.StandingCompetitor, EntityKey: "1001", DisplayName: "Alice",
			TotalPoints: 20, EventsParticipated: 2, ThirdPlaces: 1, Rank: &rank3},
	}}
	classRepo := newFakeClassRepo(
		&models.CompetitionClass{ID: 7, Name: "Amateur 1000-1500W", Format: "SPL", SeasonID: 1},
		&models.CompetitionClass{ID: 8, Name: "Street Stock", Format: "SQL", SeasonID: 1},
	)
	svc := NewStandingsService(nil, newFakeSeasonRepo(), &fakeAwardRepo{}, standingRepo, classRepo, newFakeTeamRepo(), testLogger())

	stats, err := svc.CompetitorStats(context.Background(), 1, "1001")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalPoints != 70 || stats.EventsParticipated != 6 {
		t.Errorf("totals = %d points, %d events", stats.TotalPoints, stats.EventsParticipated)
	}
	if stats.Ranking != 1 {
		t.Errorf("ranking = %d, want best rank across classes", stats.Ranking)
	}
	if len(stats.ByClass) != 2 {
		t.Fatalf("class breakdown size = %d", len(stats.ByClass))
	}
}

func TestCompetitorStatsRejectsGuests(t *testing.T) {
	svc := NewStandingsService(nil, newFakeSeasonRepo(), &fakeAwardRepo{}, &fakeStandingRepo{}, newFakeClassRepo(), newFakeTeamRepo(), testLogger())

	if _, err := svc.CompetitorStats(context.Background(), 1, models.GuestMecaID); err == nil {
		t.Error("guest meca id should be rejected")
	}
}
