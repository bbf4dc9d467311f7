package services

import (
	"context"
	"errors"
	"math"
	"sort"
	"testing"

	"github.com/mecacaraudio/scoring-engine/models"
)

func newResultsFixture() (*ResultsService, *fakeClassRepo) {
	eventRepo := newFakeEventRepo(&models.Event{ID: 10, SeasonID: 1, Tier: models.TierStandard, Finalized: true})
	classRepo := newFakeClassRepo(&models.CompetitionClass{ID: 7, Name: "Amateur 1000-1500W"})
	classID := 7
	classRepo.mappings = append(classRepo.mappings, &models.ClassNameMapping{
		ID:            1,
		SourceName:    "AM 1000-1500",
		SourceSystem:  "termlab",
		TargetClassID: &classID,
		IsActive:      true,
	})
	svc := NewResultsService(nil, eventRepo, nil, classRepo, testLogger())
	return svc, classRepo
}

func TestIngestRejectsEmptyBatch(t *testing.T) {
	svc, _ := newResultsFixture()

	_, err := svc.Ingest(context.Background(), 10, "termlab", nil)
	if !errors.Is(err, ErrInvalidResults) {
		t.Fatalf("err = %v, want ErrInvalidResults", err)
	}
}

func TestIngestRejectsUnknownEvent(t *testing.T) {
	svc, _ := newResultsFixture()

	_, err := svc.Ingest(context.Background(), 99, "termlab", []RawResult{
		{ClassName: "AM 1000-1500", MecaID: "1001", CompetitorName: "Alice", Score: 148.2},
	})
	if !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("err = %v, want ErrEventNotFound", err)
	}
}

func TestIngestRejectsInvalidScores(t *testing.T) {
	svc, _ := newResultsFixture()

	for name, score := range map[string]float64{
		"negative": -1,
		"nan":      math.NaN(),
		"inf":      math.Inf(1),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Ingest(context.Background(), 10, "termlab", []RawResult{
				{ClassName: "AM 1000-1500", MecaID: "1001", CompetitorName: "Alice", Score: score},
			})
			if !errors.Is(err, ErrInvalidResults) {
				t.Fatalf("err = %v, want ErrInvalidResults", err)
			}
		})
	}
}

func TestIngestRejectsBlankClassLabel(t *testing.T) {
	svc, _ := newResultsFixture()

	_, err := svc.Ingest(context.Background(), 10, "termlab", []RawResult{
		{ClassName: "   ", MecaID: "1001", CompetitorName: "Alice", Score: 140},
	})
	if !errors.Is(err, ErrInvalidResults) {
		t.Fatalf("err = %v, want ErrInvalidResults", err)
	}
}

func TestIngestFailsBatchOnUnresolvedLabels(t *testing.T) {
	svc, classRepo := newResultsFixture()

	// Inactive mappings and mappings with no target both count as unresolved.
	classRepo.mappings = append(classRepo.mappings, &models.ClassNameMapping{
		ID:           2,
		SourceName:   "Street Stock",
		SourceSystem: "termlab",
		IsActive:     true,
	})

	summary, err := svc.Ingest(context.Background(), 10, "termlab", []RawResult{
		{ClassName: "AM 1000-1500", MecaID: "1001", CompetitorName: "Alice", Score: 148.2},
		{ClassName: "Street Stock", MecaID: "1002", CompetitorName: "Bob", Score: 144.1},
		{ClassName: "No Such Class", MecaID: "1003", CompetitorName: "Cara", Score: 139.9},
		{ClassName: "no such class", MecaID: "1004", CompetitorName: "Dan", Score: 131.0},
	})
	if !errors.Is(err, ErrClassUnmapped) {
		t.Fatalf("err = %v, want ErrClassUnmapped", err)
	}
	if summary == nil {
		t.Fatal("expected a summary carrying the unresolved labels")
	}
	if summary.Stored != 0 {
		t.Errorf("Stored = %d, want 0", summary.Stored)
	}

	sort.Strings(summary.UnresolvedLabels)
	want := []string{"no such class", "street stock"}
	if len(summary.UnresolvedLabels) != len(want) {
		t.Fatalf("unresolved labels = %v, want %v", summary.UnresolvedLabels, want)
	}
	for i, label := range want {
		if summary.UnresolvedLabels[i] != label {
			t.Errorf("unresolved[%d] = %q, want %q", i, summary.UnresolvedLabels[i], label)
		}
	}
}
