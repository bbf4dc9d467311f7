package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/mecacaraudio/scoring-engine/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(v int) *int { return &v }

func award(seasonID, classID int, mecaID, name string, placement, points int) *models.PointAward {
	return &models.PointAward{
		ScopeKind:      models.ScopeEvent,
		ScopeID:        1,
		SeasonID:       seasonID,
		ClassID:        classID,
		MecaID:         mecaID,
		CompetitorName: name,
		Placement:      placement,
		Points:         points,
	}
}

func newQualificationFixture(threshold *int, awards ...*models.PointAward) (*QualificationService, *fakeQualificationRepo, *recordingMailer) {
	seasonRepo := newFakeSeasonRepo(&models.Season{
		ID:                           1,
		Name:                         "2026 Season",
		Year:                         2026,
		QualificationPointsThreshold: threshold,
		IsCurrent:                    true,
	})
	awardRepo := &fakeAwardRepo{awards: awards}
	classRepo := newFakeClassRepo(&models.CompetitionClass{ID: 7, Name: "Amateur 1000-1500W", Format: "SPL", SeasonID: 1})
	qualRepo := newFakeQualificationRepo()
	mailer := &recordingMailer{}
	svc := NewQualificationService(seasonRepo, awardRepo, classRepo, qualRepo, mailer, testLogger())
	return svc, qualRepo, mailer
}

func TestRecomputeCreatesQualificationsAtThreshold(t *testing.T) {
	svc, qualRepo, _ := newQualificationFixture(intPtr(60),
		award(1, 7, "1001", "Alice", 1, 40),
		award(1, 7, "1001", "Alice", 1, 25),
		award(1, 7, "1002", "Bob", 2, 30),
	)

	summary, err := svc.Recompute(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.NewQualifications != 1 || summary.UpdatedQualifications != 0 {
		t.Fatalf("got %+v, want 1 new and 0 updated", summary)
	}

	record, err := qualRepo.GetByKey(context.Background(), nil, 1, "1001", 7)
	if err != nil {
		t.Fatalf("expected qualification for 1001: %v", err)
	}
	if record.TotalPoints != 65 {
		t.Errorf("total points = %d, want 65", record.TotalPoints)
	}
	if record.ClassName != "Amateur 1000-1500W" {
		t.Errorf("class name = %q", record.ClassName)
	}

	if _, err = qualRepo.GetByKey(context.Background(), nil, 1, "1002", 7); err == nil {
		t.Error("competitor below threshold should not qualify")
	}
}

func TestRecomputeIsIdempotent(t *testing.T) {
	svc, _, _ := newQualificationFixture(intPtr(50),
		award(1, 7, "1001", "Alice", 1, 60),
	)

	if _, err := svc.Recompute(context.Background(), 1); err != nil {
		t.Fatalf("first recompute: %v", err)
	}
	summary, err := svc.Recompute(context.Background(), 1)
	if err != nil {
		t.Fatalf("second recompute: %v", err)
	}
	if summary.NewQualifications != 0 || summary.UpdatedQualifications != 0 {
		t.Errorf("repeat recompute changed records: %+v", summary)
	}
}

func TestQualificationIsSticky(t *testing.T) {
	awards := []*models.PointAward{award(1, 7, "1001", "Alice", 1, 80)}
	svc, qualRepo, _ := newQualificationFixture(intPtr(60), awards...)

	if _, err := svc.Recompute(context.Background(), 1); err != nil {
		t.Fatalf("first recompute: %v", err)
	}

	// A correction drops the competitor below the threshold.
	awards[0].Points = 40
	summary, err := svc.Recompute(context.Background(), 1)
	if err != nil {
		t.Fatalf("second recompute: %v", err)
	}
	if summary.UpdatedQualifications != 1 {
		t.Fatalf("expected total refresh, got %+v", summary)
	}

	record, err := qualRepo.GetByKey(context.Background(), nil, 1, "1001", 7)
	if err != nil {
		t.Fatalf("qualification should survive the drop: %v", err)
	}
	if record.TotalPoints != 40 {
		t.Errorf("total points = %d, want 40", record.TotalPoints)
	}
}

func TestRecomputeExcludesGuests(t *testing.T) {
	svc, qualRepo, _ := newQualificationFixture(intPtr(10),
		award(1, 7, models.GuestMecaID, "Guest A", 1, 100),
		award(1, 7, models.GuestMecaIDZero, "Guest B", 2, 100),
		award(1, 7, "", "No ID", 3, 100),
	)

	summary, err := svc.Recompute(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.NewQualifications != 0 {
		t.Errorf("guests must not qualify, got %+v", summary)
	}
	records, _ := qualRepo.ListBySeason(context.Background(), 1)
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestRecomputeQualifiesAtExactThreshold(t *testing.T) {
	svc, qualRepo, _ := newQualificationFixture(intPtr(60),
		award(1, 7, "1001", "Alice", 1, 60),
		award(1, 7, "1002", "Bob", 2, 59),
	)

	summary, err := svc.Recompute(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.NewQualifications != 1 {
		t.Fatalf("got %+v, want exactly the at-threshold competitor", summary)
	}
	if _, err = qualRepo.GetByKey(context.Background(), nil, 1, "1001", 7); err != nil {
		t.Errorf("total equal to the threshold should qualify: %v", err)
	}
	if _, err = qualRepo.GetByKey(context.Background(), nil, 1, "1002", 7); err == nil {
		t.Error("one point under the threshold should not qualify")
	}
}

func TestRecomputeWithoutThresholdIsNoOp(t *testing.T) {
	svc, qualRepo, mailer := newQualificationFixture(nil, award(1, 7, "1001", "Alice", 1, 100))

	summary, err := svc.Recompute(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.NewQualifications != 0 || summary.UpdatedQualifications != 0 {
		t.Fatalf("got %+v, want an empty summary", summary)
	}
	records, _ := qualRepo.ListBySeason(context.Background(), 1)
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
	if len(mailer.notices) != 0 {
		t.Errorf("expected no notices, got %d", len(mailer.notices))
	}
}

func TestCheckAndUpdateWithoutThresholdIsNoOp(t *testing.T) {
	svc, qualRepo, _ := newQualificationFixture(nil, award(1, 7, "1001", "Alice", 1, 100))

	qualified, err := svc.CheckAndUpdate(context.Background(), 1, "1001", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if qualified {
		t.Error("no threshold means nobody auto-qualifies")
	}
	records, _ := qualRepo.ListBySeason(context.Background(), 1)
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestRecomputeNotifiesNewQualifiers(t *testing.T) {
	svc, qualRepo, mailer := newQualificationFixture(intPtr(50),
		award(1, 7, "1001", "Alice", 1, 60),
		award(1, 7, "1002", "Bob", 2, 55),
	)
	mailer.failFor = map[string]bool{"1002": true}

	summary, err := svc.Recompute(context.Background(), 1)
	if err != nil {
		t.Fatalf("a failed notice must not abort the pass: %v", err)
	}
	if summary.NewQualifications != 2 {
		t.Fatalf("got %+v, want 2 new", summary)
	}
	if len(mailer.notices) != 1 {
		t.Fatalf("notices sent = %d, want 1", len(mailer.notices))
	}

	alice, err := qualRepo.GetByKey(context.Background(), nil, 1, "1001", 7)
	if err != nil {
		t.Fatalf("expected qualification for 1001: %v", err)
	}
	if !alice.NotificationSent {
		t.Error("delivered notice not recorded")
	}
	bob, err := qualRepo.GetByKey(context.Background(), nil, 1, "1002", 7)
	if err != nil {
		t.Fatalf("expected qualification for 1002: %v", err)
	}
	if bob.NotificationSent {
		t.Error("failed notice must not be recorded as sent")
	}

	// A later pass with nothing new sends nothing further here.
	mailer.failFor = nil
	if _, err = svc.Recompute(context.Background(), 1); err != nil {
		t.Fatalf("second recompute: %v", err)
	}
	if len(mailer.notices) != 1 {
		t.Errorf("repeat recompute re-sent notices, total = %d", len(mailer.notices))
	}
}

func TestSendInvitationIsIdempotent(t *testing.T) {
	svc, _, mailer := newQualificationFixture(intPtr(50), award(1, 7, "1001", "Alice", 1, 60))
	if _, err := svc.Recompute(context.Background(), 1); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	first, err := svc.SendInvitation(context.Background(), 1)
	if err != nil {
		t.Fatalf("first send: %v", err)
	}
	if !first.InvitationSent || first.InvitationToken == nil {
		t.Fatalf("invitation not marked sent: %+v", first)
	}

	second, err := svc.SendInvitation(context.Background(), 1)
	if err != nil {
		t.Fatalf("second send: %v", err)
	}
	if *second.InvitationToken != *first.InvitationToken {
		t.Error("repeat send must not rotate the token")
	}
	if len(mailer.invitations) != 1 {
		t.Errorf("emails sent = %d, want 1", len(mailer.invitations))
	}
}

func TestSendAllPendingInvitations(t *testing.T) {
	svc, _, mailer := newQualificationFixture(intPtr(50),
		award(1, 7, "1001", "Alice", 1, 60),
		award(1, 7, "1002", "Bob", 2, 55),
	)
	if _, err := svc.Recompute(context.Background(), 1); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	summary, err := svc.SendAllPendingInvitations(context.Background(), 1)
	if err != nil {
		t.Fatalf("send-all: %v", err)
	}
	if summary.Sent != 2 || summary.Failed != 0 {
		t.Fatalf("got %+v, want 2 sent", summary)
	}
	if len(mailer.invitations) != 2 {
		t.Errorf("emails sent = %d, want 2", len(mailer.invitations))
	}

	// Everyone already invited, so a second batch is a no-op.
	summary, err = svc.SendAllPendingInvitations(context.Background(), 1)
	if err != nil {
		t.Fatalf("second send-all: %v", err)
	}
	if summary.Sent != 0 {
		t.Errorf("repeat batch sent %d invitations", summary.Sent)
	}
}

func TestSendAllPendingInvitationsToleratesFailures(t *testing.T) {
	svc, _, mailer := newQualificationFixture(intPtr(50),
		award(1, 7, "1001", "Alice", 1, 60),
		award(1, 7, "1002", "Bob", 2, 55),
		award(1, 7, "1003", "Cara", 3, 70),
	)
	if _, err := svc.Recompute(context.Background(), 1); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	mailer.invitations = nil
	mailer.failFor = map[string]bool{"1002": true}

	summary, err := svc.SendAllPendingInvitations(context.Background(), 1)
	if err != nil {
		t.Fatalf("one failed send must not abort the batch: %v", err)
	}
	if summary.Sent != 2 || summary.Failed != 1 {
		t.Fatalf("got %+v, want 2 sent and 1 failed", summary)
	}
	if len(summary.Errors) != 1 {
		t.Errorf("errors reported = %d, want 1", len(summary.Errors))
	}
	if len(mailer.invitations) != 2 {
		t.Errorf("emails delivered = %d, want 2", len(mailer.invitations))
	}
}

func TestRedeemInvitationExactlyOnce(t *testing.T) {
	svc, _, _ := newQualificationFixture(intPtr(50), award(1, 7, "1001", "Alice", 1, 60))
	if _, err := svc.Recompute(context.Background(), 1); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	sent, err := svc.SendInvitation(context.Background(), 1)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	redeemed, err := svc.RedeemInvitation(context.Background(), *sent.InvitationToken)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if !redeemed.InvitationRedeemed {
		t.Error("record not marked redeemed")
	}

	if _, err = svc.RedeemInvitation(context.Background(), *sent.InvitationToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("second redeem: got %v, want ErrInvalidToken", err)
	}
	if _, err = svc.RedeemInvitation(context.Background(), "bogus"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("unknown token: got %v, want ErrInvalidToken", err)
	}
	if _, err = svc.RedeemInvitation(context.Background(), ""); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("empty token: got %v, want ErrInvalidToken", err)
	}
}

func TestStatsSummarizeLifecycle(t *testing.T) {
	svc, _, _ := newQualificationFixture(intPtr(50),
		award(1, 7, "1001", "Alice", 1, 60),
		award(1, 7, "1002", "Bob", 2, 55),
	)
	if _, err := svc.Recompute(context.Background(), 1); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if _, err := svc.SendInvitation(context.Background(), 1); err != nil {
		t.Fatalf("send: %v", err)
	}

	stats, err := svc.Stats(context.Background(), 1)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalQualifications != 2 || stats.UniqueCompetitors != 2 {
		t.Errorf("totals = %d/%d, want 2/2", stats.TotalQualifications, stats.UniqueCompetitors)
	}
	if stats.InvitationsSent != 1 || stats.InvitationsRedeemed != 0 {
		t.Errorf("lifecycle counts = %d sent, %d redeemed", stats.InvitationsSent, stats.InvitationsRedeemed)
	}
	if stats.QualificationThreshold == nil || *stats.QualificationThreshold != 50 {
		t.Errorf("threshold = %v", stats.QualificationThreshold)
	}
	if len(stats.ClassesByQualifications) != 1 || stats.ClassesByQualifications[0].Count != 2 {
		t.Errorf("class breakdown = %+v", stats.ClassesByQualifications)
	}
}
