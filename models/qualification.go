package models

import "time"

// QualificationRecord is evidence that a competitor met a season's class
// threshold, carrying the notification/invitation lifecycle. Unique on
// (season_id, meca_id, class_id); a competitor may hold one per class.
// Qualification is sticky: re-evaluation updates total_points but there is
// no revoke path.
type QualificationRecord struct {
	ID             int    `json:"id" db:"id"`
	SeasonID       int    `json:"season_id" db:"season_id"`
	MecaID         string `json:"meca_id" db:"meca_id"`
	CompetitorName string `json:"competitor_name" db:"competitor_name"`
	ClassID        int    `json:"class_id" db:"class_id"`
	ClassName      string `json:"class_name" db:"class_name"`

	TotalPoints int       `json:"total_points" db:"total_points"`
	QualifiedAt time.Time `json:"qualified_at" db:"qualified_at"`

	// Lifecycle flags are independently settable, each at most once.
	NotificationSent     bool       `json:"notification_sent" db:"notification_sent"`
	NotificationSentAt   *time.Time `json:"notification_sent_at,omitempty" db:"notification_sent_at"`
	EmailSent            bool       `json:"email_sent" db:"email_sent"`
	EmailSentAt          *time.Time `json:"email_sent_at,omitempty" db:"email_sent_at"`
	InvitationSent       bool       `json:"invitation_sent" db:"invitation_sent"`
	InvitationSentAt     *time.Time `json:"invitation_sent_at,omitempty" db:"invitation_sent_at"`
	InvitationToken      *string    `json:"-" db:"invitation_token"`
	InvitationRedeemed   bool       `json:"invitation_redeemed" db:"invitation_redeemed"`
	InvitationRedeemedAt *time.Time `json:"invitation_redeemed_at,omitempty" db:"invitation_redeemed_at"`
}

// QualificationStats is the admin dashboard summary for a season.
type QualificationStats struct {
	TotalQualifications     int                       `json:"total_qualifications"`
	UniqueCompetitors       int                       `json:"unique_competitors"`
	ClassesByQualifications []ClassQualificationCount `json:"classes_by_qualifications"`
	NotificationsSent       int                       `json:"notifications_sent"`
	EmailsSent              int                       `json:"emails_sent"`
	InvitationsSent         int                       `json:"invitations_sent"`
	InvitationsRedeemed     int                       `json:"invitations_redeemed"`
	QualificationThreshold  *int                      `json:"qualification_threshold"`
}

type ClassQualificationCount struct {
	ClassName string `json:"class_name"`
	Count     int    `json:"count"`
}
