package services

import "errors"

var (
	ErrSeasonNotFound        = errors.New("season not found")
	ErrEventNotFound         = errors.New("event not found")
	ErrGroupNotFound         = errors.New("multi day group not found")
	ErrClassNotFound         = errors.New("competition class not found")
	ErrTeamNotFound          = errors.New("team not found")
	ErrQualificationNotFound = errors.New("qualification not found")
	ErrMappingNotFound       = errors.New("class name mapping not found")
	ErrMappingExists         = errors.New("class name mapping already exists")
	ErrClassUnmapped         = errors.New("class name has no active mapping")

	ErrInvalidScope      = errors.New("invalid recompute scope")
	ErrInvalidResults    = errors.New("invalid result entries")
	ErrInvalidSeasonData = errors.New("invalid season data")

	ErrInvalidToken = errors.New("invitation token invalid or already redeemed")

	ErrEmailNotConfigured = errors.New("email delivery is not configured")
	ErrArchiveFailed      = errors.New("season archive upload failed")
)
