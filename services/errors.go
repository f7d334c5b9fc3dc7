package services

import "errors"

// Shared errors used across services and the HTTP error mapping.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Validation and business-rule errors
	ErrInvalidSide        = errors.New("side must be home or away")
	ErrSwapSameSlot       = errors.New("cannot swap a slot with itself")
	ErrSlotLocked         = errors.New("slot is bracket-derived and cannot be edited directly")
	ErrMatchLocked        = errors.New("completed match cannot be edited")
	ErrInvalidMatchDate   = errors.New("match date is required")
	ErrInvalidStartTime   = errors.New("start time must be in HH:MM format")
	ErrNotEnoughQualified = errors.New("not enough qualified teams for the knockout bracket")
	ErrNoPlacementVenues  = errors.New("no venues available for placement matches")
	ErrCompletedTerminal  = errors.New("completed match cannot return to an earlier status")
	ErrScoreRequired      = errors.New("completing a match requires both scores")

	// In-flight guards
	ErrGenerationInFlight = errors.New("schedule generation already in progress")
	ErrReconcileInFlight  = errors.New("bracket reconciliation already in progress")

	// Entity-specific errors (more context than the generic ErrNotFound)
	ErrMatchNotFound      = errors.New("match not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrVenueNotFound      = errors.New("venue not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrFinalsVenueMissing = errors.New("no venue is flagged as the finals venue")

	// Export
	ErrUploadsDisabled = errors.New("report uploads are not configured")
)
