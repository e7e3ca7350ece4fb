package service

import "errors"

// Error taxonomy shared by the HTTP layer. Expected negative outcomes
// (denied, not found, invalid input) are sentinels so handlers can map
// them to status codes without string matching; only storage and
// upstream failures propagate as plain wrapped errors.
var (
	// ErrNotFound covers project/company/pledge lookups that legitimately
	// find no row.
	ErrNotFound = errors.New("not found")

	// ErrNotAuthenticated means the operation needs an acting user and
	// none was supplied.
	ErrNotAuthenticated = errors.New("authentication required")

	// ErrNotAuthorized means the acting user is known but the access
	// rules deny the operation.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrValidation covers rejected input: bad fields, end dates outside
	// the campaign window, mismatched pledge option and project.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTransition is a lifecycle change the state machine does
	// not permit.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrCampaignEnded rejects pledge creation after the end date.
	ErrCampaignEnded = errors.New("campaign ended")

	// ErrNotPledgeable rejects pledge creation against a project that is
	// not published.
	ErrNotPledgeable = errors.New("project is not available for pledges")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInviteUsed         = errors.New("invitation already used")
)
