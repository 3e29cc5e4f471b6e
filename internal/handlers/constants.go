package handlers

import "dailyprompt/internal/security"

const (
	ViewerQueryParam = "viewer"

	ErrInvalidDate         = "Invalid date, expected YYYY-MM-DD"
	ErrGroupNotFound       = "Group not found"
	ErrServiceUnavailable  = "Prompt store unavailable, try again shortly"
	ErrInternalServerError = "Internal server error"
	ErrNotReady            = "Service is starting up"
)

// Error codes returned in JSON error bodies
const (
	CodeInvalidDate   = "invalid_date"
	CodeInvalidID     = "invalid_id"
	CodeGroupNotFound = "group_not_found"
	CodeUnavailable   = "upstream_unavailable"
	CodeInternal      = "internal"
	CodeNotReady      = "not_ready"
	CodeRateLimited   = security.CodeRateLimited
)
