package dto

import "errors"

var (
	// ErrNoFreshInput is returned by article selection when every article in
	// the lookback window has already fed a recommendation and the caller did
	// not request a forced re-analysis.
	ErrNoFreshInput = errors.New("no fresh articles available")

	// ErrUpstreamUnavailable is returned when a price or news collaborator
	// fails. The operation that hit it is abandoned without side effects.
	ErrUpstreamUnavailable = errors.New("upstream data source unavailable")

	// ErrInconsistentState signals that a recommendation was committed but the
	// usage marking of its articles did not fully apply. Requires an external
	// reconciliation pass.
	ErrInconsistentState = errors.New("recommendation committed with incomplete article usage marking")

	// ErrMissingField is returned when the analysis result lacks a required
	// field.
	ErrMissingField = errors.New("missing required field in analysis result")

	// ErrAlreadyValidated is returned when validation is requested for a
	// recommendation that already reached a terminal status.
	ErrAlreadyValidated = errors.New("recommendation already validated")
)

// ErrorResponse represents a generic error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}
