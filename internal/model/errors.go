package model

import "errors"

// Sentinel errors shared across the pipeline. Callers match with errors.Is
// after unwrapping whatever context the failing stage added.
var (
	// ErrInputEmpty is returned when a judgment has no usable text
	ErrInputEmpty = errors.New("judgment text is empty")

	// ErrClassificationUnresolved marks an appellate posture the classifier
	// could not determine. Non-fatal: affected records are held for review.
	ErrClassificationUnresolved = errors.New("appellate posture unresolved")

	// ErrCitationUnsupported is returned when no neutral citation can be parsed
	ErrCitationUnsupported = errors.New("citation format not recognized")

	// ErrQuantumUnparseable is returned when a sentence quantum cannot be read
	ErrQuantumUnparseable = errors.New("sentence quantum not parseable")

	// ErrValidationFailed marks a record that broke a structural invariant.
	// Non-fatal: the record persists in pending review status, never dropped.
	ErrValidationFailed = errors.New("record failed validation")

	// ErrCapabilityUnavailable is returned when record extraction has no usable backend
	ErrCapabilityUnavailable = errors.New("extraction backend unavailable")

	// ErrSessionBusy is returned when an analysis session is already running
	ErrSessionBusy = errors.New("analysis session already in progress")

	// ErrMissingIdentity is returned when a record lacks its identity fields
	ErrMissingIdentity = errors.New("record missing identity fields")

	// ErrRateLimited marks a citator response rejected for rate limiting
	ErrRateLimited = errors.New("rate limit reached")

	// ErrRobotsDisallowed is returned when robots.txt forbids fetching a URL
	ErrRobotsDisallowed = errors.New("fetch disallowed by robots.txt")
)
