package gazelle

import "errors"

// Sentinel errors classifying site failures. Callers branch on these with
// errors.Is to decide whether a target is skippable or the whole run should
// stop.
var (
	// ErrRemoteUnavailable marks transport failures and server-side errors
	// that persisted through the retry budget.
	ErrRemoteUnavailable = errors.New("site unavailable")

	// ErrRemoteRejected marks requests the site refused, typically a bad API
	// key or a malformed query. Retrying will not help.
	ErrRemoteRejected = errors.New("site rejected request")

	// ErrRemoteNotFound marks a well-formed request for a resource that does
	// not exist, such as a deleted collage.
	ErrRemoteNotFound = errors.New("not found on site")
)
