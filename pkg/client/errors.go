package client

import "errors"

// Kind classifies client errors so callers can branch on failure mode
// without string matching.
type Kind string

const (
	// KindValidation means the input was rejected before any network call.
	KindValidation Kind = "validation"
	// KindAuthentication means no resolvable user identity was available.
	KindAuthentication Kind = "authentication"
	// KindSubmission means job creation was rejected or the response was malformed.
	KindSubmission Kind = "submission"
	// KindTransport means polling hit repeated consecutive network failures.
	KindTransport Kind = "transport"
	// KindTimeout means no terminal status arrived within the poll budget.
	KindTimeout Kind = "timeout"
	// KindBackend means the job itself failed with a server-supplied message.
	KindBackend Kind = "backend"
)

// Error is the single error type surfaced by this package: a human-readable
// message plus a machine-distinguishable kind.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// KindOf returns the Kind of err, or the empty Kind if err is not a
// client Error.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}
