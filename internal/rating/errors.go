package rating

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure surfaced by validation or a rating source.
type Kind string

const (
	KindAuth      Kind = "AUTH"
	KindRateLimit Kind = "RATE_LIMIT"
	KindStale     Kind = "STALE"
	KindParsing   Kind = "PARSING"
	KindBlocked   Kind = "BLOCKED"
	KindUnknown   Kind = "UNKNOWN"
)

// Failure is a typed rating failure. PARSING failures carry every individual
// message; STALE failures carry the computed age in days.
type Failure struct {
	Kind     Kind
	Message  string
	Messages []string
	AgeDays  int
	Err      error
}

func (f *Failure) Error() string {
	switch {
	case f.Message != "":
		return string(f.Kind) + ": " + f.Message
	case len(f.Messages) > 0:
		return string(f.Kind) + ": " + strings.Join(f.Messages, "; ")
	case f.Err != nil:
		return string(f.Kind) + ": " + f.Err.Error()
	default:
		return string(f.Kind)
	}
}

func (f *Failure) Unwrap() error { return f.Err }

// NewFailure builds a failure of the given kind.
func NewFailure(kind Kind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapFailure attaches a kind to an underlying error.
func WrapFailure(kind Kind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}

// KindOf returns the failure kind in err's chain, or UNKNOWN.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries a failure of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
