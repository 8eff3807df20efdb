package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrAttemptNotFound is returned when no attempt has the given id.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrForbidden is returned when the caller does not own the attempt.
	ErrForbidden = errors.New("you are not authorized to access this attempt")
	// ErrAttemptCompleted rejects a second submission.
	ErrAttemptCompleted = errors.New("attempt already submitted")
	// ErrPreconditionFailed is returned by stores when a conditional update
	// finds the attempt in an unexpected status.
	ErrPreconditionFailed = errors.New("attempt status precondition failed")
	// ErrInvalidInput marks malformed requests.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnavailable wraps failures of a backing store.
	ErrUnavailable = errors.New("backing store unavailable")
)

// Kind groups errors into stable contract categories.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindInvalid
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindInvalid:
		return "invalid"
	case KindUnavailable:
		return "unavailable"
	}
	return "unknown"
}

// KindOf classifies err. Unavailable wins over any wrapped cause.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrUnavailable):
		return KindUnavailable
	case errors.Is(err, ErrQuizNotFound), errors.Is(err, ErrAttemptNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrAttemptCompleted), errors.Is(err, ErrPreconditionFailed):
		return KindConflict
	case errors.Is(err, ErrInvalidInput):
		return KindInvalid
	}
	return KindUnknown
}
