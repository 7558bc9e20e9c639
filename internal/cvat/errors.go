package cvat

import "fmt"

// Kind classifies a failed request. The service itself only hands back an
// HTTP status and a message; the kind is derived so callers can tell auth
// problems from throttling without string matching.
type Kind string

const (
	KindAuth        Kind = "auth"         // 401, 403
	KindRateLimited Kind = "rate_limited" // 429
	KindValidation  Kind = "validation"   // other 4xx
	KindServer      Kind = "server"       // 5xx
	KindNetwork     Kind = "network"      // transport-level failure
)

// Error is a failed call to the annotation service.
type Error struct {
	Kind    Kind
	Status  int // zero for network errors
	Message string
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("cvat: %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("cvat: %s (HTTP %d): %s", e.Kind, e.Status, e.Message)
}

func kindForStatus(status int) Kind {
	switch {
	case status == 401 || status == 403:
		return KindAuth
	case status == 429:
		return KindRateLimited
	case status >= 500:
		return KindServer
	default:
		return KindValidation
	}
}
