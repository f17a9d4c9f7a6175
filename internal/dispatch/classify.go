package dispatch

import "net/http"

// Outcome is the classification of a single delivery attempt. Every
// attempt lands in exactly one class.
type Outcome int

const (
	// OutcomeSuccess: 2xx, the receiver acknowledged.
	OutcomeSuccess Outcome = iota
	// OutcomeRetryable: the next attempt may succeed. Network errors,
	// timeouts, 5xx, 408 and 429.
	OutcomeRetryable
	// OutcomeTerminal: retrying will not help. Any other 4xx, plus 3xx
	// which means a misconfigured endpoint.
	OutcomeTerminal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	default:
		return "terminal"
	}
}

// Classify maps an attempt result onto an Outcome. A non-nil err means
// the request never produced a response (DNS, connect, timeout) and is
// always retryable.
func Classify(statusCode int, err error) Outcome {
	if err != nil {
		return OutcomeRetryable
	}

	switch {
	case statusCode >= 200 && statusCode < 300:
		return OutcomeSuccess
	case statusCode == http.StatusRequestTimeout, statusCode == http.StatusTooManyRequests:
		return OutcomeRetryable
	case statusCode >= 500:
		return OutcomeRetryable
	default:
		return OutcomeTerminal
	}
}
