package catalog

// Outcome classifies a finished fetch.
type Outcome int

const (
	// Unavailable means the remote state is unknown: every attempt failed transiently.
	Unavailable Outcome = iota
	// Found means the catalog answered 200 with a body.
	Found
	// NotFound is an authoritative absence (404).
	NotFound
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	default:
		return "unavailable"
	}
}

// Result is the classified answer of a Fetch.
type Result struct {
	Outcome  Outcome
	Body     string
	Attempts int
	// Status is the HTTP status of the last attempt, 0 for transport failures.
	Status int
}

// attemptAction determines how a single attempt is handled.
type attemptAction int

const (
	actionRetry attemptAction = iota
	actionFound
	actionNotFound
)

// classifyStatus maps an HTTP status to the action for that attempt.
func classifyStatus(code int) attemptAction {
	switch code {
	case 200:
		return actionFound
	case 404:
		return actionNotFound
	default:
		return actionRetry
	}
}

func statusClass(code int) string {
	switch {
	case code == 0:
		return "transport"
	case code == 404:
		return "404"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "other"
	}
}
