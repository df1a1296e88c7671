package fallback

// Result is the statically configured substitute returned when a remote call
// cannot be completed. Immutable for the process lifetime.
type Result struct {
	Operation string `json:"operation"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

// Policy maps logical operations to their fallback results. Lookups are pure
// and total: an unregistered operation yields the generic degraded result,
// never an error.
type Policy struct {
	results map[string]Result
	generic Result
}

func NewPolicy() *Policy {
	return &Policy{
		results: make(map[string]Result),
		generic: Result{
			Status:  "DEGRADED",
			Message: "remote service unavailable, request not completed",
		},
	}
}

// Register binds a fallback result to an operation. Intended for startup
// wiring only; the table is read-only afterwards.
func (p *Policy) Register(operation string, result Result) {
	result.Operation = operation
	p.results[operation] = result
}

func (p *Policy) For(operation string) Result {
	if result, ok := p.results[operation]; ok {
		return result
	}

	generic := p.generic
	generic.Operation = operation
	return generic
}
