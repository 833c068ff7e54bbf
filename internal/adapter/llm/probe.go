package llm

// Availability is the typed result of probing an optional backend's
// preconditions at startup.
type Availability struct {
	Available bool
	Reason    string // why the backend is unavailable; empty when available
}

// Prober is implemented by backends whose registration depends on an
// optional credential or external dependency. Backends without a Probe
// method are registered unconditionally. A failed probe skips registration
// and is logged at debug level; it never aborts initialization.
type Prober interface {
	Probe() Availability
}
