package executor

import "time"

// Result is the outcome of one script run: either a value or a Diagnostic.
type Result struct {
	// Value is the script's completion value exported to Go. It is nil for
	// undefined and when the run faulted.
	Value      any
	Diagnostic *Diagnostic
	Duration   time.Duration
}

// Err returns the Diagnostic as an error, or nil when the run succeeded.
func (r Result) Err() error {
	if r.Diagnostic == nil {
		return nil
	}
	return r.Diagnostic
}
