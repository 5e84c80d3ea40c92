package executor

// Language describes a script dialect layered on the engine.
// Implement this interface to ship a different standard prelude.
type Language interface {
	// Name returns a unique identifier for this language (e.g., "javascript").
	Name() string

	// Prelude returns source evaluated in every environment before user
	// scripts run. It may define globals in terms of host, keydb and require.
	Prelude() string
}
