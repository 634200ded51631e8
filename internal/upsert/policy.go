package upsert

import "fmt"

// Policy governs what happens when a destination row with the same
// conflict-target values already exists.
type Policy int

const (
	// PolicySkip leaves existing rows untouched (ON CONFLICT DO NOTHING).
	PolicySkip Policy = iota
	// PolicyUpdate overwrites every non-conflict-target column with the
	// incoming value (full replace, not merge).
	PolicyUpdate
	// PolicyError aborts the batch on the first conflict; the whole
	// batch's writes are rolled back.
	PolicyError
)

// String returns the CLI-facing name of the policy.
func (p Policy) String() string {
	switch p {
	case PolicySkip:
		return "skip"
	case PolicyUpdate:
		return "update"
	case PolicyError:
		return "error"
	default:
		return "unknown"
	}
}

// ParsePolicy converts a CLI flag value to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "skip":
		return PolicySkip, nil
	case "update":
		return PolicyUpdate, nil
	case "error":
		return PolicyError, nil
	}
	return PolicySkip, fmt.Errorf("unknown conflict policy: %q (want skip, update, or error)", s)
}
