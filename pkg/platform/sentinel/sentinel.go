package sentinel

import "errors"

// Stores return these (optionally wrapped); services translate them into
// domain errors. Validation failures belong in pkg/domain-errors instead.
var (
	// ErrNotFound: the user, resource, complaint or notification does not exist
	// (or is not visible to the caller).
	ErrNotFound = errors.New("not found")
	// ErrConflict: a unique key is already taken.
	ErrConflict = errors.New("conflict")
)
