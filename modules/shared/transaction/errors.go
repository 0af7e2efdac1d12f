package transaction

import "errors"

// ErrConflict marks a write that lost an optimistic concurrency race. The
// winning writer's outcome stands, so callers treat it as already applied.
var ErrConflict = errors.New("concurrent modification")
