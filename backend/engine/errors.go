package engine

import "errors"

// ErrMissingContext means a slide write arrived without its
// presentation/lesson/course identifiers. This is a hard precondition
// violation: no partially-keyed row is written.
var ErrMissingContext = errors.New("engine: missing presentation/lesson/course context")
