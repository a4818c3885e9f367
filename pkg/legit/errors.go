package legit

import "errors"

// ErrPanicked marks an outcome whose request handler panicked.
var ErrPanicked = errors.New("legit: request handler panicked")
