package attack

import "errors"

// ErrPanicked marks an outcome whose request handler panicked. The pool
// recovers the panic and the run carries on.
var ErrPanicked = errors.New("attack: request handler panicked")
