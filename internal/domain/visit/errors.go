package visit

import "errors"

var (
	ErrVisitNotFound = errors.New("visit not found")
	ErrVisitClosed   = errors.New("visit has already ended")
)
