package payment

import "errors"

var (
	// ErrReferenceConflict is returned when a reference has already been
	// consumed by an accepted request. The caller must abort the whole
	// acceptance transaction.
	ErrReferenceConflict = errors.New("payment reference already used")
)
