package checkout

import (
	"errors"
	"fmt"
)

// ValidationError carries a message safe to surface verbatim to the
// customer. Everything else coming out of this package is a system
// error.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ErrRateLimited signals the resubmission cooldown; the transport maps
// it to 429 with retry guidance.
var ErrRateLimited = errors.New("request submitted recently, please wait before trying again")

// StepError reports an out-of-order step entry. It names the first
// incomplete step so the caller can redirect there instead of failing.
type StepError struct {
	Incomplete Step
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d must be completed first", e.Incomplete)
}
