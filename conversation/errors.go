package conversation

import (
	"errors"
	"fmt"
)

// ErrCompletion matches every CompletionError via errors.Is.
var ErrCompletion = errors.New("completion service error")

// CompletionError reports a failed completion call. Round is 1 for the call that offers tools
// and 2 for the call that carries the tool result.
type CompletionError struct {
	Round int
	Err   error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion round %d: %v", e.Round, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// Is reports target == ErrCompletion so callers need not know the underlying cause.
func (e *CompletionError) Is(target error) bool { return target == ErrCompletion }
