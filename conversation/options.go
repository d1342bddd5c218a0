package conversation

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultCompletionTimeout bounds each completion call.
const DefaultCompletionTimeout = 60 * time.Second

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger for turn events. Default: zerolog.Nop().
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.log = l
	}
}

// WithCompletionTimeout sets the per-call completion deadline. 0 disables it.
func WithCompletionTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.completionTimeout = d
	}
}

// WithToolCallIDs sets the generator used for tool calls the provider returned without an id.
func WithToolCallIDs(next func() string) Option {
	return func(o *Orchestrator) {
		if next != nil {
			o.newID = next
		}
	}
}

func newCallID() string {
	return "call_" + uuid.NewString()
}
