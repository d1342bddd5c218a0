package testutil

import (
	"time"

	"github.com/skosovsky/tooldesk"
)

// NewTestRegistry returns a Registry with long timeout and panic recovery enabled,
// suitable for tests. It panics if a spec cannot be registered.
func NewTestRegistry(specs ...tooldesk.ToolSpec) *tooldesk.Registry {
	reg := tooldesk.NewRegistry(
		tooldesk.WithDefaultTimeout(30*time.Second),
		tooldesk.WithRecoverPanics(true),
	)
	reg.MustRegister(specs...)
	return reg
}
