// Package testutil provides test helpers for tooldesk (e.g. MockTool, ScriptedCompleter).
package testutil

import (
	"context"
	"sync"

	"github.com/skosovsky/tooldesk"
)

// MockTool is a configurable tool for tests. It records the arguments of every call.
type MockTool struct {
	NameVal   string
	DescVal   string
	ParamsVal []tooldesk.Param
	ResultVal string
	HandleFn  func(ctx context.Context, args tooldesk.Args) string

	mu    sync.Mutex
	calls []tooldesk.Args
}

// Name returns the tool name.
func (m *MockTool) Name() string {
	if m.NameVal != "" {
		return m.NameVal
	}
	return "mock"
}

// Spec returns the ToolSpec to register. The handler runs HandleFn if set, otherwise returns ResultVal.
func (m *MockTool) Spec() tooldesk.ToolSpec {
	return tooldesk.ToolSpec{
		Name:        m.Name(),
		Description: m.DescVal,
		Params:      m.ParamsVal,
		Handler:     m.handle,
	}
}

func (m *MockTool) handle(ctx context.Context, args tooldesk.Args) string {
	m.mu.Lock()
	m.calls = append(m.calls, args)
	m.mu.Unlock()
	if m.HandleFn != nil {
		return m.HandleFn(ctx, args)
	}
	return m.ResultVal
}

// Calls returns the arguments of every handler invocation so far.
func (m *MockTool) Calls() []tooldesk.Args {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]tooldesk.Args, len(m.calls))
	copy(out, m.calls)
	return out
}
