package testutil

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/skosovsky/tooldesk/conversation"
)

// Step is one scripted completion reply.
type Step struct {
	Response conversation.Response
	Err      error
	// Block makes the call wait for ctx to finish and return its error.
	Block bool
}

// Reply answers with text content.
func Reply(content string) Step {
	return Step{Response: conversation.Response{Content: content}}
}

// CallTool answers with a single tool call.
func CallTool(name, arguments string) Step {
	return Step{Response: conversation.Response{
		ToolCalls: []conversation.FunctionCall{{ID: "call_" + name, Name: name, Arguments: arguments}},
	}}
}

// Fail answers with err.
func Fail(err error) Step {
	return Step{Err: err}
}

// Hang blocks until the call's context is done.
func Hang() Step {
	return Step{Block: true}
}

// ScriptedCompleter replays Steps in order and records every request. Calls past the end of the
// script fail.
type ScriptedCompleter struct {
	mu       sync.Mutex
	steps    []Step
	requests []conversation.Request
}

// NewScriptedCompleter returns a completer that replies with steps in order.
func NewScriptedCompleter(steps ...Step) *ScriptedCompleter {
	return &ScriptedCompleter{steps: steps}
}

// Complete implements conversation.Completer.
func (s *ScriptedCompleter) Complete(ctx context.Context, req conversation.Request) (conversation.Response, error) {
	s.mu.Lock()
	req.Messages = slices.Clone(req.Messages)
	req.Tools = slices.Clone(req.Tools)
	s.requests = append(s.requests, req)
	n := len(s.requests)
	if n > len(s.steps) {
		s.mu.Unlock()
		return conversation.Response{}, fmt.Errorf("scripted completer: unexpected call %d", n)
	}
	step := s.steps[n-1]
	s.mu.Unlock()

	if step.Block {
		<-ctx.Done()
		return conversation.Response{}, ctx.Err()
	}
	return step.Response, step.Err
}

// Requests returns the recorded requests.
func (s *ScriptedCompleter) Requests() []conversation.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// Calls returns the number of Complete calls so far.
func (s *ScriptedCompleter) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}
