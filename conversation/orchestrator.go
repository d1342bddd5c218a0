package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/skosovsky/tooldesk"
	"github.com/skosovsky/tooldesk/policy"
	"github.com/skosovsky/tooldesk/prompt"
)

// State is the position of a turn in the protocol.
type State int

const (
	StateAwaitingFirstResponse State = iota
	StateAwaitingToolResult
	StateDone
)

func (s State) String() string {
	switch s {
	case StateAwaitingFirstResponse:
		return "awaiting_first_response"
	case StateAwaitingToolResult:
		return "awaiting_tool_result"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Outcome is the result of one turn.
type Outcome struct {
	// Answer is the text shown to the user.
	Answer string
	// Messages is the full transcript, system prompt first. A rejected tool call is left out, so
	// every tool-call message is followed by its result.
	Messages []Message
	// Rounds is the number of completion calls made (1 or 2).
	Rounds int
	State  State
	// ToolResult is set when the model requested a tool.
	ToolResult *tooldesk.ToolResult
	// Failure is the dispatch error that ended the turn without a second round
	// (malformed arguments, unknown tool, invalid arguments).
	Failure error
}

// Orchestrator drives turns. It holds no per-turn state and is safe for concurrent use.
type Orchestrator struct {
	reg               *tooldesk.Registry
	composer          *prompt.Composer
	completer         Completer
	log               zerolog.Logger
	completionTimeout time.Duration
	newID             func() string
}

// New returns an Orchestrator over the given registry, composer and completion service.
func New(reg *tooldesk.Registry, composer *prompt.Composer, completer Completer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		reg:               reg,
		composer:          composer,
		completer:         completer,
		log:               zerolog.Nop(),
		completionTimeout: DefaultCompletionTimeout,
		newID:             newCallID,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run answers input under variant v. It returns a *CompletionError when either completion call
// fails; every dispatch problem with the model's tool call is reported in the Outcome instead.
func (o *Orchestrator) Run(ctx context.Context, input string, v policy.Variant) (*Outcome, error) {
	system, err := o.composer.Compose(v, o.reg.DescribeAll())
	if err != nil {
		return nil, err
	}
	out := &Outcome{
		Messages: []Message{SystemMessage(system), UserMessage(input)},
		State:    StateAwaitingFirstResponse,
	}
	log := o.log.With().Str("policy", v.ID).Logger()

	first, err := o.complete(ctx, 1, Request{
		Messages:   out.Messages,
		Tools:      o.reg.Declarations(),
		ToolChoice: ToolChoiceAuto,
	})
	out.Rounds = 1
	if err != nil {
		return nil, err
	}
	if len(first.ToolCalls) == 0 {
		return o.finish(out, first.Content), nil
	}
	if len(first.ToolCalls) > 1 {
		log.Warn().Int("count", len(first.ToolCalls)).Msg("model requested several tool calls, using the first")
	}

	call := first.ToolCalls[0]
	if call.ID == "" {
		call.ID = o.newID()
	}
	out.State = StateAwaitingToolResult
	log.Debug().Str("tool", call.Name).Str("call_id", call.ID).Str("args", call.Arguments).Msg("tool call")

	res := o.reg.Execute(ctx, tooldesk.ToolCall{
		ID:       call.ID,
		ToolName: call.Name,
		Args:     json.RawMessage(call.Arguments),
	})
	out.ToolResult = &res

	if answer, ok := rejectionAnswer(call.Name, res.Error); ok {
		log.Info().Err(res.Error).Str("tool", call.Name).Msg("tool call rejected")
		out.Failure = res.Error
		return o.finish(out, answer), nil
	}
	result, err := resultContent(call.Name, res)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("tool", call.Name).Dur("elapsed", res.Duration).Msg("tool result")
	out.Messages = append(out.Messages, ToolCallMessage(call), ToolResultMessage(call, result))

	second, err := o.complete(ctx, 2, Request{Messages: out.Messages})
	out.Rounds = 2
	if err != nil {
		return nil, err
	}
	if len(second.ToolCalls) > 0 {
		log.Warn().Int("count", len(second.ToolCalls)).Msg("tool calls in the final round ignored")
	}
	return o.finish(out, second.Content), nil
}

func (o *Orchestrator) finish(out *Outcome, answer string) *Outcome {
	out.Answer = answer
	out.Messages = append(out.Messages, AssistantMessage(answer))
	out.State = StateDone
	return out
}

func (o *Orchestrator) complete(ctx context.Context, round int, req Request) (Response, error) {
	if o.completionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.completionTimeout)
		defer cancel()
	}
	resp, err := o.completer.Complete(ctx, req)
	if err != nil {
		return Response{}, &CompletionError{Round: round, Err: err}
	}
	return resp, nil
}

// rejectionAnswer maps dispatch errors that end the turn to the answer shown to the user.
func rejectionAnswer(tool string, err error) (string, bool) {
	switch {
	case err == nil:
		return "", false
	case errors.Is(err, tooldesk.ErrMalformedArguments):
		return "I couldn't understand the tool arguments: " + tooldesk.ClientReason(err), true
	case errors.Is(err, tooldesk.ErrUnknownTool):
		return fmt.Sprintf("I tried to use a tool named %q, but no such tool is available.", tool), true
	case errors.Is(err, tooldesk.ErrArgumentValidation):
		return fmt.Sprintf("The arguments for %s were invalid: %s", tool, tooldesk.ClientReason(err)), true
	}
	return "", false
}

// resultContent turns an executed call into the text forwarded to the model. Timeouts and
// recovered panics are described to the model; any other error aborts the turn.
func resultContent(tool string, res tooldesk.ToolResult) (string, error) {
	switch {
	case res.Error == nil:
		return res.Result, nil
	case errors.Is(res.Error, tooldesk.ErrTimeout):
		return fmt.Sprintf("Tool %s timed out.", tool), nil
	case tooldesk.IsSystemError(res.Error):
		return fmt.Sprintf("Tool %s failed with an internal error.", tool), nil
	}
	return "", fmt.Errorf("execute %s: %w", tool, res.Error)
}
