package tooldesk

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func raw(s string) json.RawMessage { return []byte(s) }

// echoSpec declares value/from_unit/to_unit and echoes its arguments.
func echoSpec(name string) ToolSpec {
	return ToolSpec{
		Name:        name,
		Description: "Echo " + name,
		Params: []Param{
			{Name: "value", Type: ParamNumber, Description: "The numeric value.", Required: true},
			{Name: "from_unit", Type: ParamString, Description: "Source unit.", Required: true},
			{Name: "to_unit", Type: ParamString, Description: "Target unit.", Required: true},
		},
		Handler: func(_ context.Context, a Args) string {
			return a.String("from_unit") + "->" + a.String("to_unit")
		},
	}
}

func TestRegistry_Register_Execute(t *testing.T) {
	reg := NewRegistry(WithDefaultTimeout(time.Second), WithRecoverPanics(true))
	require.NoError(t, reg.Register(echoSpec("echo")))
	require.Equal(t, 1, reg.Len())
	res := reg.Execute(context.Background(), ToolCall{
		ID: "1", ToolName: "echo", Args: raw(`{"value": 7, "from_unit": "miles", "to_unit": "km"}`),
	})
	require.NoError(t, res.Error)
	assert.Equal(t, "1", res.CallID)
	assert.Equal(t, "echo", res.ToolName)
	assert.Equal(t, "miles->km", res.Result)
}

func TestRegistry_Register_Duplicate(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(echoSpec("echo")))
	err := reg.Register(echoSpec("echo"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateTool)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_Register_Invalid(t *testing.T) {
	noop := func(context.Context, Args) string { return "" }
	tests := []struct {
		name string
		spec ToolSpec
	}{
		{"empty name", ToolSpec{Handler: noop}},
		{"nil handler", ToolSpec{Name: "x"}},
		{"unsupported type", ToolSpec{Name: "x", Handler: noop, Params: []Param{{Name: "flag", Type: "boolean"}}}},
		{"duplicate param", ToolSpec{Name: "x", Handler: noop, Params: []Param{
			{Name: "a", Type: ParamString}, {Name: "a", Type: ParamNumber},
		}}},
		{"unnamed param", ToolSpec{Name: "x", Handler: noop, Params: []Param{{Type: ParamString}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRegistry().Register(tt.spec)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidTool)
		})
	}
}

func TestRegistry_DescribeAll_InsertionOrder(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, reg.Register(echoSpec(name)))
	}
	all := reg.DescribeAll()
	require.Len(t, all, 3)
	assert.Equal(t, "zeta", all[0].Name)
	assert.Equal(t, "alpha", all[1].Name)
	assert.Equal(t, "mid", all[2].Name)

	decls := reg.Declarations()
	require.Len(t, decls, 3)
	for i, d := range decls {
		assert.Equal(t, all[i].Name, d.Name)
		assert.Equal(t, all[i].Description, d.Description)
	}
}

func TestRegistry_DescribeAll_ReturnsCopies(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(echoSpec("echo")))
	all := reg.DescribeAll()
	all[0].Params[0].Name = "mutated"
	all[0].Description = "mutated"

	got, err := reg.Lookup("echo")
	require.NoError(t, err)
	assert.Equal(t, "value", got.Params[0].Name)
	assert.Equal(t, "Echo echo", got.Description)
}

func TestRegistry_Lookup(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(echoSpec("echo")))
	got, err := reg.Lookup("echo")
	require.NoError(t, err)
	assert.Equal(t, "echo", got.Name)
	assert.Equal(t, "echo(value: number, from_unit: string, to_unit: string)", got.Signature())

	_, err = reg.Lookup("missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownTool)
	assert.True(t, IsClientError(err))
}

func TestRegistry_Declarations_Schema(t *testing.T) {
	reg := NewRegistry()
	spec := echoSpec("echo")
	spec.Params = append(spec.Params, Param{Name: "precision", Type: ParamNumber, Description: "Decimals."})
	require.NoError(t, reg.Register(spec))

	decls := reg.Declarations()
	require.Len(t, decls, 1)
	assert.JSONEq(t, `{
		"type": "object",
		"properties": {
			"value": {"type": "number", "description": "The numeric value."},
			"from_unit": {"type": "string", "description": "Source unit."},
			"to_unit": {"type": "string", "description": "Target unit."},
			"precision": {"type": "number", "description": "Decimals."}
		},
		"required": ["value", "from_unit", "to_unit"],
		"additionalProperties": false
	}`, string(decls[0].Parameters))

	// properties keep declaration order and the bytes are stable across calls
	s := string(decls[0].Parameters)
	assert.Less(t, strings.Index(s, `"value"`), strings.Index(s, `"from_unit"`))
	assert.Less(t, strings.Index(s, `"from_unit"`), strings.Index(s, `"to_unit"`))
	assert.Equal(t, decls[0].Parameters, reg.Declarations()[0].Parameters)
}

func TestRegistry_Execute_MalformedArguments(t *testing.T) {
	var called atomic.Int32
	spec := echoSpec("echo")
	spec.Handler = func(context.Context, Args) string {
		called.Add(1)
		return ""
	}
	reg := NewRegistry()
	require.NoError(t, reg.Register(spec))
	for _, payload := range []string{`{not json`, `[1, 2]`, `"text"`, `null`} {
		t.Run(payload, func(t *testing.T) {
			res := reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "echo", Args: raw(payload)})
			require.Error(t, res.Error)
			assert.ErrorIs(t, res.Error, ErrMalformedArguments)
			assert.True(t, IsClientError(res.Error))
		})
	}
	assert.Zero(t, called.Load())
}

func TestRegistry_Execute_UnknownTool(t *testing.T) {
	reg := NewRegistry()
	res := reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "missing", Args: raw("{}")})
	require.Error(t, res.Error)
	assert.ErrorIs(t, res.Error, ErrUnknownTool)
	assert.Contains(t, ClientReason(res.Error), `"missing"`)
}

func TestRegistry_Execute_ParseBeforeResolve(t *testing.T) {
	reg := NewRegistry()
	res := reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "missing", Args: raw("{oops")})
	assert.ErrorIs(t, res.Error, ErrMalformedArguments)
	assert.NotErrorIs(t, res.Error, ErrUnknownTool)
}

func TestRegistry_Execute_ArgumentValidation(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(echoSpec("echo")))
	tests := []struct {
		name    string
		payload string
	}{
		{"missing required", `{"value": 1, "from_unit": "miles"}`},
		{"wrong type", `{"value": "ten", "from_unit": "miles", "to_unit": "km"}`},
		{"unknown key", `{"value": 1, "from_unit": "miles", "to_unit": "km", "extra": true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "echo", Args: raw(tt.payload)})
			require.Error(t, res.Error)
			assert.ErrorIs(t, res.Error, ErrArgumentValidation)
			assert.NotEmpty(t, ClientReason(res.Error))
			assert.Empty(t, res.Result)
		})
	}
}

func TestRegistry_Execute_CheckRejects(t *testing.T) {
	spec := echoSpec("echo")
	spec.Check = func(a Args) error {
		if a.Number("value") < 0 {
			return errors.New("value must not be negative")
		}
		return nil
	}
	reg := NewRegistry()
	require.NoError(t, reg.Register(spec))
	res := reg.Execute(context.Background(), ToolCall{ToolName: "echo", Args: raw(`{"value": -1, "from_unit": "a", "to_unit": "b"}`)})
	require.ErrorIs(t, res.Error, ErrArgumentValidation)
	assert.Equal(t, "value must not be negative", ClientReason(res.Error))
}

func TestRegistry_Execute_EmptyPayload(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(ToolSpec{
		Name:    "now",
		Handler: func(context.Context, Args) string { return "noon" },
	}))
	for _, payload := range []string{"", "  ", "{}"} {
		res := reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "now", Args: raw(payload)})
		require.NoError(t, res.Error)
		assert.Equal(t, "noon", res.Result)
	}
}

func TestRegistry_Validate(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(echoSpec("echo")))
	args, err := reg.Validate("echo", raw(`{"value": 2.5, "from_unit": "kg", "to_unit": "lb"}`))
	require.NoError(t, err)
	assert.InDelta(t, 2.5, args.Number("value"), 1e-9)
	assert.Equal(t, "kg", args.String("from_unit"))

	_, err = reg.Validate("nope", raw(`{}`))
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestRegistry_Execute_PanicRecovery(t *testing.T) {
	reg := NewRegistry(WithRecoverPanics(true))
	require.NoError(t, reg.Register(ToolSpec{
		Name:    "panic",
		Handler: func(context.Context, Args) string { panic("oops") },
	}))
	res := reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "panic", Args: raw(`{}`)})
	require.Error(t, res.Error)
	var se *SystemError
	require.ErrorAs(t, res.Error, &se)
	assert.Contains(t, se.Err.Error(), "oops")
}

func TestRegistry_Execute_Timeout(t *testing.T) {
	reg := NewRegistry(WithDefaultTimeout(20 * time.Millisecond))
	require.NoError(t, reg.Register(ToolSpec{
		Name: "slow",
		Handler: func(ctx context.Context, _ Args) string {
			<-ctx.Done()
			return "gave up: " + ctx.Err().Error()
		},
	}))
	res := reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "slow", Args: raw(`{}`)})
	require.Error(t, res.Error)
	assert.ErrorIs(t, res.Error, ErrTimeout)
	assert.GreaterOrEqual(t, res.Duration, 20*time.Millisecond)
}

func TestRegistry_Execute_PerToolTimeoutOverridesDefault(t *testing.T) {
	reg := NewRegistry(WithDefaultTimeout(time.Millisecond))
	require.NoError(t, reg.Register(ToolSpec{
		Name:    "patient",
		Timeout: time.Second,
		Handler: func(ctx context.Context, _ Args) string {
			select {
			case <-time.After(20 * time.Millisecond):
				return "done"
			case <-ctx.Done():
				return "cancelled"
			}
		},
	}))
	res := reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "patient", Args: raw(`{}`)})
	require.NoError(t, res.Error)
	assert.Equal(t, "done", res.Result)
}

func TestRegistry_Hooks(t *testing.T) {
	var before, after atomic.Int32
	var lastErr atomic.Value
	reg := NewRegistry(
		WithOnBeforeExecute(func(context.Context, ToolCall) { before.Add(1) }),
		WithOnAfterExecute(func(_ context.Context, _ ToolCall, res ToolResult) {
			after.Add(1)
			lastErr.Store(res.Error != nil)
		}),
	)
	require.NoError(t, reg.Register(echoSpec("echo")))
	reg.Execute(context.Background(), ToolCall{ToolName: "echo", Args: raw(`{"value":1,"from_unit":"a","to_unit":"b"}`)})
	assert.Equal(t, int32(1), before.Load())
	assert.Equal(t, int32(1), after.Load())
	assert.Equal(t, false, lastErr.Load())

	// rejected calls skip the handler but still reach the after hook
	reg.Execute(context.Background(), ToolCall{ToolName: "missing", Args: raw(`{}`)})
	assert.Equal(t, int32(1), before.Load())
	assert.Equal(t, int32(2), after.Load())
	assert.Equal(t, true, lastErr.Load())
}

func TestRegistry_MaxConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	reg := NewRegistry(WithMaxConcurrency(1), WithDefaultTimeout(time.Second))
	require.NoError(t, reg.Register(ToolSpec{
		Name: "busy",
		Handler: func(context.Context, Args) string {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
			return "ok"
		},
	}))
	var wg sync.WaitGroup
	for range 4 {
		wg.Go(func() {
			res := reg.Execute(context.Background(), ToolCall{ToolName: "busy", Args: raw(`{}`)})
			assert.NoError(t, res.Error)
		})
	}
	wg.Wait()
	assert.Equal(t, int32(1), peak.Load())
}

func TestRegistry_Shutdown(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(echoSpec("echo")))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, reg.Shutdown(ctx))
	require.NoError(t, reg.Shutdown(ctx), "second shutdown is a no-op")

	res := reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "echo", Args: raw("{}")})
	assert.ErrorIs(t, res.Error, ErrShutdown)
	assert.ErrorIs(t, reg.Register(echoSpec("late")), ErrShutdown)
}

func TestRegistry_Shutdown_InFlight(t *testing.T) {
	started := make(chan struct{})
	done := make(chan struct{})
	reg := NewRegistry(WithDefaultTimeout(5 * time.Second))
	require.NoError(t, reg.Register(ToolSpec{
		Name: "slow",
		Handler: func(context.Context, Args) string {
			close(started)
			time.Sleep(50 * time.Millisecond)
			close(done)
			return ""
		},
	}))
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "slow", Args: raw(`{}`)})
	}()
	<-started
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, reg.Shutdown(ctx))
	select {
	case <-done:
	default:
		t.Fatal("Shutdown returned before in-flight execution finished")
	}
	<-finished
}
