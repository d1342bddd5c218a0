package tooldesk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/huandu/go-clone"
	validator "github.com/santhosh-tekuri/jsonschema/v6"
)

// Registry maps tool names to specs and executes model tool calls with validation, timeout,
// semaphore, and optional panic recovery. Tools are kept in registration order.
type Registry struct {
	entries     map[string]*entry
	order       []string
	sem         chan struct{}
	opts        registryOptions
	done        chan struct{}
	running     sync.WaitGroup
	mu          sync.Mutex
	middlewares []Middleware
}

type entry struct {
	raw        ToolSpec // as registered, used by Use() to re-apply middlewares from scratch
	spec       ToolSpec // wrapped with middlewares, used by Execute
	parameters json.RawMessage
	validator  *validator.Schema
}

// NewRegistry creates a Registry with the given options.
func NewRegistry(opts ...RegistryOption) *Registry {
	o := registryOptions{
		timeout:        10 * time.Second,
		maxConcurrency: 10,
		recoverPanics:  true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	var sem chan struct{}
	if o.maxConcurrency > 0 {
		sem = make(chan struct{}, o.maxConcurrency)
	}
	return &Registry{
		entries: make(map[string]*entry),
		sem:     sem,
		opts:    o,
		done:    make(chan struct{}),
	}
}

// Register adds a tool. Stored middlewares (see Use) are applied before registration.
// It fails with ErrDuplicateTool if the name is taken and ErrInvalidTool if the spec
// cannot be described to a model. Safe for concurrent use with Execute.
func (r *Registry) Register(spec ToolSpec) error {
	if err := checkSpec(spec); err != nil {
		return err
	}
	params, err := marshalParameters(spec.Params)
	if err != nil {
		return fmt.Errorf("%w: tool %q: %w", ErrInvalidTool, spec.Name, err)
	}
	compiled, err := compileSchema(params)
	if err != nil {
		return fmt.Errorf("%w: tool %q: compile schema: %w", ErrInvalidTool, spec.Name, err)
	}
	raw := clone.Clone(spec).(ToolSpec)

	r.mu.Lock()
	defer r.mu.Unlock()
	select {
	case <-r.done:
		return ErrShutdown
	default:
	}
	if _, ok := r.entries[spec.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateTool, spec.Name)
	}
	r.entries[spec.Name] = &entry{
		raw:        raw,
		spec:       applyMiddlewares(raw, r.middlewares),
		parameters: params,
		validator:  compiled,
	}
	r.order = append(r.order, spec.Name)
	return nil
}

// MustRegister registers every spec and panics on the first error. For start-up wiring.
func (r *Registry) MustRegister(specs ...ToolSpec) {
	for _, s := range specs {
		if err := r.Register(s); err != nil {
			panic("tooldesk: " + err.Error())
		}
	}
}

// Lookup returns the tool with the given name (after middlewares are applied).
// It fails with a ClientError wrapping ErrUnknownTool if the name is not registered.
func (r *Registry) Lookup(name string) (ToolSpec, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return ToolSpec{}, unknownToolError(name)
	}
	return clone.Clone(e.spec).(ToolSpec), nil
}

// DescribeAll returns copies of all registered tools in registration order.
func (r *Registry) DescribeAll() []ToolSpec {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, clone.Clone(r.entries[name].spec).(ToolSpec))
	}
	return out
}

// Declarations returns the model-facing declarations of all tools in registration order.
func (r *Registry) Declarations() []Declaration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Declaration, 0, len(r.order))
	for _, name := range r.order {
		e := r.entries[name]
		out = append(out, Declaration{
			Name:        e.spec.Name,
			Description: e.spec.Description,
			Parameters:  bytes.Clone(e.parameters),
		})
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// Validate runs the dispatch checks for a call without invoking the handler: the payload must be
// a JSON object (ErrMalformedArguments), the tool must exist (ErrUnknownTool), and the arguments
// must satisfy the schema and the tool's Check (ErrArgumentValidation).
func (r *Registry) Validate(name string, rawArgs json.RawMessage) (Args, error) {
	args, _, err := r.prepare(name, rawArgs)
	return args, err
}

// prepare returns the parsed arguments and a snapshot of the spec taken under the lock, so a
// concurrent Use cannot swap the handler mid-call.
func (r *Registry) prepare(name string, rawArgs json.RawMessage) (Args, ToolSpec, error) {
	raw, args, err := parseArgs(rawArgs)
	if err != nil {
		return nil, ToolSpec{}, err
	}
	r.mu.Lock()
	e, ok := r.entries[name]
	var spec ToolSpec
	if ok {
		spec = e.spec
	}
	r.mu.Unlock()
	if !ok {
		return nil, ToolSpec{}, unknownToolError(name)
	}
	if err := validateAgainstSchema(e.validator, raw); err != nil {
		return nil, ToolSpec{}, err
	}
	if spec.Check != nil {
		if err := spec.Check(args); err != nil {
			if IsClientError(err) {
				return nil, ToolSpec{}, err
			}
			return nil, ToolSpec{}, &ClientError{Reason: err.Error(), Err: ErrArgumentValidation}
		}
	}
	return args, spec, nil
}

// parseArgs decodes the payload as a JSON object. An empty payload means no arguments.
func parseArgs(rawArgs json.RawMessage) ([]byte, Args, error) {
	raw := bytes.TrimSpace(rawArgs)
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	var args Args
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, nil, wrapJSONParseError(err)
	}
	if args == nil {
		return nil, nil, wrapJSONParseError(errors.New("arguments must be a JSON object"))
	}
	return raw, args, nil
}

// Execute runs one tool call: parse, resolve, validate, then invoke the handler under the
// effective timeout. The returned ToolResult always names the call; Error is a ClientError for
// rejected calls, a SystemError for recovered panics and wraps ErrTimeout when the deadline expired.
// The after-execution hook (WithOnAfterExecute) is always invoked via defer.
func (r *Registry) Execute(ctx context.Context, call ToolCall) (res ToolResult) {
	res.CallID = call.ID
	res.ToolName = call.ToolName
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		if r.opts.onAfter != nil {
			r.opts.onAfter(ctx, call, res)
		}
	}()

	r.mu.Lock()
	select {
	case <-r.done:
		r.mu.Unlock()
		res.Error = ErrShutdown
		return res
	default:
	}
	r.running.Add(1)
	r.mu.Unlock()
	defer r.running.Done()

	args, spec, err := r.prepare(call.ToolName, call.Args)
	if err != nil {
		res.Error = err
		return res
	}

	timeout := r.opts.timeout
	if spec.Timeout > 0 {
		timeout = spec.Timeout
	}
	execCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := r.acquireSemaphore(execCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			res.Error = fmt.Errorf("%w after %s", ErrTimeout, timeout)
			return res
		}
		res.Error = err
		return res
	}
	defer r.releaseSemaphore()

	if r.opts.onBefore != nil {
		r.opts.onBefore(ctx, call)
	}
	res.Result, res.Error = r.invoke(execCtx, spec.Handler, args)
	if res.Error == nil && errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		res.Error = fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
	return res
}

func (r *Registry) invoke(ctx context.Context, h Handler, args Args) (out string, err error) {
	if r.opts.recoverPanics {
		defer func() {
			if p := recover(); p != nil {
				out = ""
				err = &SystemError{Err: &panicError{p: p}}
			}
		}()
	}
	return h(ctx, args), nil
}

func (r *Registry) acquireSemaphore(ctx context.Context) error {
	if r.sem == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	select {
	case r.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Registry) releaseSemaphore() {
	if r.sem != nil {
		<-r.sem
	}
}

// Shutdown closes the registry for new calls and registrations and waits for in-flight
// executions or ctx to cancel.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	select {
	case <-r.done:
		r.mu.Unlock()
		return nil
	default:
		close(r.done)
	}
	r.mu.Unlock()
	done := make(chan struct{})
	go func() {
		r.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// panicError wraps a recovered panic value for SystemError.
type panicError struct{ p any }

func (e *panicError) Error() string {
	return "panic: " + fmt.Sprint(e.p)
}
