// Package tools implements the closed tool catalogue the model can call:
// the six domain calculators plus profile, history, and location helpers.
// Every call is schema-validated and normalised before the handler runs.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/stevechen1112/aetheria/internal/observability"
)

// defaultTimeout bounds a single handler execution.
const defaultTimeout = 15 * time.Second

// TurnContext carries the per-turn values a handler may need. UserID is
// always taken from here, never from model-supplied arguments.
type TurnContext struct {
	UserID    string
	SessionID string
}

// Handler executes one tool call. Args have been validated and normalised.
type Handler func(ctx context.Context, args map[string]any, tc TurnContext) (any, error)

// Descriptor declares one tool: its schema document plus the handler.
type Descriptor struct {
	Name        string
	Description string
	// Parameters is the JSON schema for the arguments, as given to the
	// model verbatim.
	Parameters json.RawMessage
	// InjectUserID makes the registry overwrite args["userId"] with the
	// turn's user before validation.
	InjectUserID bool
	Handler      Handler
}

type registered struct {
	Descriptor
	schema *jsonschema.Schema
}

// Registry is the catalogue. Safe for concurrent Invoke.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]*registered
	disabled map[string]bool
	timeout  time.Duration
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// Option configures a Registry.
type Option func(*Registry)

// WithTimeout overrides the per-call handler timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Registry) { r.timeout = d }
}

// WithDisabled removes tools by name from the catalogue without
// unregistering them.
func WithDisabled(names []string) Option {
	return func(r *Registry) {
		for _, name := range names {
			r.disabled[name] = true
		}
	}
}

// WithObservability attaches logging and metrics.
func WithObservability(logger *observability.Logger, metrics *observability.Metrics) Option {
	return func(r *Registry) {
		r.logger = logger
		r.metrics = metrics
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		tools:    make(map[string]*registered),
		disabled: make(map[string]bool),
		timeout:  defaultTimeout,
		logger:   observability.NewNopLogger(),
		metrics:  observability.NewNopMetrics(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register compiles the descriptor's schema and adds it to the catalogue.
func (r *Registry) Register(d Descriptor) error {
	if d.Name == "" || d.Handler == nil {
		return fmt.Errorf("tool descriptor incomplete")
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(d.Name+".json", jsonBytesReader(d.Parameters)); err != nil {
		return fmt.Errorf("failed to load schema for %s: %w", d.Name, err)
	}
	schema, err := compiler.Compile(d.Name + ".json")
	if err != nil {
		return fmt.Errorf("failed to compile schema for %s: %w", d.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[d.Name]; exists {
		return fmt.Errorf("tool %s already registered", d.Name)
	}
	r.tools[d.Name] = &registered{Descriptor: d, schema: schema}
	return nil
}

// MustRegister panics on registration failure. Used for the static
// catalogue built at startup.
func (r *Registry) MustRegister(d Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// List returns the enabled descriptors sorted by name.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Descriptor, 0, len(r.tools))
	for name, tool := range r.tools {
		if r.disabled[name] {
			continue
		}
		result = append(result, tool.Descriptor)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Invoke validates, normalises, and executes one call. Validation failures
// come back as typed errors meant to be fed to the model as tool results.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any, tc TurnContext) (result any, err error) {
	r.mu.RLock()
	tool, ok := r.tools[name]
	disabled := r.disabled[name]
	r.mu.RUnlock()
	if !ok || disabled {
		return nil, &UnknownToolError{Name: name}
	}

	if args == nil {
		args = map[string]any{}
	}
	if tool.InjectUserID {
		args["userId"] = tc.UserID
	}
	normalizeArgs(args)

	if err := tool.schema.Validate(args); err != nil {
		r.metrics.ToolInvocations.WithLabelValues(name, "validation_error").Inc()
		return nil, classifyValidation(name, err)
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error(ctx, "tool handler panicked", "tool", name, "panic", rec)
			r.metrics.ToolInvocations.WithLabelValues(name, "execution_error").Inc()
			result = nil
			err = &ToolExecutionError{Name: name, Reason: fmt.Sprintf("handler crashed: %v", rec)}
		}
	}()

	result, err = tool.Handler(ctx, args, tc)
	outcome := "ok"
	if err != nil {
		outcome = "execution_error"
		err = &ToolExecutionError{Name: name, Reason: err.Error()}
	}
	r.metrics.ToolInvocations.WithLabelValues(name, outcome).Inc()
	r.logger.Debug(ctx, "tool invoked", "tool", name, "outcome", outcome,
		"duration_ms", time.Since(start).Milliseconds())
	return result, err
}
