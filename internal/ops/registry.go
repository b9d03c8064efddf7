package ops

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// unknownOpLabel is the metrics label for runs of unregistered types, which
// keeps label cardinality bounded.
const unknownOpLabel = "unknown"

// Registry maps operator type names to operations and runs them.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	ops     map[string]Operation
	logger  zerolog.Logger
	metrics *Metrics
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger run events are written to.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithMetrics records every run in m.
func WithMetrics(m *Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// NewRegistry returns a registry holding the built-in operations bound to
// backend. Logging is disabled and nothing is measured unless options say
// otherwise.
func NewRegistry(backend Backend, opts ...Option) *Registry {
	r := &Registry{
		ops:    make(map[string]Operation),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, op := range Builtins(backend) {
		r.ops[op.Type()] = op
	}
	return r
}

// Register adds op. Registering a type twice fails with ErrDuplicateOp.
func (r *Registry) Register(op Operation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ops[op.Type()]; ok {
		return errors.Wrapf(ErrDuplicateOp, "%q", op.Type())
	}
	r.ops[op.Type()] = op
	return nil
}

// Lookup returns the operation registered as typ.
func (r *Registry) Lookup(typ string) (Operation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[typ]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownOp, "%q", typ)
	}
	return op, nil
}

// Types returns the registered type names in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.ops))
	for typ := range r.ops {
		types = append(types, typ)
	}
	slices.Sort(types)
	return types
}

// Run looks up typ and runs it on inputs and attrs. A canceled ctx fails
// before any kernel work starts.
func (r *Registry) Run(ctx context.Context, typ string, inputs Tensors, attrs Attrs) (Tensors, error) {
	start := time.Now()

	op, err := r.Lookup(typ)
	if err != nil {
		r.metrics.observe(unknownOpLabel, time.Since(start).Seconds(), err)
		r.logger.Debug().Err(err).Str("op", typ).Msg("Unknown operator")
		return nil, err
	}

	var out Tensors
	if err = ctx.Err(); err == nil {
		out, err = op.Run(ctx, inputs, attrs)
	}
	elapsed := time.Since(start)
	r.metrics.observe(typ, elapsed.Seconds(), err)

	if err != nil {
		r.logger.Debug().Err(err).Str("op", typ).Str("kind", Kind(err)).Dur("elapsed", elapsed).Msg("Operator failed")
		return nil, err
	}
	r.logger.Debug().Str("op", typ).Int("outputs", len(out)).Dur("elapsed", elapsed).Msg("Operator run")
	return out, nil
}
