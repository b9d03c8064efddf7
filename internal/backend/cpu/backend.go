// Package cpu implements the reference kernels on CPU in pure Go.
package cpu

import (
	"github.com/born-ml/kernelref/internal/parallel"
)

// CPUBackend computes reference results for the masked_select and
// softmax_with_cross_entropy kernels. It holds only immutable configuration
// and is safe for concurrent use.
type CPUBackend struct {
	cfg parallel.Config
}

// Option configures a CPUBackend.
type Option func(*CPUBackend)

// WithParallel sets the worker fan-out used by the kernels.
func WithParallel(cfg parallel.Config) Option {
	return func(cpu *CPUBackend) {
		cpu.cfg = cfg
	}
}

// New creates a new CPU backend. Without options it parallelizes with
// parallel.DefaultConfig.
func New(opts ...Option) *CPUBackend {
	cpu := &CPUBackend{cfg: parallel.DefaultConfig()}
	for _, opt := range opts {
		opt(cpu)
	}
	return cpu
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Parallel returns the worker configuration.
func (cpu *CPUBackend) Parallel() parallel.Config {
	return cpu.cfg
}
