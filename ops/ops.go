// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package ops dispatches named operators to the reference kernels.
//
// # Basic Usage
//
//	registry := ops.NewRegistry(cpu.New())
//	out, err := registry.Run(ctx, "masked_select", ops.Tensors{"X": x, "Mask": mask}, nil)
//	y := out["Y"]
//
// Operator names, input names and attribute names follow the host
// framework: masked_select, masked_select_grad, softmax_with_cross_entropy
// and softmax_with_cross_entropy_grad.
package ops

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/born-ml/kernelref/internal/ops"
)

// Registry maps operator type names to operations.
type Registry = ops.Registry

// Operation is one named kernel entry point.
type Operation = ops.Operation

// Backend is the kernel set the built-in operations dispatch to.
type Backend = ops.Backend

// Tensors maps input or output names to tensors.
type Tensors = ops.Tensors

// Attrs holds operator attributes by name.
type Attrs = ops.Attrs

// Option configures a Registry.
type Option = ops.Option

// Metrics counts and times operator runs.
type Metrics = ops.Metrics

// Dispatch errors.
var (
	ErrUnknownOp    = ops.ErrUnknownOp
	ErrMissingInput = ops.ErrMissingInput
	ErrInvalidAttr  = ops.ErrInvalidAttr
	ErrDuplicateOp  = ops.ErrDuplicateOp
)

// NewRegistry returns a registry holding the built-in operations.
func NewRegistry(backend Backend, opts ...Option) *Registry {
	return ops.NewRegistry(backend, opts...)
}

// NewMetrics registers the operator metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return ops.NewMetrics(reg)
}

// WithMetrics records every run in m.
func WithMetrics(m *Metrics) Option {
	return ops.WithMetrics(m)
}

// WithLogger sets the logger run events are written to.
func WithLogger(logger zerolog.Logger) Option {
	return ops.WithLogger(logger)
}

// Kind classifies err by the sentinel it wraps.
func Kind(err error) string {
	return ops.Kind(err)
}
