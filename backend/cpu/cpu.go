// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/kernelref/internal/backend/cpu"
	"github.com/born-ml/kernelref/internal/parallel"
)

// Backend represents the CPU backend implementation.
//
// The CPU backend provides pure Go reference implementations of the
// masked_select and softmax_with_cross_entropy kernels.
type Backend = internalcpu.CPUBackend

// Option configures a Backend.
type Option = internalcpu.Option

// ParallelConfig controls how kernels split work across goroutines.
type ParallelConfig = parallel.Config

// CrossEntropyAttrs selects the label kind, class axis and ignore index of
// the cross-entropy kernels.
type CrossEntropyAttrs = internalcpu.CrossEntropyAttrs

// SoftmaxClipFloor is the lower bound applied to x - max(x) before
// exponentiating.
const SoftmaxClipFloor = internalcpu.SoftmaxClipFloor

// DefaultIgnoreIndex is the hard label value excluded from the loss by default.
const DefaultIgnoreIndex = internalcpu.DefaultIgnoreIndex

// New creates a new CPU backend.
//
// Example:
//
//	import (
//	    "github.com/born-ml/kernelref/backend/cpu"
//	    "github.com/born-ml/kernelref/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    sm, loss, err := backend.SoftmaxWithCrossEntropy(logits, label, cpu.DefaultCrossEntropyAttrs())
//	}
func New(opts ...Option) *Backend {
	return internalcpu.New(opts...)
}

// WithParallel sets the worker fan-out used by the kernels.
func WithParallel(cfg ParallelConfig) Option {
	return internalcpu.WithParallel(cfg)
}

// DefaultParallelConfig returns a fan-out sized to the CPU count.
func DefaultParallelConfig() ParallelConfig {
	return parallel.DefaultConfig()
}

// Sequential returns a configuration that never spawns goroutines.
func Sequential() ParallelConfig {
	return parallel.Sequential()
}

// DefaultCrossEntropyAttrs returns hard labels over the last axis with
// DefaultIgnoreIndex.
func DefaultCrossEntropyAttrs() CrossEntropyAttrs {
	return internalcpu.DefaultCrossEntropyAttrs()
}
