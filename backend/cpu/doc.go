// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go reference kernels.
//
// # Overview
//
// This package implements:
//   - MaskedSelect and MaskedSelectGrad for every supported dtype
//   - Softmax along any axis, clipped at SoftmaxClipFloor
//   - CrossEntropy for soft and hard labels with an ignore index
//   - SoftmaxWithCrossEntropy (fused forward) and SoftmaxCrossEntropyGrad
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/kernelref/backend/cpu"
//	    "github.com/born-ml/kernelref/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    logits, _ := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{1, 3})
//	    label, _ := tensor.FromSlice([]int64{2}, tensor.Shape{1, 1})
//
//	    sm, loss, _ := backend.SoftmaxWithCrossEntropy(logits, label, cpu.DefaultCrossEntropyAttrs())
//	    grad, _ := backend.SoftmaxCrossEntropyGrad(sm, label, ones, cpu.DefaultCrossEntropyAttrs())
//	}
//
// # Parallelism
//
// Reduction slices and mask chunks are distributed across goroutines.
// Parallel and sequential execution produce identical results; use
// WithParallel(Sequential()) to disable fan-out.
//
// # Thread Safety
//
// The CPU backend is safe for concurrent use. Each kernel call allocates
// fresh outputs and does not share mutable state.
package cpu
