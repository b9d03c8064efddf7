// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the dense tensors the reference kernels consume
// and produce.
//
// # Overview
//
// A RawTensor is an immutable, row-major array with a Shape and a DataType.
// This package provides:
//   - Constructors that copy caller data (FromSlice, NewRaw, FromFloat64s)
//   - Typed views (AsFloat32, AsInt64, AsBool, ...)
//   - Shape helpers for axis normalization and (outer, axis, inner) splits
//   - Sentinel errors shared by every kernel
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
//	    x, _ := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{4})
//	    mask, _ := tensor.FromSlice([]bool{true, false, true, false}, tensor.Shape{4})
//
//	    y, _ := backend.MaskedSelect(x, mask) // [1, 3]
//	}
//
// # Supported Data Types
//
//   - float16 (github.com/x448/float16), float32, float64
//   - int32, int64 (hard labels)
//   - bool (masks)
//
// Float16 kernels compute in float32 and round the result back.
//
// # Errors
//
// Kernels wrap ErrShapeMismatch, ErrIndexOutOfRange, ErrInvalidAxis and
// ErrUnsupportedDType with context. Match them with errors.Is.
package tensor
