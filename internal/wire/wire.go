// Package wire encodes operator requests and responses for transport
// between a device test harness and the reference kernels.
//
// Two formats carry the same messages: CBOR for harnesses that send bulk
// tensors, JSON for hand-written requests. Float16 data travels as its raw
// IEEE 754 binary16 bits in a []uint16.
package wire

import (
	"slices"

	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/born-ml/kernelref/internal/tensor"
)

// ErrMalformed is returned for messages that decode but do not describe a
// valid tensor, such as a data length that disagrees with the shape.
var ErrMalformed = errors.New("malformed message")

// Tensor is the transport form of a tensor.RawTensor. Data holds a typed
// slice matching DType: []float32, []float64, []int32, []int64, []bool, or
// []uint16 for float16.
type Tensor struct {
	DType string `cbor:"dtype" json:"dtype"`
	Shape []int  `cbor:"shape" json:"shape"`
	Data  any    `cbor:"data" json:"data"`
}

// Request asks for one operator run.
type Request struct {
	Op     string            `cbor:"op" json:"op"`
	Inputs map[string]Tensor `cbor:"inputs" json:"inputs"`
	Attrs  map[string]any    `cbor:"attrs,omitempty" json:"attrs,omitempty"`
}

// Response carries the outputs of a run, or the error that stopped it.
type Response struct {
	Outputs map[string]Tensor `cbor:"outputs,omitempty" json:"outputs,omitempty"`
	Error   string            `cbor:"error,omitempty" json:"error,omitempty"`
	Kind    string            `cbor:"kind,omitempty" json:"kind,omitempty"`
}

// FromRaw converts r to its transport form. The data is copied.
func FromRaw(r *tensor.RawTensor) Tensor {
	t := Tensor{DType: r.DType().String(), Shape: slices.Clone([]int(r.Shape()))}
	switch r.DType() {
	case tensor.Float16:
		src := r.AsFloat16()
		bits := make([]uint16, len(src))
		for i, v := range src {
			bits[i] = v.Bits()
		}
		t.Data = bits
	case tensor.Float32:
		t.Data = slices.Clone(r.AsFloat32())
	case tensor.Float64:
		t.Data = slices.Clone(r.AsFloat64())
	case tensor.Int32:
		t.Data = slices.Clone(r.AsInt32())
	case tensor.Int64:
		t.Data = slices.Clone(r.AsInt64())
	case tensor.Bool:
		t.Data = slices.Clone(r.AsBool())
	}
	return t
}

// Raw converts t back to a tensor. Data must be the slice type DType
// names and hold exactly as many elements as Shape.
func (t Tensor) Raw() (*tensor.RawTensor, error) {
	dt, err := tensor.ParseDataType(t.DType)
	if err != nil {
		return nil, err
	}
	shape := tensor.Shape(slices.Clone(t.Shape))
	if err := checkData(dt, t.Data, shape); err != nil {
		return nil, err
	}

	switch data := t.Data.(type) {
	case []uint16:
		values := make([]float16.Float16, len(data))
		for i, b := range data {
			values[i] = float16.Frombits(b)
		}
		return tensor.FromSlice(values, shape)
	case []float32:
		return tensor.FromSlice(data, shape)
	case []float64:
		return tensor.FromSlice(data, shape)
	case []int32:
		return tensor.FromSlice(data, shape)
	case []int64:
		return tensor.FromSlice(data, shape)
	case []bool:
		return tensor.FromSlice(data, shape)
	}
	return nil, errors.Wrapf(ErrMalformed, "data of type %T", t.Data)
}

// checkData verifies that data has the Go type dt travels as and that its
// length matches shape.
func checkData(dt tensor.DataType, data any, shape tensor.Shape) error {
	if err := shape.Validate(); err != nil {
		return errors.Wrapf(ErrMalformed, "%v", err)
	}
	var n int
	ok := false
	switch dt {
	case tensor.Float16:
		var v []uint16
		v, ok = data.([]uint16)
		n = len(v)
	case tensor.Float32:
		var v []float32
		v, ok = data.([]float32)
		n = len(v)
	case tensor.Float64:
		var v []float64
		v, ok = data.([]float64)
		n = len(v)
	case tensor.Int32:
		var v []int32
		v, ok = data.([]int32)
		n = len(v)
	case tensor.Int64:
		var v []int64
		v, ok = data.([]int64)
		n = len(v)
	case tensor.Bool:
		var v []bool
		v, ok = data.([]bool)
		n = len(v)
	}
	if !ok {
		return errors.Wrapf(ErrMalformed, "%s tensor with data of type %T", dt, data)
	}
	if n != shape.NumElements() {
		return errors.Wrapf(ErrMalformed, "%s tensor of shape %v has %d elements, want %d", dt, shape, n, shape.NumElements())
	}
	return nil
}

// decodeData decodes the data field of a tensor with the format's
// unmarshal function, into the slice type dtype travels as.
func decodeData(dtype string, shape []int, decode func(v any) error) (any, error) {
	dt, err := tensor.ParseDataType(dtype)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformed, "%v", err)
	}

	var data any
	switch dt {
	case tensor.Float16:
		var v []uint16
		err = decode(&v)
		data = v
	case tensor.Float32:
		var v []float32
		err = decode(&v)
		data = v
	case tensor.Float64:
		var v []float64
		err = decode(&v)
		data = v
	case tensor.Int32:
		var v []int32
		err = decode(&v)
		data = v
	case tensor.Int64:
		var v []int64
		err = decode(&v)
		data = v
	case tensor.Bool:
		var v []bool
		err = decode(&v)
		data = v
	}
	if err != nil {
		return nil, errors.Wrapf(ErrMalformed, "%s data: %v", dt, err)
	}
	if err := checkData(dt, data, tensor.Shape(shape)); err != nil {
		return nil, err
	}
	return data, nil
}

// RawInputs converts every request input to a tensor.
func (req *Request) RawInputs() (map[string]*tensor.RawTensor, error) {
	out := make(map[string]*tensor.RawTensor, len(req.Inputs))
	for name, t := range req.Inputs {
		raw, err := t.Raw()
		if err != nil {
			return nil, errors.WithMessagef(err, "input %q", name)
		}
		out[name] = raw
	}
	return out, nil
}

// NewResponse converts outputs to their transport form.
func NewResponse(outputs map[string]*tensor.RawTensor) *Response {
	resp := &Response{Outputs: make(map[string]Tensor, len(outputs))}
	for name, raw := range outputs {
		resp.Outputs[name] = FromRaw(raw)
	}
	return resp
}
