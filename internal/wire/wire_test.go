package wire

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"

	"github.com/born-ml/kernelref/internal/tensor"
)

func sampleTensors() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{
		"f16":    tensor.MustFromSlice([]float16.Float16{float16.Fromfloat32(0.5), float16.Fromfloat32(-2)}, tensor.Shape{2}),
		"f32":    tensor.MustFromSlice([]float32{1.5, -0.25, 3, 1e-7}, tensor.Shape{2, 2}),
		"f64":    tensor.MustFromSlice([]float64{0.1}, tensor.Shape{}),
		"i32":    tensor.MustFromSlice([]int32{-1, 7}, tensor.Shape{2, 1}),
		"i64":    tensor.MustFromSlice([]int64{1 << 40, -3, 0}, tensor.Shape{3}),
		"mask":   tensor.MustFromSlice([]bool{true, false}, tensor.Shape{1, 2}),
		"empty":  tensor.MustFromSlice([]float32{}, tensor.Shape{0}),
		"zero3d": tensor.MustFromSlice([]int64{}, tensor.Shape{2, 0, 3}),
	}
}

func TestRoundTrip(t *testing.T) {
	for _, f := range []Format{CBOR, JSON} {
		t.Run(string(f), func(t *testing.T) {
			inputs := sampleTensors()
			resp := NewResponse(inputs)

			var buf bytes.Buffer
			require.NoError(t, f.Encode(&buf, resp))

			var got Response
			require.NoError(t, f.Decode(&buf, &got))
			require.Len(t, got.Outputs, len(inputs))

			for name, want := range inputs {
				raw, err := got.Outputs[name].Raw()
				require.NoError(t, err, name)
				assert.Equal(t, want.DType(), raw.DType(), name)
				assert.True(t, want.Shape().Equal(raw.Shape()), "%s: shape %v, want %v", name, raw.Shape(), want.Shape())
				assert.Equal(t, want.Float64s(), raw.Float64s(), name)
			}
		})
	}
}

func TestDecodeRequest_JSON(t *testing.T) {
	body := `{
		"op": "softmax_with_cross_entropy",
		"inputs": {
			"Logits": {"dtype": "float32", "shape": [1, 3], "data": [1, 2, 3]},
			"Label": {"dtype": "int64", "shape": [1, 1], "data": [2]}
		},
		"attrs": {"axis": -1, "soft_label": false}
	}`
	req, err := DecodeRequest(JSON, strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, "softmax_with_cross_entropy", req.Op)
	assert.Equal(t, float64(-1), req.Attrs["axis"])
	assert.Equal(t, false, req.Attrs["soft_label"])

	inputs, err := req.RawInputs()
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, inputs["Logits"].AsFloat32())
	assert.Equal(t, []int64{2}, inputs["Label"].AsInt64())
}

func TestDecodeRequest_CBOR(t *testing.T) {
	req := Request{
		Op: "masked_select",
		Inputs: map[string]Tensor{
			"X":    FromRaw(tensor.MustFromSlice([]float64{1, 2, 3}, tensor.Shape{3})),
			"Mask": FromRaw(tensor.MustFromSlice([]bool{false, true, true}, tensor.Shape{3})),
		},
		Attrs: map[string]any{"axis": -2},
	}
	data, err := cbor.Marshal(req)
	require.NoError(t, err)

	got, err := DecodeRequest(CBOR, bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "masked_select", got.Op)
	assert.Equal(t, int64(-2), got.Attrs["axis"])

	inputs, err := got.RawInputs()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, inputs["X"].AsFloat64())
	assert.Equal(t, []bool{false, true, true}, inputs["Mask"].AsBool())
}

func TestDecodeRequest_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"op": `},
		{"missing op", `{"inputs": {}}`},
		{"unknown dtype", `{"op": "x", "inputs": {"X": {"dtype": "complex64", "shape": [1], "data": [1]}}}`},
		{"count mismatch", `{"op": "x", "inputs": {"X": {"dtype": "float32", "shape": [2, 2], "data": [1, 2, 3]}}}`},
		{"negative dim", `{"op": "x", "inputs": {"X": {"dtype": "float32", "shape": [-1], "data": []}}}`},
		{"wrong element type", `{"op": "x", "inputs": {"X": {"dtype": "bool", "shape": [1], "data": [1]}}}`},
		{"missing data", `{"op": "x", "inputs": {"X": {"dtype": "int32", "shape": [1]}}}`},
		{"element count wraps", `{"op": "x", "inputs": {"X": {"dtype": "float32", "shape": [4294967296, 4294967296], "data": []}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRequest(JSON, strings.NewReader(tt.body))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestTensorRaw_Validation(t *testing.T) {
	_, err := Tensor{DType: "float32", Shape: []int{2}, Data: []float64{1, 2}}.Raw()
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Tensor{DType: "int8", Shape: []int{1}, Data: []int32{1}}.Raw()
	assert.ErrorIs(t, err, tensor.ErrUnsupportedDType)

	_, err = Tensor{DType: "bool", Shape: []int{1 << 32, 1 << 32}, Data: []bool{}}.Raw()
	assert.ErrorIs(t, err, ErrMalformed)

	raw, err := Tensor{DType: "float16", Shape: []int{1}, Data: []uint16{0x3c00}}.Raw()
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, raw.Float64s())
}

func TestFormats(t *testing.T) {
	f, err := ParseFormat("cbor")
	require.NoError(t, err)
	assert.Equal(t, CBOR, f)
	_, err = ParseFormat("xml")
	assert.Error(t, err)

	assert.Equal(t, CBOR, FormatForContentType("application/cbor"))
	assert.Equal(t, JSON, FormatForContentType("application/json; charset=utf-8"))
	assert.Equal(t, JSON, FormatForContentType(""))
	assert.Equal(t, "application/cbor", CBOR.ContentType())
}
