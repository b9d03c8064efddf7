// Package numcheck compares kernel outputs against references and checks
// analytic gradients against finite differences.
package numcheck

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/born-ml/kernelref/internal/tensor"
)

// ErrNotClose is returned when two tensors differ beyond the tolerance.
var ErrNotClose = errors.New("values not close")

// RelativeErrorFloor is the magnitude below which MaxRelativeError measures
// absolute instead of relative error.
const RelativeErrorFloor = 1e-3

// AllClose reports whether actual and expected have the same shape and every
// element pair is within atol absolutely or rtol relatively. The error
// names the worst element.
func AllClose(actual, expected *tensor.RawTensor, atol, rtol float64) error {
	if !actual.Shape().Equal(expected.Shape()) {
		return errors.Wrapf(tensor.ErrShapeMismatch, "actual shape %v, expected %v", actual.Shape(), expected.Shape())
	}
	return AllCloseValues(actual.Float64s(), expected.Float64s(), atol, rtol)
}

// AllCloseValues is AllClose over flat float64 slices.
func AllCloseValues(actual, expected []float64, atol, rtol float64) error {
	if len(actual) != len(expected) {
		return errors.Wrapf(tensor.ErrShapeMismatch, "actual has %d values, expected %d", len(actual), len(expected))
	}
	worst, worstDiff := -1, 0.0
	for i := range actual {
		a, e := actual[i], expected[i]
		if math.IsNaN(a) && math.IsNaN(e) {
			continue
		}
		if scalar.EqualWithinAbsOrRel(a, e, atol, rtol) {
			continue
		}
		if diff := math.Abs(a - e); worst < 0 || diff > worstDiff || math.IsNaN(diff) {
			worst, worstDiff = i, diff
		}
	}
	if worst >= 0 {
		return errors.Wrapf(ErrNotClose, "index %d: got %g, want %g (atol %g, rtol %g)",
			worst, actual[worst], expected[worst], atol, rtol)
	}
	return nil
}

// MaxRelativeError returns the largest |numeric - analytic| / |numeric| and
// its index, where magnitudes below RelativeErrorFloor count as 1.
func MaxRelativeError(numeric, analytic []float64) (maxErr float64, at int) {
	at = -1
	for i := range numeric {
		scale := math.Abs(numeric[i])
		if scale < RelativeErrorFloor {
			scale = 1
		}
		if diff := math.Abs(numeric[i]-analytic[i]) / scale; at < 0 || diff > maxErr {
			maxErr, at = diff, i
		}
	}
	return maxErr, at
}

// CheckGrad fails when the analytic gradient deviates from the numeric one by
// more than maxRelativeError as measured by MaxRelativeError.
func CheckGrad(numeric []float64, analytic *tensor.RawTensor, maxRelativeError float64) error {
	got := analytic.Float64s()
	if len(got) != len(numeric) {
		return errors.Wrapf(tensor.ErrShapeMismatch, "analytic gradient has %d values, numeric %d", len(got), len(numeric))
	}
	maxErr, at := MaxRelativeError(numeric, got)
	if maxErr > maxRelativeError {
		return errors.Wrapf(ErrNotClose, "gradient index %d: numeric %g, analytic %g, relative error %g > %g",
			at, numeric[at], got[at], maxErr, maxRelativeError)
	}
	return nil
}

// NumericGrad estimates d mean(f(x)) / dx with central differences of
// step delta. x must be a float tensor; f must be deterministic.
func NumericGrad(f func(x *tensor.RawTensor) (*tensor.RawTensor, error), x *tensor.RawTensor, delta float64) ([]float64, error) {
	if !x.DType().IsFloat() {
		return nil, errors.Wrapf(tensor.ErrUnsupportedDType, "numeric gradient of %s input", x.DType())
	}
	values := x.Float64s()
	grad := make([]float64, len(values))

	objective := func(v []float64) (float64, error) {
		in, err := tensor.FromFloat64s(v, x.Shape(), x.DType())
		if err != nil {
			return 0, err
		}
		out, err := f(in)
		if err != nil {
			return 0, err
		}
		return mean(out.Float64s()), nil
	}

	for i, orig := range values {
		values[i] = orig + delta
		pos, err := objective(values)
		if err != nil {
			return nil, errors.WithMessagef(err, "numeric gradient at index %d", i)
		}
		values[i] = orig - delta
		neg, err := objective(values)
		if err != nil {
			return nil, errors.WithMessagef(err, "numeric gradient at index %d", i)
		}
		values[i] = orig
		grad[i] = (pos - neg) / (2 * delta)
	}
	return grad, nil
}

// MeanGrad returns the upstream gradient of mean(y) with respect to y: a
// tensor of the given shape filled with 1/numel.
func MeanGrad(shape tensor.Shape, dtype tensor.DataType) (*tensor.RawTensor, error) {
	n := shape.NumElements()
	values := make([]float64, n)
	for i := range values {
		values[i] = 1 / float64(n)
	}
	return tensor.FromFloat64s(values, shape, dtype)
}

// UniformMaskGrad is the approximate masked_select gradient used where no
// exact numeric check is possible (half precision): mask cast to dtype and
// scaled by 1 / count(mask). An all-false mask yields zeros.
func UniformMaskGrad(mask *tensor.RawTensor, dtype tensor.DataType) (*tensor.RawTensor, error) {
	if mask.DType() != tensor.Bool {
		return nil, errors.Wrapf(tensor.ErrUnsupportedDType, "mask dtype %s", mask.DType())
	}
	values := mask.Float64s()
	if count := floats.Sum(values); count > 0 {
		floats.Scale(1/count, values)
	}
	return tensor.FromFloat64s(values, mask.Shape(), dtype)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return floats.Sum(values) / float64(len(values))
}
