package ops

import (
	"math"

	"github.com/pkg/errors"
)

// Attrs holds operator attributes by name. Values come either from Go
// callers or from decoded CBOR/JSON, so numeric getters accept every
// integer representation those decoders produce.
type Attrs map[string]any

// Bool returns the boolean attribute name, or def when it is absent.
func (a Attrs) Bool(name string, def bool) (bool, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, errors.Wrapf(ErrInvalidAttr, "%q: want bool, got %T", name, v)
	}
	return b, nil
}

// Int64 returns the integer attribute name, or def when it is absent.
// Integral float64 values (JSON numbers) are accepted.
func (a Attrs) Int64(name string, def int64) (int64, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, errors.Wrapf(ErrInvalidAttr, "%q: %d overflows int64", name, n)
		}
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, errors.Wrapf(ErrInvalidAttr, "%q: %v is not an integer", name, n)
		}
		return int64(n), nil
	default:
		return 0, errors.Wrapf(ErrInvalidAttr, "%q: want integer, got %T", name, v)
	}
}

// Int is Int64 narrowed to int.
func (a Attrs) Int(name string, def int) (int, error) {
	n, err := a.Int64(name, int64(def))
	if err != nil {
		return 0, err
	}
	if n < math.MinInt || n > math.MaxInt {
		return 0, errors.Wrapf(ErrInvalidAttr, "%q: %d overflows int", name, n)
	}
	return int(n), nil
}
