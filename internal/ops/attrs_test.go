package ops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttrs_Int(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int
	}{
		{"go int", 3, 3},
		{"int32", int32(-2), -2},
		{"int64", int64(7), 7},
		{"cbor unsigned", uint64(5), 5},
		{"json number", float64(-1), -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Attrs{"axis": tt.value}.Int("axis", 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAttrs_IntRejects(t *testing.T) {
	for _, value := range []any{1.5, "1", true, uint64(1 << 63)} {
		_, err := Attrs{"axis": value}.Int("axis", 0)
		assert.ErrorIs(t, err, ErrInvalidAttr, "%T %v", value, value)
	}
}

func TestAttrs_Defaults(t *testing.T) {
	attrs := Attrs{"nil": nil}

	n, err := attrs.Int("missing", -1)
	require.NoError(t, err)
	assert.Equal(t, -1, n)

	b, err := attrs.Bool("nil", true)
	require.NoError(t, err)
	assert.True(t, b)

	_, err = Attrs{"soft_label": 1}.Bool("soft_label", false)
	assert.ErrorIs(t, err, ErrInvalidAttr)
}

func TestCrossEntropyAttrs(t *testing.T) {
	got, err := crossEntropyAttrs(nil)
	require.NoError(t, err)
	assert.False(t, got.SoftLabel)
	assert.Equal(t, -1, got.Axis)
	assert.Equal(t, int64(-1), got.IgnoreIndex)

	got, err = crossEntropyAttrs(Attrs{
		AttrSoftLabel:         true,
		AttrAxis:              float64(1),
		AttrIgnoreIndex:       uint64(100),
		AttrNumericStableMode: false,
	})
	require.NoError(t, err)
	assert.True(t, got.SoftLabel)
	assert.Equal(t, 1, got.Axis)
	assert.Equal(t, int64(100), got.IgnoreIndex)

	_, err = crossEntropyAttrs(Attrs{AttrNumericStableMode: "yes"})
	assert.ErrorIs(t, err, ErrInvalidAttr)
}
