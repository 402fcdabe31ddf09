package field

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBounds = Bounds{Upper: 2, Reset: 1}

func TestShape(t *testing.T) {
	s := Shape{2, 3, 4}
	assert.Equal(t, 24, s.NumElements())
	assert.Equal(t, []int{12, 4, 1}, s.ComputeStrides())
	assert.Equal(t, 1*12+2*4+3, s.Index(1, 2, 3))
	assert.True(t, s.Equal(Shape{2, 3, 4}))
	assert.False(t, s.Equal(Shape{2, 3}))

	c := s.Clone()
	c[0] = 9
	assert.Equal(t, 2, s[0], "Clone must not alias")

	assert.Error(t, Shape{}.Validate())
	assert.Error(t, Shape{2, 0, 1}.Validate())
	assert.Error(t, Shape{math.MaxInt/2 + 1, 2}.Validate())
	assert.Error(t, Shape{math.MaxInt, 2}.Validate())
	assert.NoError(t, Shape{math.MaxInt}.Validate())
	assert.Equal(t, 0, Shape{}.NumElements())
	assert.Panics(t, func() { s.Index(2, 0, 0) })
	assert.Panics(t, func() { s.Index(0, 0) })
}

func TestBoundsValidate(t *testing.T) {
	tests := []struct {
		name   string
		bounds Bounds
		ok     bool
	}{
		{"valid", Bounds{Upper: 2, Reset: 1}, true},
		{"reset at upper", Bounds{Upper: 2, Reset: 2}, true},
		{"zero upper", Bounds{Upper: 0, Reset: 0}, false},
		{"negative upper", Bounds{Upper: -1, Reset: 0}, false},
		{"reset above upper", Bounds{Upper: 2, Reset: 3}, false},
		{"negative reset", Bounds{Upper: 2, Reset: -1}, false},
		{"nan upper", Bounds{Upper: math.NaN(), Reset: 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bounds.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrInvalidBounds), "got %v", err)
			}
		})
	}
}

func TestNew(t *testing.T) {
	f, err := New(Shape{2, 2, 2}, nil, nil, testBounds)
	require.NoError(t, err)
	assert.Equal(t, 8, f.Len())
	assert.Equal(t, 8, f.ActiveCount())
	assert.Equal(t, make([]float64, 8), f.Values())

	_, err = New(Shape{2, 2, 2}, make([]float64, 7), nil, testBounds)
	assert.True(t, errors.Is(err, ErrShapeMismatch))

	_, err = New(Shape{2, 2, 2}, nil, make([]bool, 9), testBounds)
	assert.True(t, errors.Is(err, ErrShapeMismatch))

	_, err = New(Shape{2, 2, 2}, nil, nil, Bounds{Upper: 0})
	assert.True(t, errors.Is(err, ErrInvalidBounds))
}

func TestFull(t *testing.T) {
	f, err := Full(Shape{2, 3}, 1.5, testBounds)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 1.5, 1.5, 1.5, 1.5, 1.5}, f.Values())
	assert.Equal(t, 6, f.ActiveCount())

	for _, shape := range []Shape{{-1}, {}, {2, 0}, {math.MaxInt/2 + 1, 2}} {
		assert.NotPanics(t, func() {
			f, err := Full(shape, 1, testBounds)
			assert.Error(t, err, "shape %v", shape)
			assert.Nil(t, f)
		})
	}

	_, err = Full(Shape{2}, 1, Bounds{Upper: 2, Reset: 3})
	assert.True(t, errors.Is(err, ErrInvalidBounds))
}

func TestMaskIsCopied(t *testing.T) {
	mask := []bool{true, false, true, false}
	f, err := New(Shape{4}, nil, mask, testBounds)
	require.NoError(t, err)

	mask[1] = true
	assert.False(t, f.Active(1), "New must copy the mask")

	got := f.Mask()
	got[0] = false
	assert.True(t, f.Active(0), "Mask must return a copy")

	assert.Equal(t, []int{0, 2}, f.ActiveIndices())
	assert.Equal(t, 2, f.ActiveCount())

	require.NoError(t, f.SetMask([]bool{false, false, false, true}))
	assert.Equal(t, []int{3}, f.ActiveIndices())
	assert.True(t, errors.Is(f.SetMask([]bool{true}), ErrShapeMismatch))
}

func TestValuesAreLive(t *testing.T) {
	values := []float64{1, 2, 3}
	f, err := New(Shape{3}, values, nil, Bounds{Upper: 5, Reset: 1})
	require.NoError(t, err)

	f.Values()[1] = 4
	assert.Equal(t, 4.0, values[1])
}

func TestGatherAddAt(t *testing.T) {
	src := []float64{10, 20, 30, 40}
	idx := []int{1, 3}

	dst := make([]float64, 2)
	Gather(dst, src, idx)
	assert.Equal(t, []float64{20, 40}, dst)

	AddAt(src, []float64{1, -1}, idx)
	assert.Equal(t, []float64{10, 21, 30, 39}, src)
}

func TestProject(t *testing.T) {
	values := []float64{-3, 0, 1.5, 2, 2.0001, math.Inf(1), math.Inf(-1), math.NaN()}
	Project(values, testBounds)

	assert.Equal(t, []float64{0, 0, 1.5, 2, 1, 1, 0}, values[:7])
	assert.True(t, math.IsNaN(values[7]), "NaN must survive projection")
}

func TestClampLower(t *testing.T) {
	values := []float64{-1, 0.5, 100}
	ClampLower(values)
	assert.Equal(t, []float64{0, 0.5, 100}, values)
}

func TestCountNonFinite(t *testing.T) {
	assert.Equal(t, 0, CountNonFinite([]float64{0, 1, -1}))
	assert.Equal(t, 3, CountNonFinite([]float64{math.NaN(), 1, math.Inf(1), math.Inf(-1)}))
}
