package mdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatIndexLabel(t *testing.T) {
	label, err := FlatIndexLabel(5, []int{2, 3})
	require.NoError(t, err)
	assert.Equal(t, "[1][2]", label)

	label, err = FlatIndexLabel(0, []int{2, 3})
	require.NoError(t, err)
	assert.Equal(t, "[0][0]", label)

	_, err = FlatIndexLabel(6, []int{2, 3})
	assert.Error(t, err)
	_, err = FlatIndexLabel(-1, []int{2, 3})
	assert.Error(t, err)
}

func TestUnflattenIndex_RoundTrip(t *testing.T) {
	for _, dims := range [][]int{{4}, {2, 3}, {3, 1, 4}, {2, 2, 2, 2}} {
		seen := map[string]bool{}
		for flat := 0; flat < ElementCount(dims); flat++ {
			idx, err := UnflattenIndex(flat, dims)
			require.NoError(t, err)

			label := IndexLabel(idx)
			assert.False(t, seen[label], "duplicate tuple %s for dims %v", label, dims)
			seen[label] = true

			back, err := FlattenIndex(idx, dims)
			require.NoError(t, err)
			assert.Equal(t, flat, back)
		}
		assert.Len(t, seen, ElementCount(dims))
	}
}

func TestFlattenIndex_Invalid(t *testing.T) {
	_, err := FlattenIndex([]int{1}, []int{2, 3})
	assert.Error(t, err)

	_, err = FlattenIndex([]int{0, 3}, []int{2, 3})
	assert.Error(t, err)
}

func TestArgumentLabel(t *testing.T) {
	assert.Equal(t, "voltage", ArgumentLabel("voltage", nil, nil))

	idx := 4
	assert.Equal(t, "[1][1]", ArgumentLabel("matrix", &idx, []int{2, 3}))

	bad := 99
	assert.Equal(t, "matrix", ArgumentLabel("matrix", &bad, []int{2, 3}))
}
