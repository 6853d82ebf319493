package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSlice(t *testing.T) {
	var (
		i1, i2 int
		err    error
	)
	{
		i1, i2, err = ParseSlice(":", 10)
		require.NoError(t, err)
		assert.Equal(t, 0, i1)
		assert.Equal(t, 10, i2)
		i1, i2, err = ParseSlice(":5", 10)
		require.NoError(t, err)
		assert.Equal(t, 0, i1)
		assert.Equal(t, 5, i2)
		i1, i2, err = ParseSlice("2", 10)
		require.NoError(t, err)
		assert.Equal(t, 2, i1)
		assert.Equal(t, 3, i2)
		i1, i2, err = ParseSlice("3:", 10)
		require.NoError(t, err)
		assert.Equal(t, 3, i1)
		assert.Equal(t, 10, i2)
		i1, i2, err = ParseSlice("end", 10)
		require.NoError(t, err)
		assert.Equal(t, 9, i1)
		assert.Equal(t, 10, i2)
		i1, i2, err = ParseSlice("-2:", 10)
		require.NoError(t, err)
		assert.Equal(t, 8, i1)
		assert.Equal(t, 10, i2)
	}
	// Bad input
	{
		_, _, err = ParseSlice("1:2:3", 10)
		assert.Error(t, err)
		_, _, err = ParseSlice("a", 10)
		assert.Error(t, err)
		_, _, err = ParseSlice("4:12", 10)
		assert.Error(t, err)
		_, _, err = ParseSlice("5:2", 10)
		assert.Error(t, err)
	}
}
