package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCloneSlice(t *testing.T) {
	require := require.New(t)

	src := []uint16{1, 2, 3}
	clone := CloneSlice(src, 0)
	require.Equal(src, clone)
	clone[0] = 9
	require.Equal(uint16(1), src[0])

	require.Len(CloneSlice(src, 5), 5)
	require.Nil(CloneOrNil[uint64](nil))
	require.Equal([]uint64{}, CloneOrNil([]uint64{}))
}

func TestIsPowerOfTwo(t *testing.T) {
	require := require.New(t)

	for _, v := range []uint32{1, 2, 4, 1024, 1 << 31} {
		require.True(IsPowerOfTwo(v), v)
	}
	for _, v := range []uint32{0, 3, 6, 1000} {
		require.False(IsPowerOfTwo(v), v)
	}
}

func TestMulOverflows(t *testing.T) {
	require := require.New(t)

	p, over := MulOverflows(100, 4, 5)
	require.Equal(uint64(20), p)
	require.False(over)

	_, over = MulOverflows(100, 11, 10)
	require.True(over)

	_, over = MulOverflows(1<<40, 1<<31, 1<<31)
	require.True(over)

	p, over = MulOverflows(100, 0, 1<<63)
	require.Zero(p)
	require.False(over)
}
