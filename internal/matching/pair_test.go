package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/oggyb/pature/internal/errors"
)

func TestNormalizePairIsSymmetric(t *testing.T) {
	pairs := [][2]uint64{{1, 2}, {2, 1}, {7, 1000}, {1 << 40, 3}}

	for _, p := range pairs {
		ab, err := NormalizePair(p[0], p[1])
		require.NoError(t, err)
		ba, err := NormalizePair(p[1], p[0])
		require.NoError(t, err)

		assert.Equal(t, ab, ba)
		assert.Less(t, ab.Lo(), ab.Hi())
	}
}

func TestNormalizePairRejectsSelf(t *testing.T) {
	for _, x := range []uint64{0, 1, 42, 1 << 63} {
		_, err := NormalizePair(x, x)
		assert.ErrorIs(t, err, apperrors.ErrSelfMatchNotAllowed)
	}
}

func TestPairZeroValue(t *testing.T) {
	assert.True(t, Pair{}.IsZero())

	p, err := NormalizePair(3, 9)
	require.NoError(t, err)
	assert.False(t, p.IsZero())
}
