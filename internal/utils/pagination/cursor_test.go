package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	token, err := Encode(Cursor{ID: 42})
	require.NoError(t, err)

	c, err := Decode(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), c.ID)
}

func TestDecodeEmptyIsFirstPage(t *testing.T) {
	c, err := Decode("")
	require.NoError(t, err)
	assert.Zero(t, c.ID)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode("%%%")
	assert.Error(t, err)

	_, err = Decode("bm90LWpzb24=") // "not-json"
	assert.Error(t, err)
}

func TestLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, Limit(0))
	assert.Equal(t, DefaultLimit, Limit(-3))
	assert.Equal(t, 10, Limit(10))
	assert.Equal(t, MaxLimit, Limit(1000))
}
