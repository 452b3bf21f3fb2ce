package blockindex

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repeat(pattern string, n int) []byte {
	return bytes.Repeat([]byte(pattern), n)
}

func TestBuildAndLookup(t *testing.T) {
	for _, backend := range []Backend{BackendRAM, BackendMmap} {
		older := append(repeat("A", 32), append(repeat("B", 32), repeat("C", 32)...)...)

		idx, err := Build(context.Background(), older, Params{BlockSize: 32, Backend: backend})
		require.NoError(t, err)
		defer idx.Close()

		pos, ok := idx.Lookup(repeat("B", 32))
		require.True(t, ok)
		assert.Equal(t, uint32(32), pos)

		_, ok = idx.Lookup(repeat("Z", 32))
		assert.False(t, ok)
	}
}

func TestBuildEmptyOlder(t *testing.T) {
	idx, err := Build(context.Background(), nil, Params{BlockSize: 32})
	require.NoError(t, err)
	defer idx.Close()

	_, ok := idx.Lookup(repeat("A", 32))
	assert.False(t, ok)
}

func TestBuildRejectsSmallBlockSize(t *testing.T) {
	_, err := Build(context.Background(), []byte("hello"), Params{BlockSize: 1})
	assert.ErrorIs(t, err, ErrConfigInvalid)
}

func TestDuplicateBlocksConvergeOnEarliestOffset(t *testing.T) {
	older := append(repeat("X", 32), repeat("X", 32)...)

	idx, err := Build(context.Background(), older, Params{BlockSize: 32, Backend: BackendRAM})
	require.NoError(t, err)
	defer idx.Close()

	pos, ok := idx.Lookup(repeat("X", 32))
	require.True(t, ok)
	assert.Equal(t, uint32(0), pos)
}

func TestBuildCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	older := repeat("A", 32*1000)
	_, err := Build(ctx, older, Params{BlockSize: 32})
	assert.ErrorIs(t, err, ErrCanceled)
}
