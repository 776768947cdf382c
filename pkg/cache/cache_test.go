package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGetPutDelete(t *testing.T) {
	c := openTestCache(t)

	_, ok, err := c.Get(KeyWorks)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(KeyWorks, []byte(`[{"id":1}]`)))

	value, ok, err := c.Get(KeyWorks)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":1}]`, string(value))

	// Overwrite replaces.
	require.NoError(t, c.Put(KeyWorks, []byte(`[]`)))
	value, ok, err = c.Get(KeyWorks)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "[]", string(value))

	removed, err := c.Delete(KeyWorks)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = c.Delete(KeyWorks)
	require.NoError(t, err)
	assert.False(t, removed, "second delete finds nothing")
}

func TestNextIDMonotonic(t *testing.T) {
	c := openTestCache(t)

	prev := int64(0)
	for i := 0; i < 50; i++ {
		id, err := c.NextID()
		require.NoError(t, err)
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestNextIDSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	c, err := Open(path)
	require.NoError(t, err)
	first, err := c.NextID()
	require.NoError(t, err)
	require.NoError(t, c.Close())

	c, err = Open(path)
	require.NoError(t, err)
	defer c.Close()
	second, err := c.NextID()
	require.NoError(t, err)
	assert.Greater(t, second, first)
}
