package runlock

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".update.lock")

	first, err := Acquire(path)
	require.NoError(t, err)

	_, err = Acquire(path)
	assert.ErrorIs(t, err, ErrRunInProgress)

	require.NoError(t, first.Release())
	second, err := Acquire(path)
	require.NoError(t, err)
	assert.NoError(t, second.Release())
	assert.NoError(t, second.Release())
}
