package blob

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorePutAndRead(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), 1024)
	require.NoError(t, err)
	store.now = func() time.Time { return time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC) }

	key, size, err := store.Put(context.Background(), "../Boarding Pass (1).PNG", strings.NewReader("image-bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(11), size)
	assert.True(t, strings.HasPrefix(key, "2025/02/"))
	assert.True(t, strings.HasSuffix(key, "-boarding-pass-1.png"))

	data, err := ReadAll(context.Background(), store, key)
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))
}

func TestLocalStoreRejectsOversize(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), 4)
	require.NoError(t, err)

	_, _, err = store.Put(context.Background(), "a.jpg", bytes.NewReader([]byte("12345")))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestLocalStoreOpenGuards(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), 0)
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = store.Open(context.Background(), "2025/01/missing.png")
	assert.ErrorIs(t, err, ErrNotFound)
}
