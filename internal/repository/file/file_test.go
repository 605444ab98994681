package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kirinyoku/moodcafe/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SetGet(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	_, ok, err := s.Get(ctx, "moodCafeBookings")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "moodCafeBookings", []byte(`{"bookings":[]}`)))

	b, ok, err := s.Get(ctx, "moodCafeBookings")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"bookings":[]}`, string(b))

	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, "moodCafeBookings.json", entries[0].Name())
}

func TestStore_WatchSeesOtherWriterOnly(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := New(dir, nil)
	require.NoError(t, err)
	b, err := New(dir, nil)
	require.NoError(t, err)

	got := make(chan store.Change, 16)
	go func() {
		_ = a.Watch(ctx, func(_ context.Context, c store.Change) { got <- c })
	}()
	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, a.Set(ctx, "moodCafeAdminData", []byte(`{"own":true}`)))
	require.NoError(t, b.Set(ctx, "moodCafeAdminData", []byte(`{"own":false}`)))

	select {
	case c := <-got:
		assert.Equal(t, "moodCafeAdminData", c.Key)
		assert.JSONEq(t, `{"own":false}`, string(c.Value))
	case <-time.After(3 * time.Second):
		t.Fatal("no change delivered")
	}
}

func TestKeyFromPath(t *testing.T) {
	key, ok := keyFromPath(filepath.Join("data", "moodCafeBookings.json"))
	assert.True(t, ok)
	assert.Equal(t, "moodCafeBookings", key)

	_, ok = keyFromPath(filepath.Join("data", "moodCafeBookings.123.tmp"))
	assert.False(t, ok)

	_, ok = keyFromPath(".json")
	assert.False(t, ok)
}
