package memory

import (
	"context"
	"testing"

	"github.com/kirinyoku/moodcafe/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext_NotifiesOthersOnly(t *testing.T) {
	ctx := context.Background()
	shared := NewShared()
	a := shared.Context()
	b := shared.Context()

	require.NoError(t, a.Set(ctx, "k", []byte(`{"v":1}`)))

	var gotA, gotB []store.Change
	assert.Equal(t, 0, a.Deliver(ctx, func(_ context.Context, c store.Change) { gotA = append(gotA, c) }))
	assert.Equal(t, 1, b.Deliver(ctx, func(_ context.Context, c store.Change) { gotB = append(gotB, c) }))

	assert.Empty(t, gotA)
	assert.Equal(t, []store.Change{{Key: "k", Value: []byte(`{"v":1}`)}}, gotB)

	v, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"v":1}`, string(v))
}

func TestContext_GetMissing(t *testing.T) {
	c := NewShared().Context()

	v, ok, err := c.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestContext_Close(t *testing.T) {
	ctx := context.Background()
	shared := NewShared()
	a := shared.Context()
	b := shared.Context()
	b.Close()

	require.NoError(t, a.Set(ctx, "k", []byte("1")))
	assert.Equal(t, 0, b.Deliver(ctx, func(context.Context, store.Change) {}))
}

func TestContext_WatchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	shared := NewShared()
	a := shared.Context()
	b := shared.Context()

	require.NoError(t, a.Set(ctx, "k", []byte("1")))

	got := make(chan store.Change, 1)
	done := make(chan error, 1)
	go func() {
		done <- b.Watch(ctx, func(_ context.Context, c store.Change) { got <- c })
	}()

	c := <-got
	assert.Equal(t, "k", c.Key)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
