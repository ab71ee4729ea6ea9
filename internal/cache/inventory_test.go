package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

type cachedThing struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestGetSetRoundTrip(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	Set(ctx, "thing:1", cachedThing{Name: "iron", Count: 3}, time.Minute)

	var got cachedThing
	require.True(t, Get(ctx, "thing:1", &got))
	assert.Equal(t, cachedThing{Name: "iron", Count: 3}, got)

	var missing cachedThing
	assert.False(t, Get(ctx, "thing:absent", &missing))
}

func TestAsideLoadsOnMissAndServesOnHit(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	loads := 0
	load := func(dest *cachedThing) func() error {
		return func() error {
			loads++
			*dest = cachedThing{Name: "loaded", Count: loads}
			return nil
		}
	}

	var first cachedThing
	require.NoError(t, Aside(ctx, "thing:2", &first, time.Minute, load(&first)))
	assert.Equal(t, 1, loads)
	assert.Equal(t, "loaded", first.Name)

	// Second read is served from the cache without invoking load.
	var second cachedThing
	require.NoError(t, Aside(ctx, "thing:2", &second, time.Minute, load(&second)))
	assert.Equal(t, 1, loads)
	assert.Equal(t, first, second)
}

func TestAsidePropagatesLoadErrors(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	boom := errors.New("boom")
	var dest cachedThing
	err := Aside(ctx, "thing:3", &dest, time.Minute, func() error { return boom })
	assert.ErrorIs(t, err, boom)

	// Nothing was cached for the failed load.
	assert.False(t, Get(ctx, "thing:3", &dest))
}

func TestInvalidate(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	Set(ctx, ProjectKey(42), cachedThing{Name: "x"}, time.Minute)
	slug := "iron-craft"
	Set(ctx, ProjectSlugKey(slug), cachedThing{Name: "x"}, time.Minute)

	InvalidateProject(ctx, 42, &slug)

	var got cachedThing
	assert.False(t, Get(ctx, ProjectKey(42), &got))
	assert.False(t, Get(ctx, ProjectSlugKey(slug), &got))
}

func TestDegradesWithoutClient(t *testing.T) {
	SetClient(nil)
	ctx := context.Background()

	Set(ctx, "thing:4", cachedThing{Name: "x"}, time.Minute)
	var got cachedThing
	assert.False(t, Get(ctx, "thing:4", &got))

	loads := 0
	require.NoError(t, Aside(ctx, "thing:4", &got, time.Minute, func() error {
		loads++
		got = cachedThing{Name: "direct"}
		return nil
	}))
	assert.Equal(t, 1, loads)
	assert.Equal(t, "direct", got.Name)
}
