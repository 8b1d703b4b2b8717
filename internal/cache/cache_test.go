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

type cachedItem struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() {
		_ = Close()
		mr.Close()
	})
	return mr
}

func TestAside_MissThenHit(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	loads := 0
	load := func(dest *cachedItem) func() error {
		return func() error {
			loads++
			*dest = cachedItem{ID: 1, Title: "Primes"}
			return nil
		}
	}

	var first cachedItem
	require.NoError(t, Aside(ctx, SubmissionKey(1), &first, SubmissionTTL, load(&first)))
	assert.Equal(t, "Primes", first.Title)
	assert.True(t, mr.Exists("submission:1"))
	assert.Equal(t, SubmissionTTL, mr.TTL("submission:1"))

	var second cachedItem
	require.NoError(t, Aside(ctx, SubmissionKey(1), &second, SubmissionTTL, load(&second)))
	assert.Equal(t, first, second)
	assert.Equal(t, 1, loads)
}

func TestAside_LoadErrorNotCached(t *testing.T) {
	mr := setupMiniredis(t)

	var out cachedItem
	err := Aside(context.Background(), SubmissionKey(2), &out, SubmissionTTL, func() error {
		return errors.New("not found")
	})
	assert.Error(t, err)
	assert.False(t, mr.Exists("submission:2"))
}

func TestAside_WithoutClient(t *testing.T) {
	SetClient(nil)

	called := false
	var out cachedItem
	require.NoError(t, Aside(context.Background(), "x:1", &out, time.Minute, func() error {
		called = true
		return nil
	}))
	assert.True(t, called)
}

func TestAside_CorruptEntryReloaded(t *testing.T) {
	mr := setupMiniredis(t)
	require.NoError(t, mr.Set("submission:3", "{not json"))

	var out cachedItem
	require.NoError(t, Aside(context.Background(), SubmissionKey(3), &out, SubmissionTTL, func() error {
		out = cachedItem{ID: 3}
		return nil
	}))
	assert.Equal(t, uint(3), out.ID)
}

func TestInvalidateHelpers(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("submission:4", "{}"))
	require.NoError(t, mr.Set(RecentPublicKey, "[]"))
	require.NoError(t, mr.Set("profile:euler", "{}"))
	require.NoError(t, mr.Set("profile:gauss", "{}"))

	InvalidateSubmission(ctx, 4)
	InvalidateProfile(ctx, "euler", "", "gauss")

	assert.False(t, mr.Exists("submission:4"))
	assert.False(t, mr.Exists(RecentPublicKey))
	assert.False(t, mr.Exists("profile:euler"))
	assert.False(t, mr.Exists("profile:gauss"))
}

func TestKeyFamily(t *testing.T) {
	assert.Equal(t, "submission", keyFamily("submission:9"))
	assert.Equal(t, "plain", keyFamily("plain"))
}

func TestAsideWhen_SkipsWriteBack(t *testing.T) {
	mr := setupMiniredis(t)

	var out cachedItem
	require.NoError(t, AsideWhen(context.Background(), SubmissionKey(4), &out, SubmissionTTL, func() error {
		out = cachedItem{ID: 4, Title: "draft"}
		return nil
	}, func() bool { return false }))
	assert.Equal(t, "draft", out.Title)
	assert.False(t, mr.Exists(SubmissionKey(4)))
}
