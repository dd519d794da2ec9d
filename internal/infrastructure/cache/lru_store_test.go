package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"image-pipeline/internal/domain"
	"image-pipeline/mocks"
)

func TestLRUManifestStore_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("second read is served from memory", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		next := mocks.NewMockManifestStore(ctrl)
		next.EXPECT().Get(gomock.Any(), "k").Return(sampleManifest(), nil).Times(1)

		store := NewLRUManifestStore(next, 8, 0)

		first, err := store.Get(ctx, "k")
		require.NoError(t, err)
		second, err := store.Get(ctx, "k")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.NotSame(t, first, second)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("misses are not cached", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		next := mocks.NewMockManifestStore(ctrl)
		next.EXPECT().Get(gomock.Any(), "k").Return(nil, domain.ErrCacheMiss).Times(2)

		store := NewLRUManifestStore(next, 8, 0)

		_, err := store.Get(ctx, "k")
		assert.ErrorIs(t, err, domain.ErrCacheMiss)
		_, err = store.Get(ctx, "k")
		assert.ErrorIs(t, err, domain.ErrCacheMiss)
		assert.Equal(t, 0, store.Len())
	})

	t.Run("mutating a returned result does not corrupt the cache", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		next := mocks.NewMockManifestStore(ctrl)
		next.EXPECT().Get(gomock.Any(), "k").Return(sampleManifest(), nil).Times(1)

		store := NewLRUManifestStore(next, 8, 0)
		first, err := store.Get(ctx, "k")
		require.NoError(t, err)
		first.Variants[0].URL = "tampered"

		second, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "/images/webp/abc_sm.webp", second.Variants[0].URL)
	})
}

func TestLRUManifestStore_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("writes through", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		next := mocks.NewMockManifestStore(ctrl)
		m := sampleManifest()
		next.EXPECT().Save(gomock.Any(), "k", m).Return(nil)

		store := NewLRUManifestStore(next, 8, 0)
		require.NoError(t, store.Save(ctx, "k", m))

		got, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, m, got)
	})

	t.Run("failed write is not cached", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		next := mocks.NewMockManifestStore(ctrl)
		next.EXPECT().Save(gomock.Any(), "k", gomock.Any()).Return(errors.New("disk full"))
		next.EXPECT().Get(gomock.Any(), "k").Return(nil, domain.ErrCacheMiss)

		store := NewLRUManifestStore(next, 8, 0)
		assert.Error(t, store.Save(ctx, "k", sampleManifest()))

		_, err := store.Get(ctx, "k")
		assert.ErrorIs(t, err, domain.ErrCacheMiss)
	})
}

func TestLRUManifestStore_Sweep(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	next := mocks.NewMockManifestStore(ctrl)

	next.EXPECT().Save(gomock.Any(), "k", gomock.Any()).Return(nil)
	next.EXPECT().Sweep(gomock.Any(), time.Hour).Return(domain.SweepReport{Scanned: 1, Deleted: 1}, nil)

	store := NewLRUManifestStore(next, 8, 0)
	require.NoError(t, store.Save(ctx, "k", sampleManifest()))
	require.Equal(t, 1, store.Len())

	report, err := store.Sweep(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Deleted)
	assert.Equal(t, 0, store.Len())
}
