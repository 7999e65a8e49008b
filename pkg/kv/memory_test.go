package kv_test

import (
	"context"
	"testing"

	"github.com/eclipse-pullpiri/pullpiri/pkg/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStorePutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := kv.NewMemStore()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, kv.ErrNotFound)

	require.NoError(t, s.Put(ctx, "state/Model::m1", []byte("payload")))
	v, err := s.Get(ctx, "state/Model::m1")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), v)

	require.NoError(t, s.Delete(ctx, "state/Model::m1"))
	_, err = s.Get(ctx, "state/Model::m1")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestMemStoreListPrefix(t *testing.T) {
	ctx := context.Background()
	s := kv.NewMemStore()
	require.NoError(t, s.Put(ctx, "state/Model::a", []byte("1")))
	require.NoError(t, s.Put(ctx, "state/Model::b", []byte("2")))
	require.NoError(t, s.Put(ctx, "state/Scenario::c", []byte("3")))

	got, err := s.List(ctx, "state/Model::")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, []byte("1"), got["state/Model::a"])
	assert.Equal(t, []byte("2"), got["state/Model::b"])
}

func TestMemStorePutCopiesValue(t *testing.T) {
	ctx := context.Background()
	s := kv.NewMemStore()
	buf := []byte("original")
	require.NoError(t, s.Put(ctx, "k", buf))
	buf[0] = 'X'

	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), v)
}
