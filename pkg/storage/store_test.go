package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"gitvault/pkg/core"
	"gitvault/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore 只用于测试 Load/Stat 这些与后端无关的辅助函数
type memStore map[types.ObjectID][]byte

func (m memStore) Put(_ context.Context, obj core.Object) error {
	m[obj.ID()] = obj.Bytes()
	return nil
}

func (m memStore) Get(_ context.Context, id types.ObjectID) (io.ReadCloser, error) {
	data, ok := m[id]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m memStore) Has(_ context.Context, id types.ObjectID) (bool, error) {
	_, ok := m[id]
	return ok, nil
}

func (m memStore) ExpandHash(context.Context, types.HashPrefix) (types.ObjectID, error) {
	return "", ErrNotFound
}

func TestLoadAndStat(t *testing.T) {
	ctx := context.Background()
	store := memStore{}

	blob := core.NewBlob([]byte("hello"))
	tree, err := core.NewTree([]core.TreeEntry{{Name: "a.txt", Mode: core.ModeRegular, ID: blob.ID()}})
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, blob))
	require.NoError(t, store.Put(ctx, tree))

	loaded, err := LoadTree(ctx, store, tree.ID())
	require.NoError(t, err)
	assert.Equal(t, tree.ID(), loaded.ID())

	_, err = LoadCommit(ctx, store, tree.ID())
	assert.ErrorContains(t, err, "not a commit")

	info, err := Stat(ctx, store, blob.ID())
	require.NoError(t, err)
	assert.Equal(t, ObjectInfo{Type: core.TypeBlob, Size: 5}, info)

	_, err = Load(ctx, store, "ffffffffffffffffffffffffffffffffffffffff")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompressRoundTrip(t *testing.T) {
	raw := []byte("blob 5\x00hello")
	packed, err := Compress(raw)
	require.NoError(t, err)
	assert.NotEqual(t, raw, packed)

	rc, err := NewDecompressor(io.NopCloser(bytes.NewReader(packed)))
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, raw, got)

	_, err = NewDecompressor(io.NopCloser(bytes.NewReader(raw)))
	assert.Error(t, err, "未压缩的数据不是合法的 zlib 流")
}

func TestValidatePrefix(t *testing.T) {
	assert.NoError(t, ValidatePrefix("abcd"))
	assert.ErrorIs(t, ValidatePrefix("abc"), ErrPrefixTooShort)
	assert.ErrorIs(t, ValidatePrefix("ABCD"), types.ErrInvalidObjectID)
}
