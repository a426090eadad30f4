package refs

import (
	"os"
	"path/filepath"
	"testing"

	"gitvault/pkg/lockfile"
	"gitvault/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	hash1 = types.ObjectID("1111111111111111111111111111111111111111")
	hash2 = types.ObjectID("2222222222222222222222222222222222222222")
	hash3 = types.ObjectID("3333333333333333333333333333333333333333")
)

func TestRefFlow_Lifecycle(t *testing.T) {
	mgr := NewManager(t.TempDir())

	// 1. 初始状态应该是 NoHead
	_, err := mgr.GetHead()
	assert.ErrorIs(t, err, ErrNoHead, "空仓库应该返回 ErrNoHead")

	// 2. 第一次提交
	require.NoError(t, mgr.CompareAndSwapHead("", hash1), "首次更新应该成功")

	data, err := os.ReadFile(mgr.HeadPath())
	require.NoError(t, err)
	assert.Equal(t, string(hash1)+"\n", string(data), "HEAD 文件内容是 id 加换行")

	head, err := mgr.GetHead()
	require.NoError(t, err)
	assert.Equal(t, hash1, head)

	// 3. 正常推进
	require.NoError(t, mgr.CompareAndSwapHead(hash1, hash2))

	// 4. 并发冲突：基于旧 HEAD 的更新被拒绝
	err = mgr.CompareAndSwapHead(hash1, hash3)
	assert.ErrorIs(t, err, ErrStaleHead)
	head, _ = mgr.GetHead()
	assert.Equal(t, hash2, head, "冲突时 HEAD 保持不变")
	assert.NoFileExists(t, mgr.HeadPath()+lockfile.Suffix)

	// 5. 强制更新
	require.NoError(t, mgr.UpdateHead(hash3))
	head, _ = mgr.GetHead()
	assert.Equal(t, hash3, head)
}

func TestUpdateHead_LockHeld(t *testing.T) {
	dir := t.TempDir()
	mgr := NewManager(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "HEAD.lock"), nil, 0o644))

	err := mgr.UpdateHead(hash1)
	assert.ErrorIs(t, err, lockfile.ErrLockHeld)
	_, err = mgr.GetHead()
	assert.ErrorIs(t, err, ErrNoHead)
}

func TestGetHead_Invalid(t *testing.T) {
	dir := t.TempDir()
	mgr := NewManager(dir)

	require.NoError(t, os.WriteFile(mgr.HeadPath(), []byte("garbage\n"), 0o644))
	_, err := mgr.GetHead()
	assert.ErrorIs(t, err, types.ErrInvalidObjectID)

	assert.ErrorIs(t, mgr.UpdateHead("short"), types.ErrInvalidObjectID)
}
