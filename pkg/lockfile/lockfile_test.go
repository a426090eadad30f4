package lockfile

import (
	"bytes"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (string, *Lockfile) {
	t.Helper()
	target := filepath.Join(t.TempDir(), "HEAD")
	require.NoError(t, os.WriteFile(target, []byte("old\n"), 0o644))
	return target, New(target)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestLockfile_CommitReplacesTarget(t *testing.T) {
	target, lock := setup(t)

	require.NoError(t, lock.HoldForUpdate())
	assert.True(t, lock.IsHeld())
	assert.FileExists(t, target+".lock")

	require.NoError(t, lock.WriteString("new\n"))
	assert.Equal(t, "old\n", readFile(t, target), "commit 之前目标文件不变")

	require.NoError(t, lock.Commit())
	assert.False(t, lock.IsHeld())
	assert.Equal(t, "new\n", readFile(t, target))
	assert.NoFileExists(t, target+".lock")
}

func TestLockfile_Rollback(t *testing.T) {
	target, lock := setup(t)

	require.NoError(t, lock.HoldForUpdate())
	_, err := lock.Write([]byte("discard me"))
	require.NoError(t, err)
	require.NoError(t, lock.Rollback())

	assert.Equal(t, "old\n", readFile(t, target))
	assert.NoFileExists(t, target+".lock")
}

func TestLockfile_ReleaseLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	target, lock := setup(t)
	require.NoError(t, lock.HoldForUpdate())
	// 锁文件被外部删掉，回滚时 Remove 会失败
	require.NoError(t, os.Remove(lock.LockPath()))

	lock.Release()
	assert.False(t, lock.IsHeld())
	assert.Contains(t, buf.String(), "failed to release lock")
	assert.Contains(t, buf.String(), lock.LockPath())
	assert.Equal(t, "old\n", readFile(t, target))

	buf.Reset()
	require.NoError(t, lock.HoldForUpdate())
	lock.Release()
	assert.Empty(t, buf.String(), "a clean rollback logs nothing at info level")
	assert.NoFileExists(t, lock.LockPath())
}

func TestLockfile_RequiresHold(t *testing.T) {
	target, lock := setup(t)

	tests := []struct {
		name string
		op   func() error
	}{
		{"Commit", lock.Commit},
		{"Rollback", lock.Rollback},
		{"Write", func() error { return lock.WriteString("x") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op()
			assert.ErrorIs(t, err, ErrStaleLock)
			assert.Contains(t, err.Error(), "not holding lock on file")
		})
	}
	assert.Equal(t, "old\n", readFile(t, target), "目标文件不能被改动")
	assert.NoFileExists(t, target+".lock")
}

func TestLockfile_DoubleHoldKeepsHandle(t *testing.T) {
	target, lock := setup(t)

	require.NoError(t, lock.HoldForUpdate())
	first := lock.lock
	require.NoError(t, lock.WriteString("a"))

	require.NoError(t, lock.HoldForUpdate())
	assert.Same(t, first, lock.lock)

	require.NoError(t, lock.WriteString("b"))
	require.NoError(t, lock.Commit())
	assert.Equal(t, "ab", readFile(t, target))
}

func TestLockfile_HeldElsewhere(t *testing.T) {
	target, lock := setup(t)

	// 模拟上一次崩溃遗留的锁
	require.NoError(t, os.WriteFile(target+".lock", nil, 0o644))

	err := lock.HoldForUpdate()
	assert.ErrorIs(t, err, ErrLockHeld)
	assert.ErrorIs(t, err, fs.ErrExist)
	assert.False(t, lock.IsHeld())

	other := New(target)
	require.NoError(t, os.Remove(target+".lock"))
	require.NoError(t, other.HoldForUpdate())
	assert.ErrorIs(t, lock.HoldForUpdate(), ErrLockHeld, "同一时刻只能有一个持有者")
	require.NoError(t, other.Rollback())
}

func TestLockfile_NewTarget(t *testing.T) {
	target := filepath.Join(t.TempDir(), "index")
	lock := New(target)
	assert.Equal(t, target, lock.Path())
	assert.Equal(t, target+".lock", lock.LockPath())

	require.NoError(t, lock.HoldForUpdate())
	require.NoError(t, lock.WriteString("fresh"))
	require.NoError(t, lock.Commit())
	assert.Equal(t, "fresh", readFile(t, target))
}
