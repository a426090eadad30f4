package workspace

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string, perm os.FileMode) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), perm))
}

func setup(t *testing.T) (*Workspace, string) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "a.txt", "hello", 0o644)
	writeFile(t, root, "dir/b.txt", "b", 0o644)
	writeFile(t, root, "dir/sub/c.sh", "#!/bin/sh", 0o755)
	writeFile(t, root, ".gv/HEAD", "x", 0o644)
	writeFile(t, root, "debug.log", "noise", 0o644)
	writeFile(t, root, ".gvignore", "*.log\n", 0o644)

	ws, err := New(root, ".gv")
	require.NoError(t, err)
	return ws, root
}

func TestWorkspace_List(t *testing.T) {
	ws, _ := setup(t)

	files, err := ws.List()
	require.NoError(t, err)
	assert.Equal(t, []string{".gvignore", "a.txt", "dir/b.txt", "dir/sub/c.sh"}, files)

	files, err = ws.List("dir", "a.txt", "dir/b.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "dir/b.txt", "dir/sub/c.sh"}, files, "重复路径只出现一次")

	_, err = ws.List("missing")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWorkspace_ReadAndStat(t *testing.T) {
	ws, _ := setup(t)

	data, err := ws.Read("a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	st, err := ws.Stat("a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), st.Size)
	assert.False(t, st.Executable)
	assert.False(t, st.Modified.IsZero())

	if runtime.GOOS != "windows" {
		st, err = ws.Stat("dir/sub/c.sh")
		require.NoError(t, err)
		assert.True(t, st.Executable)
	}
	if runtime.GOOS == "linux" {
		assert.NotZero(t, st.Ino)
	}
}

func TestWorkspace_WriteAndRemove(t *testing.T) {
	ws, root := setup(t)

	require.NoError(t, ws.Write("new/deep/file.txt", []byte("x"), false))
	data, err := os.ReadFile(filepath.Join(root, "new", "deep", "file.txt"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))

	require.NoError(t, ws.Remove("new/deep/file.txt"))
	assert.NoDirExists(t, filepath.Join(root, "new"), "空的父目录应该被清理")

	require.NoError(t, ws.Remove("dir/b.txt"))
	assert.DirExists(t, filepath.Join(root, "dir"), "非空目录保留")
}

func TestWorkspace_WriteRejectsNonLocalPaths(t *testing.T) {
	ws, root := setup(t)

	for _, rel := range []string{"../escaped.txt", "dir/../../escaped.txt", "/abs.txt", ""} {
		err := ws.Write(rel, []byte("x"), false)
		assert.ErrorIs(t, err, ErrOutsideWorkspace, rel)
		assert.ErrorIs(t, ws.Remove(rel), ErrOutsideWorkspace, rel)
	}
	assert.NoFileExists(t, filepath.Join(filepath.Dir(root), "escaped.txt"))
}

func TestWorkspace_Rel(t *testing.T) {
	ws, root := setup(t)

	rel, err := ws.Rel(filepath.Join(root, "dir", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "dir/b.txt", rel)

	_, err = ws.Rel(filepath.Dir(root))
	assert.ErrorIs(t, err, ErrOutsideWorkspace)
}
