package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupIntegrationEnv 准备一个隔离的工作目录与环境变量
func setupIntegrationEnv(t *testing.T) string {
	t.Helper()
	color.NoColor = true
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GV_USER_NAME", "Ann")
	t.Setenv("GV_USER_EMAIL", "a@x.io")
	return t.TempDir()
}

// resetFlags 还原所有 flag，避免上一次执行的值泄漏到下一次
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// runGV 以 "gv --root <root> args..." 的方式执行命令，返回合并后的输出
func runGV(t *testing.T, root string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(append([]string{"--root", root}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func mustRunGV(t *testing.T, root string, args ...string) string {
	t.Helper()
	out, err := runGV(t, root, args...)
	require.NoError(t, err, "gv %s\n%s", strings.Join(args, " "), out)
	return out
}

func readHead(t *testing.T, root string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, ".gv", "HEAD"))
	require.NoError(t, err)
	return strings.TrimSuffix(string(data), "\n")
}

func TestIntegration_CommitFlow(t *testing.T) {
	root := setupIntegrationEnv(t)

	out := mustRunGV(t, root, "init")
	assert.Contains(t, out, "Initialized empty gitvault repository")
	out = mustRunGV(t, root, "init")
	assert.Contains(t, out, "already exists")

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644))
	out = mustRunGV(t, root, "add", filepath.Join(root, "a.txt"))
	assert.Contains(t, out, "Added 1 files")

	out = mustRunGV(t, root, "hash-object", filepath.Join(root, "a.txt"))
	assert.Equal(t, "b6fc4c620b67d95f953a5c1c1230aaab5db5a1b0\n", out)

	out = mustRunGV(t, root, "ls-files", "-s")
	assert.Equal(t, "100644 b6fc4c620b67d95f953a5c1c1230aaab5db5a1b0 0\ta.txt\n", out)

	out = mustRunGV(t, root, "commit", "-m", "first")
	head := readHead(t, root)
	assert.Equal(t, "[(root-commit) "+head[:7]+"] first\n", out)

	out = mustRunGV(t, root, "log")
	assert.Contains(t, out, "commit "+head)
	assert.Contains(t, out, "Author: Ann <a@x.io>")
	assert.Contains(t, out, "    first\n")

	out = mustRunGV(t, root, "cat-file", "-t", "HEAD")
	assert.Equal(t, "commit\n", out)
	out = mustRunGV(t, root, "cat-file", "-p", "b6fc4c62")
	assert.Equal(t, "hello", out)
	out = mustRunGV(t, root, "cat-file", "-s", "b6fc4c62")
	assert.Equal(t, "5\n", out)

	out = mustRunGV(t, root, "cat-file", "blob", "b6fc4c62")
	assert.Equal(t, "hello", out)

	_, err := runGV(t, root, "cat-file", "b6fc4c62")
	assert.ErrorContains(t, err, "one of -t, -s or -p is required")

	out = mustRunGV(t, root, "commit", "-m", "again")
	assert.Contains(t, out, "nothing to commit")
}

func TestIntegration_NotARepository(t *testing.T) {
	root := setupIntegrationEnv(t)

	_, err := runGV(t, root, "log")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gv init")
}

func TestIntegration_CheckoutAndRm(t *testing.T) {
	root := setupIntegrationEnv(t)
	mustRunGV(t, root, "init")

	file := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("v1"), 0o644))
	mustRunGV(t, root, "commit", "--all", "-m", "one")
	first := readHead(t, root)

	require.NoError(t, os.WriteFile(file, []byte("version two"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("b"), 0o644))
	out := mustRunGV(t, root, "commit", "-a", "-m", "two")
	assert.NotContains(t, out, "root-commit")

	out = mustRunGV(t, root, "log", "-n", "1")
	assert.Contains(t, out, "    two\n")
	assert.NotContains(t, out, "    one\n")

	out = mustRunGV(t, root, "checkout", first[:8])
	assert.Contains(t, out, "Switched to commit "+first[:7])
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))
	assert.NoFileExists(t, filepath.Join(root, "sub", "b.txt"))
	assert.Equal(t, first, readHead(t, root))

	out = mustRunGV(t, root, "rm", "--cached", file)
	assert.Equal(t, "rm 'a.txt'\n", out)
	assert.FileExists(t, file)

	out = mustRunGV(t, root, "ls-files")
	assert.Empty(t, out)

	_, err = runGV(t, root, "log", "--author", "Ann")
	assert.Error(t, err, "meta database is not configured")
}
