package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_Defaults(t *testing.T) {
	// 1. 空目录 (没有 .gvignore)
	tmpDir := t.TempDir()

	matcher, err := NewMatcher(tmpDir, ".gv")
	require.NoError(t, err)

	tests := []struct {
		path     string
		shouldIg bool
	}{
		{".gv", true},
		{".gv/objects/aa", true}, // 子路径也应该被忽略
		{".git", true},
		{".DS_Store", true},
		{"main.go", false}, // 普通文件不应忽略
		{"data/model.bin", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.shouldIg, matcher.Matches(tt.path), "Path: %s", tt.path)
		})
	}
}

func TestMatcher_CustomMetaDir(t *testing.T) {
	matcher, err := NewMatcher(t.TempDir(), ".vault")
	require.NoError(t, err)

	assert.True(t, matcher.Matches(".vault"))
	assert.True(t, matcher.Matches(".vault/HEAD"))
	assert.True(t, matcher.Matches(".gv"))
	assert.False(t, matcher.Matches("vault.txt"))
}

func TestMatcher_WithUserFile(t *testing.T) {
	tmpDir := t.TempDir()

	ignoreContent := `
# 这是注释
*.log
temp
!important.log
`
	err := os.WriteFile(filepath.Join(tmpDir, FileName), []byte(ignoreContent), 0644)
	require.NoError(t, err)

	matcher, err := NewMatcher(tmpDir, ".gv")
	require.NoError(t, err)

	tests := []struct {
		path     string
		shouldIg bool
	}{
		// --- 默认规则依然要生效 ---
		{".gv", true},

		// --- 用户规则生效 ---
		{"app.log", true},        // *.log
		{"logs/error.log", true}, // *.log 递归
		{"temp", true},
		{"temp/file", true},

		{"main.go", false},

		// --- 负向规则 ---
		{"important.log", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.shouldIg, matcher.Matches(tt.path), "Path: %s", tt.path)
		})
	}
}

func TestMatcher_NestedFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub", "deeper"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", FileName), []byte("*.tmp\n/cache\n"), 0o644))

	matcher, err := NewMatcher(root, ".gv")
	require.NoError(t, err)

	tests := []struct {
		path     string
		shouldIg bool
	}{
		{"a.tmp", false}, // 规则只作用于 sub/ 之下
		{"sub/a.tmp", true},
		{"sub/deeper/b.tmp", true},
		{"sub/cache", true},
		{"sub/deeper/cache", false}, // 带前导 "/" 的规则相对于 sub/
		{"cache", false},
		{"sub/main.go", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.shouldIg, matcher.Matches(tt.path))
		})
	}
}
