package meta

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"testing"
	"time"

	"gitvault/pkg/core"
	"gitvault/pkg/types"

	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// 通用辅助函数 (Helpers)
// -----------------------------------------------------------------------------

// mockID 生成合法的测试用 id
func mockID(input string) types.ObjectID {
	sum := sha1.Sum([]byte(input))
	return types.ObjectID(hex.EncodeToString(sum[:]))
}

// mustNewCommit 创建 Commit，如果失败直接终止测试
func mustNewCommit(t *testing.T, tree, parent types.ObjectID, name string, ts int64, msg string, msgAndArgs ...any) *core.Commit {
	t.Helper()
	author := core.Author{
		Name:  name,
		Email: name + "@example.com",
		When:  time.Unix(ts, 0).In(time.FixedZone("", 8*3600)),
	}
	c, err := core.NewCommit(parent, tree, author, msg)
	require.NoError(t, err, msgAndArgs...)
	return c
}

// mustIndexCommit 强制索引 Commit，失败则终止
func mustIndexCommit(t *testing.T, repo *Repository, c *core.Commit, msgAndArgs ...any) {
	t.Helper()
	err := repo.IndexCommit(context.Background(), c)
	require.NoError(t, err, msgAndArgs...)
}
