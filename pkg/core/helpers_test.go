package core

import (
	"crypto/sha1"
	"encoding/hex"
	"testing"
	"time"

	"gitvault/pkg/types"

	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// 辅助工具
// -----------------------------------------------------------------------------

// mockID 生成一个合法的 20 字节 Hex 字符串 (40 字符长度)
func mockID(input string) types.ObjectID {
	sum := sha1.Sum([]byte(input))
	return types.ObjectID(hex.EncodeToString(sum[:]))
}

// testAuthor 固定时间和时区，保证哈希可复现
func testAuthor() Author {
	return Author{
		Name:  "Ann",
		Email: "a@x.io",
		When:  time.Unix(1700000000, 0).In(time.FixedZone("", 2*3600)),
	}
}

// mustNewCommit 创建 Commit，如果失败直接终止测试
func mustNewCommit(t *testing.T, parent, tree types.ObjectID, msg string, msgAndArgs ...any) *Commit {
	t.Helper()
	c, err := NewCommit(parent, tree, testAuthor(), msg)
	require.NoError(t, err, msgAndArgs...)
	return c
}

func mustDecode(t *testing.T, raw []byte) Object {
	t.Helper()
	obj, err := Decode(raw)
	require.NoError(t, err)
	return obj
}
