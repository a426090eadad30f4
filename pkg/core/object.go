package core

import (
	"fmt"
	"strconv"

	"gitvault/pkg/types"
)

// ObjectType 定义了仓库中的对象类型
type ObjectType string

const (
	TypeBlob   ObjectType = "blob"   // 文件内容
	TypeTree   ObjectType = "tree"   // 目录树
	TypeCommit ObjectType = "commit" // 版本快照
)

// Object is the closed union Blob | Tree | Commit.
// The unexported marker keeps the variant set fixed to this package.
type Object interface {
	// Type 返回对象类型
	Type() ObjectType

	// ID 返回对象的 SHA-1 (由 Bytes 计算得出，从不随机分配)
	ID() types.ObjectID

	// Bytes 返回规范序列化结果 "<type> <len>\0<payload>"
	Bytes() []byte

	sealed()
}

// FileMode is the git-compatible mode of a tree entry or index entry.
type FileMode uint32

const (
	ModeDir        FileMode = 0o40000
	ModeRegular    FileMode = 0o100644
	ModeExecutable FileMode = 0o100755
)

// String renders the octal form used inside tree objects ("40000", "100644", "100755").
func (m FileMode) String() string {
	return strconv.FormatUint(uint64(m), 8)
}

func (m FileMode) IsDir() bool { return m == ModeDir }

// ModeFor picks the leaf mode from the executable bit.
func ModeFor(executable bool) FileMode {
	if executable {
		return ModeExecutable
	}
	return ModeRegular
}

// ParseFileMode accepts only the three modes this store writes.
func ParseFileMode(s string) (FileMode, error) {
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: bad mode %q", ErrMalformedObject, s)
	}
	switch m := FileMode(v); m {
	case ModeDir, ModeRegular, ModeExecutable:
		return m, nil
	default:
		return 0, fmt.Errorf("%w: unsupported mode %q", ErrMalformedObject, s)
	}
}
