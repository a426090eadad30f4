// pkg/types/common.go
package types

import (
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	// RawSize 是 SHA-1 摘要的字节长度
	RawSize = 20
	// HexSize 是 ObjectID 的十六进制字符长度
	HexSize = RawSize * 2
)

var ErrInvalidObjectID = errors.New("invalid object id")

// ObjectID 代表对象的唯一标识符 (SHA-1 Hex String)
// This is a value object: lowercase, 40 characters, never mutated.
type ObjectID string

func (id ObjectID) String() string { return string(id) }

func (id ObjectID) IsZero() bool { return id == "" }

// IsValid reports whether id is exactly 40 lowercase hex characters.
func (id ObjectID) IsValid() bool {
	if len(id) != HexSize {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}

// Short 返回前 7 位，用于 CLI 输出
func (id ObjectID) Short() string {
	if len(id) < 7 {
		return string(id)
	}
	return string(id[:7])
}

// Raw encodes the hex form into the 20 raw bytes stored inside trees and the index.
func (id ObjectID) Raw() ([RawSize]byte, error) {
	var out [RawSize]byte
	if !id.IsValid() {
		return out, fmt.Errorf("%w: %q", ErrInvalidObjectID, string(id))
	}
	if _, err := hex.Decode(out[:], []byte(id)); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidObjectID, err)
	}
	return out, nil
}

// ObjectIDFromRaw is the inverse of Raw.
func ObjectIDFromRaw(raw []byte) (ObjectID, error) {
	if len(raw) != RawSize {
		return "", fmt.Errorf("%w: expected %d raw bytes, found %d", ErrInvalidObjectID, RawSize, len(raw))
	}
	return ObjectID(hex.EncodeToString(raw)), nil
}

// HashPrefix 是用户输入的短哈希 (如 "a8fd")
type HashPrefix string

func (p HashPrefix) String() string { return string(p) }

// RepoPath 是相对于仓库根目录、使用 "/" 分隔的路径
type RepoPath string

func (p RepoPath) String() string { return string(p) }
