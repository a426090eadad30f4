package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gitvault/pkg/core"
	"gitvault/pkg/types"
)

// MinPrefixLen 是 ExpandHash 接受的最短前缀
const MinPrefixLen = 4

var (
	ErrNotFound       = errors.New("object not found")
	ErrAmbiguousHash  = errors.New("ambiguous hash prefix")
	ErrPrefixTooShort = errors.New("hash prefix too short")
)

// Store defines the interface for an object database backend.
// Objects are append-only: once an id is present it is never rewritten or deleted.
type Store interface {
	// Put 持久化一个对象。对象已存在时直接返回 nil (不是错误)
	Put(ctx context.Context, obj core.Object) error

	// Get 返回解压后的规范字节 "<type> <len>\0<payload>"
	// 返回 io.ReadCloser 以支持流式读取，调用方负责 Close
	Get(ctx context.Context, id types.ObjectID) (io.ReadCloser, error)

	// Has 检查对象是否存在 (用于去重逻辑)
	Has(ctx context.Context, id types.ObjectID) (bool, error)

	// ExpandHash 把唯一前缀扩展成完整 id
	ExpandHash(ctx context.Context, prefix types.HashPrefix) (types.ObjectID, error)
}

// Load 读取并解码一个对象，同时校验内容确实对应这个 id
func Load(ctx context.Context, s Store, id types.ObjectID) (core.Object, error) {
	rc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", id, err)
	}
	if got := core.HashBytes(raw); got != id {
		return nil, fmt.Errorf("%w: object %s hashes to %s", core.ErrMalformedObject, id, got)
	}
	obj, err := core.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", id, err)
	}
	return obj, nil
}

// LoadCommit 读取对象并断言它是 Commit
func LoadCommit(ctx context.Context, s Store, id types.ObjectID) (*core.Commit, error) {
	obj, err := Load(ctx, s, id)
	if err != nil {
		return nil, err
	}
	c, ok := obj.(*core.Commit)
	if !ok {
		return nil, fmt.Errorf("object %s is a %s, not a commit", id, obj.Type())
	}
	return c, nil
}

// LoadTree 读取对象并断言它是 Tree
func LoadTree(ctx context.Context, s Store, id types.ObjectID) (*core.Tree, error) {
	obj, err := Load(ctx, s, id)
	if err != nil {
		return nil, err
	}
	t, ok := obj.(*core.Tree)
	if !ok {
		return nil, fmt.Errorf("object %s is a %s, not a tree", id, obj.Type())
	}
	return t, nil
}

// ValidatePrefix 检查用户输入的短哈希
func ValidatePrefix(prefix types.HashPrefix) error {
	if len(prefix) < MinPrefixLen {
		return fmt.Errorf("%w: %q (need at least %d characters)", ErrPrefixTooShort, prefix, MinPrefixLen)
	}
	if len(prefix) > types.HexSize {
		return fmt.Errorf("%w: %q", types.ErrInvalidObjectID, prefix)
	}
	for i := 0; i < len(prefix); i++ {
		c := prefix[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return fmt.Errorf("%w: %q", types.ErrInvalidObjectID, prefix)
		}
	}
	return nil
}

// ObjectInfo 是对象的元数据 (不含内容)，用于 cat-file -t / -s
type ObjectInfo struct {
	Type core.ObjectType `cbor:"1,keyasint"`
	Size int             `cbor:"2,keyasint"`
}

// InfoStore 由能直接回答元数据查询的后端实现 (比如 Redis 缓存)
type InfoStore interface {
	Info(ctx context.Context, id types.ObjectID) (ObjectInfo, error)
}

// Stat 返回对象的类型和 payload 长度。后端实现了 InfoStore 时走快路径，
// 否则只读取头部。
func Stat(ctx context.Context, s Store, id types.ObjectID) (ObjectInfo, error) {
	if is, ok := s.(InfoStore); ok {
		return is.Info(ctx, id)
	}
	return ReadInfo(ctx, s, id)
}

// ReadInfo 从后端读取对象并只解析头部
func ReadInfo(ctx context.Context, s Store, id types.ObjectID) (ObjectInfo, error) {
	rc, err := s.Get(ctx, id)
	if err != nil {
		return ObjectInfo{}, err
	}
	defer rc.Close()

	// 头部最长是 "commit " + 十进制长度 + NUL
	head := make([]byte, 32)
	n, err := io.ReadFull(rc, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return ObjectInfo{}, fmt.Errorf("failed to read object %s: %w", id, err)
	}
	typ, size, err := core.ReadHeader(head[:n])
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("object %s: %w", id, err)
	}
	return ObjectInfo{Type: typ, Size: size}, nil
}
