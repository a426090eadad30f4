package treebuilder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gitvault/pkg/core"
	"gitvault/pkg/index"
	"gitvault/pkg/storage"
	"gitvault/pkg/types"
)

// ErrLeafDirConflict: 同一个路径既被当作文件又被当作目录。
// 输入来自索引时不会发生 (索引在 Add 时已经去掉了冲突)，因此 Build 直接 panic。
var ErrLeafDirConflict = errors.New("path is both a file and a directory")

// Entry 是一个扁平的 (路径, id, 模式) 三元组
type Entry struct {
	Path string // "/" 分隔
	ID   types.ObjectID
	Mode core.FileMode
}

// FromIndex 把暂存区的条目转换为构建输入
func FromIndex(idx *index.Index) []Entry {
	src := idx.Entries()
	out := make([]Entry, 0, len(src))
	for _, e := range src {
		out = append(out, Entry{Path: e.Path, ID: e.ID, Mode: e.Mode})
	}
	return out
}

// Build 把扁平列表组装成内存中的嵌套 Tree。结果与输入顺序无关。
func Build(entries []Entry) (*core.Tree, error) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	root, err := core.NewTree(nil)
	if err != nil {
		return nil, err
	}

	for _, e := range sorted {
		parts := strings.Split(e.Path, "/")
		current := root

		// 遍历路径中的目录部分，按需创建子树
		for _, part := range parts[:len(parts)-1] {
			current, err = current.Subtree(part)
			if errors.Is(err, core.ErrEntryConflict) {
				panic(fmt.Errorf("%w: %s", ErrLeafDirConflict, e.Path))
			}
			if err != nil {
				return nil, fmt.Errorf("tree entry %s: %w", e.Path, err)
			}
		}

		err = current.PutLeaf(parts[len(parts)-1], e.Mode, e.ID)
		if errors.Is(err, core.ErrEntryConflict) {
			panic(fmt.Errorf("%w: %s", ErrLeafDirConflict, e.Path))
		}
		if err != nil {
			return nil, fmt.Errorf("tree entry %s: %w", e.Path, err)
		}
	}
	return root, nil
}

// Builder 负责把内存中的 Tree 持久化
type Builder struct {
	store storage.Store
}

func NewBuilder(store storage.Store) *Builder {
	return &Builder{store: store}
}

// Write 后序遍历：先写所有子树，再写父节点，返回根树的 id
func (b *Builder) Write(ctx context.Context, tree *core.Tree) (types.ObjectID, error) {
	for _, e := range tree.Entries() {
		if e.Tree == nil {
			continue
		}
		if _, err := b.Write(ctx, e.Tree); err != nil {
			return "", err
		}
	}

	if err := b.store.Put(ctx, tree); err != nil {
		return "", fmt.Errorf("failed to store tree: %w", err)
	}
	return tree.ID(), nil
}

// WriteIndex 构建并持久化暂存区对应的根树
func (b *Builder) WriteIndex(ctx context.Context, idx *index.Index) (types.ObjectID, error) {
	root, err := Build(FromIndex(idx))
	if err != nil {
		return "", err
	}
	return b.Write(ctx, root)
}
