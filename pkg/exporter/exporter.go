package exporter

import (
	"context"
	"fmt"
	"io"
	"path"

	"gitvault/pkg/core"
	"gitvault/pkg/storage"
	"gitvault/pkg/types"
)

type Exporter struct {
	store storage.Store
}

func NewExporter(store storage.Store) *Exporter {
	return &Exporter{store: store}
}

// ExportFile 把 Blob 的内容写入 writer
func (e *Exporter) ExportFile(ctx context.Context, id types.ObjectID, writer io.Writer) error {
	obj, err := storage.Load(ctx, e.store, id)
	if err != nil {
		return fmt.Errorf("failed to load blob %s: %w", id, err)
	}
	blob, ok := obj.(*core.Blob)
	if !ok {
		return fmt.Errorf("object %s is a %s, not a blob", id, obj.Type())
	}
	if _, err := writer.Write(blob.Data()); err != nil {
		return fmt.Errorf("failed to write blob %s: %w", id, err)
	}
	return nil
}

// PrintObject 按类型打印对象 (cat-file -p)
func (e *Exporter) PrintObject(ctx context.Context, id types.ObjectID, writer io.Writer) error {
	obj, err := storage.Load(ctx, e.store, id)
	if err != nil {
		return err
	}
	return PrintStructure(obj, writer)
}

// Target 是 RestoreTree 的写入目标 (由 workspace.Workspace 实现)
type Target interface {
	Write(path string, data []byte, executable bool) error
}

type RestoreCallback func(path string, id types.ObjectID, mode core.FileMode)

// RestoreTree 递归地把 Tree 还原到目标中。prefix 是这棵树在工作区中的路径 ("" 表示根)。
func (e *Exporter) RestoreTree(ctx context.Context, treeID types.ObjectID, target Target, prefix string, onRestore RestoreCallback) error {
	tree, err := storage.LoadTree(ctx, e.store, treeID)
	if err != nil {
		return fmt.Errorf("failed to get tree %s: %w", treeID, err)
	}

	for _, entry := range tree.Entries() {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel := path.Join(prefix, entry.Name)

		if entry.IsDir() {
			if err := e.RestoreTree(ctx, entry.ID, target, rel, onRestore); err != nil {
				return err
			}
			continue
		}

		obj, err := storage.Load(ctx, e.store, entry.ID)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", rel, err)
		}
		blob, ok := obj.(*core.Blob)
		if !ok {
			return fmt.Errorf("%s: object %s is a %s, not a blob", rel, entry.ID, obj.Type())
		}
		if err := target.Write(rel, blob.Data(), entry.Mode == core.ModeExecutable); err != nil {
			return err
		}

		// 通知上层更新 Index
		if onRestore != nil {
			onRestore(rel, entry.ID, entry.Mode)
		}
	}
	return nil
}

// WalkTree 深度优先列出树中所有文件 (路径按名字排序)
func (e *Exporter) WalkTree(ctx context.Context, treeID types.ObjectID, prefix string, fn func(path string, entry core.TreeEntry) error) error {
	tree, err := storage.LoadTree(ctx, e.store, treeID)
	if err != nil {
		return err
	}
	for _, entry := range tree.Entries() {
		rel := path.Join(prefix, entry.Name)
		if entry.IsDir() {
			if err := e.WalkTree(ctx, entry.ID, rel, fn); err != nil {
				return err
			}
			continue
		}
		if err := fn(rel, entry); err != nil {
			return err
		}
	}
	return nil
}
