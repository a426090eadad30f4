package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strings"
	"time"

	"gitvault/pkg/core"
	"gitvault/pkg/exporter"
	"gitvault/pkg/index"
	"gitvault/pkg/ingester"
	"gitvault/pkg/meta"
	"gitvault/pkg/refs"
	"gitvault/pkg/storage"
	"gitvault/pkg/treebuilder"
	"gitvault/pkg/types"
)

var (
	ErrPathspec         = errors.New("pathspec did not match any files")
	ErrIgnoredPath      = errors.New("path is ignored by one of the .gvignore files")
	ErrNothingToCommit  = errors.New("nothing to commit")
	ErrEmptyMessage     = errors.New("aborting commit due to empty commit message")
	ErrMetaDisabled     = errors.New("meta database is not configured")
	ErrLocalChanges     = errors.New("local changes would be overwritten by checkout")
	ErrNotACommitObject = errors.New("object is not a commit")
)

// AddSummary 记录一次 Add 的结果
type AddSummary struct {
	Files     []ingester.Result // 重新入库的文件
	Unchanged int               // stat 未变而跳过的文件数
	Removed   []string          // 工作区中已删除、因此移出暂存区的路径
}

// Bytes 返回本次入库的总字节数
func (s *AddSummary) Bytes() int64 {
	var n int64
	for _, r := range s.Files {
		n += r.Stat.Size
	}
	return n
}

// updateIndex 在持有索引锁的情况下执行 fn，成功后写回
func (a *App) updateIndex(fn func(idx *index.Index) error) error {
	if err := a.Index.LoadForUpdate(); err != nil {
		return fmt.Errorf("failed to lock index: %w", err)
	}
	if err := fn(a.Index); err != nil {
		if rbErr := a.Index.Rollback(); rbErr != nil {
			a.log.Warn("failed to release index lock", "error", rbErr)
		}
		return err
	}
	return a.Index.WriteUpdates()
}

// relPaths 把用户输入的路径转成工作区相对路径；为空时表示整个工作区
func (a *App) relPaths(paths []string) ([]string, error) {
	if len(paths) == 0 {
		return []string{"."}, nil
	}
	rels := make([]string, 0, len(paths))
	for _, p := range paths {
		rel, err := a.Workspace.Rel(p)
		if err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}
	return rels, nil
}

func under(p, dir string) bool {
	return dir == "." || p == dir || strings.HasPrefix(p, dir+"/")
}

// Add 把 paths 下的文件存为 Blob 并写入暂存区 (paths 为空时是整个工作区)。
// 已跟踪但在工作区中被删除的文件会从暂存区移除。
func (a *App) Add(ctx context.Context, paths []string, progress func(ingester.Result)) (*AddSummary, error) {
	start := time.Now()
	rels, err := a.relPaths(paths)
	if err != nil {
		return nil, err
	}

	for _, rel := range rels {
		if rel != "." && a.Workspace.Ignored(rel) {
			return nil, fmt.Errorf("%w: %s", ErrIgnoredPath, rel)
		}
	}

	sum := &AddSummary{}
	err = a.updateIndex(func(idx *index.Index) error {
		seen := make(map[string]struct{})
		var todo []string

		for _, rel := range rels {
			found, err := a.Workspace.List(rel)
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			for _, p := range found {
				if _, dup := seen[p]; dup {
					continue
				}
				seen[p] = struct{}{}

				st, err := a.Workspace.Stat(p)
				if err != nil {
					return err
				}
				if e, ok := idx.Entry(p); ok && e.StatMatches(st) {
					sum.Unchanged++
					continue
				}
				todo = append(todo, p)
			}

			missing := a.pruneMissing(idx, rel, seen)
			if len(found) == 0 && len(missing) == 0 && err != nil {
				return fmt.Errorf("%w: %s", ErrPathspec, rel)
			}
			sum.Removed = append(sum.Removed, missing...)
		}

		sort.Strings(todo)
		results, err := ingester.NewIngester(a.Store, a.workers).IngestPaths(ctx, a.Workspace, todo, progress)
		if err != nil {
			return err
		}
		for _, r := range results {
			if err := idx.Add(r.Path, r.ID, r.Stat); err != nil {
				return err
			}
		}
		sum.Files = results
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.log.Debug("paths added", "files", len(sum.Files), "unchanged", sum.Unchanged, "removed", len(sum.Removed), since(start))
	return sum, nil
}

// pruneMissing 删除 dir 下已跟踪但在磁盘上不存在的条目
func (a *App) pruneMissing(idx *index.Index, dir string, seen map[string]struct{}) []string {
	var removed []string
	for _, e := range idx.Entries() {
		if !under(e.Path, dir) {
			continue
		}
		if _, ok := seen[e.Path]; ok {
			continue
		}
		if _, err := a.Workspace.Stat(e.Path); errors.Is(err, fs.ErrNotExist) {
			idx.Remove(e.Path)
			removed = append(removed, e.Path)
		}
	}
	return removed
}

// Remove 把路径 (文件或目录) 移出暂存区，不修改工作区
func (a *App) Remove(paths []string) ([]string, error) {
	rels, err := a.relPaths(paths)
	if err != nil {
		return nil, err
	}

	var removed []string
	err = a.updateIndex(func(idx *index.Index) error {
		for _, rel := range rels {
			matched := false
			for _, e := range idx.Entries() {
				if under(e.Path, rel) && idx.Remove(e.Path) {
					removed = append(removed, e.Path)
					matched = true
				}
			}
			if !matched {
				return fmt.Errorf("%w: %s", ErrPathspec, rel)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// HashObject 计算内容作为 Blob 的 id；write 为 true 时同时写入对象库
func (a *App) HashObject(ctx context.Context, r io.Reader, write bool) (types.ObjectID, error) {
	if write {
		blob, err := ingester.NewIngester(a.Store, a.workers).IngestFile(ctx, r)
		if err != nil {
			return "", err
		}
		return blob.ID(), nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return core.NewBlob(data).ID(), nil
}

// Files 返回暂存区的全部记录
func (a *App) Files() ([]index.Entry, error) {
	if err := a.Index.Load(); err != nil {
		return nil, err
	}
	return a.Index.Entries(), nil
}

// Head 返回当前 HEAD，没有提交时为空
func (a *App) Head() (types.ObjectID, error) {
	head, err := a.Refs.GetHead()
	if errors.Is(err, refs.ErrNoHead) {
		return "", nil
	}
	return head, err
}

// Commit 把暂存区写成树并创建提交，随后移动 HEAD。
// all 为 true 时先暂存整个工作区 (包括删除)。
func (a *App) Commit(ctx context.Context, author core.Author, msg string, all bool) (*core.Commit, error) {
	if strings.TrimSpace(msg) == "" {
		return nil, ErrEmptyMessage
	}
	start := time.Now()

	if all {
		if _, err := a.Add(ctx, nil, nil); err != nil {
			return nil, err
		}
	}

	if err := a.Index.Load(); err != nil {
		return nil, err
	}
	if a.Index.IsEmpty() {
		return nil, ErrNothingToCommit
	}

	treeID, err := treebuilder.NewBuilder(a.Store).WriteIndex(ctx, a.Index)
	if err != nil {
		return nil, fmt.Errorf("failed to build tree: %w", err)
	}

	parent, err := a.Head()
	if err != nil {
		return nil, err
	}
	if !parent.IsZero() {
		prev, err := storage.LoadCommit(ctx, a.Store, parent)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
		}
		if prev.TreeID == treeID {
			return nil, ErrNothingToCommit
		}
	}

	c, err := core.NewCommit(parent, treeID, author, msg)
	if err != nil {
		return nil, err
	}
	if err := a.Store.Put(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to store commit: %w", err)
	}
	if err := a.Refs.CompareAndSwapHead(parent, c.ID()); err != nil {
		return nil, fmt.Errorf("failed to update HEAD: %w", err)
	}

	// SQL 只是投影，失败不影响提交本身
	if a.Meta != nil {
		if err := a.Meta.IndexCommit(ctx, c); err != nil {
			a.log.Warn("failed to index commit", "id", c.ID(), "error", err)
		}
	}

	a.log.Debug("commit created", "id", c.ID(), "tree", treeID, "parent", parent, since(start))
	return c, nil
}

// Resolve 把 "HEAD" (或空串) 与 hash 前缀解析为完整 id
func (a *App) Resolve(ctx context.Context, rev string) (types.ObjectID, error) {
	if rev == "" || rev == "HEAD" {
		return a.Refs.GetHead()
	}
	return a.Store.ExpandHash(ctx, types.HashPrefix(strings.ToLower(rev)))
}

// ReadObject 解析 rev 并加载对象
func (a *App) ReadObject(ctx context.Context, rev string) (core.Object, error) {
	id, err := a.Resolve(ctx, rev)
	if err != nil {
		return nil, err
	}
	return storage.Load(ctx, a.Store, id)
}

// ObjectInfo 返回对象的类型和大小 (有缓存时走缓存)
func (a *App) ObjectInfo(ctx context.Context, rev string) (storage.ObjectInfo, error) {
	id, err := a.Resolve(ctx, rev)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	return storage.Stat(ctx, a.Store, id)
}

func (a *App) loadCommit(ctx context.Context, rev string) (*core.Commit, error) {
	obj, err := a.ReadObject(ctx, rev)
	if err != nil {
		return nil, err
	}
	c, ok := obj.(*core.Commit)
	if !ok {
		return nil, fmt.Errorf("%w: %s is a %s", ErrNotACommitObject, obj.ID().Short(), obj.Type())
	}
	return c, nil
}

// Log 从 rev (空表示 HEAD) 沿 parent 链向上返回提交，最新的在前。
// limit <= 0 表示不限制。
func (a *App) Log(ctx context.Context, rev string, limit int) ([]*core.Commit, error) {
	c, err := a.loadCommit(ctx, rev)
	if err != nil {
		return nil, err
	}

	var out []*core.Commit
	for {
		out = append(out, c)
		if c.IsRoot() || (limit > 0 && len(out) >= limit) {
			return out, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c, err = storage.LoadCommit(ctx, a.Store, c.Parent); err != nil {
			return nil, fmt.Errorf("failed to load parent: %w", err)
		}
	}
}

// LogByAuthor 通过 SQL 投影按作者查询
func (a *App) LogByAuthor(ctx context.Context, author string, limit int) ([]meta.CommitModel, error) {
	if a.Meta == nil {
		return nil, ErrMetaDisabled
	}
	return a.Meta.FindCommitsByAuthor(ctx, author, limit)
}

// Checkout 把 rev 指向的提交还原到工作区，重建暂存区并移动 HEAD。
// 已跟踪文件有未暂存的修改时拒绝执行，除非 force。
func (a *App) Checkout(ctx context.Context, rev string, force bool) (*core.Commit, error) {
	start := time.Now()
	c, err := a.loadCommit(ctx, rev)
	if err != nil {
		return nil, err
	}

	exp := exporter.NewExporter(a.Store)
	target := make(map[string]core.TreeEntry)
	err = exp.WalkTree(ctx, c.TreeID, "", func(p string, e core.TreeEntry) error {
		target[p] = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = a.updateIndex(func(idx *index.Index) error {
		previous := idx.Entries()
		if !force {
			if dirty := a.dirtyPaths(previous); len(dirty) > 0 {
				return fmt.Errorf("%w: %s", ErrLocalChanges, strings.Join(dirty, ", "))
			}
		}

		// 先删掉目标中不存在的文件，避免文件/目录冲突
		for _, e := range previous {
			if _, keep := target[e.Path]; !keep {
				if err := a.Workspace.Remove(e.Path); err != nil {
					return err
				}
			}
		}

		idx.Clear()
		var addErr error
		err := exp.RestoreTree(ctx, c.TreeID, a.Workspace, "", func(p string, id types.ObjectID, _ core.FileMode) {
			if addErr != nil {
				return
			}
			st, err := a.Workspace.Stat(p)
			if err != nil {
				addErr = err
				return
			}
			addErr = idx.Add(p, id, st)
		})
		if err != nil {
			return fmt.Errorf("checkout failed: %w", err)
		}
		return addErr
	})
	if err != nil {
		return nil, err
	}

	if err := a.Refs.UpdateHead(c.ID()); err != nil {
		return nil, fmt.Errorf("failed to update HEAD: %w", err)
	}
	a.log.Debug("checked out", "id", c.ID(), "files", len(target), since(start))
	return c, nil
}

// dirtyPaths 返回内容与暂存区不一致的已跟踪文件
func (a *App) dirtyPaths(entries []index.Entry) []string {
	var dirty []string
	for _, e := range entries {
		st, err := a.Workspace.Stat(e.Path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err == nil && e.StatMatches(st) {
			continue
		}
		data, err := a.Workspace.Read(e.Path)
		if err != nil || core.NewBlob(data).ID() != e.ID {
			dirty = append(dirty, e.Path)
		}
	}
	return dirty
}
