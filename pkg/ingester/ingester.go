package ingester

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"

	"gitvault/pkg/core"
	"gitvault/pkg/storage"
	"gitvault/pkg/types"
	"gitvault/pkg/workspace"

	"golang.org/x/sync/errgroup"
)

// Source 是 Ingester 读取文件的来源 (由 workspace.Workspace 实现)
type Source interface {
	Read(path string) ([]byte, error)
	Stat(path string) (workspace.FileStat, error)
}

// Result 是一个文件入库后的结果，用于写入索引
type Result struct {
	Path string
	ID   types.ObjectID
	Stat workspace.FileStat
}

type Ingester struct {
	store   storage.Store
	workers int
}

// NewIngester workers <= 0 时使用 CPU 核数
func NewIngester(store storage.Store, workers int) *Ingester {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Ingester{store: store, workers: workers}
}

// IngestFile 读取一个文件流，存为 Blob
func (ing *Ingester) IngestFile(ctx context.Context, reader io.Reader) (*core.Blob, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	blob := core.NewBlob(data)
	if err := ing.store.Put(ctx, blob); err != nil {
		return nil, fmt.Errorf("failed to store blob: %w", err)
	}
	return blob, nil
}

// IngestPaths 并发地把一批工作区文件存为 Blob。
// 结果与 paths 顺序一致；任何一个失败都会取消剩余的工作。
// progress (可选) 在每个文件完成后被调用，调用是串行的。
func (ing *Ingester) IngestPaths(ctx context.Context, src Source, paths []string, progress func(Result)) ([]Result, error) {
	results := make([]Result, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(ing.workers)

	var mu sync.Mutex
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			data, err := src.Read(p)
			if err != nil {
				return err
			}
			st, err := src.Stat(p)
			if err != nil {
				return err
			}

			blob := core.NewBlob(data)
			if err := ing.store.Put(ctx, blob); err != nil {
				return fmt.Errorf("failed to store %s: %w", p, err)
			}

			results[i] = Result{Path: p, ID: blob.ID(), Stat: st}
			if progress != nil {
				mu.Lock()
				progress(results[i])
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
