package disk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"gitvault/pkg/core"
	"gitvault/pkg/storage"
	"gitvault/pkg/types"
)

const tempPrefix = "tmp_obj_"

const tempAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Adapter 实现了 storage.Store 接口 (loose objects, zlib 压缩)
type Adapter struct {
	rootPath string // 比如: /home/user/project/.gv/objects
}

// NewAdapter 创建一个新的磁盘存储适配器
func NewAdapter(root string) (*Adapter, error) {
	// 确保根目录存在
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create root storage dir: %w", err)
	}
	return &Adapter{rootPath: root}, nil
}

func (s *Adapter) Root() string { return s.rootPath }

// layout 返回 id 对应的物理路径
// 策略：使用前 2 个字符作为子目录 (Sharding)
// Example: "aabbcc..." -> root/aa/bbcc...
func (s *Adapter) layout(id types.ObjectID) string {
	if len(id) < 2 {
		return filepath.Join(s.rootPath, string(id))
	}
	return filepath.Join(s.rootPath, string(id[:2]), string(id[2:]))
}

func (s *Adapter) Put(ctx context.Context, obj core.Object) error {
	_, err := s.Store(ctx, obj)
	return err
}

// Store 写入对象并返回它的 id。已存在的对象不会被重写。
func (s *Adapter) Store(ctx context.Context, obj core.Object) (types.ObjectID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := obj.ID()
	targetPath := s.layout(id)

	// 1. 检查是否存在 (幂等性)
	if _, err := os.Stat(targetPath); err == nil {
		return id, nil
	}

	// 2. 准备目录
	dir := filepath.Dir(targetPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create object dir: %w", err)
	}

	// 3. 压缩规范字节
	data, err := storage.Compress(obj.Bytes())
	if err != nil {
		return "", fmt.Errorf("failed to compress object %s: %w", id, err)
	}

	// 4. 原子写入：先写临时文件，再 Rename
	// 要么文件不存在，要么文件是完整的
	tempFile, err := createTemp(dir)
	if err != nil {
		return "", err
	}
	tempName := tempFile.Name()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		os.Remove(tempName)
		return "", fmt.Errorf("failed to write object %s: %w", id, err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempName)
		return "", fmt.Errorf("failed to close object %s: %w", id, err)
	}

	// 5. 移动到最终位置
	if err := os.Rename(tempName, targetPath); err != nil {
		os.Remove(tempName)
		return "", fmt.Errorf("failed to rename object %s: %w", id, err)
	}

	slog.Debug("object written", "id", id, "type", obj.Type(), "bytes", len(data))
	return id, nil
}

// createTemp 在目标目录下创建 tmp_obj_XXXXXX
func createTemp(dir string) (*os.File, error) {
	for range 10 {
		var suffix [6]byte
		for i := range suffix {
			suffix[i] = tempAlphabet[rand.IntN(len(tempAlphabet))]
		}
		name := filepath.Join(dir, tempPrefix+string(suffix[:]))
		f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o444)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create temp object: %w", err)
		}
		return f, nil
	}
	return nil, fmt.Errorf("failed to create temp object in %s: too many collisions", dir)
}

// Get 返回解压后的规范字节
func (s *Adapter) Get(ctx context.Context, id types.ObjectID) (io.ReadCloser, error) {
	f, err := os.Open(s.layout(id))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return storage.NewDecompressor(f)
}

func (s *Adapter) Has(ctx context.Context, id types.ObjectID) (bool, error) {
	_, err := os.Stat(s.layout(id))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// ExpandHash 在分片目录中查找唯一匹配前缀的对象
func (s *Adapter) ExpandHash(ctx context.Context, prefix types.HashPrefix) (types.ObjectID, error) {
	if err := storage.ValidatePrefix(prefix); err != nil {
		return "", err
	}
	p := string(prefix)

	entries, err := os.ReadDir(filepath.Join(s.rootPath, p[:2]))
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %s", storage.ErrNotFound, p)
	}
	if err != nil {
		return "", err
	}

	var match types.ObjectID
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, tempPrefix) || !strings.HasPrefix(name, p[2:]) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("%w: %s", storage.ErrAmbiguousHash, p)
		}
		match = types.ObjectID(p[:2] + name)
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", storage.ErrNotFound, p)
	}
	return match, nil
}
