package refs

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gitvault/pkg/lockfile"
	"gitvault/pkg/types"
)

var (
	ErrNoHead = errors.New("HEAD not found (clean repo)")
	// ErrStaleHead: HEAD 在读取之后被别人移动了 (乐观锁失败)
	ErrStaleHead = errors.New("HEAD has moved since it was read")
)

// Manager 负责管理引用 (Refs)，目前只有 HEAD
type Manager struct {
	rootPath string // .gv 目录
}

func NewManager(rootPath string) *Manager {
	return &Manager{rootPath: rootPath}
}

// HeadPath 返回 .gv/HEAD 的物理路径
func (m *Manager) HeadPath() string {
	return filepath.Join(m.rootPath, "HEAD")
}

// GetHead 读取当前的 Commit id
// 如果是新仓库（没提交过），返回 ErrNoHead
func (m *Manager) GetHead() (types.ObjectID, error) {
	data, err := os.ReadFile(m.HeadPath())
	if os.IsNotExist(err) {
		return "", ErrNoHead
	}
	if err != nil {
		return "", fmt.Errorf("failed to read HEAD: %w", err)
	}

	id := types.ObjectID(strings.TrimSpace(string(data)))
	if id.IsZero() {
		return "", ErrNoHead
	}
	if !id.IsValid() {
		return "", fmt.Errorf("corrupt HEAD: %w: %q", types.ErrInvalidObjectID, id)
	}
	return id, nil
}

// UpdateHead 通过锁文件把 HEAD 更新为 "<id>\n"
func (m *Manager) UpdateHead(id types.ObjectID) error {
	return m.update(id, func() error { return nil })
}

// CompareAndSwapHead 仅当 HEAD 仍然是 expected 时才更新 (expected 为空表示还没有提交)
// 检查在持有锁之后进行，与其他写入者互斥。
func (m *Manager) CompareAndSwapHead(expected, id types.ObjectID) error {
	return m.update(id, func() error {
		current, err := m.GetHead()
		if errors.Is(err, ErrNoHead) {
			current, err = "", nil
		}
		if err != nil {
			return err
		}
		if current != expected {
			return fmt.Errorf("%w: expected %q, found %q", ErrStaleHead, expected, current)
		}
		return nil
	})
}

func (m *Manager) update(id types.ObjectID, check func() error) error {
	if !id.IsValid() {
		return fmt.Errorf("update HEAD: %w: %q", types.ErrInvalidObjectID, id)
	}

	lock := lockfile.New(m.HeadPath())
	if err := lock.HoldForUpdate(); err != nil {
		return fmt.Errorf("failed to lock HEAD: %w", err)
	}
	if err := check(); err != nil {
		lock.Release()
		return err
	}
	if err := lock.WriteString(id.String() + "\n"); err != nil {
		lock.Release()
		return err
	}
	if err := lock.Commit(); err != nil {
		return err
	}
	slog.Debug("HEAD updated", "id", id)
	return nil
}
