// Package lockfile implements the "<target>.lock" protocol that guards
// rewrites of the index and HEAD.
//
// A lock moves through unlocked -> held -> committed | rolled back.
// Holding is an exclusive create of the sibling ".lock" file; committing
// renames it over the target, rolling back deletes it. A lock that is never
// released leaves the ".lock" file behind and the next acquirer fails with
// ErrLockHeld.
package lockfile

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
)

const Suffix = ".lock"

var (
	// ErrStaleLock 在未持有锁时调用 Write/Commit/Rollback
	ErrStaleLock = errors.New("not holding lock on file")
	// ErrLockHeld 锁文件已存在 (别的进程持有，或者上次崩溃遗留)
	ErrLockHeld = errors.New("unable to acquire lock")
)

// Lockfile guards a single target path.
type Lockfile struct {
	path     string
	lockPath string
	lock     *os.File
}

func New(path string) *Lockfile {
	return &Lockfile{path: path, lockPath: path + Suffix}
}

func (l *Lockfile) Path() string     { return l.path }
func (l *Lockfile) LockPath() string { return l.lockPath }
func (l *Lockfile) IsHeld() bool     { return l.lock != nil }

// HoldForUpdate 获取锁。已经持有时什么都不做，保留第一次打开的句柄。
func (l *Lockfile) HoldForUpdate() error {
	if l.lock != nil {
		return nil
	}

	f, err := os.OpenFile(l.lockPath, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w %s: %w", ErrLockHeld, l.lockPath, err)
		}
		return fmt.Errorf("failed to create lock %s: %w", l.lockPath, err)
	}
	l.lock = f
	slog.Debug("lock acquired", "path", l.lockPath)
	return nil
}

// Write 把数据写入锁文件 (不是目标文件)
func (l *Lockfile) Write(p []byte) (int, error) {
	if l.lock == nil {
		return 0, fmt.Errorf("%w %s", ErrStaleLock, l.lockPath)
	}
	n, err := l.lock.Write(p)
	if err != nil {
		return n, fmt.Errorf("failed to write lock %s: %w", l.lockPath, err)
	}
	return n, nil
}

func (l *Lockfile) WriteString(s string) error {
	_, err := l.Write([]byte(s))
	return err
}

// Commit 关闭锁文件并把它原子地重命名为目标文件
func (l *Lockfile) Commit() error {
	if l.lock == nil {
		return fmt.Errorf("%w %s", ErrStaleLock, l.lockPath)
	}

	f := l.lock
	l.lock = nil
	if err := f.Close(); err != nil {
		_ = os.Remove(l.lockPath)
		return fmt.Errorf("failed to close lock %s: %w", l.lockPath, err)
	}
	if err := os.Rename(l.lockPath, l.path); err != nil {
		_ = os.Remove(l.lockPath)
		return fmt.Errorf("failed to commit lock %s: %w", l.lockPath, err)
	}
	slog.Debug("lock committed", "path", l.path)
	return nil
}

// Rollback 丢弃锁文件，目标文件保持不变
func (l *Lockfile) Rollback() error {
	if l.lock == nil {
		return fmt.Errorf("%w %s", ErrStaleLock, l.lockPath)
	}

	f := l.lock
	l.lock = nil
	closeErr := f.Close()
	if err := os.Remove(l.lockPath); err != nil {
		return fmt.Errorf("failed to remove lock %s: %w", l.lockPath, err)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close lock %s: %w", l.lockPath, closeErr)
	}
	slog.Debug("lock rolled back", "path", l.path)
	return nil
}

// Release 用在出错路径上：回滚并只记录回滚本身的失败，调用方返回原来的错误
func (l *Lockfile) Release() {
	if err := l.Rollback(); err != nil {
		slog.Warn("failed to release lock", "path", l.lockPath, "error", err)
	}
}
