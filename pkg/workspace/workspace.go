// Package workspace gives the rest of the repository a narrow view of the
// working directory: which files are tracked, their bytes, and their stat
// data. Paths crossing this boundary are relative to the root and always
// use "/" as separator.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gitvault/pkg/ignore"
)

var ErrOutsideWorkspace = errors.New("path is outside the workspace")

// FileStat 是索引需要的文件元数据。拿不到的字段为 0。
type FileStat struct {
	Created    time.Time // ctime (inode change time on unix)
	Modified   time.Time
	Accessed   time.Time
	Size       int64
	Executable bool
	Dev        uint32
	Ino        uint32
	UID        uint32
	GID        uint32
}

type Workspace struct {
	root    string
	matcher *ignore.Matcher
}

// New 打开工作区。metaDir 是仓库元数据目录名，总是被忽略。
func New(root, metaDir string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	m, err := ignore.NewMatcher(abs, metaDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load ignore rules: %w", err)
	}
	return &Workspace{root: abs, matcher: m}, nil
}

func (w *Workspace) Root() string { return w.root }

// Ignored 报告路径是否被忽略规则排除
func (w *Workspace) Ignored(rel string) bool {
	return w.matcher.Matches(rel)
}

// Rel 把用户输入的路径 (相对于当前目录或绝对路径) 转换为工作区相对路径
func (w *Workspace) Rel(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(w.root, abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrOutsideWorkspace, p)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%w: %s", ErrOutsideWorkspace, p)
	}
	return rel, nil
}

// List 返回工作区中所有未被忽略的普通文件，按路径排序。
// 传入 paths (工作区相对路径) 时只展开这些文件或目录。
func (w *Workspace) List(paths ...string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	seen := make(map[string]struct{})
	for _, p := range paths {
		p = path.Clean(filepath.ToSlash(p))
		if err := w.walk(p, seen); err != nil {
			return nil, err
		}
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

func (w *Workspace) walk(start string, seen map[string]struct{}) error {
	return filepath.WalkDir(w.abs(start), func(full string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(w.root, full)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if rel != "." && w.matcher.Matches(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		// 只收集普通文件 (跳过符号链接、设备等)
		if d.Type().IsRegular() {
			seen[rel] = struct{}{}
		}
		return nil
	})
}

func (w *Workspace) abs(rel string) string {
	return filepath.Join(w.root, filepath.FromSlash(rel))
}

func (w *Workspace) Read(rel string) ([]byte, error) {
	data, err := os.ReadFile(w.abs(rel))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rel, err)
	}
	return data, nil
}

func (w *Workspace) Stat(rel string) (FileStat, error) {
	info, err := os.Stat(w.abs(rel))
	if err != nil {
		return FileStat{}, fmt.Errorf("failed to stat %s: %w", rel, err)
	}
	st := FileStat{
		Modified:   info.ModTime(),
		Created:    info.ModTime(),
		Accessed:   info.ModTime(),
		Size:       info.Size(),
		Executable: info.Mode().Perm()&0o100 != 0,
	}
	fillSys(&st, info)
	return st, nil
}

// Write 写入文件 (checkout 使用)，必要时创建父目录
func (w *Workspace) Write(rel string, data []byte, executable bool) error {
	if !filepath.IsLocal(filepath.FromSlash(rel)) {
		return fmt.Errorf("%w: %s", ErrOutsideWorkspace, rel)
	}
	full := w.abs(rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create dir for %s: %w", rel, err)
	}
	perm := os.FileMode(0o644)
	if executable {
		perm = 0o755
	}
	if err := os.WriteFile(full, data, perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	// WriteFile 不会修改已存在文件的权限
	if err := os.Chmod(full, perm); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", rel, err)
	}
	return nil
}

// Remove 删除文件，并清理因此变空的父目录
func (w *Workspace) Remove(rel string) error {
	if !filepath.IsLocal(filepath.FromSlash(rel)) {
		return fmt.Errorf("%w: %s", ErrOutsideWorkspace, rel)
	}
	if err := os.Remove(w.abs(rel)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", rel, err)
	}
	for dir := path.Dir(rel); dir != "." && dir != "/"; dir = path.Dir(dir) {
		if err := os.Remove(w.abs(dir)); err != nil {
			break // 非空或不存在
		}
	}
	return nil
}
