package ignore

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"sync"

	gitignore "github.com/sabhiram/go-gitignore"
)

// FileName 是用户自定义忽略规则所在的文件，可以出现在任意目录中
const FileName = ".gvignore"

// builtinRules 总是生效
var builtinRules = []string{
	".gv",  // 仓库元数据目录，索引它会无限递归
	".git",
	".env", // 防止环境变量文件泄露
	".DS_Store",
	"Thumbs.db",
}

// Matcher 判断一个工作区路径是否应被排除在版本管理之外。
// 每个目录下的 .gvignore 只作用于该目录及其子目录，规则按需加载并缓存。
type Matcher struct {
	root    string
	builtin *gitignore.GitIgnore

	mu     sync.Mutex
	perDir map[string]*gitignore.GitIgnore // nil 值表示该目录没有 .gvignore
}

// NewMatcher rootPath 是工作区根目录；metaDir 是元数据目录名，永远被忽略。
func NewMatcher(rootPath, metaDir string) (*Matcher, error) {
	rules := append([]string(nil), builtinRules...)
	if metaDir = strings.Trim(filepath.ToSlash(metaDir), "/"); metaDir != "" && metaDir != ".gv" {
		rules = append(rules, metaDir)
	}

	m := &Matcher{
		root:    rootPath,
		builtin: gitignore.CompileIgnoreLines(rules...),
		perDir:  make(map[string]*gitignore.GitIgnore),
	}

	// 根目录的规则文件有问题时直接报错，子目录的只记日志
	rootRules, err := m.compile(".")
	if err != nil {
		return nil, err
	}
	m.perDir["."] = rootRules
	return m, nil
}

func (m *Matcher) compile(dir string) (*gitignore.GitIgnore, error) {
	file := filepath.Join(m.root, filepath.FromSlash(dir), FileName)
	gi, err := gitignore.CompileIgnoreFile(file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file, err)
	}
	return gi, nil
}

func (m *Matcher) rulesFor(dir string) *gitignore.GitIgnore {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gi, ok := m.perDir[dir]; ok {
		return gi
	}
	gi, err := m.compile(dir)
	if err != nil {
		slog.Warn("ignoring unreadable ignore file", "dir", dir, "error", err)
	}
	m.perDir[dir] = gi
	return gi
}

// Matches path 是相对于工作区根目录、以 "/" 分隔的路径 (例如 "data/model.bin")。
func (m *Matcher) Matches(p string) bool {
	p = path.Clean(p)
	if m.builtin.MatchesPath(p) {
		return true
	}

	// 由浅到深检查每一层目录，规则以所在目录为基准
	dir, rest := ".", p
	for {
		if gi := m.rulesFor(dir); gi != nil && gi.MatchesPath(rest) {
			return true
		}
		head, tail, ok := strings.Cut(rest, "/")
		if !ok {
			return false
		}
		dir, rest = path.Join(dir, head), tail
	}
}
