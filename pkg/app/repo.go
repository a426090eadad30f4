package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FormatVersion 是当前支持的仓库格式版本
const FormatVersion = 0

const repoConfigName = "config"

var (
	ErrNotRepository     = errors.New("not a gitvault repository")
	ErrRepositoryExists  = errors.New("repository already exists")
	ErrUnsupportedFormat = errors.New("unsupported repository format version")
)

// RepoConfig 是 <meta>/config 的内容 (TOML)
type RepoConfig struct {
	Core CoreSection `toml:"core"`
}

type CoreSection struct {
	RepositoryFormatVersion int  `toml:"repositoryformatversion"`
	FileMode                bool `toml:"filemode"`
	Bare                    bool `toml:"bare"`
}

func defaultRepoConfig() RepoConfig {
	return RepoConfig{Core: CoreSection{
		RepositoryFormatVersion: FormatVersion,
		FileMode:                true,
		Bare:                    false,
	}}
}

// Init 在 root 下创建元数据目录:
//
//	<meta>/objects, <meta>/refs/heads, <meta>/config
//
// 如果 config 已存在，返回 ErrRepositoryExists (目录保持不变)。
func Init(root, metaDir string) (string, error) {
	if metaDir == "" {
		metaDir = defaultMetaDir
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	repoPath := filepath.Join(abs, metaDir)

	if _, err := os.Stat(filepath.Join(repoPath, repoConfigName)); err == nil {
		return repoPath, fmt.Errorf("%w in %s", ErrRepositoryExists, repoPath)
	}

	for _, dir := range []string{"objects", filepath.Join("refs", "heads")} {
		if err := os.MkdirAll(filepath.Join(repoPath, dir), 0o755); err != nil {
			return "", fmt.Errorf("failed to create repo directory: %w", err)
		}
	}

	f, err := os.OpenFile(filepath.Join(repoPath, repoConfigName), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to write repo config: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(defaultRepoConfig()); err != nil {
		return "", fmt.Errorf("failed to encode repo config: %w", err)
	}
	return repoPath, nil
}

// readRepoConfig 读取并校验仓库格式
func readRepoConfig(repoPath string) (RepoConfig, error) {
	var cfg RepoConfig
	p := filepath.Join(repoPath, repoConfigName)
	if _, err := toml.DecodeFile(p, &cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("%w: %s", ErrNotRepository, repoPath)
		}
		return cfg, fmt.Errorf("bad repo config %s: %w", p, err)
	}
	if v := cfg.Core.RepositoryFormatVersion; v != FormatVersion {
		return cfg, fmt.Errorf("%w: expected %d, found %d", ErrUnsupportedFormat, FormatVersion, v)
	}
	return cfg, nil
}
