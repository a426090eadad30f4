// pkg/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"gitvault/pkg/config"
	"gitvault/pkg/index"
	"gitvault/pkg/meta"
	"gitvault/pkg/refs"
	"gitvault/pkg/storage"
	"gitvault/pkg/storage/cache"
	"gitvault/pkg/storage/disk"
	"gitvault/pkg/storage/s3"
	"gitvault/pkg/workspace"
)

const defaultMetaDir = config.DefaultMetaDir

// Options 描述如何打开一个仓库。所有字段都是显式的，App 不读取全局状态。
type Options struct {
	Root    string // 工作区根目录
	MetaDir string // 元数据目录名 (默认 .gv)

	Storage config.StorageConfig
	Cache   config.CacheConfig
	Meta    config.MetaConfig
	Workers int
	Logger  *slog.Logger
}

// OptionsFromSettings 把配置文件/环境变量的内容转成 Options
func OptionsFromSettings(s *config.Settings) Options {
	return Options{
		Root:    s.Repo.Root,
		MetaDir: s.Repo.Dir,
		Storage: s.Storage,
		Cache:   s.Cache,
		Meta:    s.Meta,
		Workers: s.Ingest.Workers,
	}
}

// App 是整个应用程序的依赖容器 (Dependency Container)
type App struct {
	Store     storage.Store
	Index     *index.Index
	Refs      *refs.Manager
	Workspace *workspace.Workspace
	// Meta 是可选的 SQL 投影，未配置时为 nil
	Meta *meta.Repository

	RepoPath string
	Config   RepoConfig

	workers int
	log     *slog.Logger
	closers []io.Closer
}

// Open 打开 opts.Root 下已初始化的仓库
func Open(ctx context.Context, opts Options) (*App, error) {
	if opts.MetaDir == "" {
		opts.MetaDir = defaultMetaDir
	}
	if opts.Root == "" {
		opts.Root = "."
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, err
	}
	repoPath := filepath.Join(root, opts.MetaDir)

	repoCfg, err := readRepoConfig(repoPath)
	if err != nil {
		return nil, err
	}

	a := &App{
		RepoPath: repoPath,
		Config:   repoCfg,
		Index:    index.New(filepath.Join(repoPath, "index")),
		Refs:     refs.NewManager(repoPath),
		workers:  opts.Workers,
		log:      logger,
	}

	store, err := initStore(ctx, opts, repoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}
	a.Store = store

	if opts.Cache.RedisURL != "" {
		cached, err := cache.NewCachedStore(store, cache.Config{RedisURL: opts.Cache.RedisURL, TTL: opts.Cache.TTL})
		if err != nil {
			return nil, fmt.Errorf("failed to init cache: %w", err)
		}
		a.Store = cached
		a.closers = append(a.closers, cached)
	}

	if opts.Meta.Driver != "" {
		db, err := meta.NewDB(ctx, metaConfig(opts.Meta, repoPath))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to init meta database: %w", err)
		}
		a.Meta = meta.NewRepository(db)
		a.closers = append(a.closers, db)
	}

	ws, err := workspace.New(root, opts.MetaDir)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Workspace = ws

	logger.Debug("repository opened", "path", repoPath, "store", fmt.Sprintf("%T", a.Store))
	return a, nil
}

// initStore 根据 storage.type 选择对象库的实现
func initStore(ctx context.Context, opts Options, repoPath string) (storage.Store, error) {
	switch opts.Storage.Type {
	case "", "disk":
		return disk.NewAdapter(filepath.Join(repoPath, "objects"))
	case "s3":
		c := opts.Storage.S3
		if c.Bucket == "" {
			return nil, errors.New("storage.s3.bucket is required for s3 storage")
		}
		return s3.NewAdapter(ctx, s3.Config{
			Endpoint:        c.Endpoint,
			Region:          c.Region,
			Bucket:          c.Bucket,
			Prefix:          c.Prefix,
			AccessKeyID:     c.AccessKey,
			SecretAccessKey: c.SecretKey,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %q", opts.Storage.Type)
	}
}

// metaConfig sqlite 未指定 DSN 时，数据库放在元数据目录下
func metaConfig(c config.MetaConfig, repoPath string) meta.Config {
	dsn := c.DSN
	if c.Driver == "sqlite" && dsn == "" {
		dsn = filepath.Join(repoPath, "meta.db")
	}
	return meta.Config{
		Driver:   c.Driver,
		DSN:      dsn,
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		DBName:   c.DBName,
		SSLMode:  c.SSLMode,
		Debug:    c.Debug,
	}
}

// Root 返回工作区根目录
func (a *App) Root() string { return a.Workspace.Root() }

// Close 释放缓存与数据库连接
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func since(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}
