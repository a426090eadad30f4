package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀: GV_STORAGE_TYPE 对应 storage.type
const EnvPrefix = "GV"

// DefaultMetaDir 是元数据目录的默认名字
const DefaultMetaDir = ".gv"

// Settings 是 viper 配置的结构化视图
type Settings struct {
	Repo    RepoConfig    `mapstructure:"repo"`
	Storage StorageConfig `mapstructure:"storage"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Meta    MetaConfig    `mapstructure:"meta"`
	User    UserConfig    `mapstructure:"user"`
	Ingest  IngestConfig  `mapstructure:"ingest"`
	Log     LogConfig     `mapstructure:"log"`
}

type RepoConfig struct {
	Root string `mapstructure:"root"`
	Dir  string `mapstructure:"dir"`
}

type StorageConfig struct {
	Type string   `mapstructure:"type"` // disk | s3
	S3   S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// CacheConfig RedisURL 为空时不启用缓存
type CacheConfig struct {
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// MetaConfig Driver 为空时不启用 SQL 投影
type MetaConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Debug    bool   `mapstructure:"debug"`
}

type UserConfig struct {
	Name  string `mapstructure:"name"`
	Email string `mapstructure:"email"`
}

type IngestConfig struct {
	Workers int `mapstructure:"workers"` // <= 0 表示 CPU 核数
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load 初始化 Viper 配置
// cfgFile: 可选，用户显式指定的配置文件路径
func Load(cfgFile string) error {
	// 1. 设置默认值 (Defaults)
	setDefaults()

	// 2. 配置搜索路径
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// 搜索顺序：当前目录, ./.gv, ~/.gv
		viper.AddConfigPath(".")
		viper.AddConfigPath(DefaultMetaDir)
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, DefaultMetaDir))
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("config") // 找 config.yaml
	}

	// 3. 读取环境变量 (GV_STORAGE_TYPE 等)
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 4. 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("fatal error config file: %w", err)
		}
		slog.Debug("no config file found, using defaults and env vars")
	} else {
		slog.Debug("using config file", "path", viper.ConfigFileUsed())
	}

	return nil
}

// Get 把当前的 viper 状态解码为 Settings
func Get() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if s.Repo.Dir == "" {
		s.Repo.Dir = DefaultMetaDir
	}
	return &s, nil
}

func setDefaults() {
	wd, _ := os.Getwd()
	viper.SetDefault("repo.root", wd)
	viper.SetDefault("repo.dir", DefaultMetaDir)

	// 存储默认值
	viper.SetDefault("storage.type", "disk")
	// 空默认值让 viper.Unmarshal 能看到 GV_STORAGE_S3_* 等环境变量
	for _, key := range []string{"endpoint", "bucket", "prefix", "access_key", "secret_key"} {
		viper.SetDefault("storage.s3."+key, "")
	}
	viper.SetDefault("storage.s3.region", "us-east-1")

	viper.SetDefault("cache.redis_url", "")
	viper.SetDefault("cache.ttl", time.Hour)

	// 元数据库默认关闭
	viper.SetDefault("meta.driver", "")
	viper.SetDefault("meta.host", "localhost")
	viper.SetDefault("meta.port", 5432)
	viper.SetDefault("meta.sslmode", "disable")
	for _, key := range []string{"dsn", "user", "password", "dbname"} {
		viper.SetDefault("meta."+key, "")
	}
	viper.SetDefault("meta.debug", false)

	viper.SetDefault("user.name", "")
	viper.SetDefault("user.email", "")
	viper.SetDefault("ingest.workers", 0)
	viper.SetDefault("log.level", "info")
}
