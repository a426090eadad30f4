package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gitvault/pkg/app"
	"gitvault/pkg/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool

	// 全局应用实例，供子命令使用 (init 命令除外)
	GV *app.App
	// 当前生效的配置
	settings *config.Settings
)

var rootCmd = &cobra.Command{
	Use:           "gv",
	Short:         "gitvault: a content-addressable version store",
	SilenceUsage:  true,
	SilenceErrors: true,
	// PersistentPreRunE 会在所有子命令执行前运行
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := config.Get()
		if err != nil {
			return err
		}
		settings = s

		level := s.Log.Level
		if verbose {
			level = "debug"
		}
		slog.SetDefault(app.NewLogger(os.Stderr, level))

		// init 负责创建仓库，不需要打开它
		if cmd.Name() == "init" {
			return nil
		}

		opts := app.OptionsFromSettings(s)
		opts.Logger = slog.Default()
		GV, err = app.Open(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("failed to open repository: %w\n(Did you run 'gv init'?)", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if GV == nil {
			return nil
		}
		err := GV.Close()
		GV = nil
		return err
	},
}

// Execute 是入口
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml, .gv/config.yaml or $HOME/.gv/config.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	// 这样用户既可以在 yaml 里写，也可以用 flag 覆盖
	pf.String("root", "", "worktree root (default is the current directory)")
	pf.String("meta-dir", "", "name of the metadata directory (default .gv)")
	pf.String("storage-type", "", "object storage backend: disk or s3")
	for flag, key := range map[string]string{
		"root":         "repo.root",
		"meta-dir":     "repo.dir",
		"storage-type": "storage.type",
	} {
		if err := viper.BindPFlag(key, pf.Lookup(flag)); err != nil {
			fmt.Fprintln(os.Stderr, "Failed to bind flag:", err)
			os.Exit(1)
		}
	}
}

// initConfig 读取配置文件和环境变量
func initConfig() {
	if err := config.Load(cfgFile); err != nil {
		fmt.Fprintln(os.Stderr, "Config error:", err)
		os.Exit(1)
	}
}
