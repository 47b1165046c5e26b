package cmd

import (
	"fmt"
	"os"

	"playlister/config"
	"playlister/logger"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "playlister",
	Short: "Playlister is a playlist sharing backend.",
	Long:  `Playlister serves the REST API of the playlist sharing application: accounts, a shared song catalog and playlists.`,
	// 默认启动服务器
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
	SilenceUsage: true,
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initLogger 根据配置初始化日志
func initLogger(cfg *config.Config) {
	logger.InitLogger(logger.Config{
		Level:      cfg.LogLevel,
		OutputPath: cfg.LogFile,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
		Compress:   true,
	})
}
