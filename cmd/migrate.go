package cmd

import (
	"context"
	"fmt"
	"time"

	"playlister/config"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "创建或更新数据库结构",
	Long:  `对配置的数据库执行表结构迁移（MySQL / PostgreSQL / SQLite），或为MongoDB创建索引。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		initLogger(cfg)

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		// openRepositories migrates as part of opening
		_, closeStore, err := openRepositories(ctx, cfg)
		if err != nil {
			return err
		}
		closeStore()
		fmt.Printf("%s 数据库结构已就绪。\n", cfg.DBVendor)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
