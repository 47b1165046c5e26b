package cmd

import (
	"context"
	"fmt"
	"time"

	"playlister/cache"
	"playlister/config"
	"playlister/core/live"
	"playlister/core/store"
	"playlister/db"
	"playlister/logger"
	"playlister/repository"
	"playlister/server"
	"playlister/storage"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动Playlister服务器",
	Long:  `启动Playlister的HTTP服务器，提供REST API和播放列表实时推送`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

// openRepositories connects the configured storage backend and prepares its
// schema. The returned func closes the connection.
func openRepositories(ctx context.Context, cfg *config.Config) (repository.Repositories, func(), error) {
	if cfg.DBVendor == config.VendorMongo {
		client, database, err := db.ConnectMongo(ctx, cfg)
		if err != nil {
			return repository.Repositories{}, nil, err
		}
		if err := repository.EnsureIndexes(ctx, database); err != nil {
			_ = db.CloseMongo(client)
			return repository.Repositories{}, nil, err
		}
		closeFn := func() {
			if err := db.CloseMongo(client); err != nil {
				logger.Warn("Error closing MongoDB connection", logger.ErrorField(err))
			}
		}
		return repository.NewMongoRepositories(database), closeFn, nil
	}

	gdb, err := db.ConnectGormDB(cfg)
	if err != nil {
		return repository.Repositories{}, nil, err
	}
	if err := db.AutoMigrate(gdb); err != nil {
		_ = db.CloseGormDB(gdb)
		return repository.Repositories{}, nil, err
	}
	closeFn := func() {
		if err := db.CloseGormDB(gdb); err != nil {
			logger.Warn("Error closing database connection", logger.ErrorField(err))
		}
	}
	return repository.NewGormRepositories(gdb), closeFn, nil
}

func runServer() error {
	cfg := config.Load()
	initLogger(cfg)
	defer logger.Sync()

	logger.Info("Starting Playlister", logger.String("dbVendor", cfg.DBVendor))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repos, closeStore, err := openRepositories(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s storage: %w", cfg.DBVendor, err)
	}
	defer closeStore()

	// Redis 播放列表缓存
	var playlistCache store.PlaylistCache
	if cfg.RedisEnabled {
		client, err := db.ConnectRedis(cfg)
		if err != nil {
			return err
		}
		defer db.CloseRedis(client)
		playlistCache = cache.NewPlaylistCache(client, cfg.PlaylistCacheTTL)
		logger.Info("Playlist cache enabled", logger.Duration("ttl", cfg.PlaylistCacheTTL))
	}

	// MinIO 头像存储
	var avatars server.AvatarBackend
	if cfg.MinioEnabled {
		avatarStore, err := storage.NewAvatarStore(cfg)
		if err != nil {
			return err
		}
		if err := avatarStore.EnsureBucket(ctx); err != nil {
			return err
		}
		avatars = avatarStore
		logger.Info("Avatar storage enabled", logger.String("bucket", avatarStore.Bucket()))
	}

	hub := live.NewHub()
	go hub.Run()
	defer hub.Stop()

	srv := server.New(server.Deps{
		Config:  cfg,
		Repos:   repos,
		Cache:   playlistCache,
		Avatars: avatars,
		Hub:     hub,
	})
	return srv.Run()
}
