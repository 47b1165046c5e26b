package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"playlister/model"

	"github.com/go-redis/redis/v8"
)

const (
	playlistKey        = "playlist:%s" // String: Playlist JSON
	DefaultPlaylistTTL = 10 * time.Minute
)

// PlaylistKey 根据播放列表ID生成Redis键
func PlaylistKey(id string) string {
	return fmt.Sprintf(playlistKey, id)
}

// PlaylistCache 播放列表缓存操作
type PlaylistCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPlaylistCache 创建播放列表缓存. A non-positive ttl uses DefaultPlaylistTTL.
func NewPlaylistCache(client *redis.Client, ttl time.Duration) *PlaylistCache {
	if ttl <= 0 {
		ttl = DefaultPlaylistTTL
	}
	return &PlaylistCache{client: client, ttl: ttl}
}

// Get returns the cached playlist, or (nil, nil) on a miss.
func (c *PlaylistCache) Get(ctx context.Context, id string) (*model.Playlist, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	data, err := c.client.Get(ctx, PlaylistKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get playlist %s: %w", id, err)
	}

	var p model.Playlist
	if err := json.Unmarshal(data, &p); err != nil {
		// 数据损坏时删除并视为未命中
		c.client.Del(ctx, PlaylistKey(id))
		return nil, fmt.Errorf("failed to unmarshal playlist %s: %w", id, err)
	}
	return &p, nil
}

// Set 缓存播放列表
func (c *PlaylistCache) Set(ctx context.Context, p *model.Playlist) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal playlist: %w", err)
	}
	return c.client.Set(ctx, PlaylistKey(p.ID), data, c.ttl).Err()
}

// Invalidate 删除播放列表缓存
func (c *PlaylistCache) Invalidate(ctx context.Context, id string) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	return c.client.Del(ctx, PlaylistKey(id)).Err()
}
