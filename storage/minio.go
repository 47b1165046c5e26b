package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"playlister/config"
	"playlister/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// AvatarPrefix is the object prefix of uploaded avatars.
const AvatarPrefix = "avatars/"

// ErrObjectNotFound is returned when an object key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// AvatarStore keeps avatar images in a MinIO bucket.
type AvatarStore struct {
	client *minio.Client
	bucket string
	region string
}

// NewAvatarStore 初始化 MinIO 客户端
func NewAvatarStore(cfg *config.Config) (*AvatarStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}
	return &AvatarStore{client: client, bucket: cfg.MinioBucket, region: cfg.MinioRegion}, nil
}

// Bucket returns the bucket name.
func (s *AvatarStore) Bucket() string { return s.bucket }

// EnsureBucket 检查存储桶是否存在, 不存在则创建
func (s *AvatarStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("检查存储桶失败: %w", err)
	}
	if exists {
		logger.Info("MinIO bucket exists", logger.String("bucket", s.bucket))
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("创建存储桶失败: %w", err)
	}
	logger.Info("MinIO bucket created", logger.String("bucket", s.bucket))
	return nil
}

// PutAvatar uploads an avatar under AvatarPrefix+key.
func (s *AvatarStore) PutAvatar(ctx context.Context, key, contentType string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, AvatarPrefix+key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=86400",
	})
	if err != nil {
		return fmt.Errorf("failed to upload avatar %s: %w", key, err)
	}
	return nil
}

// Object is an open object with its metadata. Callers must close Body.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
	ModTime     time.Time
}

// GetAvatar opens the avatar stored under AvatarPrefix+key.
func (s *AvatarStore) GetAvatar(ctx context.Context, key string) (*Object, error) {
	if key == "" || strings.Contains(key, "/") || strings.Contains(key, "..") {
		return nil, ErrObjectNotFound
	}

	obj, err := s.client.GetObject(ctx, s.bucket, AvatarPrefix+key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open avatar %s: %w", key, err)
	}
	// GetObject is lazy; Stat surfaces missing keys.
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to stat avatar %s: %w", key, err)
	}
	return &Object{Body: obj, ContentType: info.ContentType, Size: info.Size, ModTime: info.LastModified}, nil
}

// CheckConnection 测试文件操作: uploads, reads back and removes a probe object.
func (s *AvatarStore) CheckConnection(ctx context.Context) error {
	const probe = "test/connection.txt"
	content := "Connection check at " + time.Now().Format(time.RFC3339)

	_, err := s.client.PutObject(ctx, s.bucket, probe, strings.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: "text/plain",
	})
	if err != nil {
		return fmt.Errorf("上传测试文件失败: %w", err)
	}

	obj, err := s.client.GetObject(ctx, s.bucket, probe, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("读取测试文件失败: %w", err)
	}
	got, err := io.ReadAll(obj)
	obj.Close()
	if err != nil {
		return fmt.Errorf("读取测试文件内容失败: %w", err)
	}
	if string(got) != content {
		return fmt.Errorf("unexpected probe content %q", got)
	}

	return s.client.RemoveObject(ctx, s.bucket, probe, minio.RemoveObjectOptions{})
}
