package s3

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Publisher выгружает крупные файлы в S3 и выдаёт presigned ссылку на ttl.
type Publisher struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

func NewPublisher(ctx context.Context, cfg Config, logger *slog.Logger) (*Publisher, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &Publisher{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

// Publish загружает файл, удаляет локальную копию и планирует удаление объекта.
func (p *Publisher) Publish(ctx context.Context, path string, ttl time.Duration) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	object := "video/" + uuid.NewString() + ext

	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if _, err := p.client.FPutObject(ctx, p.bucket, object, path, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("upload %s: %w", object, err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		p.logger.Warn("Failed to remove uploaded file", "error", err)
	}

	url, err := p.client.PresignedGetObject(ctx, p.bucket, object, ttl, nil)
	if err != nil {
		p.removeObject(object)
		return "", fmt.Errorf("presign %s: %w", object, err)
	}

	time.AfterFunc(ttl, func() { p.removeObject(object) })
	return url.String(), nil
}

func (p *Publisher) removeObject(object string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := p.client.RemoveObject(ctx, p.bucket, object, minio.RemoveObjectOptions{}); err != nil {
		p.logger.Warn("Failed to remove object", "object", object, "error", err)
	}
}
