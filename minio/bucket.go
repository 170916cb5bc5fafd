// Package minio implements cloudpad.Bucket on a MinIO server (or any
// S3-compatible endpoint) through minio-go.
package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/cloudpad/cloudpad"
)

// Config describes the MinIO endpoint and bucket.
type Config struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	Bucket       string
	UseSSL       bool
	CreateBucket bool
}

type api interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts miniogo.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts miniogo.PutObjectOptions) (miniogo.UploadInfo, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts miniogo.StatObjectOptions) (miniogo.ObjectInfo, error)
	ListObjects(ctx context.Context, bucketName string, opts miniogo.ListObjectsOptions) <-chan miniogo.ObjectInfo
	RemoveObject(ctx context.Context, bucketName, objectName string, opts miniogo.RemoveObjectOptions) error
}

type openFunc func(ctx context.Context, bucketName, objectName string, opts miniogo.GetObjectOptions) (io.ReadCloser, error)

// Bucket is a cloudpad.Bucket backed by one MinIO bucket.
type Bucket struct {
	api    api
	open   openFunc
	bucket string
}

// New connects to cfg.Endpoint with static credentials. When
// cfg.CreateBucket is set the bucket is created if it does not exist.
func New(ctx context.Context, cfg Config) (*Bucket, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("new minio bucket: endpoint is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("new minio bucket: bucket is required")
	}

	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("new minio bucket: %w", err)
	}

	b := newBucket(client, func(ctx context.Context, bucketName, objectName string, opts miniogo.GetObjectOptions) (io.ReadCloser, error) {
		return client.GetObject(ctx, bucketName, objectName, opts)
	}, cfg.Bucket)

	if cfg.CreateBucket {
		if err := b.ensureBucket(ctx); err != nil {
			return nil, fmt.Errorf("new minio bucket: %w", err)
		}
	}

	return b, nil
}

func newBucket(a api, open openFunc, bucket string) *Bucket {
	return &Bucket{api: a, open: open, bucket: bucket}
}

func (b *Bucket) ensureBucket(ctx context.Context) error {
	exists, err := b.api.BucketExists(ctx, b.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", b.bucket, err)
	}
	if exists {
		return nil
	}

	if err := b.api.MakeBucket(ctx, b.bucket, miniogo.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", b.bucket, err)
	}
	slog.Info("created minio bucket", "bucket", b.bucket)

	return nil
}

func (b *Bucket) List(ctx context.Context) ([]cloudpad.ObjectInfo, error) {
	items := []cloudpad.ObjectInfo{}

	for obj := range b.api.ListObjects(ctx, b.bucket, miniogo.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects: %w", obj.Err)
		}
		if obj.Key == "" {
			continue
		}
		items = append(items, cloudpad.ObjectInfo{
			Key:         obj.Key,
			Size:        obj.Size,
			Uploaded:    obj.LastModified,
			ETag:        obj.ETag,
			ContentType: obj.ContentType,
		})
	}

	return items, nil
}

// Get stats key and then opens its content pinned to the stat ETag, so the
// metadata and the body describe the same version.
func (b *Bucket) Get(ctx context.Context, key string) (cloudpad.Object, error) {
	if key == "" {
		return cloudpad.Object{}, fmt.Errorf("get object: %w: key cannot be empty", cloudpad.ErrInvalidInput)
	}

	info, err := b.api.StatObject(ctx, b.bucket, key, miniogo.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return cloudpad.Object{}, cloudpad.ErrNotFound
		}
		return cloudpad.Object{}, fmt.Errorf("get object: %w", err)
	}

	opts := miniogo.GetObjectOptions{}
	if info.ETag != "" {
		if err := opts.SetMatchETag(info.ETag); err != nil {
			return cloudpad.Object{}, fmt.Errorf("get object: %w", err)
		}
	}

	body, err := b.open(ctx, b.bucket, key, opts)
	if err != nil {
		if isNotFound(err) {
			return cloudpad.Object{}, cloudpad.ErrNotFound
		}
		return cloudpad.Object{}, fmt.Errorf("get object: %w", err)
	}

	return cloudpad.Object{
		ObjectInfo: cloudpad.ObjectInfo{
			Key:         key,
			Size:        info.Size,
			Uploaded:    info.LastModified,
			ETag:        info.ETag,
			ContentType: info.ContentType,
		},
		CacheControl:   info.Metadata.Get("Cache-Control"),
		CustomMetadata: userMetadata(info.UserMetadata),
		Body:           body,
	}, nil
}

// Put uploads body. A negative size makes minio-go stream a multipart upload.
func (b *Bucket) Put(ctx context.Context, key string, body io.Reader, size int64, opts cloudpad.PutOptions) (cloudpad.ObjectInfo, error) {
	if key == "" {
		return cloudpad.ObjectInfo{}, fmt.Errorf("put object: %w: key cannot be empty", cloudpad.ErrInvalidInput)
	}

	opts = opts.WithDefaults()
	if size < 0 {
		size = -1
	}

	up, err := b.api.PutObject(ctx, b.bucket, key, body, size, miniogo.PutObjectOptions{
		ContentType:  opts.ContentType,
		CacheControl: opts.CacheControl,
		UserMetadata: opts.CustomMetadata,
	})
	if err != nil {
		return cloudpad.ObjectInfo{}, fmt.Errorf("put object: %w", err)
	}

	uploaded := up.LastModified
	if uploaded.IsZero() {
		uploaded = time.Now()
	}

	return cloudpad.ObjectInfo{
		Key:         key,
		Size:        up.Size,
		Uploaded:    uploaded.UTC(),
		ETag:        up.ETag,
		ContentType: opts.ContentType,
	}, nil
}

// Delete removes key. MinIO reports success for missing keys.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("delete object: %w: key cannot be empty", cloudpad.ErrInvalidInput)
	}

	if err := b.api.RemoveObject(ctx, b.bucket, key, miniogo.RemoveObjectOptions{}); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("delete object: %w", err)
	}

	return nil
}

func isNotFound(err error) bool {
	resp := miniogo.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.Code == "NotFound" {
		return true
	}
	return resp.StatusCode == http.StatusNotFound && resp.Code != "NoSuchBucket"
}

// userMetadata lower-cases the canonical header names minio-go returns.
func userMetadata(m miniogo.StringMap) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}
