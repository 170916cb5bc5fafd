// Package s3 implements cloudpad.Bucket on Amazon S3 and S3-compatible
// services through aws-sdk-go-v2. Uploads go through the transfer manager so
// large or unsized bodies are sent as multipart uploads.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/transfermanager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/cloudpad/cloudpad"
)

const (
	defaultDeleteTimeout   = 30 * time.Second
	defaultListPageTimeout = 30 * time.Second
)

// Config describes the target bucket.
type Config struct {
	Endpoint     string
	Region       string
	Bucket       string
	Prefix       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

type api interface {
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *awss3.DeleteObjectInput, optFns ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *awss3.ListObjectsV2Input, optFns ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error)
}

type uploader interface {
	UploadObject(ctx context.Context, input *transfermanager.UploadObjectInput, optFns ...func(*transfermanager.Options)) (*transfermanager.UploadObjectOutput, error)
}

type listObjectsV2Paginator interface {
	HasMorePages() bool
	NextPage(ctx context.Context, optFns ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error)
}

type awsListObjectsV2Paginator struct {
	inner *awss3.ListObjectsV2Paginator
}

func (p *awsListObjectsV2Paginator) HasMorePages() bool {
	return p.inner != nil && p.inner.HasMorePages()
}

func (p *awsListObjectsV2Paginator) NextPage(ctx context.Context, optFns ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error) {
	if p.inner == nil {
		return nil, errors.New("s3 paginator is not configured")
	}
	return p.inner.NextPage(ctx, optFns...)
}

func newAWSListObjectsV2Paginator(client awss3.ListObjectsV2APIClient, input *awss3.ListObjectsV2Input) listObjectsV2Paginator {
	return &awsListObjectsV2Paginator{inner: awss3.NewListObjectsV2Paginator(client, input)}
}

// Bucket is a cloudpad.Bucket stored under an optional key prefix of one S3 bucket.
type Bucket struct {
	api                       api
	uploader                  uploader
	newListObjectsV2Paginator func(awss3.ListObjectsV2APIClient, *awss3.ListObjectsV2Input) listObjectsV2Paginator
	bucket                    string
	prefix                    string
	deleteTimeout             time.Duration
	listPageTimeout           time.Duration
	now                       func() time.Time
}

// New loads the default AWS configuration, applies the static credentials
// and endpoint from cfg when present, and returns a Bucket.
func New(ctx context.Context, cfg Config) (*Bucket, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("new s3 bucket: s3 bucket is required")
	}
	if strings.TrimSpace(cfg.Region) == "" {
		return nil, errors.New("new s3 bucket: s3 region is required")
	}
	if err := validateEndpoint(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("new s3 bucket: %w", err)
	}

	prefix, err := normalizePrefix(cfg.Prefix)
	if err != nil {
		return nil, fmt.Errorf("new s3 bucket: %w", err)
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("new s3 bucket: load aws config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &Bucket{
		api:                       client,
		uploader:                  transfermanager.New(client),
		newListObjectsV2Paginator: newAWSListObjectsV2Paginator,
		bucket:                    cfg.Bucket,
		prefix:                    prefix,
		deleteTimeout:             defaultDeleteTimeout,
		listPageTimeout:           defaultListPageTimeout,
		now:                       time.Now,
	}, nil
}

func validateEndpoint(endpoint string) error {
	if endpoint == "" {
		return nil
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return fmt.Errorf("s3 endpoint must be a valid http(s) URL: %q", endpoint)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("s3 endpoint must use http or https: %q", endpoint)
	}
	return nil
}

// normalizePrefix turns a configured prefix into "" or "a/b/".
func normalizePrefix(prefix string) (string, error) {
	p := strings.ReplaceAll(strings.TrimSpace(prefix), `\`, "/")
	if p == "" {
		return "", nil
	}
	if strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("s3 prefix must be relative: %q", prefix)
	}

	parts := make([]string, 0)
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "":
			continue
		case ".", "..":
			return "", fmt.Errorf("s3 prefix must not contain dot segments: %q", prefix)
		}
		parts = append(parts, seg)
	}
	if len(parts) == 0 {
		return "", nil
	}
	return strings.Join(parts, "/") + "/", nil
}

func (b *Bucket) objectKey(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: key cannot be empty", cloudpad.ErrInvalidInput)
	}
	return b.prefix + key, nil
}

func (b *Bucket) List(ctx context.Context) ([]cloudpad.ObjectInfo, error) {
	if b.api == nil {
		return nil, errors.New("list objects: s3 api client is not configured")
	}
	if b.newListObjectsV2Paginator == nil {
		return nil, errors.New("list objects: s3 paginator factory is not configured")
	}

	input := &awss3.ListObjectsV2Input{Bucket: aws.String(b.bucket)}
	if b.prefix != "" {
		input.Prefix = aws.String(b.prefix)
	}

	paginator := b.newListObjectsV2Paginator(b.api, input)
	if paginator == nil {
		return nil, errors.New("list objects: s3 paginator is not configured")
	}

	items := []cloudpad.ObjectInfo{}
	for paginator.HasMorePages() {
		page, err := b.nextPage(ctx, paginator)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := strings.TrimPrefix(aws.ToString(obj.Key), b.prefix)
			if key == "" {
				continue
			}
			items = append(items, cloudpad.ObjectInfo{
				Key:      key,
				Size:     aws.ToInt64(obj.Size),
				Uploaded: aws.ToTime(obj.LastModified),
				ETag:     trimETag(aws.ToString(obj.ETag)),
			})
		}
	}

	return items, nil
}

func (b *Bucket) nextPage(ctx context.Context, p listObjectsV2Paginator) (*awss3.ListObjectsV2Output, error) {
	if b.listPageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.listPageTimeout)
		defer cancel()
	}
	return p.NextPage(ctx)
}

// Get streams the object at key. The body stays tied to ctx, so no per-call
// timeout is applied here.
func (b *Bucket) Get(ctx context.Context, key string) (cloudpad.Object, error) {
	if b.api == nil {
		return cloudpad.Object{}, errors.New("get object: s3 api client is not configured")
	}

	objectKey, err := b.objectKey(key)
	if err != nil {
		return cloudpad.Object{}, fmt.Errorf("get object: %w", err)
	}

	out, err := b.api.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isNotFound(err) {
			return cloudpad.Object{}, cloudpad.ErrNotFound
		}
		return cloudpad.Object{}, fmt.Errorf("get object: %w", err)
	}

	size := int64(-1)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}

	return cloudpad.Object{
		ObjectInfo: cloudpad.ObjectInfo{
			Key:         key,
			Size:        size,
			Uploaded:    aws.ToTime(out.LastModified),
			ETag:        trimETag(aws.ToString(out.ETag)),
			ContentType: aws.ToString(out.ContentType),
		},
		CacheControl:   aws.ToString(out.CacheControl),
		CustomMetadata: out.Metadata,
		Body:           out.Body,
	}, nil
}

// Put uploads body through the transfer manager. size is sent as the
// content length when known.
func (b *Bucket) Put(ctx context.Context, key string, body io.Reader, size int64, opts cloudpad.PutOptions) (cloudpad.ObjectInfo, error) {
	if b.uploader == nil {
		return cloudpad.ObjectInfo{}, errors.New("put object: s3 uploader is not configured")
	}

	objectKey, err := b.objectKey(key)
	if err != nil {
		return cloudpad.ObjectInfo{}, fmt.Errorf("put object: %w", err)
	}

	opts = opts.WithDefaults()
	counter := &countingReader{r: body}

	input := &transfermanager.UploadObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(objectKey),
		Body:        counter,
		ContentType: aws.String(opts.ContentType),
		Metadata:    opts.CustomMetadata,
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if opts.CacheControl != "" {
		input.CacheControl = aws.String(opts.CacheControl)
	}

	out, err := b.uploader.UploadObject(ctx, input)
	if err != nil {
		return cloudpad.ObjectInfo{}, fmt.Errorf("put object: %w", err)
	}

	info := cloudpad.ObjectInfo{
		Key:         key,
		Size:        counter.n,
		Uploaded:    b.now().UTC(),
		ContentType: opts.ContentType,
	}
	if out != nil {
		info.ETag = trimETag(aws.ToString(out.ETag))
	}

	return info, nil
}

// Delete removes key. S3 reports success for missing keys.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	if b.api == nil {
		return errors.New("delete object: s3 api client is not configured")
	}

	objectKey, err := b.objectKey(key)
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}

	if b.deleteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.deleteTimeout)
		defer cancel()
	}

	_, err = b.api.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("delete object: %w", err)
	}

	return nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

func trimETag(etag string) string {
	return strings.Trim(etag, `"`)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
