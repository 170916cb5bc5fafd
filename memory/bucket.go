// Package memory provides an in-process cloudpad.Bucket backed by a map.
// It is used for development servers and tests; contents are lost on exit.
package memory

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/cloudpad/cloudpad"
)

type entry struct {
	data           []byte
	contentType    string
	cacheControl   string
	customMetadata map[string]string
	etag           string
	uploaded       time.Time
}

// Bucket is a concurrency-safe in-memory bucket. The zero value is not
// usable; call New.
type Bucket struct {
	mu      sync.RWMutex
	objects map[string]entry
	now     func() time.Time
	maxSize int64
}

// Option configures a Bucket.
type Option func(*Bucket)

// WithClock overrides the time source used for upload timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Bucket) { b.now = now }
}

// WithMaxObjectSize rejects writes larger than n bytes with cloudpad.ErrTooLarge.
func WithMaxObjectSize(n int64) Option {
	return func(b *Bucket) { b.maxSize = n }
}

func New(opts ...Option) *Bucket {
	b := &Bucket{
		objects: make(map[string]entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// List returns all objects ordered by key.
func (b *Bucket) List(ctx context.Context) ([]cloudpad.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	items := make([]cloudpad.ObjectInfo, 0, len(b.objects))
	for key, e := range b.objects {
		items = append(items, e.info(key))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })

	return items, nil
}

func (b *Bucket) Get(ctx context.Context, key string) (cloudpad.Object, error) {
	if err := ctx.Err(); err != nil {
		return cloudpad.Object{}, err
	}

	b.mu.RLock()
	e, ok := b.objects[key]
	b.mu.RUnlock()

	if !ok {
		return cloudpad.Object{}, cloudpad.ErrNotFound
	}

	return cloudpad.Object{
		ObjectInfo:     e.info(key),
		CacheControl:   e.cacheControl,
		CustomMetadata: maps.Clone(e.customMetadata),
		Body:           io.NopCloser(bytes.NewReader(e.data)),
	}, nil
}

// Put reads body fully and stores it at key. The etag is the hex MD5 of the
// content, matching what S3 reports for single-part uploads.
func (b *Bucket) Put(ctx context.Context, key string, body io.Reader, _ int64, opts cloudpad.PutOptions) (cloudpad.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return cloudpad.ObjectInfo{}, err
	}

	r := body
	if b.maxSize > 0 {
		r = io.LimitReader(body, b.maxSize+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return cloudpad.ObjectInfo{}, fmt.Errorf("read body: %w", err)
	}

	if b.maxSize > 0 && int64(len(data)) > b.maxSize {
		return cloudpad.ObjectInfo{}, cloudpad.ErrTooLarge
	}

	if err := ctx.Err(); err != nil {
		return cloudpad.ObjectInfo{}, err
	}

	sum := md5.Sum(data)
	opts = opts.WithDefaults()
	e := entry{
		data:           data,
		contentType:    opts.ContentType,
		cacheControl:   opts.CacheControl,
		customMetadata: maps.Clone(opts.CustomMetadata),
		etag:           hex.EncodeToString(sum[:]),
		uploaded:       b.now().UTC(),
	}

	b.mu.Lock()
	b.objects[key] = e
	b.mu.Unlock()

	return e.info(key), nil
}

func (b *Bucket) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	delete(b.objects, key)
	b.mu.Unlock()

	return nil
}

// Len reports the number of stored objects.
func (b *Bucket) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}

func (e entry) info(key string) cloudpad.ObjectInfo {
	return cloudpad.ObjectInfo{
		Key:         key,
		Size:        int64(len(e.data)),
		Uploaded:    e.uploaded,
		ETag:        e.etag,
		ContentType: e.contentType,
	}
}
