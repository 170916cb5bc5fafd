package cloudpad

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// DefaultContentType is used when a write does not name a content type.
const DefaultContentType = "application/octet-stream"

// ObjectInfo describes a stored object without its content.
type ObjectInfo struct {
	Key         string
	Size        int64
	Uploaded    time.Time
	ETag        string
	ContentType string
}

// Object is a stored object returned by a Get. The caller must close Body.
// Size is -1 when the store did not report a length.
type Object struct {
	ObjectInfo
	CacheControl   string
	CustomMetadata map[string]string
	Body           io.ReadCloser
}

// Close closes the object body if there is one.
func (o Object) Close() error {
	if o.Body == nil {
		return nil
	}
	return o.Body.Close()
}

// PutOptions carries the metadata stored alongside object content.
type PutOptions struct {
	ContentType    string
	CacheControl   string
	CustomMetadata map[string]string
}

// WithDefaults returns a copy with an empty content type replaced by DefaultContentType.
func (o PutOptions) WithDefaults() PutOptions {
	if o.ContentType == "" {
		o.ContentType = DefaultContentType
	}
	return o
}

// MetaData is a metadata row kept by a MetaDataRepo for LocalBucket.
type MetaData struct {
	ID             uuid.UUID         `json:"id"`
	Key            string            `json:"key"`
	ContentType    string            `json:"content_type"`
	ETag           string            `json:"etag"`
	Size           int64             `json:"size"`
	CacheControl   string            `json:"cache_control,omitempty"`
	CustomMetadata map[string]string `json:"custom_metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Info converts a metadata row into the ObjectInfo reported by the bucket.
// The upload timestamp is the time of the last write.
func (m MetaData) Info() ObjectInfo {
	return ObjectInfo{
		Key:         m.Key,
		Size:        m.Size,
		Uploaded:    m.UpdatedAt,
		ETag:        m.ETag,
		ContentType: m.ContentType,
	}
}

// ObjectEntry is the input to MetaDataRepo.Upsert.
type ObjectEntry struct {
	Key            string
	Size           int64
	ETag           string
	ContentType    string
	CacheControl   string
	CustomMetadata map[string]string
}

type SaveResult struct {
	BytesWritten int64
	ETag         string
}

// Tables holds configurable table names for metadata storage.
type Tables struct {
	MetaData string `mapstructure:"meta_data"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	if t.MetaData == "" {
		return errors.New("validate tables: metadata table name cannot be empty")
	}

	if !IsValidTableName(t.MetaData) {
		return fmt.Errorf("validate tables: invalid metadata table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", t.MetaData)
	}

	return nil
}
