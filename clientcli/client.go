package clientcli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cloudpad/cloudpad"
)

// DefaultTimeout is the default HTTP client timeout.
const DefaultTimeout = 30 * time.Second

const metaHeaderPrefix = "X-Meta-"

// Client performs operations against a cloudpad server.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New creates a new Client with the given config and options.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}

	cfg = cfg.WithDefaults()
	cfg.Endpoint = strings.TrimSuffix(cfg.Endpoint, "/")

	c := &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Link returns the direct-download URL for key. The token is part of the
// path, so anyone holding the link can read the file.
func (c *Client) Link(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("link: %w", ErrEmptyKey)
	}
	if c.config.Token == "" {
		return "", fmt.Errorf("link: %w", ErrTokenRequired)
	}
	return c.config.Endpoint + "/" + url.PathEscape(c.config.Token) + "/" + escapeKey(key), nil
}

// List fetches every object and filters by opts.Prefix. Items are sorted by key.
func (c *Client) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/files", http.NoBody, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseServerError(resp.StatusCode, body)
	}

	var serverItems []serverListItem
	if err := json.Unmarshal(body, &serverItems); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	items := make([]ObjectInfo, 0, len(serverItems))
	for _, item := range serverItems {
		if opts.Prefix != "" && !strings.HasPrefix(item.Key, opts.Prefix) {
			continue
		}
		items = append(items, ObjectInfo{
			Key:      item.Key,
			Size:     item.Size,
			Uploaded: item.Uploaded,
			Language: cloudpad.GuessLanguage(item.Key),
		})
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })

	return &ListResult{Items: items}, nil
}

// TotalSize calculates the total size of all items in bytes.
func (r *ListResult) TotalSize() int64 {
	var total int64
	for _, item := range r.Items {
		total += item.Size
	}
	return total
}

// Upload uploads file(s) to the server.
// For recursive uploads, walks the directory and preserves relative paths
// below opts.Key.
func (c *Client) Upload(ctx context.Context, opts UploadOptions) ([]UploadResult, error) {
	if opts.LocalPath == "" {
		return nil, fmt.Errorf("upload: %w", ErrEmptyPath)
	}
	if opts.Recursive {
		return c.uploadRecursive(ctx, opts)
	}

	key := opts.Key
	if key == "" {
		key = NormalizeLocalToRemotePath(opts.LocalPath)
	}

	result, err := c.uploadSingle(ctx, opts.LocalPath, key, opts)
	if err != nil {
		return nil, err
	}
	return []UploadResult{result}, nil
}

func (c *Client) uploadRecursive(ctx context.Context, opts UploadOptions) ([]UploadResult, error) {
	info, err := os.Stat(opts.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("stat local path: %w", err)
	}

	if !info.IsDir() {
		key := opts.Key
		if key == "" {
			key = NormalizeLocalToRemotePath(opts.LocalPath)
		}
		result, uploadErr := c.uploadSingle(ctx, opts.LocalPath, key, opts)
		if uploadErr != nil {
			return nil, uploadErr
		}
		return []UploadResult{result}, nil
	}

	var results []UploadResult
	baseDir := opts.LocalPath
	prefix := strings.Trim(opts.Key, "/")

	walkErr := filepath.WalkDir(baseDir, func(p string, d fs.DirEntry, fileErr error) error {
		if fileErr != nil {
			return fileErr
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if d.IsDir() {
			return nil
		}

		relPath, relErr := filepath.Rel(baseDir, p)
		if relErr != nil {
			results = append(results, UploadResult{
				LocalPath: p,
				Err:       fmt.Errorf("calculate relative path: %w", relErr),
			})
			return nil
		}

		key := filepath.ToSlash(relPath)
		if prefix != "" {
			key = prefix + "/" + key
		}

		fileOpts := opts
		fileOpts.ContentType = ""
		result, uploadErr := c.uploadSingle(ctx, p, key, fileOpts)
		if uploadErr != nil {
			result = UploadResult{LocalPath: p, Key: key, Err: uploadErr}
		}
		results = append(results, result)
		return nil
	})

	if walkErr != nil {
		return results, fmt.Errorf("walk directory: %w", walkErr)
	}

	return results, nil
}

func (c *Client) uploadSingle(ctx context.Context, localPath, key string, opts UploadOptions) (UploadResult, error) {
	if key == "" {
		return UploadResult{}, fmt.Errorf("upload %s: %w", localPath, ErrEmptyKey)
	}

	file, err := os.Open(localPath) //#nosec G304 -- localPath is user-provided input
	if err != nil {
		return UploadResult{}, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return UploadResult{}, fmt.Errorf("stat file: %w", err)
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = detectContentType(localPath)
	}

	header := http.Header{}
	header.Set("Content-Type", contentType)
	if opts.CacheControl != "" {
		header.Set("Cache-Control", opts.CacheControl)
	}
	for name, value := range opts.Metadata {
		header.Set(metaHeaderPrefix+name, value)
	}

	req, err := c.newRequest(ctx, http.MethodPut, "/api/files/"+escapeKey(key), file, header)
	if err != nil {
		return UploadResult{}, err
	}
	req.ContentLength = info.Size()
	if info.Size() == 0 {
		req.Body = http.NoBody
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return UploadResult{}, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return UploadResult{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return UploadResult{}, parseServerError(resp.StatusCode, body)
	}

	var put serverPutResponse
	if err := json.Unmarshal(body, &put); err != nil {
		return UploadResult{}, fmt.Errorf("parse response: %w", err)
	}

	return UploadResult{
		LocalPath: localPath,
		Key:       put.Key,
		ETag:      put.ETag,
		Size:      put.Size,
		Uploaded:  put.Uploaded,
	}, nil
}

// Download downloads a file from the server.
// If opts.LocalPath is "-", the content is returned via the io.ReadCloser and must be closed by the caller.
// Otherwise, the content is written to the file and the io.ReadCloser is nil.
func (c *Client) Download(ctx context.Context, opts DownloadOptions) (*DownloadResult, io.ReadCloser, error) {
	key := opts.Key
	if key == "" {
		return nil, nil, fmt.Errorf("download: %w", ErrEmptyKey)
	}

	resp, err := c.do(ctx, http.MethodGet, "/api/files/"+escapeKey(key), http.NoBody, nil)
	if err != nil {
		return nil, nil, err
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, nil, parseServerError(resp.StatusCode, body)
	}

	result := &DownloadResult{
		Key:          key,
		ETag:         strings.Trim(resp.Header.Get("ETag"), `"`),
		ContentType:  resp.Header.Get("Content-Type"),
		CacheControl: resp.Header.Get("Cache-Control"),
		Metadata:     metaFromHeader(resp.Header),
		Size:         resp.ContentLength,
	}

	if opts.LocalPath == "-" {
		result.LocalPath = "-"
		return result, resp.Body, nil
	}

	localPath := opts.LocalPath
	if localPath == "" {
		localPath = path.Base(key)
	}
	result.LocalPath = localPath

	dir := filepath.Dir(localPath)
	if dir != "" && dir != "." {
		if mkdirErr := os.MkdirAll(dir, 0o750); mkdirErr != nil {
			_ = resp.Body.Close()
			return nil, nil, fmt.Errorf("create directory: %w", mkdirErr)
		}
	}

	file, createErr := os.Create(localPath) //#nosec G304 -- localPath is user-provided input
	if createErr != nil {
		_ = resp.Body.Close()
		return nil, nil, fmt.Errorf("create file: %w", createErr)
	}

	written, copyErr := io.Copy(file, resp.Body)
	_ = resp.Body.Close()
	if copyErr != nil {
		_ = file.Close()
		return nil, nil, fmt.Errorf("write file: %w", copyErr)
	}

	if closeErr := file.Close(); closeErr != nil {
		return nil, nil, fmt.Errorf("close file: %w", closeErr)
	}

	result.Size = written
	return result, nil, nil
}

// Delete deletes one or more files from the server.
// Continues on error, collecting results for all keys.
func (c *Client) Delete(ctx context.Context, opts DeleteOptions) ([]DeleteResult, error) {
	if len(opts.Keys) == 0 {
		return nil, ErrNoKeys
	}

	results := make([]DeleteResult, 0, len(opts.Keys))

	for _, key := range opts.Keys {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		results = append(results, c.deleteSingle(ctx, key))
	}

	return results, nil
}

func (c *Client) deleteSingle(ctx context.Context, key string) DeleteResult {
	if key == "" {
		return DeleteResult{Key: key, Err: ErrEmptyKey}
	}

	resp, err := c.do(ctx, http.MethodDelete, "/api/files/"+escapeKey(key), http.NoBody, nil)
	if err != nil {
		return DeleteResult{Key: key, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent {
		return DeleteResult{Key: key, Deleted: true}
	}

	body, _ := io.ReadAll(resp.Body)
	return DeleteResult{
		Key: key,
		Err: parseServerError(resp.StatusCode, body),
	}
}

// HasDeleteErrors returns true if any delete operation failed.
func HasDeleteErrors(results []DeleteResult) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// Rename moves opts.OldKey to opts.NewKey on the server.
func (c *Client) Rename(ctx context.Context, opts RenameOptions) (*RenameResult, error) {
	oldKey, newKey := opts.OldKey, opts.NewKey
	if oldKey == "" || newKey == "" {
		return nil, fmt.Errorf("rename: %w", ErrEmptyKey)
	}
	if oldKey == newKey {
		return nil, fmt.Errorf("rename: %w", ErrSameRename)
	}

	payload, err := json.Marshal(serverRenameRequest{OldKey: oldKey, NewKey: newKey})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")

	resp, err := c.do(ctx, http.MethodPost, "/api/files/rename", bytes.NewReader(payload), header)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseServerError(resp.StatusCode, body)
	}

	return &RenameResult{OldKey: oldKey, NewKey: newKey}, nil
}

func (c *Client) newRequest(ctx context.Context, method, p string, body io.Reader, header http.Header) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.config.Endpoint+p, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for name, values := range header {
		req.Header[name] = values
	}
	if c.config.Token != "" {
		req.Header.Set(c.config.Header, c.config.Token)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, p string, body io.Reader, header http.Header) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, p, body, header)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	return resp, nil
}

// escapeKey percent-encodes each segment of key, keeping the slashes. Keys
// are sent as given: a leading or doubled slash is part of the key.
func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// NormalizeLocalToRemotePath converts a local path to a clean remote key.
// It handles:
//   - Leading "./" is stripped (./foo/bar.txt -> foo/bar.txt)
//   - Leading "/" is stripped (/abs/path/file.txt -> abs/path/file.txt)
//   - Parent traversal is resolved (../sibling/file.txt -> sibling/file.txt)
//   - Multiple slashes are collapsed
//   - Backslashes are converted to forward slashes (Windows)
func NormalizeLocalToRemotePath(localPath string) string {
	p := filepath.ToSlash(localPath)
	p = filepath.ToSlash(filepath.Clean(p))
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimPrefix(p, "/")

	for strings.HasPrefix(p, "../") {
		p = strings.TrimPrefix(p, "../")
	}

	if p == ".." || p == "." {
		return ""
	}

	return p
}

// detectContentType returns MIME type based on file extension.
func detectContentType(p string) string {
	ext := filepath.Ext(p)
	if ext == "" {
		return cloudpad.DefaultContentType
	}

	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		return cloudpad.DefaultContentType
	}

	return mimeType
}

func metaFromHeader(h http.Header) map[string]string {
	var meta map[string]string
	for name, values := range h {
		if len(values) == 0 || !strings.HasPrefix(http.CanonicalHeaderKey(name), metaHeaderPrefix) {
			continue
		}
		if meta == nil {
			meta = make(map[string]string)
		}
		meta[strings.ToLower(name[len(metaHeaderPrefix):])] = values[0]
	}
	return meta
}

// parseServerError builds an APIError from a non-success response.
func parseServerError(statusCode int, body []byte) error {
	apiErr := &APIError{StatusCode: statusCode, Body: string(body)}

	var se serverError
	if err := json.Unmarshal(body, &se); err == nil {
		apiErr.Code = se.Error
		apiErr.Message = se.Message
	}

	return apiErr
}

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Code       string // error field of the JSON body, if any
	Message    string // message field of the JSON body, if any
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return "server error: " + strconv.Itoa(e.StatusCode) + " " + e.Code + ": " + e.Message
	}
	return "server error: " + strconv.Itoa(e.StatusCode) + " - " + e.Body
}

// Is reports whether target is an *APIError with the same StatusCode.
func (e *APIError) Is(target error) bool {
	var t *APIError
	if !errors.As(target, &t) {
		return false
	}
	return t.StatusCode == e.StatusCode
}

// IsNotFound returns true if the error is a 404.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Sentinel errors for common API error conditions.
// Use errors.Is() to check for these conditions.
var (
	// ErrNotFound is returned when the requested object or route does not exist (404).
	ErrNotFound = &APIError{StatusCode: http.StatusNotFound}

	// ErrUnauthorized is returned when the token is missing or wrong (401).
	ErrUnauthorized = &APIError{StatusCode: http.StatusUnauthorized}

	// ErrBadRequest is returned for an invalid key or request body (400).
	ErrBadRequest = &APIError{StatusCode: http.StatusBadRequest}

	// ErrTooLarge is returned when an upload exceeds the server limit (413).
	ErrTooLarge = &APIError{StatusCode: http.StatusRequestEntityTooLarge}
)
