package clientcli

import "time"

// UploadOptions configures an upload operation.
type UploadOptions struct {
	LocalPath    string
	Key          string // remote key or, with Recursive, key prefix
	ContentType  string // optional, auto-detect if empty
	CacheControl string
	Metadata     map[string]string // sent as X-Meta-* headers
	Recursive    bool
}

// UploadResult represents the result of uploading a single file.
type UploadResult struct {
	LocalPath string    `json:"local_path"`
	Key       string    `json:"key"`
	ETag      string    `json:"etag"`
	Size      int64     `json:"size"`
	Uploaded  time.Time `json:"uploaded"`
	Err       error     `json:"-"` // nil on success
}

// DownloadOptions configures a download operation.
type DownloadOptions struct {
	Key       string
	LocalPath string // empty = derive from key, "-" = stdout
}

// DownloadResult represents the result of downloading a file.
type DownloadResult struct {
	Key          string            `json:"key"`
	LocalPath    string            `json:"local_path"`
	ETag         string            `json:"etag"`
	ContentType  string            `json:"content_type"`
	CacheControl string            `json:"cache_control,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Size         int64             `json:"size"`
}

// DeleteOptions configures a delete operation.
type DeleteOptions struct {
	Keys []string
}

// DeleteResult represents the result of deleting a single file.
type DeleteResult struct {
	Key     string `json:"key"`
	Deleted bool   `json:"deleted"`
	Err     error  `json:"-"` // nil on success
}

// RenameOptions configures a rename operation.
type RenameOptions struct {
	OldKey string
	NewKey string
}

// RenameResult is the outcome of a rename.
type RenameResult struct {
	OldKey string `json:"old_key"`
	NewKey string `json:"new_key"`
}

// ListOptions configures a list operation. The server always returns every
// object; Prefix filters the result client-side.
type ListOptions struct {
	Prefix string
}

// ListResult contains list results.
type ListResult struct {
	Items []ObjectInfo `json:"items"`
}

// ObjectInfo represents metadata for a single object.
type ObjectInfo struct {
	Key      string    `json:"key"`
	Size     int64     `json:"size"`
	Uploaded time.Time `json:"uploaded"`
	Language string    `json:"language"`
}

// serverListItem mirrors one entry of the server list response.
type serverListItem struct {
	Key      string    `json:"key"`
	Size     int64     `json:"size"`
	Uploaded time.Time `json:"uploaded"`
}

// serverPutResponse mirrors the server upload response.
type serverPutResponse struct {
	Key      string    `json:"key"`
	Size     int64     `json:"size"`
	ETag     string    `json:"etag"`
	Uploaded time.Time `json:"uploaded"`
}

// serverRenameRequest mirrors the server rename request body.
type serverRenameRequest struct {
	OldKey string `json:"oldKey"`
	NewKey string `json:"newKey"`
}

// serverError mirrors the server JSON error body.
type serverError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
