package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/cloudpad/cloudpad"
)

// MetaHeaderPrefix marks request and response headers that carry custom metadata.
const MetaHeaderPrefix = "X-Meta-"

// reservedSegment is the first path segment that is never treated as a token.
const reservedSegment = "api"

type Service interface {
	List(ctx context.Context) ([]cloudpad.ObjectInfo, error)
	Get(ctx context.Context, key string) (cloudpad.Object, error)
	Put(ctx context.Context, key string, content io.Reader, size int64, opts cloudpad.PutOptions) (cloudpad.ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	Rename(ctx context.Context, oldKey, newKey string) error
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type HandlerConfig struct {
	Verifier      TokenVerifier
	TokenHeader   string
	MaxUploadSize int64 // bytes, 0 means unlimited
	CORS          CORSConfig
	Metrics       *Metrics
	MetricsPath   string
}

// Handler provides HTTP handlers for the file API.
type Handler struct {
	config   HandlerConfig
	service  Service
	validate *validator.Validate
}

// NewHandler creates a new Handler with the given configuration and service.
func NewHandler(config *HandlerConfig, service Service) *Handler {
	return &Handler{
		config:   *config,
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ListItem is one entry of the list response.
type ListItem struct {
	Key      string    `json:"key"`
	Size     int64     `json:"size"`
	Uploaded time.Time `json:"uploaded"`
}

// PutResponse is returned by a successful upload.
type PutResponse struct {
	Key      string    `json:"key"`
	Size     int64     `json:"size"`
	ETag     string    `json:"etag"`
	Uploaded time.Time `json:"uploaded"`
}

// DeleteResponse is returned by a successful delete.
type DeleteResponse struct {
	Message string `json:"message"`
	Key     string `json:"key"`
}

// RenameRequest is the body of POST /api/files/rename.
type RenameRequest struct {
	OldKey string `json:"oldKey" validate:"required"`
	NewKey string `json:"newKey" validate:"required"`
}

// RenameResponse is returned by a successful rename.
type RenameResponse struct {
	Message string `json:"message"`
	OldKey  string `json:"oldKey"`
	NewKey  string `json:"newKey"`
}

// Router returns the routing table. It is built once per call and holds no
// state beyond the handler itself.
//
//	GET    /api/files          list
//	POST   /api/files/rename   rename
//	GET    /api/files/*        get
//	PUT    /api/files/*        put
//	DELETE /api/files/*        delete
//	GET    /{token}/*          direct download
//	GET    /metrics            Prometheus, when metrics are configured
//
// Anything else, including a known path with another method, is a JSON 404.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	if h.config.Metrics != nil {
		r.Use(h.config.Metrics.Middleware)
	}

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.NotFound(writeNotFoundRoute)
	r.MethodNotAllowed(writeNotFoundRoute)

	if h.config.Metrics != nil {
		metricsPath := h.config.MetricsPath
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		r.Method(http.MethodGet, metricsPath, h.config.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(h.config.Verifier, HeaderToken(h.config.TokenHeader)))
		r.Get("/api/files", h.handleList)
		r.Post("/api/files/rename", h.handleRename)
		r.Get("/api/files/*", h.handleGet)
		r.Put("/api/files/*", h.handlePut)
		r.Delete("/api/files/*", h.handleDelete)
	})

	r.With(rejectReservedToken, AuthMiddleware(h.config.Verifier, PathToken("token"))).
		Get("/{token}/*", h.handleDownload)

	return r
}

// rejectReservedToken sends /api/... requests that fell through to the
// download route to the catch-all 404 instead of authenticating them.
func rejectReservedToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token, err := pathParam(r, "token"); err == nil && token == reservedSegment {
			writeNotFoundRoute(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// objectKey returns the decoded wildcard capture. ok is false after an error
// response has been written.
func objectKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key, err := pathParam(r, "*")
	if err != nil {
		WriteError(w, http.StatusBadRequest, CodeInvalidKey, "Key is not a valid escaped path")
		return "", false
	}
	if !cloudpad.IsValidKey(key) {
		WriteError(w, http.StatusBadRequest, CodeInvalidKey, "Key cannot be empty")
		return "", false
	}
	return key, true
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	objects, err := h.service.List(r.Context())
	if err != nil {
		HandleError(w, err)
		return
	}

	items := make([]ListItem, 0, len(objects))
	for _, o := range objects {
		items = append(items, ListItem{Key: o.Key, Size: o.Size, Uploaded: o.Uploaded})
	}

	_ = WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	key, ok := objectKey(w, r)
	if !ok {
		return
	}

	obj, err := h.service.Get(r.Context(), key)
	if err != nil {
		HandleError(w, err)
		return
	}
	defer func() { _ = obj.Close() }()

	writeObject(w, obj)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	key, ok := objectKey(w, r)
	if !ok {
		return
	}

	obj, err := h.service.Get(r.Context(), key)
	if err != nil {
		HandleError(w, err)
		return
	}
	defer func() { _ = obj.Close() }()

	w.Header().Set("Content-Disposition", contentDisposition(path.Base(key)))

	writeObject(w, obj)
}

func writeObject(w http.ResponseWriter, obj cloudpad.Object) {
	header := w.Header()
	contentType := obj.ContentType
	if contentType == "" {
		contentType = cloudpad.DefaultContentType
	}
	header.Set("Content-Type", contentType)
	if obj.ETag != "" {
		header.Set("ETag", `"`+obj.ETag+`"`)
	}
	if obj.CacheControl != "" {
		header.Set("Cache-Control", obj.CacheControl)
	}
	if obj.Size >= 0 {
		header.Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	for name, value := range obj.CustomMetadata {
		header.Set(MetaHeaderPrefix+name, value)
	}

	w.WriteHeader(http.StatusOK)
	if obj.Body == nil {
		return
	}
	if _, err := io.Copy(w, obj.Body); err != nil {
		// Headers are already sent; the client sees a truncated body.
		slog.Warn("copy object body", "key", obj.Key, "error", err)
	}
}

func contentDisposition(filename string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(filename)
	return `attachment; filename="` + escaped + `"`
}

func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request) {
	key, ok := objectKey(w, r)
	if !ok {
		return
	}

	size := r.ContentLength
	var body io.Reader = r.Body
	if r.Body == nil || r.Body == http.NoBody {
		if size > 0 {
			WriteError(w, http.StatusBadRequest, CodeInvalidRequest, "Missing request body")
			return
		}
		body = strings.NewReader("")
		size = 0
	}

	var limited *limitedReader
	if limit := h.config.MaxUploadSize; limit > 0 {
		if size > limit {
			WriteError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
				fmt.Sprintf("Request body exceeds %d bytes", limit))
			return
		}
		limited = &limitedReader{r: body, remaining: limit}
		body = limited
	}

	opts := cloudpad.PutOptions{
		ContentType:    r.Header.Get("Content-Type"),
		CacheControl:   r.Header.Get("Cache-Control"),
		CustomMetadata: metaFromHeader(r.Header),
	}

	info, err := h.service.Put(r.Context(), key, body, size, opts)
	if err != nil {
		if limited != nil && limited.exceeded {
			err = fmt.Errorf("%w: %w", cloudpad.ErrTooLarge, err)
		}
		HandleError(w, err)
		return
	}

	h.config.Metrics.observeUpload(info.Size)

	_ = WriteJSON(w, http.StatusOK, PutResponse{
		Key:      info.Key,
		Size:     info.Size,
		ETag:     info.ETag,
		Uploaded: info.Uploaded,
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	key, ok := objectKey(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), key); err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, DeleteResponse{Message: "File deleted", Key: key})
}

func (h *Handler) handleRename(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid JSON body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, renameField(fe.Field()))
			}
			WriteError(w, http.StatusBadRequest, CodeInvalidRequest, "Missing "+strings.Join(fields, ", "))
			return
		}
		WriteError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}

	if err := h.service.Rename(r.Context(), req.OldKey, req.NewKey); err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, RenameResponse{
		Message: "File renamed",
		OldKey:  req.OldKey,
		NewKey:  req.NewKey,
	})
}

func renameField(field string) string {
	switch field {
	case "OldKey":
		return "oldKey"
	case "NewKey":
		return "newKey"
	default:
		return field
	}
}

// metaFromHeader collects X-Meta-* headers into a map keyed by the
// lower-cased suffix. It returns nil when there are none.
func metaFromHeader(h http.Header) map[string]string {
	var meta map[string]string
	for name, values := range h {
		if len(values) == 0 || len(name) <= len(MetaHeaderPrefix) ||
			!strings.EqualFold(name[:len(MetaHeaderPrefix)], MetaHeaderPrefix) {
			continue
		}
		if meta == nil {
			meta = make(map[string]string)
		}
		meta[strings.ToLower(name[len(MetaHeaderPrefix):])] = values[0]
	}
	return meta
}

// limitedReader fails with ErrTooLarge once more than remaining bytes are read.
type limitedReader struct {
	r         io.Reader
	remaining int64
	exceeded  bool
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.exceeded {
		return 0, cloudpad.ErrTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	if int64(n) > l.remaining {
		l.exceeded = true
		return int(l.remaining), cloudpad.ErrTooLarge
	}
	l.remaining -= int64(n)
	return n, err
}
