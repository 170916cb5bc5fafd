package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cloudpad/cloudpad"
)

// DefaultTokenHeader is the header read by HeaderToken when no name is configured.
const DefaultTokenHeader = "X-API-TOKEN"

// TokenVerifier reports whether a candidate token is the configured secret.
type TokenVerifier interface {
	Verify(candidate string) bool
}

// TokenExtractor pulls a candidate token out of a request. It returns "" when
// the request carries none.
type TokenExtractor func(r *http.Request) string

// HeaderToken reads the token from the named request header.
func HeaderToken(name string) TokenExtractor {
	if name == "" {
		name = DefaultTokenHeader
	}
	return func(r *http.Request) string {
		return r.Header.Get(name)
	}
}

// PathToken reads the token from the named chi URL parameter.
func PathToken(param string) TokenExtractor {
	return func(r *http.Request) string {
		v, err := pathParam(r, param)
		if err != nil {
			return ""
		}
		return v
	}
}

// AuthMiddleware rejects requests whose extracted token does not pass
// verifier with 401. A nil verifier rejects every request.
func AuthMiddleware(verifier TokenVerifier, extract TokenExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil || extract == nil || !verifier.Verify(extract(r)) {
				HandleError(w, fmt.Errorf("authenticate request: %w", cloudpad.ErrUnauthorized))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger logs one line per request once the response is written.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		}
		if status >= http.StatusInternalServerError {
			slog.Error("request", attrs...)
			return
		}
		slog.Info("request", attrs...)
	})
}

// pathParam returns the chi URL parameter name. chi matches against the
// escaped path when the request has one, so the value is unescaped once in
// that case.
func pathParam(r *http.Request, name string) (string, error) {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v, nil
	}
	return url.PathUnescape(v)
}
