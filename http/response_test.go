package http_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cloudpad/cloudpad"
	cloudpadhttp "github.com/cloudpad/cloudpad/http"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{name: "not found", err: cloudpad.ErrNotFound, wantCode: http.StatusNotFound, wantErr: cloudpadhttp.CodeNotFound},
		{name: "wrapped not found", err: fmt.Errorf("get file x: %w", cloudpad.ErrNotFound), wantCode: http.StatusNotFound, wantErr: cloudpadhttp.CodeNotFound},
		{name: "joined not found", err: errors.Join(errors.New("context"), cloudpad.ErrNotFound), wantCode: http.StatusNotFound, wantErr: cloudpadhttp.CodeNotFound},
		{name: "invalid input", err: cloudpad.ErrInvalidInput, wantCode: http.StatusBadRequest, wantErr: cloudpadhttp.CodeInvalidRequest},
		{name: "unauthorized", err: cloudpad.ErrUnauthorized, wantCode: http.StatusUnauthorized, wantErr: cloudpadhttp.CodeUnauthorized},
		{name: "too large", err: fmt.Errorf("put: %w", cloudpad.ErrTooLarge), wantCode: http.StatusRequestEntityTooLarge, wantErr: cloudpadhttp.CodePayloadTooLarge},
		{name: "internal", err: errors.New("some unexpected error"), wantCode: http.StatusInternalServerError, wantErr: cloudpadhttp.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			cloudpadhttp.HandleError(rec, tt.err)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error":"`+tt.wantErr+`"`)
		})
	}
}

func TestHandleError_InternalMessageCarriesCause(t *testing.T) {
	rec := httptest.NewRecorder()

	cloudpadhttp.HandleError(rec, fmt.Errorf("list files: %w", errors.New("bucket unreachable")))

	assert.Contains(t, rec.Body.String(), `"message":"list files: bucket unreachable"`)
}

func TestWriteError_Success(t *testing.T) {
	rec := httptest.NewRecorder()

	cloudpadhttp.WriteError(rec, http.StatusBadRequest, "bad_request", "Invalid request")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"error":"bad_request"`)
	assert.Contains(t, rec.Body.String(), `"message":"Invalid request"`)
}

func TestWriteJSON_Success(t *testing.T) {
	rec := httptest.NewRecorder()

	data := map[string]string{"key": "value"}
	err := cloudpadhttp.WriteJSON(rec, http.StatusOK, data)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"key":"value"`)
}

func TestWriteJSON_EncodingError(t *testing.T) {
	rec := httptest.NewRecorder()

	// Channels cannot be JSON encoded
	data := make(chan int)
	err := cloudpadhttp.WriteJSON(rec, http.StatusOK, data)

	assert.Error(t, err)
}
