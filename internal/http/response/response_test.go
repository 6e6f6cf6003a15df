package response

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/kaziapp/taggraph/internal/errors"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var result Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	return result
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter)
		status int
		kind   string
	}{
		{"not found", func(w http.ResponseWriter) { NotFound(w, "msg", nil) }, http.StatusNotFound, "NOT_FOUND"},
		{"too many", func(w http.ResponseWriter) { TooManyRequests(w, "msg", nil) }, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"internal", func(w http.ResponseWriter) { InternalError(w, "msg", nil) }, http.StatusInternalServerError, "INTERNAL"},
		{"custom", func(w http.ResponseWriter) { Error(w, http.StatusGone, "GONE", "msg", nil) }, http.StatusGone, "GONE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)

			assert.Equal(t, tt.status, w.Code)
			result := decode(t, w)
			assert.False(t, result.Success)
			assert.Nil(t, result.Data)
			assert.Equal(t, "msg", result.Error)
			assert.Equal(t, tt.kind, result.Kind)
		})
	}
}

func TestError_ContentType(t *testing.T) {
	w := httptest.NewRecorder()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	Error(w, http.StatusConflict, string(domainerrors.CodeConflict), "slug taken", logger)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	result := decode(t, w)
	assert.Equal(t, Version, result.Version)
	assert.Equal(t, "CONFLICT", result.Kind)
}

func TestEnvelope_OmitEmpty(t *testing.T) {
	tests := []struct {
		name        string
		envelope    Envelope
		contains    []string
		notContains []string
	}{
		{
			name:        "success with data",
			envelope:    OK("test"),
			contains:    []string{`"v":1`, `"success":true`, `"data":"test"`},
			notContains: []string{`"error":`, `"kind":`, `"details":`},
		},
		{
			name:        "failure without data",
			envelope:    Fail("CONFLICT", "something failed", nil),
			contains:    []string{`"success":false`, `"error":"something failed"`, `"kind":"CONFLICT"`},
			notContains: []string{`"data":`, `"details":`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.envelope)
			require.NoError(t, err)

			jsonStr := string(data)
			for _, s := range tt.contains {
				assert.Contains(t, jsonStr, s)
			}
			for _, s := range tt.notContains {
				assert.NotContains(t, jsonStr, s)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	w := httptest.NewRecorder()

	MethodNotAllowed(w, nil)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	result := decode(t, w)
	assert.Equal(t, "METHOD_NOT_ALLOWED", result.Kind)
	assert.Equal(t, "method not allowed", result.Error)
}
