package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveHealth(t *testing.T, pings map[string]pinger) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/health", healthHandler(pings))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	return w
}

func okPing(ctx context.Context) error { return nil }

func TestHealthAllDependenciesUp(t *testing.T) {
	w := serveHealth(t, map[string]pinger{
		"database": okPing,
		"redis":    okPing,
		"minio":    okPing,
	})

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "ok", body.Checks["database"])
	assert.Equal(t, "ok", body.Checks["redis"])
	assert.Equal(t, "ok", body.Checks["minio"])
}

func TestHealthObjectStorageDown(t *testing.T) {
	w := serveHealth(t, map[string]pinger{
		"database": okPing,
		"redis":    okPing,
		"minio": func(ctx context.Context) error {
			return errors.New("connection refused")
		},
	})

	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "ok", body.Checks["database"])
	assert.Contains(t, body.Checks["minio"], "connection refused")
}
