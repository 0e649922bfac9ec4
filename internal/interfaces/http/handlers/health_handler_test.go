package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHealthRouter(h *HealthHandler) *gin.Engine {
	r := gin.New()
	h.RegisterRoutes(r)
	return r
}

func TestHealthHandler_Liveness(t *testing.T) {
	failing := CheckFunc("redis", func(context.Context) error { return assert.AnError })
	r := newHealthRouter(NewHealthHandler("v1.2.3", failing))

	w := doJSON(t, r, http.MethodGet, "/healthz", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp LivenessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alive", resp.Status)
	assert.Equal(t, "v1.2.3", resp.Version)
}

func TestHealthHandler_Readiness(t *testing.T) {
	ok := CheckFunc("store", func(context.Context) error { return nil })
	bad := CheckFunc("kafka", func(context.Context) error { return assert.AnError })

	t.Run("no checkers", func(t *testing.T) {
		w := doJSON(t, newHealthRouter(NewHealthHandler("dev")), http.MethodGet, "/readyz", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("all healthy", func(t *testing.T) {
		w := doJSON(t, newHealthRouter(NewHealthHandler("dev", ok)), http.MethodGet, "/readyz", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var resp ReadinessResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ready", resp.Status)
		assert.Equal(t, "healthy", resp.Components["store"].Status)
	})

	t.Run("one unhealthy", func(t *testing.T) {
		w := doJSON(t, newHealthRouter(NewHealthHandler("dev", ok, bad)), http.MethodGet, "/readyz", nil)
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		var resp ReadinessResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "not_ready", resp.Status)
		assert.Equal(t, "unhealthy", resp.Components["kafka"].Status)
		assert.Equal(t, assert.AnError.Error(), resp.Components["kafka"].Error)
		assert.Equal(t, "healthy", resp.Components["store"].Status)
	})
}

//Personal.AI order the ending
