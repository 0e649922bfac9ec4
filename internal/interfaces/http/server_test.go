package http

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyGap-Intelligence/internal/config"
)

func TestNewServer(t *testing.T) {
	s := NewServer(config.ServerConfig{Port: 8080, ReadTimeout: time.Second}, http.NotFoundHandler(), nil)

	assert.Equal(t, ":8080", s.Addr())
	assert.Equal(t, 30*time.Second, s.shutdownTimeout)
	assert.Equal(t, time.Second, s.srv.ReadTimeout)
	assert.NotNil(t, s.Handler())
}

func TestServer_ServeAndStop(t *testing.T) {
	engine := gin.New()
	engine.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	s := NewServer(config.ServerConfig{ShutdownTimeout: time.Second}, engine, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	require.NoError(t, s.Stop(context.Background()))
	select {
	case err := <-done:
		assert.NoError(t, err, "a clean shutdown is not an error")
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Stop")
	}
}

//Personal.AI order the ending
