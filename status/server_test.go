package status

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/someonegg/msgdeliver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	stat msgdeliver.TransportStatistics
}

func (f *fakeSource) Role() msgdeliver.Role {
	return msgdeliver.RoleServer
}

func (f *fakeSource) Statistics() msgdeliver.TransportStatistics {
	return f.stat
}

func TestHealth(t *testing.T) {
	server := NewServer(&fakeSource{})

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response HealthResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, "server", response.Role)
}

func TestStats(t *testing.T) {
	src := &fakeSource{}
	src.stat.ReadedCount = 3
	src.stat.ReadedBytes = 30
	src.stat.WrittenCount = 2
	src.stat.RequeuedCount = 1
	src.stat.AcceptedCount = 4
	src.stat.ActiveConns = 2
	src.stat.FaultCount = 1
	src.stat.OutboundPending = 5

	server := NewServer(src)

	req := httptest.NewRequest("GET", "/stats", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response StatsResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "server", response.Role)
	assert.Equal(t, int64(3), response.ReadCount)
	assert.Equal(t, int64(30), response.ReadBytes)
	assert.Equal(t, int64(2), response.WrittenCount)
	assert.Equal(t, int64(1), response.RequeuedCount)
	assert.Equal(t, int64(4), response.AcceptedCount)
	assert.Equal(t, 2, response.ActiveConns)
	assert.Equal(t, int64(1), response.FaultCount)
	assert.Equal(t, 5, response.OutboundPending)
}

func TestNotFound(t *testing.T) {
	server := NewServer(&fakeSource{})

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStartShutdown(t *testing.T) {
	server := NewServer(&fakeSource{})

	addr, err := server.Start("127.0.0.1:0")
	require.NoError(t, err)

	resp, err := http.Get(fmt.Sprintf("http://%v/health", addr))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, server.Shutdown(ctx))
}
