package services

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/localnerve/booksdb/internal/config"
	"github.com/localnerve/booksdb/internal/storage/stubs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type downStore struct {
	*stubs.MemoryStore
}

func (downStore) Ping(context.Context) error {
	return errors.New("connection refused")
}

func TestHealthCheck(t *testing.T) {
	cfg := &config.Config{DBType: "memory", AuthMode: config.AuthModeNone, StoreTimeout: time.Second}

	result := HealthCheck(context.Background(), cfg, stubs.NewMemoryStore())
	assert.True(t, result.Healthy())
	assert.Equal(t, "ok", result.Database)
	assert.Equal(t, "disabled", result.Authorizer)

	result = HealthCheck(context.Background(), cfg, downStore{stubs.NewMemoryStore()})
	assert.False(t, result.Healthy())
	assert.Equal(t, "unreachable", result.Database)
	assert.Contains(t, result.ErrorMessage, "connection refused")
}

func TestHealthCheckAuthorizer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := &config.Config{
		DBType:       "memory",
		AuthMode:     config.AuthModeAuthorizer,
		AuthzURL:     "http://" + ln.Addr().String(),
		StoreTimeout: time.Second,
	}
	result := HealthCheck(context.Background(), cfg, stubs.NewMemoryStore())
	assert.True(t, result.Healthy())
	assert.Equal(t, "ok", result.Authorizer)

	cfg.AuthzURL = "http://127.0.0.1:1"
	result = HealthCheck(context.Background(), cfg, downStore{stubs.NewMemoryStore()})
	assert.False(t, result.Healthy())
	assert.Equal(t, "unreachable", result.Authorizer)
	assert.Contains(t, result.ErrorMessage, "; Authorizer ping failed")
}
