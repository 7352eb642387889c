package services

import (
	"context"
	"fmt"

	"github.com/localnerve/booksdb/internal/config"
	"github.com/localnerve/booksdb/internal/logging"
	"github.com/localnerve/booksdb/internal/storage"
	"github.com/localnerve/booksdb/internal/utils"
)

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status       string            `json:"status"`
	Database     string            `json:"database"`
	Authorizer   string            `json:"authorizer"`
	Details      map[string]string `json:"details,omitempty"`
	ErrorMessage string            `json:"error,omitempty"`
}

// Healthy reports whether every dependency answered
func (r HealthCheckResult) Healthy() bool {
	return r.Status == "healthy"
}

// HealthCheck pings the store and, in authorizer mode, the authorizer service
func HealthCheck(ctx context.Context, cfg *config.Config, store storage.Storage) HealthCheckResult {
	result := HealthCheckResult{
		Status:     "healthy",
		Authorizer: "disabled",
		Details:    make(map[string]string),
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		result.Status = "unhealthy"
		result.Database = "unreachable"
		result.Details["database_ping_error"] = err.Error()
		result.ErrorMessage = fmt.Sprintf("Database ping failed: %v", err)
		logging.Warn().Err(err).Msg("Health check failed - database ping")
	} else {
		result.Database = "ok"
		result.Details["database_type"] = cfg.DBType
	}

	if cfg.AuthMode == config.AuthModeAuthorizer {
		if err := utils.PingAuthorizer(ctx, cfg.AuthzURL); err != nil {
			result.Status = "unhealthy"
			result.Authorizer = "unreachable"
			result.Details["authorizer_error"] = err.Error()
			if result.ErrorMessage == "" {
				result.ErrorMessage = fmt.Sprintf("Authorizer ping failed: %v", err)
			} else {
				result.ErrorMessage += fmt.Sprintf("; Authorizer ping failed: %v", err)
			}
			logging.Warn().Err(err).Msg("Health check failed - authorizer ping")
		} else {
			result.Authorizer = "ok"
			result.Details["authorizer_url"] = cfg.AuthzURL
		}
	}

	if result.Healthy() {
		logging.Debug().Msg("Health check passed - all systems operational")
	}

	return result
}
