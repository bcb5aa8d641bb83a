package services

import (
	"context"

	"rajhholding/internal/database"
)

// HealthResult is the health endpoint body
type HealthResult struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// HealthService implements the health service
type HealthService struct {
	gateway *database.Gateway
	name    string
}

// NewHealthService creates a new health service
func NewHealthService(gateway *database.Gateway, name string) *HealthService {
	return &HealthService{gateway: gateway, name: name}
}

// Check pings the store and refreshes the connection gauges. ok is false
// when the store does not answer.
func (s *HealthService) Check(ctx context.Context) (result *HealthResult, ok bool) {
	db := s.gateway.DB()
	database.RecordStats(db)
	if err := database.Ping(ctx, db); err != nil {
		return &HealthResult{Status: "unhealthy", Service: s.name}, false
	}
	return &HealthResult{Status: "healthy", Service: s.name}, true
}
