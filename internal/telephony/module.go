// Package telephony wires the provider webhook and the outbound dialer into
// the HTTP surface.
package telephony

import (
	"crm_pipeline_backend/internal/events"
	apphttp "crm_pipeline_backend/internal/http"
	"crm_pipeline_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the telephony bounded context module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule creates the telephony module. The recorder is the leads lifecycle
// service.
func NewModule(pool *pgxpool.Pool, recorder CallRecorder, eventBus events.Bus, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	svc := NewService(recorder, repo, eventBus, log)

	return &Module{
		handler: NewHandler(svc),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "telephony"
}

// RegisterRoutes mounts the public webhook route. The route is deliberately
// outside the authenticated group; the provider cannot send a JWT, so the
// surface is protected by rate limiting and by the always-200 contract.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	webhook := ctx.V1.Group("/webhook/telephony")
	if ctx.WebhookRateLimiter != nil {
		webhook.Use(ctx.WebhookRateLimiter.RateLimit())
	}
	webhook.POST("/call", m.handler.HandleCallStatus)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
