// Package leads provides the lead lifecycle bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"crm_pipeline_backend/internal/events"
	apphttp "crm_pipeline_backend/internal/http"
	"crm_pipeline_backend/internal/leads/domain"
	"crm_pipeline_backend/internal/leads/handler"
	"crm_pipeline_backend/internal/leads/repository"
	"crm_pipeline_backend/internal/leads/service"
	"crm_pipeline_backend/platform/logger"
	"crm_pipeline_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the leads module with all its dependencies.
// dialer may be nil when no telephony provider is configured.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, dialer service.Dialer, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	policy := domain.NewPolicy(domain.DefaultProgression())
	svc := service.New(repo, policy, eventBus, dialer, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the lifecycle service for other modules (telephony webhook).
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts the lifecycle routes on the authenticated group. The
// handler spans /leads, /visits and /calls, so it mounts on the group root.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
