package notification

import (
	apphttp "crm_pipeline_backend/internal/http"
	"crm_pipeline_backend/internal/leads/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the notification polling module implementing http.Module.
type Module struct {
	handler *Handler
}

func NewModule(pool *pgxpool.Pool) *Module {
	svc := NewService(repository.New(pool))
	return &Module{handler: NewHandler(svc)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notification"
}

// RegisterRoutes mounts the follow-up polling route.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/notifications/follow-ups/due", m.handler.DueFollowUps)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
