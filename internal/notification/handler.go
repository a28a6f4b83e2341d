package notification

import (
	"net/http"
	"strconv"

	"crm_pipeline_backend/internal/leads/transport"
	"crm_pipeline_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// DueFollowUps lists follow-up tasks due for the calling agent.
// GET /api/v1/notifications/follow-ups/due
func (h *Handler) DueFollowUps(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var agentFilter *uuid.UUID
	if v := c.Query("agentId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
			return
		}
		agentFilter = &id
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	tasks, err := h.svc.DueFollowUps(c.Request.Context(), identity, agentFilter, limit)
	if httpkit.HandleError(c, err) {
		return
	}
	out := make([]transport.FollowUpTaskResponse, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, transport.ToFollowUpTaskResponse(task))
	}
	httpkit.OK(c, out)
}
