package telephony

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler handles the provider's call-status webhook.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// webhookPayload accepts both JSON bodies and form posts; providers differ.
type webhookPayload struct {
	CallTo       string `json:"callto" form:"callto"`
	EmpPhone     string `json:"emp_phone" form:"emp_phone"`
	DialStatus   string `json:"dialstatus" form:"dialstatus"`
	Filename     string `json:"filename" form:"filename"`
	AnsweredTime string `json:"answeredtime" form:"answeredtime"`
	CallID       string `json:"callid" form:"callid"`
}

// HandleCallStatus processes an inbound call-status event.
// POST /api/v1/webhook/telephony/call
// Always acknowledges with 200: the provider retries indefinitely on any
// non-200, so a failed event would be redelivered forever.
func (h *Handler) HandleCallStatus(c *gin.Context) {
	var payload webhookPayload
	if err := c.ShouldBind(&payload); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	err := h.service.HandleCallEvent(c.Request.Context(), CallEvent{
		CallTo:       payload.CallTo,
		AgentPhone:   payload.EmpPhone,
		DialStatus:   payload.DialStatus,
		Filename:     payload.Filename,
		AnsweredTime: payload.AnsweredTime,
		CallID:       payload.CallID,
	})
	if err != nil {
		h.service.log.Error("webhook call processing failed", "error", err, "callId", payload.CallID)
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
