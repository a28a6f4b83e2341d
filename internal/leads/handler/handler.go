package handler

import (
	"net/http"

	"crm_pipeline_backend/internal/leads/domain"
	"crm_pipeline_backend/internal/leads/repository"
	"crm_pipeline_backend/internal/leads/service"
	"crm_pipeline_backend/internal/leads/transport"
	"crm_pipeline_backend/platform/httpkit"
	"crm_pipeline_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc      *service.Service
	validate *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

func New(svc *service.Service, validate *validator.Validator) *Handler {
	return &Handler{svc: svc, validate: validate}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/leads", h.Create)
	rg.GET("/leads", h.List)
	rg.GET("/leads/metrics", h.Metrics)
	rg.GET("/leads/:id", h.GetByID)
	rg.PATCH("/leads/:id", h.Update)
	rg.POST("/leads/:id/calls", h.RecordCall)
	rg.GET("/leads/:id/calls", h.ListCalls)
	rg.POST("/leads/:id/calls/dial", h.Dial)
	rg.POST("/leads/:id/visits", h.ScheduleVisit)
	rg.GET("/leads/:id/visits", h.ListVisits)
	rg.GET("/leads/:id/activity", h.ListActivity)
	rg.POST("/visits/:id/complete", h.CompleteVisit)
	rg.PATCH("/visits/:id/outcome", h.EditVisitOutcome)
	rg.POST("/calls/:id/archive", h.ArchiveCall)
	rg.DELETE("/calls/:id", h.DeleteCall)
}

func (h *Handler) Create(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, err := h.svc.CreateLead(c.Request.Context(), identity, service.CreateLeadInput{
		Name:              req.Name,
		Phone:             req.Phone,
		Email:             req.Email,
		BudgetMin:         req.BudgetMin,
		BudgetMax:         req.BudgetMax,
		PreferredLocation: req.PreferredLocation,
		Notes:             req.Notes,
		AssignedToID:      req.AssignedToID,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, transport.ToLeadResponse(lead))
}

func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	filter := repository.ListLeadsFilter{
		Stage:       c.Query("stage"),
		Temperature: c.Query("temperature"),
		Limit:       50,
	}
	if v := c.Query("assignedTo"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		filter.AssignedToID = &id
	}

	leads, err := h.svc.ListLeads(c.Request.Context(), identity, filter)
	if httpkit.HandleError(c, err) {
		return
	}
	out := make([]transport.LeadResponse, 0, len(leads))
	for _, l := range leads {
		out = append(out, transport.ToLeadResponse(l))
	}
	httpkit.OK(c, out)
}

func (h *Handler) Metrics(c *gin.Context) {
	metrics, err := h.svc.StageMetrics(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	out := make([]transport.StageMetricResponse, 0, len(metrics))
	for _, m := range metrics {
		out = append(out, transport.StageMetricResponse{
			Stage:       m.Stage,
			Temperature: m.Temperature,
			Count:       m.Count,
		})
	}
	httpkit.OK(c, out)
}

func (h *Handler) GetByID(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	lead, err := h.svc.GetLead(c.Request.Context(), identity, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) Update(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, err := h.svc.EditLead(c.Request.Context(), identity, id, repository.UpdateLeadParams{
		Name:              req.Name,
		Phone:             req.Phone,
		Email:             req.Email,
		Stage:             req.Stage,
		Temperature:       req.Temperature,
		BudgetMin:         req.BudgetMin,
		BudgetMax:         req.BudgetMax,
		PreferredLocation: req.PreferredLocation,
		Notes:             req.Notes,
		LostReason:        req.LostReason,
		IsPriority:        req.IsPriority,
		AssignedToID:      req.AssignedToID,
		NextFollowupAt:    req.NextFollowupAt,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) RecordCall(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.RecordCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.RecordCall(c.Request.Context(), identity, id, service.RecordCallInput{
		Outcome:         domain.CallOutcome(req.Outcome),
		CallDate:        req.CallDate,
		DurationSeconds: req.DurationSeconds,
		Notes:           req.Notes,
		CallbackAt:      req.CallbackAt,
		RejectionReason: req.RejectionReason,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.RecordCallResponse{
		Call: transport.ToCallLogResponse(result.Call),
		Lead: transport.ToLeadResponse(result.Lead),
	}
	if result.FollowUp != nil {
		task := transport.ToFollowUpTaskResponse(*result.FollowUp)
		resp.FollowUp = &task
	}
	httpkit.Created(c, resp)
}

func (h *Handler) ListCalls(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	includeArchived := c.Query("includeArchived") == "true"
	calls, err := h.svc.ListCallLogs(c.Request.Context(), identity, id, includeArchived)
	if httpkit.HandleError(c, err) {
		return
	}
	out := make([]transport.CallLogResponse, 0, len(calls))
	for _, call := range calls {
		out = append(out, transport.ToCallLogResponse(call))
	}
	httpkit.OK(c, out)
}

func (h *Handler) Dial(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	callID, err := h.svc.TriggerCall(c.Request.Context(), identity, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"callId": callID})
}

func (h *Handler) ScheduleVisit(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.ScheduleVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	visit, err := h.svc.ScheduleVisit(c.Request.Context(), identity, id, service.ScheduleVisitInput{
		ScheduledAt:  req.ScheduledAt,
		PropertyName: req.PropertyName,
		Notes:        req.Notes,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, transport.ToSiteVisitResponse(visit))
}

func (h *Handler) ListVisits(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	visits, err := h.svc.ListSiteVisits(c.Request.Context(), identity, id)
	if httpkit.HandleError(c, err) {
		return
	}
	out := make([]transport.SiteVisitResponse, 0, len(visits))
	for _, v := range visits {
		out = append(out, transport.ToSiteVisitResponse(v))
	}
	httpkit.OK(c, out)
}

func (h *Handler) ListActivity(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	entries, err := h.svc.ListActivity(c.Request.Context(), identity, id, 0)
	if httpkit.HandleError(c, err) {
		return
	}
	out := make([]transport.ActivityResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, transport.ToActivityResponse(e))
	}
	httpkit.OK(c, out)
}

func (h *Handler) CompleteVisit(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.CompleteVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	input := service.CompleteVisitInput{
		Rating:   req.Rating,
		Feedback: req.Feedback,
	}
	if req.NextStage != nil {
		stage := domain.Stage(*req.NextStage)
		input.NextStage = &stage
	}

	visit, err := h.svc.CompleteVisit(c.Request.Context(), identity, id, input)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToSiteVisitResponse(visit))
}

func (h *Handler) EditVisitOutcome(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.EditVisitOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	input := service.EditVisitOutcomeInput{
		Rating: req.Rating,
		Notes:  req.Notes,
	}
	if req.NextStage != nil {
		stage := domain.Stage(*req.NextStage)
		input.NextStage = &stage
	}

	visit, err := h.svc.EditVisitOutcome(c.Request.Context(), identity, id, input)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToSiteVisitResponse(visit))
}

func (h *Handler) ArchiveCall(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := h.svc.ArchiveCallLog(c.Request.Context(), identity, id); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"success": true})
}

func (h *Handler) DeleteCall(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := h.svc.DeleteCallLog(c.Request.Context(), identity, id); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"success": true})
}
