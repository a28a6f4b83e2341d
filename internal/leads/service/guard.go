package service

import (
	"crm_pipeline_backend/internal/leads/repository"
	"crm_pipeline_backend/platform/apperr"
	"crm_pipeline_backend/platform/httpkit"
)

// guardLead enforces ownership: admin and sales_manager touch any lead, a
// sales_agent only leads assigned to them. Runs before any write.
func guardLead(identity httpkit.Identity, lead repository.Lead) error {
	if identity.IsPrivileged() {
		return nil
	}
	if lead.AssignedToID == identity.AgentID() {
		return nil
	}
	return apperr.Forbidden("lead is assigned to another agent")
}
