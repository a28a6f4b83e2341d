// Package httpkit provides HTTP utilities including identity abstraction.
package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Known roles supplied by the external identity service.
const (
	RoleAdmin        = "admin"
	RoleSalesManager = "sales_manager"
	RoleSalesAgent   = "sales_agent"
)

// Identity represents the authenticated caller's identity.
// This interface abstracts identity extraction from the web framework,
// allowing services to access caller information without depending on Gin.
type Identity interface {
	// AgentID returns the authenticated agent's ID.
	AgentID() uuid.UUID
	// Role returns the agent's role.
	Role() string
	// IsPrivileged reports whether the caller may act on any lead,
	// not just their own.
	IsPrivileged() bool
	// IsAuthenticated returns true if the caller is authenticated.
	IsAuthenticated() bool
}

// identity is the concrete implementation of Identity.
type identity struct {
	agentID       uuid.UUID
	role          string
	authenticated bool
}

func (i *identity) AgentID() uuid.UUID { return i.agentID }

func (i *identity) Role() string { return i.role }

func (i *identity) IsPrivileged() bool {
	return i.role == RoleAdmin || i.role == RoleSalesManager
}

func (i *identity) IsAuthenticated() bool { return i.authenticated }

// NewIdentity constructs an Identity directly. Intended for tests and for
// callers outside the HTTP layer (e.g. the webhook resolver acting as a
// resolved agent).
func NewIdentity(agentID uuid.UUID, role string) Identity {
	return &identity{agentID: agentID, role: role, authenticated: true}
}

// GetIdentity extracts the Identity from a Gin context.
// Returns an unauthenticated identity if caller info is not present.
func GetIdentity(c *gin.Context) Identity {
	agentID, agentOK := c.Get(ContextAgentIDKey)
	role, _ := c.Get(ContextRoleKey)

	if !agentOK {
		return &identity{authenticated: false}
	}

	id, ok := agentID.(uuid.UUID)
	if !ok {
		return &identity{authenticated: false}
	}

	roleValue, _ := role.(string)

	return &identity{
		agentID:       id,
		role:          roleValue,
		authenticated: true,
	}
}

// MustGetIdentity extracts the Identity from a Gin context.
// If the caller is not authenticated, it aborts with 401 Unauthorized and returns nil.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}
	return id
}
