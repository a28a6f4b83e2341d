package telephony

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"crm_pipeline_backend/platform/config"
	"crm_pipeline_backend/platform/logger"
	"crm_pipeline_backend/platform/phone"

	"github.com/google/uuid"
)

// AgentDirectory resolves an agent's phone number for a dispatch.
type AgentDirectory interface {
	GetAgentPhone(ctx context.Context, agentID uuid.UUID) (string, error)
}

// DialerClient dispatches click-to-call requests to the telephony provider.
// The provider bridges the agent's phone to the lead and reports the result
// through the webhook afterwards.
type DialerClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	agents  AgentDirectory
	log     *logger.Logger
}

type dialRequest struct {
	AgentNumber       string `json:"agent_number"`
	DestinationNumber string `json:"destination_number"`
}

type dialResponse struct {
	Success bool   `json:"success"`
	CallID  string `json:"callid"`
	Message string `json:"message"`
}

// NewDialerClient returns nil when no provider URL is configured; callers
// treat a nil client as "dialing disabled".
func NewDialerClient(cfg config.DialerConfig, agents AgentDirectory, log *logger.Logger) *DialerClient {
	if cfg.GetDialerBaseURL() == "" {
		return nil
	}

	return &DialerClient{
		baseURL: strings.TrimRight(cfg.GetDialerBaseURL(), "/"),
		apiKey:  cfg.GetDialerAPIKey(),
		http:    &http.Client{Timeout: cfg.GetDialerTimeout()},
		agents:  agents,
		log:     log,
	}
}

// Dial asks the provider to bridge the agent to the lead. Returns the
// provider call id used to correlate the follow-up webhook.
func (c *DialerClient) Dial(ctx context.Context, agentID uuid.UUID, leadPhone string) (string, error) {
	if c == nil {
		return "", errors.New("no dialer configured")
	}

	agentPhone, err := c.agents.GetAgentPhone(ctx, agentID)
	if err != nil {
		return "", fmt.Errorf("resolve agent phone: %w", err)
	}

	payload := dialRequest{
		AgentNumber:       phone.NormalizeE164(agentPhone),
		DestinationNumber: phone.NormalizeE164(leadPhone),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal dial payload: %w", err)
	}

	url := fmt.Sprintf("%s/click2call", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("dialer request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("dialer returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out dialResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode dialer response: %w", err)
	}
	if !out.Success {
		return "", fmt.Errorf("dialer rejected dispatch: %s", out.Message)
	}

	c.log.Info("outbound call dispatched", "callId", out.CallID)
	return out.CallID, nil
}
