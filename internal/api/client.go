// Package api wraps the hub's REST and streaming endpoints. The event
// semantics live elsewhere; this is request/response glue only.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Client talks to one hub.
type Client struct {
	baseURL  string
	token    string // optional bearer token
	clientID string // correlates this process's requests in hub logs
	http     *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:  baseURL,
		token:    token,
		clientID: uuid.New().String(),
		// no overall timeout: streaming responses stay open indefinitely,
		// cancellation is the caller's context
		http: &http.Client{},
	}
}

// StatusResponse is the hub's uniform response envelope.
type StatusResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// TaskRequest starts (or resumes) an execution via the streaming endpoint.
type TaskRequest struct {
	Task      string `json:"task"`
	Context   string `json:"context,omitempty"`
	Provider  string `json:"provider,omitempty"`
	Model     string `json:"model,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Mode      string `json:"mode,omitempty"` // "emergent" or "direct"
}

// SessionDetail is the hub's stored view of one session.
type SessionDetail struct {
	SessionID    string `json:"session_id"`
	Task         string `json:"task"`
	Status       string `json:"status"`
	Mode         string `json:"mode"`
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	FinalReport  string `json:"final_report"`
	Error        string `json:"error"`
	CreatedAt    string `json:"created_at"`
	LastActiveAt string `json:"last_active_at"`
	HasAgent     bool   `json:"has_agent"`
	HasHistory   bool   `json:"has_history"`
}

// InterventionRequest targets agents of one session with a human action.
type InterventionRequest struct {
	SessionID        string         `json:"session_id"`
	AgentID          string         `json:"agent_id,omitempty"`
	AgentIDs         []string       `json:"agent_ids,omitempty"`
	InterventionType string         `json:"intervention_type"` // pause/resume/cancel/inject/adjust
	Payload          map[string]any `json:"payload,omitempty"`
	Reason           string         `json:"reason,omitempty"`
	Priority         int            `json:"priority,omitempty"`
	Scope            string         `json:"scope,omitempty"` // single/selected/all/broadcast
	BroadcastToRelay bool           `json:"broadcast_to_relay"`
}

// OpenTaskStream POSTs a task and returns the raw SSE body. The caller owns
// the reader and cancels via ctx.
func (c *Client) OpenTaskStream(ctx context.Context, req TaskRequest) (io.ReadCloser, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal task request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/task/stream", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	c.authorize(httpReq)
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("open task stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("task stream rejected: %s", resp.Status)
	}
	return resp.Body, nil
}

// OpenSubscription attaches to an already-running session's event stream.
func (c *Client) OpenSubscription(ctx context.Context, sessionID string) (io.ReadCloser, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/session/"+url.PathEscape(sessionID)+"/subscribe", nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")
	c.authorize(httpReq)
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("open subscription: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("subscription rejected: %s", resp.Status)
	}
	return resp.Body, nil
}

// SessionDetail fetches the hub's stored record for one session.
func (c *Client) SessionDetail(ctx context.Context, sessionID string) (*SessionDetail, error) {
	env, err := c.get(ctx, "/api/session/"+url.PathEscape(sessionID))
	if err != nil {
		return nil, err
	}
	var d SessionDetail
	if err := json.Unmarshal(env.Data, &d); err != nil {
		return nil, fmt.Errorf("decode session detail: %w", err)
	}
	if d.SessionID == "" {
		d.SessionID = sessionID
	}
	return &d, nil
}

// LiveState fetches a point-in-time snapshot of one session: agents, relay
// stations with nested messages, and the transcript.
func (c *Client) LiveState(ctx context.Context, sessionID string) (*LiveState, error) {
	env, err := c.get(ctx, "/api/session/"+url.PathEscape(sessionID)+"/live-state")
	if err != nil {
		return nil, err
	}
	var st LiveState
	if err := json.Unmarshal(env.Data, &st); err != nil {
		return nil, fmt.Errorf("decode live state: %w", err)
	}
	return &st, nil
}

// SessionSummary is one row of the session listing.
type SessionSummary struct {
	SessionID    string `json:"session_id"`
	Task         string `json:"task"`
	Status       string `json:"status"`
	Mode         string `json:"mode"`
	CreatedAt    string `json:"created_at"`
	LastActiveAt string `json:"last_active_at"`
}

// ListSessions lists hub sessions, optionally filtered by status.
func (c *Client) ListSessions(ctx context.Context, status string, limit, offset int) ([]SessionSummary, int, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	path := "/api/sessions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	env, err := c.get(ctx, path)
	if err != nil {
		return nil, 0, err
	}
	var data struct {
		Sessions []SessionSummary `json:"sessions"`
		Total    int              `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, 0, fmt.Errorf("decode session list: %w", err)
	}
	return data.Sessions, data.Total, nil
}

// CloseSession deletes a session on the hub.
func (c *Client) CloseSession(ctx context.Context, sessionID string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.baseURL+"/api/session/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return err
	}
	c.authorize(httpReq)
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus(resp, http.StatusOK)
}

// Intervene submits a human intervention. The returned relay messages are
// the station traffic the intervention generated; the caller merges them
// into local state.
func (c *Client) Intervene(ctx context.Context, req InterventionRequest) (*InterventionResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal intervention: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/intervention", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.authorize(httpReq)
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("intervene: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, http.StatusOK); err != nil {
		return nil, err
	}
	var env StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	var res InterventionResult
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &res); err != nil {
			return nil, fmt.Errorf("decode intervention result: %w", err)
		}
	}
	res.Success = env.Success
	res.Message = env.Message
	return &res, nil
}

// RelayHistory fetches recent relay messages for a session, including their
// current view-state.
func (c *Client) RelayHistory(ctx context.Context, sessionID string, limit int) ([]RelayMessage, error) {
	path := "/api/session/" + url.PathEscape(sessionID) + "/relay-history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	env, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	var data struct {
		Messages []RelayMessage `json:"messages"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("decode relay history: %w", err)
	}
	return data.Messages, nil
}

// Health pings the hub.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus(resp, http.StatusOK)
}

func (c *Client) get(ctx context.Context, path string) (*StatusResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(httpReq)
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, http.StatusOK); err != nil {
		return nil, err
	}
	var env StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &env, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("X-Client-ID", c.clientID)
}

func checkStatus(resp *http.Response, want int) error {
	if resp.StatusCode == want {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("unexpected status %s: %s", resp.Status, bytes.TrimSpace(body))
}
