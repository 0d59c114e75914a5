package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Rule is one server-side filter rule.
type Rule struct {
	Value string `json:"value"`
	Tag   string `json:"tag,omitempty"`
}

// RulesClient manages server-side filter rules. Plain request/response,
// no retry policy, no state across calls.
type RulesClient struct {
	httpClient *http.Client
	endpoint   string
	token      string
}

// NewRulesClient creates a rules client using the given bearer token.
func NewRulesClient(endpoint, token string) *RulesClient {
	return &RulesClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		endpoint:   endpoint,
		token:      token,
	}
}

type ruleData struct {
	ID    string `json:"id"`
	Value string `json:"value"`
	Tag   string `json:"tag,omitempty"`
}

type rulesResponse struct {
	Data []ruleData `json:"data"`
	Meta struct {
		Summary struct {
			Created int `json:"created"`
			Deleted int `json:"deleted"`
		} `json:"summary"`
	} `json:"meta"`
}

// List returns the IDs of all rules currently installed on the server.
func (c *RulesClient) List(ctx context.Context) ([]string, error) {
	resp, err := c.do(ctx, http.MethodGet, nil)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}

	ids := make([]string, 0, len(resp.Data))
	for _, r := range resp.Data {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// Delete removes the given rules and returns how many were deleted.
func (c *RulesClient) Delete(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	payload := map[string]any{
		"delete": map[string]any{"ids": ids},
	}
	resp, err := c.do(ctx, http.MethodPost, payload)
	if err != nil {
		return 0, fmt.Errorf("delete rules: %w", err)
	}
	return resp.Meta.Summary.Deleted, nil
}

// Add installs the given rules and returns how many were created.
func (c *RulesClient) Add(ctx context.Context, rules []Rule) (int, error) {
	if len(rules) == 0 {
		return 0, nil
	}

	payload := map[string]any{"add": rules}
	resp, err := c.do(ctx, http.MethodPost, payload)
	if err != nil {
		return 0, fmt.Errorf("add rules: %w", err)
	}

	created := resp.Meta.Summary.Created
	if created == 0 {
		created = len(resp.Data)
	}
	return created, nil
}

func (c *RulesClient) do(ctx context.Context, method string, payload any) (*rulesResponse, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(data))
	}

	var parsed rulesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &parsed, nil
}
