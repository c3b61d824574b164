// Package e2e runs the kiosk feature files against a live server.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// TestContext holds per-scenario state: the last response and the values
// scenarios carry from one step to the next.
type TestContext struct {
	BaseURL    string
	TerminalID string
	client     *http.Client

	lastStatus int
	lastBody   []byte
	lastJSON   any

	sessionID        string
	confirmationCode string
	adminToken       string
}

func NewTestContext(baseURL string) *TestContext {
	return &TestContext{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		TerminalID: "e2e-terminal",
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

func (tc *TestContext) do(method, path string, body any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, tc.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Kiosk-Terminal", tc.TerminalID)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	tc.lastJSON = nil
	if len(tc.lastBody) > 0 {
		_ = json.Unmarshal(tc.lastBody, &tc.lastJSON)
	}
	return nil
}

func (tc *TestContext) POST(path string, body any) error {
	return tc.do(http.MethodPost, path, body, tc.authHeaders())
}

func (tc *TestContext) PUT(path string, body any) error {
	return tc.do(http.MethodPut, path, body, tc.authHeaders())
}

func (tc *TestContext) PATCH(path string, body any) error {
	return tc.do(http.MethodPatch, path, body, tc.authHeaders())
}

func (tc *TestContext) DELETE(path string) error {
	return tc.do(http.MethodDelete, path, nil, tc.authHeaders())
}

func (tc *TestContext) GET(path string, headers map[string]string) error {
	merged := tc.authHeaders()
	for k, v := range headers {
		merged[k] = v
	}
	return tc.do(http.MethodGet, path, nil, merged)
}

func (tc *TestContext) authHeaders() map[string]string {
	h := map[string]string{}
	if tc.adminToken != "" {
		h["Authorization"] = "Bearer " + tc.adminToken
	}
	return h
}

func (tc *TestContext) StatusCode() int { return tc.lastStatus }

func (tc *TestContext) Body() string { return string(tc.lastBody) }

// GetResponseField resolves a dotted path such as "registration.result.confirmationCode"
// or "cards.0.state" in the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	cur := tc.lastJSON
	for _, part := range strings.Split(field, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("field %q not found in response: %s", field, tc.Body())
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("index %q out of range in %q", part, field)
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("field %q not found in response: %s", field, tc.Body())
		}
	}
	return cur, nil
}

func (tc *TestContext) ResponseContains(field string) bool {
	_, err := tc.GetResponseField(field)
	return err == nil
}

func (tc *TestContext) GetSessionID() string { return tc.sessionID }
func (tc *TestContext) SetSessionID(id string) { tc.sessionID = id }
func (tc *TestContext) GetConfirmationCode() string { return tc.confirmationCode }
func (tc *TestContext) SetConfirmationCode(code string) { tc.confirmationCode = code }
func (tc *TestContext) GetAdminToken() string { return tc.adminToken }
func (tc *TestContext) SetAdminToken(token string) { tc.adminToken = token }
