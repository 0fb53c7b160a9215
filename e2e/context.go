// Package e2e drives a running txguard server over HTTP with godog.
// Point TXGUARD_E2E_URL at a server started with testdata/txguard.yaml.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// TestContext holds per-scenario state.
type TestContext struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client

	runID        string
	txIDs        map[string]string
	lastStatus   int
	lastBody     []byte
	lastResponse map[string]any
}

// NewTestContext creates a fresh context for one scenario.
func NewTestContext(baseURL, token string) *TestContext {
	return &TestContext{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		runID:      strconv.FormatInt(time.Now().UnixNano(), 36),
		txIDs:      map[string]string{},
	}
}

// TxID maps a scenario alias to an id unique to this run, so scenarios can be
// replayed against a persistent ledger.
func (tc *TestContext) TxID(alias string) string {
	if v, ok := tc.txIDs[alias]; ok {
		return v
	}
	v := "e2e-" + tc.runID + "-" + alias
	tc.txIDs[alias] = v
	return v
}

func (tc *TestContext) POST(path string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return tc.do(http.MethodPost, path, bytes.NewReader(data))
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil)
}

func (tc *TestContext) do(method, path string, body io.Reader) error {
	req, err := http.NewRequestWithContext(context.Background(), method, tc.BaseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.Token != "" {
		req.Header.Set("Authorization", "Bearer "+tc.Token)
	}
	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	tc.lastResponse = nil
	if len(tc.lastBody) > 0 {
		var m map[string]any
		if json.Unmarshal(tc.lastBody, &m) == nil {
			tc.lastResponse = m
		}
	}
	return nil
}

func (tc *TestContext) StatusCode() int {
	return tc.lastStatus
}

func (tc *TestContext) Body() string {
	return string(tc.lastBody)
}

// GetResponseField resolves a dotted path such as "audit.seq" or
// "sanctions.1.outcome" in the last JSON response.
func (tc *TestContext) GetResponseField(path string) (any, error) {
	if tc.lastResponse == nil {
		return nil, fmt.Errorf("last response is not a JSON object: %s", tc.Body())
	}
	var cur any = tc.lastResponse
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("field %q not found in %s", path, tc.Body())
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("index %q out of range in %q", part, path)
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("field %q: cannot descend into %T", path, cur)
		}
	}
	return cur, nil
}
