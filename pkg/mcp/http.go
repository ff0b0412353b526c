package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
)

// HTTPTransport speaks JSON-RPC 2.0 as one POST-per-call against a fixed
// base URL. There is no persistent connection to serialise, so unlike the
// stdio transport it imposes no ordering on concurrent requests beyond
// whatever the per-server mutex in Manager applies.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
	nextID  atomic.Uint64
}

// NewHTTPTransport builds a transport against baseURL using client, or
// http.DefaultClient if client is nil.
func NewHTTPTransport(baseURL string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{baseURL: baseURL, client: client}
}

func (t *HTTPTransport) Request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal params: %w", err)
	}

	req := request{JSONRPC: "2.0", ID: t.nextID.Add(1), Method: method, Params: paramsJSON}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, &TransportError{Err: fmt.Errorf("unexpected status %d", httpResp.StatusCode)}
	}

	var resp response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("mcp: decode response: %w", err)
	}
	if resp.ID != req.ID {
		return nil, &ProtocolError{WantID: req.ID, GotID: resp.ID}
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Result, nil
}

func (t *HTTPTransport) Notify(ctx context.Context, method string, params any) error {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("mcp: marshal params: %w", err)
	}
	note := notification{JSONRPC: "2.0", Method: method, Params: paramsJSON}
	body, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("mcp: marshal notification: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL, bytes.NewReader(body))
	if err != nil {
		return &TransportError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()
	return nil
}

// Close is a no-op: HTTP has no persistent connection to tear down.
func (t *HTTPTransport) Close() error { return nil }
