// pattern: Imperative Shell
package instance

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"

	"tessera/internal/events"
	"tessera/internal/headless"
	"tessera/internal/ipc"
	"tessera/internal/logging"
	"tessera/internal/server"
)

// APIError is a non-2xx reply from the compositor.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tessera returned status %d: %s", e.Status, e.Message)
}

// Client talks to a running compositor over its IPC API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client targeting the given base URL.
func NewClient(baseURL string) *Client {
	return NewClientWithTimeout(baseURL, 10*time.Second)
}

// NewClientWithTimeout creates a Client with a custom request timeout.
// Streams are not subject to it.
func NewClientWithTimeout(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the compositor's base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// do sends a request with an optional JSON body and decodes a JSON reply
// into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to tessera: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: extractErrorMessage(respBody)}
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// extractErrorMessage attempts to extract the error message from a JSON response body.
// If the body is not valid JSON or doesn't have an "error" field, returns the raw body string.
func extractErrorMessage(body []byte) string {
	var errResp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return errResp.Error
	}
	return strings.TrimSpace(string(body))
}

// Health returns the session id of the running compositor.
func (c *Client) Health(ctx context.Context) (string, error) {
	var h struct {
		Session string `json:"session"`
	}
	err := c.do(ctx, http.MethodGet, "/api/health", nil, &h)
	return h.Session, err
}

// Tree fetches the visible tree.
func (c *Client) Tree(ctx context.Context) (events.TreeNode, error) {
	var node events.TreeNode
	err := c.do(ctx, http.MethodGet, "/api/tree", nil, &node)
	return node, err
}

// Workspaces lists the workspaces.
func (c *Client) Workspaces(ctx context.Context) ([]ipc.WorkspaceInfo, error) {
	var out []ipc.WorkspaceInfo
	err := c.do(ctx, http.MethodGet, "/api/workspaces", nil, &out)
	return out, err
}

// Outputs lists the outputs.
func (c *Client) Outputs(ctx context.Context) ([]ipc.OutputInfo, error) {
	var out []ipc.OutputInfo
	err := c.do(ctx, http.MethodGet, "/api/outputs", nil, &out)
	return out, err
}

// Stats fetches the compositor's counters.
func (c *Client) Stats(ctx context.Context) (server.Stats, error) {
	var st server.Stats
	err := c.do(ctx, http.MethodGet, "/api/stats", nil, &st)
	return st, err
}

// Decorations fetches the borders of the latest frame.
func (c *Client) Decorations(ctx context.Context) ([]headless.Decoration, error) {
	var out []headless.Decoration
	err := c.do(ctx, http.MethodGet, "/api/decorations", nil, &out)
	return out, err
}

// Command runs a command line and returns one result per command.
func (c *Client) Command(ctx context.Context, line string) ([]events.CommandResult, error) {
	var out []events.CommandResult
	err := c.do(ctx, http.MethodPost, "/api/command", ipc.CommandRequest{Command: line}, &out)
	return out, err
}

// OpenClient maps a simulated client window.
func (c *Client) OpenClient(ctx context.Context, spec server.ClientSpec) (uint64, error) {
	var out ipc.ClientResponse
	err := c.do(ctx, http.MethodPost, "/api/clients", spec, &out)
	return out.ID, err
}

// CloseClient closes a simulated client window.
func (c *Client) CloseClient(ctx context.Context, id uint64) error {
	return c.do(ctx, http.MethodDelete, "/api/clients/"+strconv.FormatUint(id, 10), nil, nil)
}

// AddOutput plugs in an output.
func (c *Client) AddOutput(ctx context.Context, o ipc.OutputRequest) error {
	return c.do(ctx, http.MethodPost, "/api/outputs", o, nil)
}

// ResizeOutput changes an output's box.
func (c *Client) ResizeOutput(ctx context.Context, o ipc.OutputRequest) error {
	return c.do(ctx, http.MethodPut, "/api/outputs/"+url.PathEscape(o.Name), o, nil)
}

// RemoveOutput unplugs an output.
func (c *Client) RemoveOutput(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/api/outputs/"+url.PathEscape(name), nil, nil)
}

// Input sends one synthetic input event.
func (c *Client) Input(ctx context.Context, ev server.Input) error {
	return c.do(ctx, http.MethodPost, "/api/input", ev, nil)
}

// Subscribe opens a websocket event stream for the given event types (all
// types when empty). The channel closes when ctx ends or the compositor
// goes away.
func (c *Client) Subscribe(ctx context.Context, types []string) (<-chan events.Event, error) {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/api/subscribe"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to tessera: %w", err)
	}

	req, _ := json.Marshal(ipc.SubscribeRequest{Types: types})
	if err := conn.Write(ctx, websocket.MessageText, req); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return nil, err
	}
	_, data, err := conn.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	var reply ipc.SubscribeReply
	if err := json.Unmarshal(data, &reply); err != nil || !reply.Success {
		_ = conn.Close(websocket.StatusNormalClosure, "")
		if err == nil {
			err = fmt.Errorf("%s", reply.Error)
		}
		return nil, fmt.Errorf("subscribe rejected: %w", err)
	}

	ch := make(chan events.Event, 64)
	go func() {
		defer close(ch)
		defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var ev events.Event
			if err := json.Unmarshal(data, &ev); err != nil {
				continue
			}
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// LogOptions select which log entries Logs streams.
type LogOptions struct {
	Scope string
	Level string
	Tail  int
}

// Logs streams log entries to fn until ctx ends, fn returns an error, or
// the compositor closes the stream.
func (c *Client) Logs(ctx context.Context, opts LogOptions, fn func(logging.LogEntry) error) error {
	q := url.Values{}
	if opts.Scope != "" {
		q.Set("scope", opts.Scope)
	}
	if opts.Level != "" {
		q.Set("level", opts.Level)
	}
	if opts.Tail > 0 {
		q.Set("tail", strconv.Itoa(opts.Tail))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/logs?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	// Streams outlive the request timeout.
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to tessera: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{Status: resp.StatusCode, Message: extractErrorMessage(body)}
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		var e logging.LogEntry
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			continue
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	return sc.Err()
}
