// Client for the control API exposed by a running `vyra serve`
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/desertthunder/vyra/internal/shared"
)

const defaultAPIBaseURL = "http://127.0.0.1:9876"

// APIService makes raw HTTP requests to the control API.
type APIService struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIService creates a control API client rooted at baseURL.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    baseURL,
		httpClient: client,
	}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// Err converts an error status into an error carrying the server's message.
func (r *APIResponse) Err() error {
	if r.StatusCode < 400 {
		return nil
	}

	msg := string(bytes.TrimSpace(r.Body))
	if m, ok := r.JSONData.(map[string]any); ok {
		if s, ok := m["error"].(string); ok {
			msg = s
		}
	}
	return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, r.StatusCode, msg)
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.do(ctx, http.MethodPost, path, data)
}

// PostJSON encodes v and posts it to path.
func (a *APIService) PostJSON(ctx context.Context, path string, v any) (*APIResponse, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return a.Post(ctx, path, data)
}

// Resolve asks the server to resolve id and returns the proxy URL.
func (a *APIService) Resolve(ctx context.Context, id string) (string, error) {
	resp, err := a.Post(ctx, "/api/resolve/"+url.PathEscape(id), nil)
	if err != nil {
		return "", err
	}
	if err := resp.Err(); err != nil {
		return "", err
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return out.URL, nil
}

// CacheAdd asks the server to materialize id into its audio cache.
func (a *APIService) CacheAdd(ctx context.Context, id string) error {
	resp, err := a.Post(ctx, "/api/cache/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return resp.Err()
}

// CacheStatus reports whether the server holds id in its audio cache.
func (a *APIService) CacheStatus(ctx context.Context, id string) (bool, error) {
	resp, err := a.Get(ctx, "/api/cache/"+url.PathEscape(id))
	if err != nil {
		return false, err
	}
	if err := resp.Err(); err != nil {
		return false, err
	}

	var out struct {
		Cached bool `json:"cached"`
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	return out.Cached, nil
}

// CacheClear empties the server's audio cache.
func (a *APIService) CacheClear(ctx context.Context) error {
	resp, err := a.Post(ctx, "/api/cache/clear", nil)
	if err != nil {
		return err
	}
	return resp.Err()
}

func (a *APIService) do(ctx context.Context, method, path string, data []byte) (*APIResponse, error) {
	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}

	var jsonData any
	if err := json.Unmarshal(respBody, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}
