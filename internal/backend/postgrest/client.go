// Package postgrest talks to a hosted Postgres backend through its REST and
// auth HTTP APIs. Row-level policies apply to the user whose access token is
// carried in the request context.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/preston-bernstein/fightpicks/internal/backend"
)

// Config controls how the client reaches the hosted backend.
type Config struct {
	BaseURL string
	// AnonKey identifies the project on every request.
	AnonKey string
	// ServiceKey authorizes calls made without a user token, such as the
	// catalog refresh. Empty falls back to AnonKey.
	ServiceKey string
	HTTPClient *http.Client
}

// Client implements backend.Client over HTTP.
type Client struct {
	baseURL    string
	anonKey    string
	serviceKey string
	httpClient httpDoer
}

// NewClient constructs a client with the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	base := normalizeBaseURL(cfg.BaseURL)
	if base == "" {
		return nil, errors.New("postgrest: base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("postgrest: invalid base url: %w", err)
	}
	if cfg.AnonKey == "" {
		return nil, errors.New("postgrest: anon key is required")
	}
	service := cfg.ServiceKey
	if service == "" {
		service = cfg.AnonKey
	}
	return &Client{
		baseURL:    base,
		anonKey:    cfg.AnonKey,
		serviceKey: service,
		httpClient: resolveHTTPClient(cfg.HTTPClient),
	}, nil
}

func (c *Client) Name() string { return driverName }

// Select issues GET /rest/v1/<table> with filter, order and limit params.
func (c *Client) Select(ctx context.Context, q backend.Query, dest any) error {
	params, err := queryParams(q)
	if err != nil {
		return err
	}
	req, err := c.restRequest(ctx, http.MethodGet, "/"+url.PathEscape(q.Table), params, nil)
	if err != nil {
		return err
	}
	if q.Single {
		req.Header.Set("Accept", mediaSingle)
	}

	err = c.do(req, dest)
	if q.Single {
		if bErr, ok := backend.AsError(err); ok && bErr.Code == backend.CodeNoRows {
			return backend.ErrNoRows
		}
	}
	return err
}

// Insert issues POST /rest/v1/<table> and returns the created row.
func (c *Client) Insert(ctx context.Context, table string, row any, dest any) error {
	req, err := c.restRequest(ctx, http.MethodPost, "/"+url.PathEscape(table), nil, row)
	if err != nil {
		return err
	}
	req.Header.Set(headerPrefer, preferReturn)
	req.Header.Set("Accept", mediaSingle)
	return c.do(req, dest)
}

// Upsert inserts or merges on the onConflict columns and returns the stored row.
func (c *Client) Upsert(ctx context.Context, table string, row any, onConflict []string, dest any) error {
	params := url.Values{}
	if len(onConflict) > 0 {
		params.Set("on_conflict", strings.Join(onConflict, ","))
	}
	req, err := c.restRequest(ctx, http.MethodPost, "/"+url.PathEscape(table), params, row)
	if err != nil {
		return err
	}
	req.Header.Set(headerPrefer, preferUpsert)
	req.Header.Set("Accept", mediaSingle)
	return c.do(req, dest)
}

// RPC issues POST /rest/v1/rpc/<fn>.
func (c *Client) RPC(ctx context.Context, fn string, args map[string]any, dest any) error {
	if args == nil {
		args = map[string]any{}
	}
	req, err := c.restRequest(ctx, http.MethodPost, "/rpc/"+url.PathEscape(fn), nil, args)
	if err != nil {
		return err
	}
	return c.do(req, dest)
}

func (c *Client) restRequest(ctx context.Context, method, path string, params url.Values, body any) (*http.Request, error) {
	return c.newRequest(ctx, method, restPath+path, params, body, backend.AccessToken(ctx))
}

func (c *Client) newRequest(ctx context.Context, method, path string, params url.Values, body any, token string) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("postgrest: encode body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}

	if token == "" {
		token = c.serviceKey
	}
	req.Header.Set(headerAPIKey, c.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", mediaJSON)
	if body != nil {
		req.Header.Set("Content-Type", mediaJSON)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return backend.DecodeJSON(raw, dest)
}

// errorPayload covers both the REST error body ({code, message, details,
// hint}) and the auth error bodies ({code, error_code, msg} or
// {error, error_description}).
type errorPayload struct {
	Code             json.RawMessage `json:"code"`
	Message          string          `json:"message"`
	Details          *string         `json:"details"`
	Hint             *string         `json:"hint"`
	ErrorCode        string          `json:"error_code"`
	Msg              string          `json:"msg"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	out := &backend.Error{Status: resp.StatusCode}

	var payload errorPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		out.Message = strings.TrimSpace(string(raw))
		if out.Message == "" {
			out.Message = http.StatusText(resp.StatusCode)
		}
		return out
	}

	var code string
	if len(payload.Code) > 0 && json.Unmarshal(payload.Code, &code) == nil {
		out.Code = code
	} else {
		out.Code = payload.ErrorCode
	}
	out.Message = firstNonEmpty(payload.Message, payload.Msg, payload.ErrorDescription, payload.Error, http.StatusText(resp.StatusCode))
	if payload.Details != nil {
		out.Details = *payload.Details
	}
	if payload.Hint != nil {
		out.Hint = *payload.Hint
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
