package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://app.asana.com/api/1.0"

// Client is the authenticated gateway to the remote task service. It holds
// nothing but the credential and transport settings.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
	Limiter *rate.Limiter
}

type APIError struct {
	Status    int
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

type envelope struct {
	Data     json.RawMessage `json:"data"`
	NextPage *NextPage       `json:"next_page"`
	Errors   []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP: &http.Client{
			Timeout: timeout,
		},
	}
}

// WithRateLimit paces outbound requests. A non-positive rps disables pacing.
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	if rps <= 0 {
		c.Limiter = nil
		return c
	}
	if burst <= 0 {
		burst = 1
	}
	c.Limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) (string, error) {
	env, reqID, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return reqID, err
	}
	return reqID, decodeData(env, out)
}

func (c *Client) Post(ctx context.Context, path string, body any, out any) (string, error) {
	env, reqID, err := c.do(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return reqID, err
	}
	return reqID, decodeData(env, out)
}

func (c *Client) Put(ctx context.Context, path string, body any, out any) (string, error) {
	env, reqID, err := c.do(ctx, http.MethodPut, path, nil, body)
	if err != nil {
		return reqID, err
	}
	return reqID, decodeData(env, out)
}

func (c *Client) Delete(ctx context.Context, path string, query url.Values) (string, error) {
	_, reqID, err := c.do(ctx, http.MethodDelete, path, query, nil)
	return reqID, err
}

// ListPage fetches one page of a collection endpoint and returns the offset
// cursor of the following page, or "" when the listing is exhausted.
func (c *Client) ListPage(ctx context.Context, path string, query url.Values, out any) (string, string, error) {
	env, reqID, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return "", reqID, err
	}
	if err := decodeData(env, out); err != nil {
		return "", reqID, err
	}
	if env.NextPage == nil {
		return "", reqID, nil
	}
	return strings.TrimSpace(env.NextPage.Offset), reqID, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (envelope, string, error) {
	fullURL, err := c.buildURL(path, query)
	if err != nil {
		return envelope{}, "", err
	}
	var buf io.Reader
	if body != nil {
		payload, err := json.Marshal(map[string]any{"data": body})
		if err != nil {
			return envelope{}, "", fmt.Errorf("encode body: %w", err)
		}
		buf = bytes.NewReader(payload)
	}
	requestID := NewRequestID()
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return envelope{}, requestID, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, buf)
	if err != nil {
		return envelope{}, requestID, err
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-Id", requestID)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return envelope{}, requestID, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return envelope{}, requestID, &APIError{Status: resp.StatusCode, Message: errorMessage(msg), RequestID: requestID}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return envelope{}, requestID, err
	}
	var env envelope
	if len(bytes.TrimSpace(data)) == 0 {
		return env, requestID, nil
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, requestID, fmt.Errorf("decode response: %w", err)
	}
	return env, requestID, nil
}

func (c *Client) buildURL(path string, query url.Values) (string, error) {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return "", err
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

func decodeData(env envelope, out any) error {
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// errorMessage prefers the first errors[].message of an error body and falls
// back to the raw text.
func errorMessage(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && len(env.Errors) > 0 && env.Errors[0].Message != "" {
		return env.Errors[0].Message
	}
	return strings.TrimSpace(string(body))
}
