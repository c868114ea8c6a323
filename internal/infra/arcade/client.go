// Package arcade calls hosted tools (Google search, Gmail) through the Arcade
// tool execution API.
package arcade

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"casestudy/internal/domain"
)

const executePath = "/v1/tools/execute"

// Options configures a Client.
type Options struct {
	BaseURL string
	APIKey  string
	UserID  string
	Timeout time.Duration
	// Retries is the number of extra attempts on transport errors and 5xx.
	Retries int
}

// Client is safe for concurrent use.
type Client struct {
	http   *resty.Client
	userID string
}

type executeRequest struct {
	ToolName string         `json:"tool_name"`
	Input    map[string]any `json:"input"`
	UserID   string         `json:"user_id,omitempty"`
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetAuthToken(opts.APIKey).
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)
	c.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || (r != nil && r.StatusCode() >= http.StatusInternalServerError)
	})
	return &Client{http: c, userID: opts.UserID}
}

// Execute runs tool with input on behalf of the configured user and returns
// the raw JSON response body. Transport failures, non-2xx statuses and
// responses that report success=false all wrap domain.ErrUpstream.
func (c *Client) Execute(ctx context.Context, tool string, input map[string]any) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(executeRequest{ToolName: tool, Input: input, UserID: c.userID}).
		Post(executePath)
	if err != nil {
		return nil, fmt.Errorf("%w: arcade %s: %w", domain.ErrUpstream, tool, err)
	}
	body := resp.Body()
	if resp.IsError() {
		return nil, fmt.Errorf("%w: arcade %s: status %d: %s", domain.ErrUpstream, tool, resp.StatusCode(), errorMessage(body))
	}
	if ok := gjson.GetBytes(body, "success"); ok.Exists() && !ok.Bool() {
		return nil, fmt.Errorf("%w: arcade %s: %s", domain.ErrUpstream, tool, errorMessage(body))
	}
	return body, nil
}

func errorMessage(body []byte) string {
	for _, path := range []string{"output.error.message", "error.message", "message", "error"} {
		if v := gjson.GetBytes(body, path); v.Exists() && v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	if len(body) > 256 {
		return string(body[:256])
	}
	return string(body)
}
