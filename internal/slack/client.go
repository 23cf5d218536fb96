package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/duskbyte/courier-go/internal/config"
	apperrors "github.com/duskbyte/courier-go/internal/errors"
	"github.com/duskbyte/courier-go/internal/metrics"
)

const defaultAPIBase = "https://slack.com/api"

// Client is a minimal Slack Web API client covering the calls the
// connector needs.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Metrics // optional
}

// NewClient creates a Slack Web API client.
func NewClient(token string) *Client {
	return &Client{
		token:   token,
		baseURL: defaultAPIBase,
		httpClient: &http.Client{
			Timeout: config.ClientRequest,
		},
	}
}

// SetBaseURL overrides the API endpoint, used in tests.
func (c *Client) SetBaseURL(url string) { c.baseURL = url }

// SetMetrics attaches a metrics recorder for outbound call timings.
func (c *Client) SetMetrics(m *metrics.Metrics) { c.metrics = m }

// call performs one Web API method call and decodes the envelope into out.
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.RecordClientCall("slack", method, time.Since(start).Seconds())
		}
	}()

	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to encode %s params: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewConnectorError(PlatformName, method, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewConnectorError(PlatformName, method, resp.StatusCode, err)
	}
	return nil
}

type postMessageResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// PostMessage posts a plain text message into a channel.
func (c *Client) PostMessage(ctx context.Context, channel, text string) error {
	var resp postMessageResponse
	err := c.call(ctx, "chat.postMessage", map[string]any{
		"channel": channel,
		"text":    text,
	}, &resp)
	if err != nil {
		return err
	}
	if !resp.OK {
		return apperrors.NewConnectorError(PlatformName, "chat.postMessage", 0,
			fmt.Errorf("api error: %s", resp.Error))
	}
	return nil
}

type userInfoResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	User  struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Profile struct {
			RealName    string `json:"real_name"`
			DisplayName string `json:"display_name"`
			Image       string `json:"image_192"`
		} `json:"profile"`
	} `json:"user"`
}

// UserInfo fetches a user's profile fields.
func (c *Client) UserInfo(ctx context.Context, userID string) (map[string]any, error) {
	var resp userInfoResponse
	err := c.call(ctx, "users.info", map[string]any{"user": userID}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, apperrors.NewConnectorError(PlatformName, "users.info", 0,
			fmt.Errorf("api error: %s", resp.Error))
	}
	return map[string]any{
		"name":         resp.User.Name,
		"real_name":    resp.User.Profile.RealName,
		"display_name": resp.User.Profile.DisplayName,
		"image":        resp.User.Profile.Image,
	}, nil
}
