package telegram

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

const defaultAPIBase = "https://api.telegram.org"

// Client is a minimal Telegram Bot API client covering the calls the
// connector needs.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Metrics // optional
}

// NewClient creates a Telegram API client.
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

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// call performs one Bot API method call with a JSON body.
func (c *Client) call(ctx context.Context, method string, params any) error {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.RecordClientCall("telegram", method, time.Since(start).Seconds())
		}
	}()

	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to encode %s params: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewConnectorError("telegram", method, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return apperrors.NewConnectorError("telegram", method, resp.StatusCode, err)
	}
	if !result.OK {
		return apperrors.NewConnectorError("telegram", method, resp.StatusCode,
			fmt.Errorf("api error %d: %s", result.ErrorCode, result.Description))
	}
	return nil
}

// SendMessage sends a plain text message to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	return c.call(ctx, "sendMessage", map[string]any{
		"chat_id": chatID,
		"text":    text,
	})
}

// AnswerCallbackQuery acknowledges a callback query so the client stops
// showing a progress indicator.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackQueryID string) error {
	return c.call(ctx, "answerCallbackQuery", map[string]any{
		"callback_query_id": callbackQueryID,
	})
}
