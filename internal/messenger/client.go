package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/duskbyte/courier-go/internal/config"
	apperrors "github.com/duskbyte/courier-go/internal/errors"
	"github.com/duskbyte/courier-go/internal/metrics"
)

const defaultGraphBase = "https://graph.facebook.com/v12.0"

// Client is a minimal Graph API client authenticated with one page
// access token. The facebook package shares it for comment operations.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Metrics // optional
}

// NewClient creates a Graph API client for one page access token.
func NewClient(token string) *Client {
	return &Client{
		token:   token,
		baseURL: defaultGraphBase,
		httpClient: &http.Client{
			Timeout: config.ClientRequest,
		},
	}
}

// SetBaseURL overrides the API endpoint, used in tests.
func (c *Client) SetBaseURL(url string) { c.baseURL = url }

// SetMetrics attaches a metrics recorder for outbound call timings.
func (c *Client) SetMetrics(m *metrics.Metrics) { c.metrics = m }

// Token returns the page access token the client authenticates with.
func (c *Client) Token() string { return c.token }

type graphError struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

// get performs one Graph API GET and decodes the response into out.
func (c *Client) get(ctx context.Context, operation, path string, query url.Values, out any) error {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.RecordClientCall(PlatformName, operation, time.Since(start).Seconds())
		}
	}()

	if query == nil {
		query = url.Values{}
	}
	query.Set("access_token", c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/"+strings.TrimPrefix(path, "/")+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", operation, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewConnectorError(PlatformName, operation, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := decodeGraph(resp, operation)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// post performs one Graph API POST with a JSON body.
func (c *Client) post(ctx context.Context, operation, path string, body any, out any) error {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.RecordClientCall(PlatformName, operation, time.Since(start).Seconds())
		}
	}()

	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode %s body: %w", operation, err)
	}

	url := c.baseURL + "/" + strings.TrimPrefix(path, "/") + "?access_token=" + c.token
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewConnectorError(PlatformName, operation, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := decodeGraph(resp, operation)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// decodeGraph reads the response and surfaces Graph API errors.
func decodeGraph(resp *http.Response, operation string) (json.RawMessage, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, apperrors.NewConnectorError(PlatformName, operation, resp.StatusCode, err)
	}
	raw := buf.Bytes()

	var ge graphError
	if err := json.Unmarshal(raw, &ge); err == nil && ge.Error != nil {
		return nil, apperrors.NewConnectorError(PlatformName, operation, resp.StatusCode,
			fmt.Errorf("graph error %d (%s): %s", ge.Error.Code, ge.Error.Type, ge.Error.Message))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, apperrors.NewConnectorError(PlatformName, operation, resp.StatusCode,
			fmt.Errorf("unexpected status"))
	}
	return raw, nil
}

// SendText sends a text message to a PSID through the Send API.
func (c *Client) SendText(ctx context.Context, recipientID, text string) error {
	return c.post(ctx, "send_message", "me/messages", map[string]any{
		"recipient": map[string]any{"id": recipientID},
		"message":   map[string]any{"text": text},
	}, nil)
}

// UserProfile fetches the given profile fields for a PSID.
func (c *Client) UserProfile(ctx context.Context, psid string, fields []string) (map[string]any, error) {
	query := url.Values{}
	if len(fields) > 0 {
		query.Set("fields", strings.Join(fields, ","))
	}

	var profile map[string]any
	if err := c.get(ctx, "get_user_profile", psid, query, &profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// CommentParent is the parent reference returned by a comment lookup.
type CommentParent struct {
	ID string `json:"id"`
}

// Comment is the subset of a Graph API comment node the identity walk
// needs.
type Comment struct {
	ID     string         `json:"id"`
	Parent *CommentParent `json:"parent,omitempty"`
	From   *Party         `json:"from,omitempty"`
}

// CommentInfo fetches a comment node with its parent reference.
func (c *Client) CommentInfo(ctx context.Context, commentID string) (*Comment, error) {
	query := url.Values{}
	query.Set("fields", "id,parent{id},from")

	var comment Comment
	if err := c.get(ctx, "get_comment", commentID, query, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// SendComment replies to a post or comment on the page feed.
func (c *Client) SendComment(ctx context.Context, objectID, message string) error {
	return c.post(ctx, "send_comment", objectID+"/comments", map[string]any{
		"message": message,
	}, nil)
}
