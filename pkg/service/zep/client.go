package zep

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/venquis/contractchat/pkg/domain/interfaces"
	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/domain/types"
	"github.com/venquis/contractchat/pkg/utils/safe"
)

// Client talks to the Zep memory REST API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ interfaces.MemoryService = &Client{}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(x *Client) {
		x.httpClient = c
	}
}

// New creates a Zep client. baseURL is the API root, e.g. https://api.getzep.com/api/v2
func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, goerr.New("Zep API URL is required")
	}
	if apiKey == "" {
		return nil, goerr.New("Zep API key is required")
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type memoryRequest struct {
	Messages []message     `json:"messages"`
	Metadata map[string]any `json:"metadata"`
}

type message struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Timestamp string         `json:"timestamp,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type memoryResponse struct {
	Messages []message `json:"messages"`
}

type searchRequest struct {
	Text  string `json:"text"`
	Limit int    `json:"limit"`
}

// searchResult is either a message itself or a wrapper holding one
type searchResult struct {
	message
	Message *message `json:"message,omitempty"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

func (c *Client) InitializeSession(ctx context.Context, sessionID types.SessionID) error {
	body := map[string]any{
		"session_id": sessionID.String(),
		"metadata": map[string]any{
			"created_at": model.Timestamp(time.Now()),
			"user_type":  "contract_analysis",
		},
	}

	status, _, err := c.do(ctx, http.MethodPost, c.sessionPath(sessionID, ""), nil, body)
	if err != nil {
		return err
	}
	if status == http.StatusConflict {
		return nil
	}
	if !isSuccess(status) {
		return goerr.Wrap(interfaces.ErrMemoryService, "failed to create session",
			goerr.V("session_id", sessionID),
			goerr.V("status", status))
	}
	return nil
}

// AddMessages posts msgs to the session memory. A single message also
// carries its metadata at the request level.
func (c *Client) AddMessages(ctx context.Context, sessionID types.SessionID, msgs ...model.MemoryMessage) error {
	req := memoryRequest{
		Messages: make([]message, 0, len(msgs)),
		Metadata: map[string]any{},
	}
	if len(msgs) == 1 && msgs[0].Metadata != nil {
		req.Metadata = msgs[0].Metadata
	}
	for _, m := range msgs {
		req.Messages = append(req.Messages, toWire(m))
	}

	status, _, err := c.do(ctx, http.MethodPost, c.sessionPath(sessionID, "/memory"), nil, req)
	if err != nil {
		return err
	}
	if !isSuccess(status) {
		return goerr.Wrap(interfaces.ErrMemoryService, "failed to add memory",
			goerr.V("session_id", sessionID),
			goerr.V("status", status))
	}
	return nil
}

func (c *Client) GetMessages(ctx context.Context, sessionID types.SessionID, limit int) ([]model.MemoryMessage, error) {
	query := url.Values{"limit": []string{strconv.Itoa(limit)}}
	status, raw, err := c.do(ctx, http.MethodGet, c.sessionPath(sessionID, "/memory"), query, nil)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, goerr.Wrap(interfaces.ErrMemoryService, "failed to get memory",
			goerr.V("session_id", sessionID),
			goerr.V("status", status))
	}

	var resp memoryResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, goerr.Wrap(interfaces.ErrMemoryService, "broken memory response",
			goerr.V("session_id", sessionID),
			goerr.V("cause", err.Error()))
	}

	result := make([]model.MemoryMessage, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		result = append(result, fromWire(m))
	}
	return result, nil
}

func (c *Client) Search(ctx context.Context, sessionID types.SessionID, text string, limit int) ([]model.MemoryMessage, error) {
	status, raw, err := c.do(ctx, http.MethodPost, c.sessionPath(sessionID, "/search"), nil, searchRequest{
		Text:  text,
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, goerr.Wrap(interfaces.ErrMemoryService, "failed to search memory",
			goerr.V("session_id", sessionID),
			goerr.V("status", status))
	}

	var resp searchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, goerr.Wrap(interfaces.ErrMemoryService, "broken search response",
			goerr.V("session_id", sessionID),
			goerr.V("cause", err.Error()))
	}

	result := make([]model.MemoryMessage, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.Message != nil {
			result = append(result, fromWire(*r.Message))
			continue
		}
		result = append(result, fromWire(r.message))
	}
	return result, nil
}

func (c *Client) sessionPath(sessionID types.SessionID, suffix string) string {
	return "/sessions/" + url.PathEscape(sessionID.String()) + suffix
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, nil, goerr.Wrap(err, "failed to marshal Zep request", goerr.V("path", path))
		}
		reader = bytes.NewReader(raw)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, goerr.Wrap(err, "failed to build Zep request", goerr.V("path", path))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, goerr.Wrap(interfaces.ErrMemoryService, "Zep request failed",
			goerr.V("path", path),
			goerr.V("cause", err.Error()))
	}
	defer safe.Drain(ctx, resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, goerr.Wrap(interfaces.ErrMemoryService, "failed to read Zep response",
			goerr.V("path", path),
			goerr.V("cause", err.Error()))
	}
	return resp.StatusCode, raw, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func toWire(m model.MemoryMessage) message {
	w := message{
		Role:     m.Role.String(),
		Content:  m.Content,
		Metadata: m.Metadata,
	}
	if !m.Timestamp.IsZero() {
		w.Timestamp = model.Timestamp(m.Timestamp)
	}
	return w
}

func fromWire(w message) model.MemoryMessage {
	m := model.MemoryMessage{
		Role:     types.MemoryRole(w.Role),
		Content:  w.Content,
		Metadata: w.Metadata,
	}
	if w.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339Nano, w.Timestamp); err == nil {
			m.Timestamp = ts
		}
	}
	return m
}
