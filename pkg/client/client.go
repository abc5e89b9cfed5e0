package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/domain/types"
	"github.com/venquis/contractchat/pkg/usecase"
	"github.com/venquis/contractchat/pkg/utils/logging"
	"github.com/venquis/contractchat/pkg/utils/safe"
)

const maxResponseSize = 16 << 20

// Client talks to a contractchat server. Error responses are mapped back to
// the use case sentinels so callers can classify them with errors.Is.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type Option func(*Client)

// WithToken sends token as a bearer credential
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 6 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Conversation is a conversation with its sidebar bucket
type Conversation struct {
	model.Conversation
	TimeGroup types.TimeGroup `json:"time_group"`
}

func (c *Client) ListConversations(ctx context.Context) ([]*Conversation, error) {
	var resp struct {
		Conversations []*Conversation `json:"conversations"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/conversations", nil, &resp, nil); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

func (c *Client) CreateConversation(ctx context.Context, title string) (*Conversation, error) {
	var conv Conversation
	body := map[string]string{"title": title}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/conversations", body, &conv, nil); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (c *Client) RenameConversation(ctx context.Context, id types.ConversationID, title string) (*Conversation, error) {
	var conv Conversation
	body := map[string]string{"title": title}
	if err := c.doJSON(ctx, http.MethodPatch, conversationPath(id), body, &conv, nil); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (c *Client) DeleteConversation(ctx context.Context, id types.ConversationID) error {
	return c.doJSON(ctx, http.MethodDelete, conversationPath(id), nil, nil, nil)
}

func (c *Client) ListMessages(ctx context.Context, id types.ConversationID) ([]*model.Message, error) {
	var resp struct {
		Messages []*model.Message `json:"messages"`
	}
	if err := c.doJSON(ctx, http.MethodGet, conversationPath(id)+"/messages", nil, &resp, nil); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

func (c *Client) CreateMessage(ctx context.Context, input usecase.MessageInput) (*model.Message, error) {
	var msg model.Message
	if err := c.doJSON(ctx, http.MethodPost, conversationPath(input.ConversationID)+"/messages", input, &msg, nil); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) ListContracts(ctx context.Context, id types.ConversationID) ([]*model.Contract, error) {
	var resp struct {
		Contracts []*model.Contract `json:"contracts"`
	}
	if err := c.doJSON(ctx, http.MethodGet, conversationPath(id)+"/contracts", nil, &resp, nil); err != nil {
		return nil, err
	}
	return resp.Contracts, nil
}

func (c *Client) ListAllContracts(ctx context.Context) ([]*model.Contract, error) {
	var resp struct {
		Contracts []*model.Contract `json:"contracts"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/contracts", nil, &resp, nil); err != nil {
		return nil, err
	}
	return resp.Contracts, nil
}

// Analyze calls the relay endpoint once
func (c *Client) Analyze(ctx context.Context, req *model.AnalysisRequest) (*model.RelayResult, error) {
	var result model.RelayResult
	if err := c.doJSON(ctx, http.MethodPost, "/functions/v1/contract-analysis", req, &result, usecase.ErrUpstreamStatus); err != nil {
		return nil, err
	}
	return &result, nil
}

// Converse asks the server for a canned conversational reply
func (c *Client) Converse(ctx context.Context, req *usecase.ConversationalRequest) (*usecase.ConversationalResult, error) {
	var result usecase.ConversationalResult
	if err := c.doJSON(ctx, http.MethodPost, "/functions/v1/conversational-ai", req, &result, nil); err != nil {
		return nil, err
	}
	return &result, nil
}

// UploadFile stores a file for a conversation. Server side failures map to
// ErrStorage.
func (c *Client) UploadFile(ctx context.Context, id types.ConversationID, fileName, contentType string, r io.Reader) (*model.UploadedFile, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{"name": "file", "filename": fileName}))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create multipart part")
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, goerr.Wrap(err, "failed to read upload", goerr.V("file_name", fileName))
	}
	if err := mw.Close(); err != nil {
		return nil, goerr.Wrap(err, "failed to finish multipart body")
	}

	req, err := c.newRequest(ctx, http.MethodPost, conversationPath(id)+"/files", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var uploaded model.UploadedFile
	if err := c.do(req, &uploaded, usecase.ErrStorage); err != nil {
		return nil, err
	}
	return &uploaded, nil
}

func conversationPath(id types.ConversationID) string {
	return "/api/v1/conversations/" + url.PathEscape(id.String())
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build request", goerr.V("path", path))
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any, serverErr error) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return goerr.Wrap(err, "failed to marshal request", goerr.V("path", path))
		}
		body = bytes.NewReader(raw)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out, serverErr)
}

// do sends req and decodes a 2xx body into out. serverErr is the sentinel used
// for 5xx replies that carry no more specific class.
func (c *Client) do(req *http.Request, out any, serverErr error) error {
	ctx := req.Context()
	logging.From(ctx).Debug("api request", "method", req.Method, "path", req.URL.Path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if serverErr == nil {
			return goerr.Wrap(err, "request failed", goerr.V("path", req.URL.Path))
		}
		return goerr.Wrap(serverErr, "request failed",
			goerr.V("path", req.URL.Path),
			goerr.V("status", 0),
			goerr.V("cause", err.Error()))
	}
	defer safe.Drain(ctx, resp.Body)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return goerr.Wrap(err, "failed to read response", goerr.V("path", req.URL.Path))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, raw, req.URL.Path, serverErr)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return goerr.Wrap(err, "failed to decode response", goerr.V("path", req.URL.Path))
	}
	return nil
}

func statusError(status int, body []byte, path string, serverErr error) error {
	var e struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &e)

	opts := []goerr.Option{
		goerr.V("status", status),
		goerr.V("path", path),
		goerr.V("server_error", e.Error),
	}

	var sentinel error
	switch {
	case status == http.StatusBadRequest:
		sentinel = usecase.ErrInvalidRequest
	case status == http.StatusUnauthorized:
		sentinel = usecase.ErrUnauthenticated
	case status == http.StatusNotFound:
		sentinel = usecase.ErrNotFound
	case status == http.StatusServiceUnavailable:
		sentinel = usecase.ErrWorkflowNotConfigured
	case e.Error == usecase.ErrPersistence.Error():
		sentinel = usecase.ErrPersistence
	case serverErr != nil:
		sentinel = serverErr
	default:
		return goerr.New("server returned an error", opts...)
	}
	return goerr.Wrap(sentinel, "server returned an error", opts...)
}
