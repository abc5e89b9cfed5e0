package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/venquis/contractchat/pkg/domain/interfaces"
	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/utils/logging"
	"github.com/venquis/contractchat/pkg/utils/safe"
)

// maxResponseSize bounds how much of a webhook reply is read
const maxResponseSize = 16 << 20

// Client posts analysis payloads to the workflow engine webhook
type Client struct {
	webhookURL string
	httpClient *http.Client
}

var _ interfaces.WorkflowClient = &Client{}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(x *Client) {
		x.httpClient = c
	}
}

// WithTimeout sets the timeout of the default HTTP client
func WithTimeout(d time.Duration) Option {
	return func(x *Client) {
		x.httpClient = &http.Client{Timeout: d}
	}
}

// New creates a workflow client. An empty webhookURL is accepted; Send then
// fails with ErrWorkflowNotConfigured.
func New(webhookURL string, opts ...Option) *Client {
	c := &Client{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send makes exactly one POST request and returns the body of a 2xx reply
func (c *Client) Send(ctx context.Context, payload *model.WorkflowPayload) ([]byte, error) {
	if c.webhookURL == "" {
		return nil, goerr.Wrap(interfaces.ErrWorkflowNotConfigured, "webhook URL is empty")
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal workflow payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(raw))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build workflow request")
	}
	req.Header.Set("Content-Type", "application/json")

	logging.From(ctx).Debug("calling workflow webhook",
		"conversation_id", payload.ConversationID,
		"message_type", payload.MessageType,
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(interfaces.ErrUpstreamStatus, "workflow request failed",
			goerr.V("status", 0),
			goerr.V("cause", err.Error()))
	}
	defer safe.Drain(ctx, resp.Body)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, goerr.Wrap(interfaces.ErrUpstreamStatus, "failed to read workflow response",
			goerr.V("status", resp.StatusCode),
			goerr.V("cause", err.Error()))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, goerr.Wrap(interfaces.ErrUpstreamStatus, "workflow engine returned non-2xx status",
			goerr.V("status", resp.StatusCode),
			goerr.V("body", truncate(string(body), 512)))
	}

	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
