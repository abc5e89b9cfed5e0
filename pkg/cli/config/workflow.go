package config

import (
	"log/slog"
	"net/url"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"github.com/venquis/contractchat/pkg/domain/interfaces"
	"github.com/venquis/contractchat/pkg/service/workflow"
	"github.com/venquis/contractchat/pkg/utils/logging"
)

// Workflow holds CLI flags for the workflow engine webhook
type Workflow struct {
	webhookURL string
	timeout    time.Duration
}

func (w *Workflow) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "workflow-webhook-url",
			Usage:       "Webhook URL of the contract analysis workflow",
			Category:    "Workflow",
			Sources:     cli.EnvVars("CONTRACTCHAT_WORKFLOW_WEBHOOK_URL", "N8N_WEBHOOK_URL"),
			Destination: &w.webhookURL,
		},
		&cli.DurationFlag{
			Name:        "workflow-timeout",
			Usage:       "Timeout of a single workflow call",
			Value:       5 * time.Minute,
			Category:    "Workflow",
			Sources:     cli.EnvVars("CONTRACTCHAT_WORKFLOW_TIMEOUT"),
			Destination: &w.timeout,
		},
	}
}

// LogValue hides the webhook path, which usually carries a secret token
func (w Workflow) LogValue() slog.Value {
	host := ""
	if u, err := url.Parse(w.webhookURL); err == nil {
		host = u.Host
	}
	return slog.GroupValue(
		slog.String("webhook_host", host),
		slog.Int("webhook_url.len", len(w.webhookURL)),
		slog.Duration("timeout", w.timeout),
	)
}

func (w *Workflow) Validate() error {
	if w.webhookURL == "" {
		return nil
	}
	u, err := url.Parse(w.webhookURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return goerr.Wrap(ErrInvalidConfig, "invalid workflow webhook URL", goerr.V(OptionKey, "workflow-webhook-url"))
	}
	return nil
}

// Configure returns the workflow client. Without a webhook URL it returns
// nil and relay requests fail as not configured.
func (w *Workflow) Configure() (interfaces.WorkflowClient, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if w.webhookURL == "" {
		logging.Default().Warn("Workflow webhook URL is not configured, analysis requests will fail")
		return nil, nil
	}

	logging.Default().Info("Workflow relay enabled", "workflow", w)
	return workflow.New(w.webhookURL, workflow.WithTimeout(w.timeout)), nil
}
