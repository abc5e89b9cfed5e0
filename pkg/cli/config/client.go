package config

import (
	"log/slog"
	"net/url"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"github.com/venquis/contractchat/pkg/client"
)

// Client holds CLI flags for connecting to a running server
type Client struct {
	serverURL string
	token     string
}

func (c *Client) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "server-url",
			Usage:       "Base URL of the contractchat server",
			Value:       "http://localhost:8080",
			Category:    "Client",
			Sources:     cli.EnvVars("CONTRACTCHAT_SERVER_URL"),
			Destination: &c.serverURL,
		},
		&cli.StringFlag{
			Name:        "token",
			Usage:       "Bearer token sent to the server",
			Category:    "Client",
			Sources:     cli.EnvVars("CONTRACTCHAT_TOKEN"),
			Destination: &c.token,
		},
	}
}

func (c Client) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("server_url", c.serverURL),
		slog.Int("token.len", len(c.token)),
	)
}

func (c *Client) Configure() (*client.Client, error) {
	u, err := url.Parse(c.serverURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, goerr.Wrap(ErrInvalidConfig, "invalid server URL", goerr.V(OptionKey, "server-url"))
	}

	var opts []client.Option
	if c.token != "" {
		opts = append(opts, client.WithToken(c.token))
	}
	return client.New(c.serverURL, opts...), nil
}
