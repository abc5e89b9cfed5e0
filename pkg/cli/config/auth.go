package config

import (
	"log/slog"

	"github.com/urfave/cli/v3"
	"github.com/venquis/contractchat/pkg/domain/types"
	"github.com/venquis/contractchat/pkg/usecase"
	"github.com/venquis/contractchat/pkg/utils/logging"
)

// DefaultFallbackUser is the identity of requests without valid credentials
// unless the fallback is disabled
const DefaultFallbackUser = "c3d7a5b9-8e2f-4a6d-9c1b-3e5f7a9b2d4e"

// Auth holds CLI flags for resolving the caller of API requests
type Auth struct {
	hmacSecret   string
	jwksURL      string
	issuer       string
	audience     string
	fallbackUser string
}

func (a *Auth) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "auth-hmac-secret",
			Usage:       "Shared secret for HS256 bearer tokens",
			Category:    "Authentication",
			Sources:     cli.EnvVars("CONTRACTCHAT_AUTH_HMAC_SECRET"),
			Destination: &a.hmacSecret,
		},
		&cli.StringFlag{
			Name:        "auth-jwks-url",
			Usage:       "JWKS endpoint for verifying bearer tokens",
			Category:    "Authentication",
			Sources:     cli.EnvVars("CONTRACTCHAT_AUTH_JWKS_URL"),
			Destination: &a.jwksURL,
		},
		&cli.StringFlag{
			Name:        "auth-issuer",
			Usage:       "Required iss claim",
			Category:    "Authentication",
			Sources:     cli.EnvVars("CONTRACTCHAT_AUTH_ISSUER"),
			Destination: &a.issuer,
		},
		&cli.StringFlag{
			Name:        "auth-audience",
			Usage:       "Required aud claim",
			Category:    "Authentication",
			Sources:     cli.EnvVars("CONTRACTCHAT_AUTH_AUDIENCE"),
			Destination: &a.audience,
		},
		&cli.StringFlag{
			Name:        "auth-fallback-user",
			Usage:       "User ID for requests without valid credentials (empty rejects them)",
			Value:       DefaultFallbackUser,
			Category:    "Authentication",
			Sources:     cli.EnvVars("CONTRACTCHAT_AUTH_FALLBACK_USER"),
			Destination: &a.fallbackUser,
		},
	}
}

func (a Auth) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("hmac_secret.len", len(a.hmacSecret)),
		slog.String("jwks_url", a.jwksURL),
		slog.String("issuer", a.issuer),
		slog.String("audience", a.audience),
		slog.String("fallback_user", a.fallbackUser),
	)
}

func (a *Auth) Configure() *usecase.IdentityUseCase {
	var opts []usecase.IdentityOption
	if a.hmacSecret != "" {
		opts = append(opts, usecase.WithHMACSecret(a.hmacSecret))
	}
	if a.jwksURL != "" {
		opts = append(opts, usecase.WithJWKSURL(a.jwksURL))
	}
	if a.issuer != "" {
		opts = append(opts, usecase.WithIssuer(a.issuer))
	}
	if a.audience != "" {
		opts = append(opts, usecase.WithAudience(a.audience))
	}
	opts = append(opts, usecase.WithFallbackUser(types.UserID(a.fallbackUser)))

	if a.fallbackUser != "" {
		logging.Default().Warn("Requests without valid credentials run as the fallback user", "user_id", a.fallbackUser)
	}
	if a.hmacSecret == "" && a.jwksURL == "" {
		logging.Default().Warn("No token verifier configured, every request uses the fallback identity")
	}

	return usecase.NewIdentityUseCase(opts...)
}
