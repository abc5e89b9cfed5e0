package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
	"github.com/venquis/contractchat/pkg/domain/types"
	"github.com/venquis/contractchat/pkg/utils/logging"
)

const jwksCacheTTL = 5 * time.Minute

// IdentityUseCase resolves the caller of a request from its bearer token.
// When the token is missing or invalid the configured fallback user is
// substituted; without a fallback such requests fail with ErrUnauthenticated.
type IdentityUseCase struct {
	hmacSecret []byte
	jwksURL    string
	issuer     string
	audience   string
	fallback   types.UserID

	keySetMu      sync.Mutex
	keySet        jwk.Set
	keySetExpires time.Time
}

type IdentityOption func(*IdentityUseCase)

// WithHMACSecret verifies HS256 tokens with a shared secret
func WithHMACSecret(secret string) IdentityOption {
	return func(uc *IdentityUseCase) {
		uc.hmacSecret = []byte(secret)
	}
}

// WithJWKSURL verifies tokens against the key set published at url
func WithJWKSURL(url string) IdentityOption {
	return func(uc *IdentityUseCase) {
		uc.jwksURL = url
	}
}

// WithIssuer requires the iss claim
func WithIssuer(issuer string) IdentityOption {
	return func(uc *IdentityUseCase) {
		uc.issuer = issuer
	}
}

// WithAudience requires the aud claim
func WithAudience(audience string) IdentityOption {
	return func(uc *IdentityUseCase) {
		uc.audience = audience
	}
}

// WithFallbackUser sets the identity used for unauthenticated requests. An
// empty user disables the fallback.
func WithFallbackUser(userID types.UserID) IdentityOption {
	return func(uc *IdentityUseCase) {
		uc.fallback = userID
	}
}

func NewIdentityUseCase(opts ...IdentityOption) *IdentityUseCase {
	uc := &IdentityUseCase{}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// FallbackUser returns the configured fallback identity, "" when disabled
func (uc *IdentityUseCase) FallbackUser() types.UserID {
	return uc.fallback
}

// Resolve returns the user of an Authorization header value
func (uc *IdentityUseCase) Resolve(ctx context.Context, authorization string) (types.UserID, error) {
	logger := logging.From(ctx)

	token := bearerToken(authorization)
	if token != "" {
		userID, err := uc.verify(ctx, token)
		if err == nil {
			return userID, nil
		}
		logger.Warn("bearer token rejected", "error", err)
	}

	if uc.fallback == "" {
		return "", goerr.Wrap(ErrUnauthenticated, "no valid credentials and fallback identity is disabled")
	}

	logger.Warn("using fallback identity", "user_id", uc.fallback)
	return uc.fallback, nil
}

func (uc *IdentityUseCase) verify(ctx context.Context, raw string) (types.UserID, error) {
	parseOpts := []jwt.ParseOption{
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(10 * time.Second),
	}
	if uc.issuer != "" {
		parseOpts = append(parseOpts, jwt.WithIssuer(uc.issuer))
	}
	if uc.audience != "" {
		parseOpts = append(parseOpts, jwt.WithAudience(uc.audience))
	}

	switch {
	case len(uc.hmacSecret) > 0:
		parseOpts = append(parseOpts, jwt.WithKey(jwa.HS256, uc.hmacSecret))
	case uc.jwksURL != "":
		keySet, err := uc.fetchKeySet(ctx)
		if err != nil {
			return "", err
		}
		parseOpts = append(parseOpts, jwt.WithKeySet(keySet))
	default:
		return "", goerr.New("no token verifier configured")
	}

	token, err := jwt.Parse([]byte(raw), parseOpts...)
	if err != nil {
		return "", goerr.Wrap(err, "failed to verify token")
	}
	if token.Subject() == "" {
		return "", goerr.New("token has no subject")
	}
	return types.UserID(token.Subject()), nil
}

func (uc *IdentityUseCase) fetchKeySet(ctx context.Context) (jwk.Set, error) {
	uc.keySetMu.Lock()
	defer uc.keySetMu.Unlock()

	if uc.keySet != nil && time.Now().Before(uc.keySetExpires) {
		return uc.keySet, nil
	}

	keySet, err := jwk.Fetch(ctx, uc.jwksURL)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch JWKS", goerr.V("url", uc.jwksURL))
	}
	uc.keySet = keySet
	uc.keySetExpires = time.Now().Add(jwksCacheTTL)
	return keySet, nil
}

func bearerToken(authorization string) string {
	const prefix = "bearer "
	if len(authorization) < len(prefix) || !strings.EqualFold(authorization[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(authorization[len(prefix):])
}
