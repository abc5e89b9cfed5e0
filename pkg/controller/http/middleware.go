package http

import (
	"context"
	"net/http"

	"github.com/venquis/contractchat/pkg/domain/types"
	"github.com/venquis/contractchat/pkg/usecase"
	"github.com/venquis/contractchat/pkg/utils/logging"
)

const (
	corsAllowOrigin  = "*"
	corsAllowHeaders = "authorization, x-client-info, apikey, content-type"
	corsAllowMethods = "GET, POST, PATCH, DELETE, OPTIONS"
)

type ctxUserKey struct{}

func contextWithUser(ctx context.Context, userID types.UserID) context.Context {
	return context.WithValue(ctx, ctxUserKey{}, userID)
}

func userFrom(ctx context.Context) types.UserID {
	userID, _ := ctx.Value(ctxUserKey{}).(types.UserID)
	return userID
}

// corsMiddleware adds CORS headers to every response and answers preflight
// requests directly
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", corsAllowOrigin)
		h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
		h.Set("Access-Control-Allow-Methods", corsAllowMethods)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// identityMiddleware resolves the caller from the Authorization header
func identityMiddleware(identity *usecase.IdentityUseCase) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID, err := identity.Resolve(ctx, r.Header.Get("Authorization"))
			if err != nil {
				handleError(ctx, w, err)
				return
			}

			logger := logging.From(ctx).With(usecase.UserIDKey, userID)
			ctx = logging.With(contextWithUser(ctx, userID), logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
