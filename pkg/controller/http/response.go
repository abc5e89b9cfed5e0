package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/venquis/contractchat/pkg/usecase"
	"github.com/venquis/contractchat/pkg/utils/errutil"
	"github.com/venquis/contractchat/pkg/utils/logging"
)

const maxJSONBody = 1 << 20

type successResponse struct {
	Success bool `json:"success"`
}

// statusOf maps use case errors to HTTP status codes
func statusOf(err error) int {
	switch {
	case errors.Is(err, usecase.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, usecase.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrWorkflowNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage returns the message of the error class only, so that wrapped
// upstream bodies never reach the client
func publicMessage(err error) string {
	for _, sentinel := range []error{
		usecase.ErrInvalidRequest,
		usecase.ErrUnauthenticated,
		usecase.ErrNotFound,
		usecase.ErrWorkflowNotConfigured,
		usecase.ErrUpstreamStatus,
		usecase.ErrUpstreamResponse,
		usecase.ErrPersistence,
		usecase.ErrStorage,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal server error"
}

func handleError(ctx context.Context, w http.ResponseWriter, err error) {
	errutil.HandleHTTP(ctx, w, err, statusOf(err), publicMessage(err))
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.From(ctx).Warn("failed to write response", "error", err)
	}
}

// decodeJSON reads a JSON request body into v. Failures wrap ErrInvalidRequest.
func decodeJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
	if err != nil {
		return goerr.Wrap(usecase.ErrInvalidRequest, "failed to read request body", goerr.V("cause", err.Error()))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return goerr.Wrap(usecase.ErrInvalidRequest, "malformed JSON body", goerr.V("cause", err.Error()))
	}
	return nil
}
