package http

import (
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/domain/types"
	"github.com/venquis/contractchat/pkg/usecase"
)

// Actions of the memory relay endpoint
const (
	memoryActionInitialize = "initialize-session"
	memoryActionAdd        = "add-memory"
	memoryActionGet        = "get-memory"
	memoryActionSearch     = "search-memory"
	memoryActionStore      = "store-context"
)

type zepMemoryRequest struct {
	Action    string                 `json:"action"`
	SessionID types.SessionID        `json:"session_id"`
	Message   *model.MemoryMessage   `json:"message,omitempty"`
	Context   *model.ContractContext `json:"context,omitempty"`
	Query     string                 `json:"query,omitempty"`
	Limit     int                    `json:"limit,omitempty"`
}

type memoryMessagesResponse struct {
	Messages []model.MemoryMessage `json:"messages"`
}

func (s *Server) contractAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.AnalysisRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(ctx, w, err)
		return
	}

	result, err := s.uc.Relay.Analyze(ctx, userFrom(ctx), &req)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, result)
}

func (s *Server) zepMemoryHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req zepMemoryRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(ctx, w, err)
		return
	}
	if req.SessionID == "" {
		handleError(ctx, w, goerr.Wrap(usecase.ErrInvalidRequest, "session_id is required", goerr.V("action", req.Action)))
		return
	}

	memory := s.uc.Memory
	switch req.Action {
	case memoryActionInitialize:
		ok := memory.InitializeSession(ctx, req.SessionID)
		writeJSON(ctx, w, http.StatusOK, successResponse{Success: ok})

	case memoryActionAdd:
		if req.Message == nil || !req.Message.Role.IsValid() {
			handleError(ctx, w, goerr.Wrap(usecase.ErrInvalidRequest, "message with a valid role is required"))
			return
		}
		ok := memory.AddMemoryMessage(ctx, req.SessionID, *req.Message)
		writeJSON(ctx, w, http.StatusOK, successResponse{Success: ok})

	case memoryActionGet:
		msgs := memory.GetMemory(ctx, req.SessionID, req.Limit)
		writeJSON(ctx, w, http.StatusOK, memoryMessagesResponse{Messages: msgs})

	case memoryActionSearch:
		msgs := memory.SearchMemory(ctx, req.SessionID, req.Query, req.Limit)
		writeJSON(ctx, w, http.StatusOK, memoryMessagesResponse{Messages: msgs})

	case memoryActionStore:
		if req.Context == nil {
			handleError(ctx, w, goerr.Wrap(usecase.ErrInvalidRequest, "context is required"))
			return
		}
		ok := memory.StoreContractContext(ctx, req.SessionID, *req.Context)
		writeJSON(ctx, w, http.StatusOK, successResponse{Success: ok})

	default:
		handleError(ctx, w, goerr.Wrap(usecase.ErrInvalidRequest, "unknown action", goerr.V("action", req.Action)))
	}
}

func (s *Server) conversationalHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req usecase.ConversationalRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(ctx, w, err)
		return
	}

	result, err := s.uc.Conversational.Respond(ctx, userFrom(ctx), &req)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, result)
}
