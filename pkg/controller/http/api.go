package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/domain/types"
	"github.com/venquis/contractchat/pkg/usecase"
	"github.com/venquis/contractchat/pkg/utils/safe"
)

// multipartMemory is the part of a multipart form kept in memory
const multipartMemory = 8 << 20

type conversationResponse struct {
	*model.Conversation
	TimeGroup types.TimeGroup `json:"time_group"`
}

type conversationsResponse struct {
	Conversations []conversationResponse `json:"conversations"`
}

type messagesResponse struct {
	Messages []*model.Message `json:"messages"`
}

type contractsResponse struct {
	Contracts []*model.Contract `json:"contracts"`
}

type titleRequest struct {
	Title string `json:"title"`
}

func conversationIDParam(r *http.Request) types.ConversationID {
	return types.ConversationID(chi.URLParam(r, "conversationID"))
}

func (s *Server) toConversationResponse(conv *model.Conversation) conversationResponse {
	return conversationResponse{
		Conversation: conv,
		TimeGroup:    conv.TimeGroup(s.now()),
	}
}

func (s *Server) listConversationsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	convs, err := s.uc.Conversation.List(ctx, userFrom(ctx))
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	resp := conversationsResponse{Conversations: make([]conversationResponse, len(convs))}
	for i, conv := range convs {
		resp.Conversations[i] = s.toConversationResponse(conv)
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

func (s *Server) createConversationHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req titleRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			handleError(ctx, w, err)
			return
		}
	}

	conv, err := s.uc.Conversation.Create(ctx, userFrom(ctx), req.Title)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, s.toConversationResponse(conv))
}

func (s *Server) getConversationHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conv, err := s.uc.Conversation.Get(ctx, userFrom(ctx), conversationIDParam(r))
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, s.toConversationResponse(conv))
}

func (s *Server) renameConversationHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req titleRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(ctx, w, err)
		return
	}

	conv, err := s.uc.Conversation.Rename(ctx, userFrom(ctx), conversationIDParam(r), req.Title)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, s.toConversationResponse(conv))
}

func (s *Server) deleteConversationHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.uc.Conversation.Delete(ctx, userFrom(ctx), conversationIDParam(r)); err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) listMessagesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	msgs, err := s.uc.Message.List(ctx, userFrom(ctx), conversationIDParam(r))
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, messagesResponse{Messages: msgs})
}

func (s *Server) createMessageHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var input usecase.MessageInput
	if err := decodeJSON(r, &input); err != nil {
		handleError(ctx, w, err)
		return
	}
	// path wins over body
	input.ConversationID = conversationIDParam(r)

	msg, err := s.uc.Message.Create(ctx, userFrom(ctx), input)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, msg)
}

func (s *Server) listConversationContractsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	contracts, err := s.uc.Contract.ListByConversation(ctx, userFrom(ctx), conversationIDParam(r))
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, contractsResponse{Contracts: contracts})
}

func (s *Server) listContractsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	contracts, err := s.uc.Contract.ListByUser(ctx, userFrom(ctx))
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, contractsResponse{Contracts: contracts})
}

func (s *Server) deleteContractHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := types.ContractID(chi.URLParam(r, "contractID"))
	if err := s.uc.Contract.Delete(ctx, userFrom(ctx), id); err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) uploadFileHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userFrom(ctx)

	if _, err := s.uc.Conversation.Get(ctx, userID, conversationIDParam(r)); err != nil {
		handleError(ctx, w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		handleError(ctx, w, goerr.Wrap(usecase.ErrInvalidRequest, "invalid multipart form", goerr.V("cause", err.Error())))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		handleError(ctx, w, goerr.Wrap(usecase.ErrInvalidRequest, "file field is required", goerr.V("cause", err.Error())))
		return
	}
	defer safe.Close(ctx, file)

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	uploaded, err := s.uc.Upload.Upload(ctx, userID, header.Filename, contentType, file)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, uploaded)
}
