package model

import (
	"time"

	"github.com/venquis/contractchat/pkg/domain/types"
)

// AnalysisRequest is the inbound relay request. Exactly one of
// MessageContent, the file reference or ButtonAction is the payload,
// discriminated by MessageType.
type AnalysisRequest struct {
	ConversationID types.ConversationID `json:"conversation_id"`
	SessionID      types.SessionID      `json:"session_id,omitempty"`
	MessageContent string               `json:"message_content,omitempty"`
	MessageType    types.MessageType    `json:"message_type"`
	FileURL        string               `json:"file_url,omitempty"`
	FileName       string               `json:"file_name,omitempty"`
	ButtonAction   string               `json:"button_action,omitempty"`
}

// IsFileUpload reports whether the request references an uploaded file
func (r *AnalysisRequest) IsFileUpload() bool {
	return r.FileName != "" && r.FileURL != ""
}

// ResponseKind tells which kind of reply the request produces
func (r *AnalysisRequest) ResponseKind() types.ResponseKind {
	switch {
	case r.FileName != "":
		return types.ResponseKindFileAnalysis
	case r.ButtonAction != "":
		return types.ResponseKindButtonResponse
	default:
		return types.ResponseKindTextResponse
	}
}

// WorkflowPayload is the enriched body forwarded to the workflow engine
type WorkflowPayload struct {
	ConversationID types.ConversationID `json:"conversation_id"`
	SessionID      types.SessionID      `json:"session_id"`
	MessageContent string               `json:"message_content"`
	MessageType    types.MessageType    `json:"message_type"`
	FileURL        *string              `json:"file_url"`
	FileName       *string              `json:"file_name"`
	ButtonAction   *string              `json:"button_action"`
	UserID         types.UserID         `json:"user_id"`
	Timestamp      string               `json:"timestamp"`
}

// AnalysisResult is the normalized reply of the workflow engine
type AnalysisResult struct {
	Text    string
	Actions []ActionButton
	// Structured is the analysis object of the reply, nil when absent
	Structured any
}

// StructuredString returns a string field of the structured result, or ""
func (r *AnalysisResult) StructuredString(key string) string {
	obj, ok := r.Structured.(map[string]any)
	if !ok {
		return ""
	}
	s, _ := obj[key].(string)
	return s
}

// RelayResult is returned to the relay caller on success
type RelayResult struct {
	Success  bool   `json:"success"`
	Analysis any    `json:"analysis,omitempty"`
	Message  string `json:"message"`
}

// UploadedFile is the outcome of storing a file
type UploadedFile struct {
	FileName string `json:"file_name"`
	FileURL  string `json:"file_url"`
	Path     string `json:"path"`
}

// Timestamp formats t the way payloads and metadata carry it (ISO-8601, UTC, ms)
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
