package model

import (
	"encoding/json"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/venquis/contractchat/pkg/domain/types"
)

// ActionButton is a clickable follow-up suggested by the assistant
type ActionButton struct {
	ID      string              `json:"id"`
	Label   string              `json:"label"`
	Variant types.ButtonVariant `json:"variant,omitempty"`
	Icon    string              `json:"icon,omitempty"`
}

// Message is one entry of a conversation thread. Messages are immutable once
// persisted.
type Message struct {
	ID             types.MessageID      `json:"id"`
	ConversationID types.ConversationID `json:"conversation_id"`
	Content        string               `json:"content"`
	SenderKind     types.SenderKind     `json:"sender_type"`
	AgentUsed      string               `json:"agent_used,omitempty"`
	FileName       string               `json:"file_name,omitempty"`
	FileURL        string               `json:"file_url,omitempty"`
	ActionButtons  []ActionButton       `json:"action_buttons,omitempty"`
	Metadata       map[string]any       `json:"metadata,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

// Validate checks the fields a message must carry before it is persisted
func (m *Message) Validate() error {
	if err := m.ConversationID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid message")
	}
	if !m.SenderKind.IsValid() {
		return goerr.New("invalid sender kind", goerr.V("sender_kind", m.SenderKind))
	}
	if m.SenderKind == types.SenderKindFile && (m.FileName == "" || m.FileURL == "") {
		return goerr.New("file message requires file name and URL", goerr.V("conversation_id", m.ConversationID))
	}
	return nil
}

// Clone returns a deep copy so that stores never share slices or maps with callers
func (m *Message) Clone() *Message {
	copied := *m
	if m.ActionButtons != nil {
		copied.ActionButtons = make([]ActionButton, len(m.ActionButtons))
		copy(copied.ActionButtons, m.ActionButtons)
	}
	if m.Metadata != nil {
		copied.Metadata = make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			copied.Metadata[k] = v
		}
	}
	return &copied
}

// EncodeActionButtons serializes buttons as JSON text for storage. An empty
// list encodes to "" so that it can be stored as NULL.
func EncodeActionButtons(buttons []ActionButton) (string, error) {
	if len(buttons) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(buttons)
	if err != nil {
		return "", goerr.Wrap(err, "failed to encode action buttons")
	}
	return string(raw), nil
}

// DecodeActionButtons is the inverse of EncodeActionButtons
func DecodeActionButtons(raw string) ([]ActionButton, error) {
	if raw == "" {
		return nil, nil
	}
	var buttons []ActionButton
	if err := json.Unmarshal([]byte(raw), &buttons); err != nil {
		return nil, goerr.Wrap(err, "failed to decode action buttons")
	}
	for i := range buttons {
		buttons[i].Variant = buttons[i].Variant.Normalize()
	}
	return buttons, nil
}
