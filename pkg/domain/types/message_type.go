package types

import "fmt"

// MessageType discriminates the three inbound relay request shapes
type MessageType string

const (
	MessageTypeText   MessageType = "text_message"
	MessageTypeFile   MessageType = "file_upload"
	MessageTypeButton MessageType = "button_action"
)

// IsValid checks if the message type is valid
func (m MessageType) IsValid() bool {
	switch m {
	case MessageTypeText, MessageTypeFile, MessageTypeButton:
		return true
	default:
		return false
	}
}

func (m MessageType) String() string {
	return string(m)
}

// ParseMessageType parses a string into a MessageType
func ParseMessageType(s string) (MessageType, error) {
	mt := MessageType(s)
	if !mt.IsValid() {
		return "", fmt.Errorf("invalid message type: %s", s)
	}
	return mt, nil
}

// ResponseKind is recorded in assistant message metadata and tells which
// request kind produced the reply.
type ResponseKind string

const (
	ResponseKindFileAnalysis   ResponseKind = "file_analysis"
	ResponseKindButtonResponse ResponseKind = "button_response"
	ResponseKindTextResponse   ResponseKind = "text_response"
	ResponseKindConversational ResponseKind = "conversational_response"
)

func (r ResponseKind) String() string {
	return string(r)
}
