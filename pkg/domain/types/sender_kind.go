package types

import "fmt"

// SenderKind tells who authored a message
type SenderKind string

const (
	SenderKindUser      SenderKind = "user"
	SenderKindAssistant SenderKind = "assistant"
	SenderKindFile      SenderKind = "file"
)

// AllSenderKinds returns all valid sender kinds
func AllSenderKinds() []SenderKind {
	return []SenderKind{
		SenderKindUser,
		SenderKindAssistant,
		SenderKindFile,
	}
}

// IsValid checks if the sender kind is valid
func (s SenderKind) IsValid() bool {
	switch s {
	case SenderKindUser, SenderKindAssistant, SenderKindFile:
		return true
	default:
		return false
	}
}

func (s SenderKind) String() string {
	return string(s)
}

// ParseSenderKind parses a string into a SenderKind
func ParseSenderKind(s string) (SenderKind, error) {
	kind := SenderKind(s)
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid sender kind: %s", s)
	}
	return kind, nil
}
