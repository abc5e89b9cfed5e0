package types

// MemoryRole tags entries of the external memory log
type MemoryRole string

const (
	MemoryRoleUser      MemoryRole = "user"
	MemoryRoleAssistant MemoryRole = "assistant"
	MemoryRoleSystem    MemoryRole = "system"
)

// IsValid checks if the role is valid
func (r MemoryRole) IsValid() bool {
	switch r {
	case MemoryRoleUser, MemoryRoleAssistant, MemoryRoleSystem:
		return true
	default:
		return false
	}
}

func (r MemoryRole) String() string {
	return string(r)
}
