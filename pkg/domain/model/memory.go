package model

import (
	"time"

	"github.com/venquis/contractchat/pkg/domain/types"
)

// MemoryMessage is one entry of the external conversational memory log
type MemoryMessage struct {
	Role      types.MemoryRole `json:"role"`
	Content   string           `json:"content"`
	Timestamp time.Time        `json:"timestamp,omitzero"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
}

// NewMemoryMessage stamps a memory entry with the current time
func NewMemoryMessage(role types.MemoryRole, content string, metadata map[string]any) MemoryMessage {
	return MemoryMessage{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}
}

// ContractContext is structured contract information kept alongside the
// memory log of a session
type ContractContext struct {
	ContractID      types.ContractID `json:"contract_id,omitempty"`
	FileName        string           `json:"file_name"`
	FileURL         string           `json:"file_url"`
	ExtractedTerms  any              `json:"extracted_terms,omitempty"`
	AnalysisSummary string           `json:"analysis_summary,omitempty"`
	KeyFindings     []string         `json:"key_findings,omitempty"`
	UploadedAt      time.Time        `json:"uploaded_at"`
}

// AsMetadata flattens the context into a metadata map for the memory log
func (c ContractContext) AsMetadata() map[string]any {
	md := map[string]any{
		"file_name":   c.FileName,
		"file_url":    c.FileURL,
		"uploaded_at": c.UploadedAt.Format(time.RFC3339),
	}
	if c.ContractID != "" {
		md["contract_id"] = c.ContractID.String()
	}
	if c.ExtractedTerms != nil {
		md["extracted_terms"] = c.ExtractedTerms
	}
	if c.AnalysisSummary != "" {
		md["analysis_summary"] = c.AnalysisSummary
	}
	if len(c.KeyFindings) > 0 {
		md["key_findings"] = c.KeyFindings
	}
	return md
}
