package model

import (
	"time"

	"github.com/venquis/contractchat/pkg/domain/types"
)

// Contract is derived from a successfully analyzed file upload
type Contract struct {
	ID             types.ContractID     `json:"id"`
	ConversationID types.ConversationID `json:"conversation_id"`
	FileName       string               `json:"file_name"`
	FileURL        string               `json:"file_url"`
	FullText       string               `json:"full_text,omitempty"`
	Overview       string               `json:"overview,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}
