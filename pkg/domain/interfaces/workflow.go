package interfaces

import (
	"context"

	"github.com/venquis/contractchat/pkg/domain/model"
)

// WorkflowClient forwards enriched analysis requests to the external
// workflow engine and returns the raw response body of a successful call.
type WorkflowClient interface {
	Send(ctx context.Context, payload *model.WorkflowPayload) ([]byte, error)
}
