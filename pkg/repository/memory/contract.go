package memory

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/venquis/contractchat/pkg/domain/interfaces"
	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/domain/types"
)

type contractRepository struct {
	m *Memory
}

func copyContract(c *model.Contract) *model.Contract {
	copied := *c
	return &copied
}

func (r *contractRepository) Create(_ context.Context, contract *model.Contract) (*model.Contract, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.conversations[contract.ConversationID]; !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "conversation not found",
			goerr.V("conversation_id", contract.ConversationID))
	}

	created := copyContract(contract)
	created.ID = types.NewContractID()
	created.CreatedAt = r.m.clock()

	r.m.contracts[created.ID] = created
	return copyContract(created), nil
}

func (r *contractRepository) Get(_ context.Context, id types.ContractID) (*model.Contract, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	c, ok := r.m.contracts[id]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "contract not found", goerr.V("id", id))
	}
	return copyContract(c), nil
}

func (r *contractRepository) ListByConversation(_ context.Context, conversationID types.ConversationID) ([]*model.Contract, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	result := make([]*model.Contract, 0)
	for _, c := range r.m.contracts {
		if c.ConversationID == conversationID {
			result = append(result, copyContract(c))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *contractRepository) Delete(_ context.Context, id types.ContractID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.contracts[id]; !ok {
		return goerr.Wrap(interfaces.ErrNotFound, "contract not found", goerr.V("id", id))
	}
	delete(r.m.contracts, id)
	return nil
}
