package usecase

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/venquis/contractchat/pkg/domain/interfaces"
	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/domain/types"
	"golang.org/x/sync/errgroup"
)

// maxParallelContractQueries bounds fan-out when listing all contracts of a user
const maxParallelContractQueries = 8

type ContractUseCase struct {
	repo          interfaces.Repository
	conversations *ConversationUseCase
}

func NewContractUseCase(repo interfaces.Repository) *ContractUseCase {
	return &ContractUseCase{
		repo:          repo,
		conversations: NewConversationUseCase(repo, nil),
	}
}

// ListByConversation returns the contracts of one conversation, newest first
func (uc *ContractUseCase) ListByConversation(ctx context.Context, userID types.UserID, conversationID types.ConversationID) ([]*model.Contract, error) {
	if _, err := uc.conversations.Get(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	contracts, err := uc.repo.Contract().ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list contracts", goerr.V(ConversationIDKey, conversationID))
	}
	return contracts, nil
}

// ListByUser returns every contract of the user's conversations, newest first
func (uc *ContractUseCase) ListByUser(ctx context.Context, userID types.UserID) ([]*model.Contract, error) {
	convs, err := uc.repo.Conversation().ListByUser(ctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list conversations", goerr.V(UserIDKey, userID))
	}

	var (
		mu     sync.Mutex
		result = make([]*model.Contract, 0)
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxParallelContractQueries)
	for _, conv := range convs {
		eg.Go(func() error {
			contracts, err := uc.repo.Contract().ListByConversation(egCtx, conv.ID)
			if err != nil {
				return goerr.Wrap(err, "failed to list contracts", goerr.V(ConversationIDKey, conv.ID))
			}
			mu.Lock()
			result = append(result, contracts...)
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// Delete removes a contract of one of the user's conversations
func (uc *ContractUseCase) Delete(ctx context.Context, userID types.UserID, id types.ContractID) error {
	if err := id.Validate(); err != nil {
		return goerr.Wrap(ErrInvalidRequest, "invalid contract id", goerr.V("contract_id", id))
	}

	contract, err := uc.repo.Contract().Get(ctx, id)
	if err != nil {
		return goerr.Wrap(err, "failed to get contract", goerr.V("contract_id", id))
	}
	if _, err := uc.conversations.Get(ctx, userID, contract.ConversationID); err != nil {
		return err
	}

	if err := uc.repo.Contract().Delete(ctx, id); err != nil {
		return goerr.Wrap(err, "failed to delete contract", goerr.V("contract_id", id))
	}
	return nil
}
