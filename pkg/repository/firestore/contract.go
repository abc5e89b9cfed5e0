package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/venquis/contractchat/pkg/domain/interfaces"
	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type contractRepository struct {
	client *firestore.Client
	names  collectionNames
}

type contractDoc struct {
	ID             string    `firestore:"id"`
	ConversationID string    `firestore:"conversation_id"`
	FileName       string    `firestore:"file_name"`
	FileURL        string    `firestore:"file_url"`
	FullText       string    `firestore:"full_text,omitempty"`
	Overview       string    `firestore:"overview,omitempty"`
	CreatedAt      time.Time `firestore:"created_at"`
}

func (d *contractDoc) toModel() *model.Contract {
	return &model.Contract{
		ID:             types.ContractID(d.ID),
		ConversationID: types.ConversationID(d.ConversationID),
		FileName:       d.FileName,
		FileURL:        d.FileURL,
		FullText:       d.FullText,
		Overview:       d.Overview,
		CreatedAt:      d.CreatedAt,
	}
}

func (r *contractRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(r.names.contracts())
}

func (r *contractRepository) Create(ctx context.Context, contract *model.Contract) (*model.Contract, error) {
	d := &contractDoc{
		ID:             types.NewContractID().String(),
		ConversationID: contract.ConversationID.String(),
		FileName:       contract.FileName,
		FileURL:        contract.FileURL,
		FullText:       contract.FullText,
		Overview:       contract.Overview,
		CreatedAt:      time.Now().UTC(),
	}

	convRef := r.client.Collection(r.names.conversations()).Doc(d.ConversationID)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(convRef); err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(interfaces.ErrNotFound, "conversation not found",
					goerr.V("conversation_id", d.ConversationID))
			}
			return goerr.Wrap(err, "failed to get conversation")
		}
		return tx.Create(r.collection().Doc(d.ID), d)
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create contract",
			goerr.V("conversation_id", d.ConversationID))
	}
	return d.toModel(), nil
}

func (r *contractRepository) Get(ctx context.Context, id types.ContractID) (*model.Contract, error) {
	snap, err := r.collection().Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "contract not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get contract", goerr.V("id", id))
	}

	var d contractDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to decode contract", goerr.V("id", id))
	}
	return d.toModel(), nil
}

func (r *contractRepository) ListByConversation(ctx context.Context, conversationID types.ConversationID) ([]*model.Contract, error) {
	iter := r.collection().
		Where("conversation_id", "==", conversationID.String()).
		OrderBy("created_at", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	result := make([]*model.Contract, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate contracts",
				goerr.V("conversation_id", conversationID))
		}

		var d contractDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to decode contract", goerr.V("doc_id", snap.Ref.ID))
		}
		result = append(result, d.toModel())
	}
	return result, nil
}

func (r *contractRepository) Delete(ctx context.Context, id types.ContractID) error {
	ref := r.collection().Doc(id.String())
	if _, err := ref.Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(interfaces.ErrNotFound, "contract not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to delete contract", goerr.V("id", id))
	}
	return nil
}
