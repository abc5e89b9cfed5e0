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

type messageRepository struct {
	client *firestore.Client
	names  collectionNames
}

// messageDoc stores action buttons as JSON text, as every other backend does
type messageDoc struct {
	ID             string         `firestore:"id"`
	ConversationID string         `firestore:"conversation_id"`
	Content        string         `firestore:"content"`
	SenderType     string         `firestore:"sender_type"`
	AgentUsed      string         `firestore:"agent_used,omitempty"`
	FileName       string         `firestore:"file_name,omitempty"`
	FileURL        string         `firestore:"file_url,omitempty"`
	ActionButtons  string         `firestore:"action_buttons,omitempty"`
	Metadata       map[string]any `firestore:"metadata,omitempty"`
	CreatedAt      time.Time      `firestore:"created_at"`
}

func newMessageDoc(msg *model.Message) (*messageDoc, error) {
	buttons, err := model.EncodeActionButtons(msg.ActionButtons)
	if err != nil {
		return nil, err
	}
	return &messageDoc{
		ID:             msg.ID.String(),
		ConversationID: msg.ConversationID.String(),
		Content:        msg.Content,
		SenderType:     msg.SenderKind.String(),
		AgentUsed:      msg.AgentUsed,
		FileName:       msg.FileName,
		FileURL:        msg.FileURL,
		ActionButtons:  buttons,
		Metadata:       msg.Metadata,
		CreatedAt:      msg.CreatedAt,
	}, nil
}

func (d *messageDoc) toModel() (*model.Message, error) {
	buttons, err := model.DecodeActionButtons(d.ActionButtons)
	if err != nil {
		return nil, goerr.Wrap(err, "broken message document", goerr.V("id", d.ID))
	}
	return &model.Message{
		ID:             types.MessageID(d.ID),
		ConversationID: types.ConversationID(d.ConversationID),
		Content:        d.Content,
		SenderKind:     types.SenderKind(d.SenderType),
		AgentUsed:      d.AgentUsed,
		FileName:       d.FileName,
		FileURL:        d.FileURL,
		ActionButtons:  buttons,
		Metadata:       d.Metadata,
		CreatedAt:      d.CreatedAt,
	}, nil
}

func (r *messageRepository) conversationDoc(id types.ConversationID) *firestore.DocumentRef {
	return r.client.Collection(r.names.conversations()).Doc(id.String())
}

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) (*model.Message, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	created := msg.Clone()
	created.ID = types.NewMessageID()

	convRef := r.conversationDoc(msg.ConversationID)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(convRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(interfaces.ErrNotFound, "conversation not found",
					goerr.V("conversation_id", msg.ConversationID))
			}
			return goerr.Wrap(err, "failed to get conversation")
		}

		var conv conversationDoc
		if err := snap.DataTo(&conv); err != nil {
			return goerr.Wrap(err, "failed to decode conversation")
		}

		// Firestore keeps microsecond precision
		createdAt := time.Now().UTC().Truncate(time.Microsecond)
		if !createdAt.After(conv.LastMessageAt) {
			createdAt = conv.LastMessageAt.Add(time.Microsecond)
		}
		created.CreatedAt = createdAt

		d, err := newMessageDoc(created)
		if err != nil {
			return err
		}
		if err := tx.Create(convRef.Collection(messagesSubcollection).Doc(d.ID), d); err != nil {
			return goerr.Wrap(err, "failed to create message")
		}
		return tx.Update(convRef, []firestore.Update{
			{Path: "last_message_at", Value: createdAt},
		})
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to store message",
			goerr.V("conversation_id", msg.ConversationID))
	}

	return created, nil
}

func (r *messageRepository) List(ctx context.Context, conversationID types.ConversationID) ([]*model.Message, error) {
	iter := r.conversationDoc(conversationID).Collection(messagesSubcollection).
		OrderBy("created_at", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	result := make([]*model.Message, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate messages",
				goerr.V("conversation_id", conversationID))
		}

		var d messageDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to decode message", goerr.V("doc_id", snap.Ref.ID))
		}
		msg, err := d.toModel()
		if err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, nil
}
