package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/venquis/contractchat/pkg/domain/interfaces"
	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/domain/types"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type conversationRepository struct {
	client *firestore.Client
	names  collectionNames
}

// conversationDoc is the stored form. LastMessageAt keeps message creation
// times strictly increasing.
type conversationDoc struct {
	ID            string    `firestore:"id"`
	UserID        string    `firestore:"user_id"`
	Title         string    `firestore:"title"`
	SessionID     string    `firestore:"session_id"`
	CreatedAt     time.Time `firestore:"created_at"`
	UpdatedAt     time.Time `firestore:"updated_at"`
	LastMessageAt time.Time `firestore:"last_message_at"`
}

func (d *conversationDoc) toModel() *model.Conversation {
	return &model.Conversation{
		ID:        types.ConversationID(d.ID),
		UserID:    types.UserID(d.UserID),
		Title:     d.Title,
		SessionID: types.SessionID(d.SessionID),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func (r *conversationRepository) doc(id types.ConversationID) *firestore.DocumentRef {
	return r.client.Collection(r.names.conversations()).Doc(id.String())
}

func (r *conversationRepository) Create(ctx context.Context, conv *model.Conversation) (*model.Conversation, error) {
	if err := conv.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	d := &conversationDoc{
		ID:        conv.ID.String(),
		UserID:    conv.UserID.String(),
		Title:     conv.Title,
		SessionID: conv.SessionID.String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if d.SessionID == "" {
		d.SessionID = d.ID
	}

	if _, err := r.doc(conv.ID).Create(ctx, d); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, goerr.Wrap(err, "conversation already exists", goerr.V("id", conv.ID))
		}
		return nil, goerr.Wrap(err, "failed to create conversation", goerr.V("id", conv.ID))
	}
	return d.toModel(), nil
}

func (r *conversationRepository) Get(ctx context.Context, id types.ConversationID) (*model.Conversation, error) {
	snap, err := r.doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "conversation not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get conversation", goerr.V("id", id))
	}

	var d conversationDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to decode conversation", goerr.V("id", id))
	}
	return d.toModel(), nil
}

func (r *conversationRepository) ListByUser(ctx context.Context, userID types.UserID) ([]*model.Conversation, error) {
	iter := r.client.Collection(r.names.conversations()).
		Where("user_id", "==", userID.String()).
		OrderBy("updated_at", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	result := make([]*model.Conversation, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate conversations", goerr.V("user_id", userID))
		}

		var d conversationDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to decode conversation", goerr.V("doc_id", snap.Ref.ID))
		}
		result = append(result, d.toModel())
	}
	return result, nil
}

func (r *conversationRepository) UpdateTitle(ctx context.Context, id types.ConversationID, title string) (*model.Conversation, error) {
	_, err := r.doc(id).Update(ctx, []firestore.Update{
		{Path: "title", Value: title},
		{Path: "updated_at", Value: time.Now().UTC()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "conversation not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to update conversation title", goerr.V("id", id))
	}
	return r.Get(ctx, id)
}

func (r *conversationRepository) Touch(ctx context.Context, id types.ConversationID) error {
	_, err := r.doc(id).Update(ctx, []firestore.Update{
		{Path: "updated_at", Value: time.Now().UTC()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(interfaces.ErrNotFound, "conversation not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to touch conversation", goerr.V("id", id))
	}
	return nil
}

func (r *conversationRepository) Delete(ctx context.Context, id types.ConversationID) error {
	ref := r.doc(id)
	if _, err := ref.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(interfaces.ErrNotFound, "conversation not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to get conversation", goerr.V("id", id))
	}

	// Collect dependent documents of both collections concurrently
	var messageRefs, contractRefs []*firestore.DocumentRef
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		refs, err := collectRefs(ref.Collection(messagesSubcollection).Documents(egCtx))
		messageRefs = refs
		return err
	})
	eg.Go(func() error {
		refs, err := collectRefs(r.client.Collection(r.names.contracts()).
			Where("conversation_id", "==", id.String()).Documents(egCtx))
		contractRefs = refs
		return err
	})
	if err := eg.Wait(); err != nil {
		return goerr.Wrap(err, "failed to collect conversation children", goerr.V("id", id))
	}

	bulkWriter := r.client.BulkWriter(ctx)
	var jobs []*firestore.BulkWriterJob
	for _, child := range append(messageRefs, contractRefs...) {
		job, err := bulkWriter.Delete(child)
		if err != nil {
			bulkWriter.End()
			return goerr.Wrap(err, "failed to enqueue delete", goerr.V("id", id), goerr.V("path", child.Path))
		}
		jobs = append(jobs, job)
	}
	bulkWriter.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return goerr.Wrap(err, "failed to delete conversation child", goerr.V("id", id))
		}
	}

	if _, err := ref.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete conversation", goerr.V("id", id))
	}
	return nil
}

func collectRefs(iter *firestore.DocumentIterator) ([]*firestore.DocumentRef, error) {
	defer iter.Stop()

	var refs []*firestore.DocumentRef
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			return refs, nil
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate documents")
		}
		refs = append(refs, snap.Ref)
	}
}
