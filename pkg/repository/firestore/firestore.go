package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/venquis/contractchat/pkg/domain/interfaces"
)

type Firestore struct {
	client       *firestore.Client
	databaseID   string
	conversation *conversationRepository
	message      *messageRepository
	contract     *contractRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix isolates collections, e.g. per test run
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.conversation.names.prefix = prefix
		f.message.names.prefix = prefix
		f.contract.names.prefix = prefix
	}
}

// WithDatabaseID selects a named database instead of "(default)"
func WithDatabaseID(databaseID string) Option {
	return func(f *Firestore) {
		f.databaseID = databaseID
	}
}

func New(ctx context.Context, projectID string, opts ...Option) (*Firestore, error) {
	f := &Firestore{
		conversation: &conversationRepository{},
		message:      &messageRepository{},
		contract:     &contractRepository{},
	}
	for _, opt := range opts {
		opt(f)
	}

	var client *firestore.Client
	var err error
	if f.databaseID != "" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, f.databaseID)
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", f.databaseID))
	}

	f.client = client
	f.conversation.client = client
	f.message.client = client
	f.contract.client = client
	return f, nil
}

func (f *Firestore) Conversation() interfaces.ConversationRepository {
	return f.conversation
}

func (f *Firestore) Message() interfaces.MessageRepository {
	return f.message
}

func (f *Firestore) Contract() interfaces.ContractRepository {
	return f.contract
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

// collectionNames resolves collection names under an optional prefix
type collectionNames struct {
	prefix string
}

func (n collectionNames) name(base string) string {
	if n.prefix != "" {
		return n.prefix + "_" + base
	}
	return base
}

func (n collectionNames) conversations() string { return n.name("conversations") }
func (n collectionNames) contracts() string     { return n.name("contracts") }

const messagesSubcollection = "messages"

// CollectionNames returns the top-level collection names used under prefix
func CollectionNames(prefix string) (conversations, contracts string) {
	n := collectionNames{prefix: prefix}
	return n.conversations(), n.contracts()
}
