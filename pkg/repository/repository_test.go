package repository_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/venquis/contractchat/pkg/domain/interfaces"
	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/domain/types"
	"github.com/venquis/contractchat/pkg/repository/firestore"
	"github.com/venquis/contractchat/pkg/repository/memory"
	"github.com/venquis/contractchat/pkg/repository/postgres"
)

func newConversation(t *testing.T, repo interfaces.Repository, userID types.UserID) *model.Conversation {
	t.Helper()
	created, err := repo.Conversation().Create(context.Background(), model.NewConversation(userID))
	gt.NoError(t, err).Required()
	return created
}

func testUser() types.UserID {
	return types.UserID(fmt.Sprintf("user-%d", time.Now().UnixNano()))
}

func runConversationRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Create assigns timestamps and keeps session", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		conv := model.NewConversation(testUser())
		created, err := repo.Conversation().Create(ctx, conv)
		gt.NoError(t, err).Required()

		gt.Value(t, created.ID).Equal(conv.ID)
		gt.Value(t, created.SessionID).Equal(types.SessionID(conv.ID))
		gt.Bool(t, created.CreatedAt.IsZero()).False()
		gt.Bool(t, created.UpdatedAt.Equal(created.CreatedAt)).True()

		got, err := repo.Conversation().Get(ctx, conv.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.UserID).Equal(conv.UserID)
		gt.Value(t, got.Title).Equal("")
	})

	t.Run("Create rejects invalid conversation", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Conversation().Create(context.Background(), &model.Conversation{
			ID:     "not-a-uuid",
			UserID: testUser(),
		})
		gt.Value(t, err).NotNil()
	})

	t.Run("Get returns ErrNotFound", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Conversation().Get(context.Background(), types.NewConversationID())
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("ListByUser orders by last update", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		user := testUser()

		first := newConversation(t, repo, user)
		time.Sleep(2 * time.Millisecond)
		second := newConversation(t, repo, user)
		newConversation(t, repo, testUser())

		list, err := repo.Conversation().ListByUser(ctx, user)
		gt.NoError(t, err).Required()
		gt.Array(t, list).Length(2).Required()
		gt.Value(t, list[0].ID).Equal(second.ID)
		gt.Value(t, list[1].ID).Equal(first.ID)

		time.Sleep(2 * time.Millisecond)
		gt.NoError(t, repo.Conversation().Touch(ctx, first.ID)).Required()

		list, err = repo.Conversation().ListByUser(ctx, user)
		gt.NoError(t, err).Required()
		gt.Value(t, list[0].ID).Equal(first.ID)
	})

	t.Run("ListByUser returns empty list for unknown user", func(t *testing.T) {
		repo := newRepo(t)
		list, err := repo.Conversation().ListByUser(context.Background(), testUser())
		gt.NoError(t, err).Required()
		gt.Array(t, list).Length(0)
	})

	t.Run("UpdateTitle renames and bumps updated_at", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		conv := newConversation(t, repo, testUser())

		time.Sleep(2 * time.Millisecond)
		updated, err := repo.Conversation().UpdateTitle(ctx, conv.ID, "NDA with Acme")
		gt.NoError(t, err).Required()
		gt.Value(t, updated.Title).Equal("NDA with Acme")
		gt.Bool(t, updated.UpdatedAt.After(conv.UpdatedAt)).True()

		_, err = repo.Conversation().UpdateTitle(ctx, types.NewConversationID(), "x")
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("Touch unknown conversation returns ErrNotFound", func(t *testing.T) {
		repo := newRepo(t)
		err := repo.Conversation().Touch(context.Background(), types.NewConversationID())
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("Delete cascades to messages and contracts", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		conv := newConversation(t, repo, testUser())
		other := newConversation(t, repo, conv.UserID)

		_, err := repo.Message().Create(ctx, &model.Message{
			ConversationID: conv.ID,
			Content:        "hello",
			SenderKind:     types.SenderKindUser,
		})
		gt.NoError(t, err).Required()
		contract, err := repo.Contract().Create(ctx, &model.Contract{
			ConversationID: conv.ID,
			FileName:       "nda.pdf",
			FileURL:        "https://files.example.com/nda.pdf",
		})
		gt.NoError(t, err).Required()
		_, err = repo.Message().Create(ctx, &model.Message{
			ConversationID: other.ID,
			Content:        "keep me",
			SenderKind:     types.SenderKindUser,
		})
		gt.NoError(t, err).Required()

		gt.NoError(t, repo.Conversation().Delete(ctx, conv.ID)).Required()

		_, err = repo.Conversation().Get(ctx, conv.ID)
		gt.Error(t, err).Is(interfaces.ErrNotFound)

		msgs, err := repo.Message().List(ctx, conv.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, msgs).Length(0)

		_, err = repo.Contract().Get(ctx, contract.ID)
		gt.Error(t, err).Is(interfaces.ErrNotFound)

		kept, err := repo.Message().List(ctx, other.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, kept).Length(1)
	})

	t.Run("Delete unknown conversation returns ErrNotFound", func(t *testing.T) {
		repo := newRepo(t)
		err := repo.Conversation().Delete(context.Background(), types.NewConversationID())
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})
}

func runMessageRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Create keeps all fields", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		conv := newConversation(t, repo, testUser())

		created, err := repo.Message().Create(ctx, &model.Message{
			ConversationID: conv.ID,
			Content:        "The contract has an auto-renewal clause.",
			SenderKind:     types.SenderKindAssistant,
			AgentUsed:      "n8n-workflow",
			ActionButtons: []model.ActionButton{
				{ID: "explain_renewal", Label: "Explain renewal", Variant: types.ButtonVariantOutline},
				{ID: "next", Label: "Next"},
			},
			Metadata: map[string]any{
				"message_type":  "text_response",
				"n8n_processed": true,
			},
		})
		gt.NoError(t, err).Required()
		gt.String(t, created.ID.String()).NotEqual("")
		gt.Bool(t, created.CreatedAt.IsZero()).False()

		msgs, err := repo.Message().List(ctx, conv.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, msgs).Length(1).Required()

		got := msgs[0]
		gt.Value(t, got.ID).Equal(created.ID)
		gt.Value(t, got.Content).Equal("The contract has an auto-renewal clause.")
		gt.Value(t, got.SenderKind).Equal(types.SenderKindAssistant)
		gt.Value(t, got.AgentUsed).Equal("n8n-workflow")
		gt.Array(t, got.ActionButtons).Length(2).Required()
		gt.Value(t, got.ActionButtons[0].Variant).Equal(types.ButtonVariantOutline)
		gt.Value(t, got.ActionButtons[1].Variant).Equal(types.ButtonVariantDefault)
		gt.Value(t, got.Metadata["message_type"]).Equal(any("text_response"))
		gt.Value(t, got.Metadata["n8n_processed"]).Equal(any(true))
	})

	t.Run("Create stores file reference", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		conv := newConversation(t, repo, testUser())

		_, err := repo.Message().Create(ctx, &model.Message{
			ConversationID: conv.ID,
			Content:        "Uploaded file: lease.pdf",
			SenderKind:     types.SenderKindFile,
			FileName:       "lease.pdf",
			FileURL:        "https://files.example.com/u/1.pdf",
		})
		gt.NoError(t, err).Required()

		msgs, err := repo.Message().List(ctx, conv.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, msgs).Length(1).Required()
		gt.Value(t, msgs[0].FileName).Equal("lease.pdf")
		gt.Value(t, msgs[0].FileURL).Equal("https://files.example.com/u/1.pdf")
		gt.Array(t, msgs[0].ActionButtons).Length(0)
	})

	t.Run("Create rejects file message without URL", func(t *testing.T) {
		repo := newRepo(t)
		conv := newConversation(t, repo, testUser())

		_, err := repo.Message().Create(context.Background(), &model.Message{
			ConversationID: conv.ID,
			SenderKind:     types.SenderKindFile,
			FileName:       "lease.pdf",
		})
		gt.Value(t, err).NotNil()
	})

	t.Run("Create for unknown conversation returns ErrNotFound", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Message().Create(context.Background(), &model.Message{
			ConversationID: types.NewConversationID(),
			Content:        "orphan",
			SenderKind:     types.SenderKindUser,
		})
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("List keeps creation order with strictly increasing times", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		conv := newConversation(t, repo, testUser())

		for i := range 5 {
			_, err := repo.Message().Create(ctx, &model.Message{
				ConversationID: conv.ID,
				Content:        fmt.Sprintf("message %d", i),
				SenderKind:     types.SenderKindUser,
			})
			gt.NoError(t, err).Required()
		}

		msgs, err := repo.Message().List(ctx, conv.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, msgs).Length(5).Required()
		for i, msg := range msgs {
			gt.Value(t, msg.Content).Equal(fmt.Sprintf("message %d", i))
			if i > 0 {
				gt.Bool(t, msg.CreatedAt.After(msgs[i-1].CreatedAt)).True()
			}
		}
	})

	t.Run("concurrent writers never share a timestamp", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		conv := newConversation(t, repo, testUser())

		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.Message().Create(ctx, &model.Message{
					ConversationID: conv.ID,
					Content:        fmt.Sprintf("parallel %d", i),
					SenderKind:     types.SenderKindUser,
				})
				gt.NoError(t, err)
			}()
		}
		wg.Wait()

		msgs, err := repo.Message().List(ctx, conv.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, msgs).Length(8).Required()
		for i := 1; i < len(msgs); i++ {
			gt.Bool(t, msgs[i].CreatedAt.After(msgs[i-1].CreatedAt)).True()
		}
	})

	t.Run("returned message is detached from the store", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		conv := newConversation(t, repo, testUser())

		created, err := repo.Message().Create(ctx, &model.Message{
			ConversationID: conv.ID,
			Content:        "original",
			SenderKind:     types.SenderKindUser,
			Metadata:       map[string]any{"k": "v"},
		})
		gt.NoError(t, err).Required()
		created.Content = "mutated"
		created.Metadata["k"] = "changed"

		msgs, err := repo.Message().List(ctx, conv.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, msgs[0].Content).Equal("original")
		gt.Value(t, msgs[0].Metadata["k"]).Equal(any("v"))
	})
}

func runContractRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Create and Get", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		conv := newConversation(t, repo, testUser())

		created, err := repo.Contract().Create(ctx, &model.Contract{
			ConversationID: conv.ID,
			FileName:       "msa.pdf",
			FileURL:        "https://files.example.com/msa.pdf",
			FullText:       "MASTER SERVICES AGREEMENT ...",
			Overview:       "A standard MSA with a 30 day termination notice.",
		})
		gt.NoError(t, err).Required()
		gt.NoError(t, created.ID.Validate())

		got, err := repo.Contract().Get(ctx, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.ConversationID).Equal(conv.ID)
		gt.Value(t, got.FileName).Equal("msa.pdf")
		gt.Value(t, got.FullText).Equal("MASTER SERVICES AGREEMENT ...")
		gt.Value(t, got.Overview).Equal("A standard MSA with a 30 day termination notice.")
	})

	t.Run("Create for unknown conversation returns ErrNotFound", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Contract().Create(context.Background(), &model.Contract{
			ConversationID: types.NewConversationID(),
			FileName:       "x.pdf",
			FileURL:        "https://files.example.com/x.pdf",
		})
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("ListByConversation returns newest first", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		conv := newConversation(t, repo, testUser())

		for _, name := range []string{"a.pdf", "b.pdf"} {
			_, err := repo.Contract().Create(ctx, &model.Contract{
				ConversationID: conv.ID,
				FileName:       name,
				FileURL:        "https://files.example.com/" + name,
			})
			gt.NoError(t, err).Required()
			time.Sleep(2 * time.Millisecond)
		}

		list, err := repo.Contract().ListByConversation(ctx, conv.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, list).Length(2).Required()
		gt.Value(t, list[0].FileName).Equal("b.pdf")
		gt.Value(t, list[1].FileName).Equal("a.pdf")
	})

	t.Run("Delete removes only the contract", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		conv := newConversation(t, repo, testUser())

		created, err := repo.Contract().Create(ctx, &model.Contract{
			ConversationID: conv.ID,
			FileName:       "c.pdf",
			FileURL:        "https://files.example.com/c.pdf",
		})
		gt.NoError(t, err).Required()

		gt.NoError(t, repo.Contract().Delete(ctx, created.ID)).Required()
		_, err = repo.Contract().Get(ctx, created.ID)
		gt.Error(t, err).Is(interfaces.ErrNotFound)
		gt.Error(t, repo.Contract().Delete(ctx, created.ID)).Is(interfaces.ErrNotFound)

		_, err = repo.Conversation().Get(ctx, conv.ID)
		gt.NoError(t, err)
	})
}

func runRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Run("Conversation", func(t *testing.T) { runConversationRepositoryTest(t, newRepo) })
	t.Run("Message", func(t *testing.T) { runMessageRepositoryTest(t, newRepo) })
	t.Run("Contract", func(t *testing.T) { runContractRepositoryTest(t, newRepo) })
}

func TestRepository_Memory(t *testing.T) {
	runRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		return memory.New()
	})
}

func TestRepository_Firestore(t *testing.T) {
	projectID := os.Getenv("FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("FIRESTORE_PROJECT_ID not set")
	}

	runRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		opts := []firestore.Option{
			firestore.WithCollectionPrefix(fmt.Sprintf("test_%d", time.Now().UnixNano())),
		}
		if databaseID := os.Getenv("FIRESTORE_DATABASE_ID"); databaseID != "" {
			opts = append(opts, firestore.WithDatabaseID(databaseID))
		}

		repo, err := firestore.New(context.Background(), projectID, opts...)
		gt.NoError(t, err).Required()
		t.Cleanup(func() {
			gt.NoError(t, repo.Close())
		})
		return repo
	})
}

func TestRepository_Postgres(t *testing.T) {
	dsn := os.Getenv("CONTRACTCHAT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CONTRACTCHAT_TEST_POSTGRES_DSN not set")
	}

	runRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		ctx := context.Background()
		repo, err := postgres.New(ctx, dsn)
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Migrate(ctx)).Required()
		t.Cleanup(func() {
			gt.NoError(t, repo.Close())
		})
		return repo
	})
}
