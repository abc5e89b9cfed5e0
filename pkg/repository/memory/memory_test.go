package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/domain/types"
	"github.com/venquis/contractchat/pkg/repository/memory"
)

func TestMessageCreatedAtWithFrozenClock(t *testing.T) {
	frozen := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := memory.New(memory.WithClock(func() time.Time { return frozen }))
	ctx := context.Background()

	conv, err := repo.Conversation().Create(ctx, model.NewConversation("user-1"))
	gt.NoError(t, err).Required()

	var last time.Time
	for range 3 {
		msg, err := repo.Message().Create(ctx, &model.Message{
			ConversationID: conv.ID,
			Content:        "tick",
			SenderKind:     types.SenderKindUser,
		})
		gt.NoError(t, err).Required()
		gt.Bool(t, msg.CreatedAt.After(last)).True()
		last = msg.CreatedAt
	}
	gt.Value(t, last).Equal(frozen.Add(2 * time.Microsecond))
}

func TestListByUserTieBreaksOnCreation(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := memory.New(memory.WithClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	}))
	ctx := context.Background()

	a, err := repo.Conversation().Create(ctx, model.NewConversation("user-1"))
	gt.NoError(t, err).Required()
	b, err := repo.Conversation().Create(ctx, model.NewConversation("user-1"))
	gt.NoError(t, err).Required()

	list, err := repo.Conversation().ListByUser(ctx, "user-1")
	gt.NoError(t, err).Required()
	gt.Array(t, list).Length(2).Required()
	gt.Value(t, list[0].ID).Equal(b.ID)
	gt.Value(t, list[1].ID).Equal(a.ID)
}
