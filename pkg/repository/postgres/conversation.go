package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/venquis/contractchat/pkg/domain/interfaces"
	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/domain/types"
)

type conversationRepository struct {
	pool *pgxpool.Pool
}

const conversationColumns = `id, user_id, title, session_id, created_at, updated_at`

func scanConversation(row pgx.Row) (*model.Conversation, error) {
	var c model.Conversation
	if err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.SessionID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

func (r *conversationRepository) Create(ctx context.Context, conv *model.Conversation) (*model.Conversation, error) {
	if err := conv.Validate(); err != nil {
		return nil, err
	}

	sessionID := conv.SessionID
	if sessionID == "" {
		sessionID = types.SessionID(conv.ID)
	}
	now := time.Now().UTC().Truncate(time.Microsecond)

	row := r.pool.QueryRow(ctx, `
		INSERT INTO conversations (id, user_id, title, session_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING `+conversationColumns,
		conv.ID, conv.UserID, conv.Title, sessionID, now)

	created, err := scanConversation(row)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create conversation", goerr.V("id", conv.ID))
	}
	return created, nil
}

func (r *conversationRepository) Get(ctx context.Context, id types.ConversationID) (*model.Conversation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id)
	conv, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "conversation not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get conversation", goerr.V("id", id))
	}
	return conv, nil
}

func (r *conversationRepository) ListByUser(ctx context.Context, userID types.UserID) ([]*model.Conversation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC, created_at DESC`, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list conversations", goerr.V("user_id", userID))
	}
	defer rows.Close()

	result := make([]*model.Conversation, 0)
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan conversation", goerr.V("user_id", userID))
		}
		result = append(result, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate conversations", goerr.V("user_id", userID))
	}
	return result, nil
}

func (r *conversationRepository) UpdateTitle(ctx context.Context, id types.ConversationID, title string) (*model.Conversation, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE conversations SET title = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+conversationColumns,
		id, title, time.Now().UTC())

	conv, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "conversation not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to update conversation title", goerr.V("id", id))
	}
	return conv, nil
}

func (r *conversationRepository) Touch(ctx context.Context, id types.ConversationID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE conversations SET updated_at = $2 WHERE id = $1`, id, time.Now().UTC())
	if err != nil {
		return goerr.Wrap(err, "failed to touch conversation", goerr.V("id", id))
	}
	if tag.RowsAffected() == 0 {
		return goerr.Wrap(interfaces.ErrNotFound, "conversation not found", goerr.V("id", id))
	}
	return nil
}

// Delete relies on ON DELETE CASCADE for messages and contracts
func (r *conversationRepository) Delete(ctx context.Context, id types.ConversationID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return goerr.Wrap(err, "failed to delete conversation", goerr.V("id", id))
	}
	if tag.RowsAffected() == 0 {
		return goerr.Wrap(interfaces.ErrNotFound, "conversation not found", goerr.V("id", id))
	}
	return nil
}
