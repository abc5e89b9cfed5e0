package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/venquis/contractchat/pkg/domain/interfaces"
	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/domain/types"
)

type messageRepository struct {
	pool *pgxpool.Pool
}

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) (*model.Message, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	buttons, err := model.EncodeActionButtons(msg.ActionButtons)
	if err != nil {
		return nil, err
	}
	var metadata []byte
	if msg.Metadata != nil {
		if metadata, err = json.Marshal(msg.Metadata); err != nil {
			return nil, goerr.Wrap(err, "failed to encode message metadata")
		}
	}

	created := msg.Clone()
	created.ID = types.NewMessageID()

	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		// The row lock serializes writers of the same conversation
		var last *time.Time
		err := tx.QueryRow(ctx, `
			SELECT (SELECT max(created_at) FROM messages WHERE conversation_id = c.id)
			FROM conversations c WHERE c.id = $1 FOR UPDATE`, msg.ConversationID).Scan(&last)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return goerr.Wrap(interfaces.ErrNotFound, "conversation not found",
					goerr.V("conversation_id", msg.ConversationID))
			}
			return goerr.Wrap(err, "failed to lock conversation")
		}

		createdAt := time.Now().UTC().Truncate(time.Microsecond)
		if last != nil && !createdAt.After(*last) {
			createdAt = last.UTC().Add(time.Microsecond)
		}
		created.CreatedAt = createdAt

		_, err = tx.Exec(ctx, `
			INSERT INTO messages (
				id, conversation_id, content, sender_type, agent_used, file_name, file_url, action_buttons, metadata, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10)`,
			created.ID, created.ConversationID, created.Content, created.SenderKind.String(),
			nullIfEmpty(created.AgentUsed), nullIfEmpty(created.FileName), nullIfEmpty(created.FileURL),
			nullIfEmpty(buttons), metadata, createdAt)
		if err != nil {
			return goerr.Wrap(err, "failed to insert message")
		}
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to store message", goerr.V("conversation_id", msg.ConversationID))
	}
	return created, nil
}

func (r *messageRepository) List(ctx context.Context, conversationID types.ConversationID) ([]*model.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, conversation_id, content, sender_type, agent_used, file_name, file_url, action_buttons, metadata, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC`, conversationID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list messages", goerr.V("conversation_id", conversationID))
	}
	defer rows.Close()

	result := make([]*model.Message, 0)
	for rows.Next() {
		var (
			m                                       model.Message
			senderType                              string
			agentUsed, fileName, fileURL, buttonsJS *string
			metadata                                []byte
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Content, &senderType,
			&agentUsed, &fileName, &fileURL, &buttonsJS, &metadata, &m.CreatedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan message", goerr.V("conversation_id", conversationID))
		}

		m.SenderKind = types.SenderKind(senderType)
		m.AgentUsed = fromNullable(agentUsed)
		m.FileName = fromNullable(fileName)
		m.FileURL = fromNullable(fileURL)
		m.CreatedAt = m.CreatedAt.UTC()
		if m.ActionButtons, err = model.DecodeActionButtons(fromNullable(buttonsJS)); err != nil {
			return nil, goerr.Wrap(err, "broken message row", goerr.V("id", m.ID))
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &m.Metadata); err != nil {
				return nil, goerr.Wrap(err, "broken message metadata", goerr.V("id", m.ID))
			}
		}
		result = append(result, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate messages", goerr.V("conversation_id", conversationID))
	}
	return result, nil
}
