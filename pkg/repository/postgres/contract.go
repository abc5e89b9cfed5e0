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

type contractRepository struct {
	pool *pgxpool.Pool
}

const contractColumns = `id, conversation_id, file_name, file_url, full_text, overview, created_at`

func scanContract(row pgx.Row) (*model.Contract, error) {
	var (
		c                  model.Contract
		fullText, overview *string
	)
	if err := row.Scan(&c.ID, &c.ConversationID, &c.FileName, &c.FileURL, &fullText, &overview, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.FullText = fromNullable(fullText)
	c.Overview = fromNullable(overview)
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func (r *contractRepository) Create(ctx context.Context, contract *model.Contract) (*model.Contract, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO contracts (id, conversation_id, file_name, file_url, full_text, overview, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+contractColumns,
		types.NewContractID(), contract.ConversationID, contract.FileName, contract.FileURL,
		nullIfEmpty(contract.FullText), nullIfEmpty(contract.Overview), time.Now().UTC())

	created, err := scanContract(row)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "conversation not found",
				goerr.V("conversation_id", contract.ConversationID))
		}
		return nil, goerr.Wrap(err, "failed to create contract",
			goerr.V("conversation_id", contract.ConversationID))
	}
	return created, nil
}

func (r *contractRepository) Get(ctx context.Context, id types.ContractID) (*model.Contract, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id = $1`, id)
	c, err := scanContract(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "contract not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get contract", goerr.V("id", id))
	}
	return c, nil
}

func (r *contractRepository) ListByConversation(ctx context.Context, conversationID types.ConversationID) ([]*model.Contract, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+contractColumns+`
		FROM contracts
		WHERE conversation_id = $1
		ORDER BY created_at DESC`, conversationID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list contracts", goerr.V("conversation_id", conversationID))
	}
	defer rows.Close()

	result := make([]*model.Contract, 0)
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan contract", goerr.V("conversation_id", conversationID))
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate contracts", goerr.V("conversation_id", conversationID))
	}
	return result, nil
}

func (r *contractRepository) Delete(ctx context.Context, id types.ContractID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM contracts WHERE id = $1`, id)
	if err != nil {
		return goerr.Wrap(err, "failed to delete contract", goerr.V("id", id))
	}
	if tag.RowsAffected() == 0 {
		return goerr.Wrap(interfaces.ErrNotFound, "contract not found", goerr.V("id", id))
	}
	return nil
}
