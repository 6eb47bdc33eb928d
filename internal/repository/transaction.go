package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"magic-rpg-bot/internal/model"
)

// TransactionRepository handles the currency movement log.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository instance.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// Create appends a currency movement record. Gold and sapphire deltas are
// signed; either may be zero.
func (r *TransactionRepository) Create(ctx context.Context, playerID, gold, sapphires int64, txType string, description *string) (*model.Transaction, error) {
	const query = `
		INSERT INTO transactions (player_id, gold, sapphires, type, description, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, player_id, gold, sapphires, type, description, created_at
	`

	var tx model.Transaction
	err := r.pool.QueryRow(ctx, query, playerID, gold, sapphires, txType, description).Scan(
		&tx.ID,
		&tx.PlayerID,
		&tx.Gold,
		&tx.Sapphires,
		&tx.Type,
		&tx.Description,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return &tx, nil
}

// GetByPlayerID retrieves a player's most recent movements, newest first.
func (r *TransactionRepository) GetByPlayerID(ctx context.Context, playerID int64, limit int) ([]*model.Transaction, error) {
	const query = `
		SELECT id, player_id, gold, sapphires, type, description, created_at
		FROM transactions
		WHERE player_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*model.Transaction
	for rows.Next() {
		var tx model.Transaction
		err := rows.Scan(
			&tx.ID,
			&tx.PlayerID,
			&tx.Gold,
			&tx.Sapphires,
			&tx.Type,
			&tx.Description,
			&tx.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

// GetDailyGoldFlow returns a player's net gold movement for a date.
func (r *TransactionRepository) GetDailyGoldFlow(ctx context.Context, playerID int64, date time.Time) (int64, error) {
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	const query = `
		SELECT COALESCE(SUM(gold), 0)
		FROM transactions
		WHERE player_id = $1
		  AND created_at >= $2
		  AND created_at < $3
	`

	var flow int64
	if err := r.pool.QueryRow(ctx, query, playerID, startOfDay, endOfDay).Scan(&flow); err != nil {
		return 0, fmt.Errorf("failed to get daily gold flow: %w", err)
	}
	return flow, nil
}
