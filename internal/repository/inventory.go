package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"magic-rpg-bot/internal/model"
)

// InventoryRepository handles dropped item persistence.
type InventoryRepository struct {
	pool *pgxpool.Pool
}

// NewInventoryRepository creates a new InventoryRepository instance.
func NewInventoryRepository(pool *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{pool: pool}
}

// AddItem stacks one unit of an item into a player's inventory.
func (r *InventoryRepository) AddItem(ctx context.Context, playerID int64, name, itemType, rarity string) error {
	const query = `
		INSERT INTO inventories (player_id, item_name, item_type, rarity, quantity)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (player_id, item_name)
		DO UPDATE SET quantity = inventories.quantity + 1
	`

	if _, err := r.pool.Exec(ctx, query, playerID, name, itemType, rarity); err != nil {
		return fmt.Errorf("failed to add item: %w", err)
	}
	return nil
}

// List returns all of a player's items, largest stacks first.
func (r *InventoryRepository) List(ctx context.Context, playerID int64) ([]*model.InventoryItem, error) {
	const query = `
		SELECT player_id, item_name, item_type, rarity, quantity
		FROM inventories
		WHERE player_id = $1
		ORDER BY quantity DESC, item_name ASC
	`

	rows, err := r.pool.Query(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	defer rows.Close()

	var items []*model.InventoryItem
	for rows.Next() {
		var item model.InventoryItem
		if err := rows.Scan(&item.PlayerID, &item.Name, &item.Type, &item.Rarity, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inventory: %w", err)
	}
	return items, nil
}

// Consume removes one unit of an item. Returns false when the player has
// none left.
func (r *InventoryRepository) Consume(ctx context.Context, playerID int64, name string) (bool, error) {
	const query = `
		UPDATE inventories
		SET quantity = quantity - 1
		WHERE player_id = $1 AND item_name = $2 AND quantity > 0
	`

	result, err := r.pool.Exec(ctx, query, playerID, name)
	if err != nil {
		return false, fmt.Errorf("failed to consume item: %w", err)
	}
	return result.RowsAffected() > 0, nil
}
