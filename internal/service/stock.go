package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/comanda-pos/api/internal/database"
)

// guardStock validates the requested quantity against the product stock and,
// when the menu item carries its own counter, against that counter too, then
// applies both decrements. The decrements are conditional single statements,
// so a concurrent order can never drive either counter negative. Must run
// inside the order transaction: the enclosing rollback discards any decrement
// applied before a later item fails.
func guardStock(ctx context.Context, store OrderStore, product database.Product, menuItem *database.MenuItem, quantity int32) error {
	if product.Stock < quantity {
		return &StockInsufficientError{
			ProductName: product.Name,
			Available:   product.Stock,
			Requested:   quantity,
		}
	}

	if menuItem != nil && menuItem.Stock.Valid && menuItem.Stock.Int32 < quantity {
		return &StockInsufficientError{
			ProductName: product.Name + " (menu)",
			Available:   menuItem.Stock.Int32,
			Requested:   quantity,
		}
	}

	if _, err := store.DecrementProductStock(ctx, database.DecrementProductStockParams{
		ID:       product.ID,
		Quantity: quantity,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Another transaction consumed the stock between our read and the
			// conditional decrement.
			return &StockInsufficientError{
				ProductName: product.Name,
				Available:   product.Stock,
				Requested:   quantity,
			}
		}
		return fmt.Errorf("decrement product stock: %w", err)
	}

	if menuItem != nil && menuItem.Stock.Valid {
		if _, err := store.DecrementMenuItemStock(ctx, database.DecrementMenuItemStockParams{
			ID:       menuItem.ID,
			Quantity: quantity,
		}); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return &StockInsufficientError{
					ProductName: product.Name + " (menu)",
					Available:   menuItem.Stock.Int32,
					Requested:   quantity,
				}
			}
			return fmt.Errorf("decrement menu item stock: %w", err)
		}
	}

	return nil
}
