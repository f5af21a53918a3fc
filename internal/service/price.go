package service

import (
	"github.com/comanda-pos/api/internal/database"
	"github.com/shopspring/decimal"
)

// resolveUnitPrice returns the effective unit price for a product ordered
// through an optional menu item. A non-null menu-item price overrides the
// product's base price.
func resolveUnitPrice(product database.Product, menuItem *database.MenuItem) decimal.Decimal {
	if menuItem != nil && menuItem.Price.Valid {
		return numericToDecimal(menuItem.Price)
	}
	return numericToDecimal(product.Price)
}
