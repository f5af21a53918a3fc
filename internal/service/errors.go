package service

import (
	"errors"
	"fmt"

	"github.com/comanda-pos/api/internal/database"
)

// Errors returned by the order and register services. Handlers translate these
// to HTTP status codes; anything else is an internal error.
var (
	ErrEmptyItems           = errors.New("items are required")
	ErrInvalidQuantity      = errors.New("quantity must be > 0")
	ErrInvalidProductID     = errors.New("invalid product_id")
	ErrInvalidMenuItemID    = errors.New("invalid menu_item_id")
	ErrInvalidPaymentMethod = errors.New("invalid payment_method")
	ErrRegisterNotOpen      = errors.New("no register session is currently open, open a register before creating orders")
	ErrRegisterAlreadyOpen  = errors.New("a register session is already open")
	ErrNoOpenRegister       = errors.New("no register session is currently open")
	ErrOrderNotFound        = errors.New("order not found")
	ErrRegisterNotFound     = errors.New("register session not found")
	ErrForbiddenAccess      = errors.New("access denied")
	ErrStatusConflict       = errors.New("order status changed, please retry")
)

// StockInsufficientError is returned when a requested quantity exceeds the
// available stock. It doubles as the not-found signal for unknown products
// (Available 0), matching the public createOrder contract.
type StockInsufficientError struct {
	ProductName string
	Available   int32
	Requested   int32
}

func (e *StockInsufficientError) Error() string {
	return fmt.Sprintf("insufficient stock for '%s': available %d, requested %d",
		e.ProductName, e.Available, e.Requested)
}

// InvalidStatusTransitionError is returned for status moves the state machine
// forbids. The order is left untouched.
type InvalidStatusTransitionError struct {
	Current database.OrderStatus
	Target  database.OrderStatus
}

func (e *InvalidStatusTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from '%s' to '%s'", e.Current, e.Target)
}
