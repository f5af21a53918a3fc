package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/comanda-pos/api/internal/database"
)

// Receipt is the printable/mailable view of a completed order.
type Receipt struct {
	RestaurantName string
	OrderNumber    int32
	Date           time.Time
	Items          []ReceiptItem
	TotalAmount    decimal.Decimal
	PaymentMethod  string
	CustomerEmail  string
}

// ReceiptItem is one line on a receipt.
type ReceiptItem struct {
	ProductName string
	Quantity    int32
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
	Notes       string
}

// ReceiptStore defines the DB methods receipt generation needs.
type ReceiptStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderItemsByOrderRow, error)
	GetRestaurant(ctx context.Context, id uuid.UUID) (database.Restaurant, error)
}

// ReceiptService builds receipts from persisted orders.
type ReceiptService struct {
	store ReceiptStore
}

// NewReceiptService creates a new ReceiptService.
func NewReceiptService(store ReceiptStore) *ReceiptService {
	return &ReceiptService{store: store}
}

// GenerateReceipt assembles the receipt for an order.
func (s *ReceiptService) GenerateReceipt(ctx context.Context, orderID uuid.UUID) (Receipt, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Receipt{}, ErrOrderNotFound
		}
		return Receipt{}, fmt.Errorf("get order: %w", err)
	}

	restaurant, err := s.store.GetRestaurant(ctx, order.RestaurantID)
	if err != nil {
		return Receipt{}, fmt.Errorf("get restaurant: %w", err)
	}

	rows, err := s.store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return Receipt{}, fmt.Errorf("list order items: %w", err)
	}

	items := make([]ReceiptItem, len(rows))
	for i, row := range rows {
		items[i] = ReceiptItem{
			ProductName: row.ProductName,
			Quantity:    row.Quantity,
			UnitPrice:   numericToDecimal(row.UnitPrice),
			Subtotal:    numericToDecimal(row.Subtotal),
			Notes:       row.Notes.String,
		}
	}

	paymentMethod := UnknownPaymentMethod
	if order.PaymentMethod.Valid {
		paymentMethod = string(order.PaymentMethod.PaymentMethod)
	}

	return Receipt{
		RestaurantName: restaurant.Name,
		OrderNumber:    order.OrderNumber,
		Date:           order.CreatedAt,
		Items:          items,
		TotalAmount:    numericToDecimal(order.TotalAmount),
		PaymentMethod:  paymentMethod,
		CustomerEmail:  order.CustomerEmail.String,
	}, nil
}

// PrintReceipt sends a receipt to the (stubbed) printer and returns a
// confirmation message.
func (s *ReceiptService) PrintReceipt(ctx context.Context, orderID uuid.UUID) (string, error) {
	receipt, err := s.GenerateReceipt(ctx, orderID)
	if err != nil {
		return "", err
	}
	log.Printf("PRINT: receipt for order #%d: %d items, total %s",
		receipt.OrderNumber, len(receipt.Items), receipt.TotalAmount.StringFixed(2))
	return fmt.Sprintf("Receipt for order #%d sent to printer", receipt.OrderNumber), nil
}
