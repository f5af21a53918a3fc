package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/comanda-pos/api/internal/database"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}

// mockReceiptStore implements ReceiptStore with configurable behavior.
type mockReceiptStore struct {
	getOrderFn              func(ctx context.Context, id uuid.UUID) (database.Order, error)
	listOrderItemsByOrderFn func(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderItemsByOrderRow, error)
	getRestaurantFn         func(ctx context.Context, id uuid.UUID) (database.Restaurant, error)
}

func (m *mockReceiptStore) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrderFn(ctx, id)
}
func (m *mockReceiptStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderItemsByOrderRow, error) {
	return m.listOrderItemsByOrderFn(ctx, orderID)
}
func (m *mockReceiptStore) GetRestaurant(ctx context.Context, id uuid.UUID) (database.Restaurant, error) {
	return m.getRestaurantFn(ctx, id)
}

func receiptFixtureStore(restaurantID, orderID uuid.UUID) *mockReceiptStore {
	return &mockReceiptStore{
		getOrderFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			if id != orderID {
				return database.Order{}, pgx.ErrNoRows
			}
			return database.Order{
				ID:           orderID,
				RestaurantID: restaurantID,
				OrderNumber:  12,
				TotalAmount:  makeNumeric("17.50"),
				Status:       database.OrderStatusPAID,
				PaymentMethod: database.NullPaymentMethod{
					PaymentMethod: database.PaymentMethodCARD,
					Valid:         true,
				},
				CustomerEmail: pgtype.Text{String: "guest@example.com", Valid: true},
				CreatedAt:     time.Date(2026, 3, 14, 12, 30, 0, 0, time.UTC),
			}, nil
		},
		listOrderItemsByOrderFn: func(ctx context.Context, oid uuid.UUID) ([]database.ListOrderItemsByOrderRow, error) {
			return []database.ListOrderItemsByOrderRow{
				{
					ProductName: "Margherita",
					Quantity:    2,
					UnitPrice:   makeNumeric("5.00"),
					Subtotal:    makeNumeric("10.00"),
				},
				{
					ProductName: "Lemonade",
					Quantity:    3,
					UnitPrice:   makeNumeric("2.50"),
					Subtotal:    makeNumeric("7.50"),
					Notes:       pgtype.Text{String: "no ice", Valid: true},
				},
			}, nil
		},
		getRestaurantFn: func(ctx context.Context, id uuid.UUID) (database.Restaurant, error) {
			return database.Restaurant{ID: restaurantID, Name: "Demo Bistro"}, nil
		},
	}
}

func TestGenerateReceipt(t *testing.T) {
	restaurantID, orderID := uuid.New(), uuid.New()
	svc := NewReceiptService(receiptFixtureStore(restaurantID, orderID))

	receipt, err := svc.GenerateReceipt(context.Background(), orderID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if receipt.RestaurantName != "Demo Bistro" {
		t.Errorf("restaurant name: got %q, want Demo Bistro", receipt.RestaurantName)
	}
	if receipt.OrderNumber != 12 {
		t.Errorf("order number: got %d, want 12", receipt.OrderNumber)
	}
	if receipt.PaymentMethod != "CARD" {
		t.Errorf("payment method: got %q, want CARD", receipt.PaymentMethod)
	}
	if !receipt.TotalAmount.Equal(mustDecimal(t, "17.50")) {
		t.Errorf("total: got %v, want 17.50", receipt.TotalAmount)
	}
	if len(receipt.Items) != 2 {
		t.Fatalf("items: got %d, want 2", len(receipt.Items))
	}
	if receipt.Items[1].Notes != "no ice" {
		t.Errorf("notes: got %q, want %q", receipt.Items[1].Notes, "no ice")
	}
	if !receipt.Items[0].Subtotal.Equal(mustDecimal(t, "10.00")) {
		t.Errorf("first item subtotal: got %v, want 10.00", receipt.Items[0].Subtotal)
	}
}

func TestGenerateReceipt_NoPaymentMethod(t *testing.T) {
	restaurantID, orderID := uuid.New(), uuid.New()
	store := receiptFixtureStore(restaurantID, orderID)
	base := store.getOrderFn
	store.getOrderFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		order, err := base(ctx, id)
		order.PaymentMethod = database.NullPaymentMethod{}
		return order, err
	}
	svc := NewReceiptService(store)

	receipt, err := svc.GenerateReceipt(context.Background(), orderID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receipt.PaymentMethod != UnknownPaymentMethod {
		t.Errorf("payment method: got %q, want %q", receipt.PaymentMethod, UnknownPaymentMethod)
	}
}

func TestGenerateReceipt_OrderNotFound(t *testing.T) {
	svc := NewReceiptService(receiptFixtureStore(uuid.New(), uuid.New()))

	_, err := svc.GenerateReceipt(context.Background(), uuid.New())
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got: %v", err)
	}
}

func TestPrintReceipt(t *testing.T) {
	restaurantID, orderID := uuid.New(), uuid.New()
	svc := NewReceiptService(receiptFixtureStore(restaurantID, orderID))

	msg, err := svc.PrintReceipt(context.Background(), orderID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(msg, "#12") {
		t.Errorf("message %q should reference the order number", msg)
	}
}
