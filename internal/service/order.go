package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/comanda-pos/api/internal/database"
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods the order transaction needs.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetProductForOrder(ctx context.Context, arg database.GetProductForOrderParams) (database.Product, error)
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	DecrementProductStock(ctx context.Context, arg database.DecrementProductStockParams) (int32, error)
	DecrementMenuItemStock(ctx context.Context, arg database.DecrementMenuItemStockParams) (int32, error)
	IncrementOrderNumber(ctx context.Context, sessionID uuid.UUID) (int32, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
}

// OrderReadStore defines the pool-bound DB methods used outside the
// creation transaction.
type OrderReadStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetRegisterSession(ctx context.Context, id uuid.UUID) (database.RegisterSession, error)
	ListOrdersByRestaurant(ctx context.Context, arg database.ListOrdersByRestaurantParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderItemsByOrderRow, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to bind queries to a transaction.
type NewOrderStore func(db database.DBTX) OrderStore

// ReceiptSender delivers a receipt email. Implemented by *email.Mailer.
type ReceiptSender interface {
	SendReceiptEmail(ctx context.Context, to string, receipt Receipt) (bool, error)
}

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	RestaurantID      uuid.UUID
	RegisterSessionID uuid.UUID
	PaymentMethod     string
	CustomerEmail     string
	Items             []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single line in the order.
type CreateOrderItemRequest struct {
	ProductID  string
	MenuItemID string
	Quantity   int32
	Notes      string
}

// CreateOrderResult is the persisted order with its items.
type CreateOrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// OrderService drives order creation and the status state machine.
// receipts and mailer are optional: when either is nil the PAID-transition
// email side effect is skipped, which is a valid configuration.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	store    OrderReadStore
	receipts *ReceiptService
	mailer   ReceiptSender
}

// NewOrderService creates a new OrderService. receipts and mailer may be nil.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, store OrderReadStore, receipts *ReceiptService, mailer ReceiptSender) *OrderService {
	return &OrderService{
		pool:     pool,
		newStore: newStore,
		store:    store,
		receipts: receipts,
		mailer:   mailer,
	}
}

// processedItem holds a prepared order item insert.
type processedItem struct {
	params database.CreateOrderItemParams
}

// CreateOrder validates the request, checks the register session is OPEN, and
// runs the whole creation — price resolution, stock decrements, order-number
// assignment, order and item inserts — inside one transaction. Any failure
// rolls back every write: no stock decrement or order number survives a
// failed order.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if req.PaymentMethod != "" && !isValidPaymentMethod(req.PaymentMethod) {
		return nil, ErrInvalidPaymentMethod
	}
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
	}

	// The session must be OPEN before any transaction is opened. The atomic
	// order-number increment re-checks this inside the transaction.
	session, err := s.store.GetRegisterSession(ctx, req.RegisterSessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRegisterNotOpen
		}
		return nil, fmt.Errorf("get register session: %w", err)
	}
	if session.Status != database.RegisterSessionStatusOPEN {
		return nil, ErrRegisterNotOpen
	}

	return s.createOrderTx(ctx, req)
}

// createOrderTx executes the full order creation in a single transaction.
func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	totalAmount := decimal.Zero
	var items []processedItem

	for i, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidProductID)
		}

		product, err := store.GetProductForOrder(ctx, database.GetProductForOrderParams{
			ID:           productID,
			RestaurantID: req.RestaurantID,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Unknown product reuses the stock error with zero available.
				return nil, &StockInsufficientError{
					ProductName: item.ProductID,
					Available:   0,
					Requested:   item.Quantity,
				}
			}
			return nil, fmt.Errorf("items[%d]: get product: %w", i, err)
		}

		var menuItem *database.MenuItem
		menuItemID := pgtype.UUID{}
		if item.MenuItemID != "" {
			mid, err := uuid.Parse(item.MenuItemID)
			if err != nil {
				return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidMenuItemID)
			}
			mi, err := store.GetMenuItem(ctx, mid)
			if err != nil {
				if !errors.Is(err, pgx.ErrNoRows) {
					return nil, fmt.Errorf("items[%d]: get menu item: %w", i, err)
				}
				// Unknown menu item: fall back to the bare product.
			} else {
				menuItem = &mi
				menuItemID = pgtype.UUID{Bytes: mid, Valid: true}
			}
		}

		unitPrice := resolveUnitPrice(product, menuItem)

		if err := guardStock(ctx, store, product, menuItem, item.Quantity); err != nil {
			return nil, err
		}

		subtotal := unitPrice.Mul(decimal.NewFromInt32(item.Quantity))
		totalAmount = totalAmount.Add(subtotal)

		notes := pgtype.Text{}
		if item.Notes != "" {
			notes = pgtype.Text{String: item.Notes, Valid: true}
		}

		items = append(items, processedItem{
			params: database.CreateOrderItemParams{
				ProductID:  productID,
				MenuItemID: menuItemID,
				Quantity:   item.Quantity,
				UnitPrice:  decimalToNumeric(unitPrice),
				Subtotal:   decimalToNumeric(subtotal),
				Notes:      notes,
			},
		})
	}

	// Atomic increment-and-read: the assigned number is only spent if this
	// transaction commits.
	orderNumber, err := store.IncrementOrderNumber(ctx, req.RegisterSessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRegisterNotOpen
		}
		return nil, fmt.Errorf("increment order number: %w", err)
	}

	paymentMethod := database.NullPaymentMethod{}
	if req.PaymentMethod != "" {
		paymentMethod = database.NullPaymentMethod{
			PaymentMethod: database.PaymentMethod(req.PaymentMethod),
			Valid:         true,
		}
	}

	customerEmail := pgtype.Text{}
	if req.CustomerEmail != "" {
		customerEmail = pgtype.Text{String: req.CustomerEmail, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		RestaurantID:      req.RestaurantID,
		RegisterSessionID: req.RegisterSessionID,
		OrderNumber:       orderNumber,
		TotalAmount:       decimalToNumeric(totalAmount),
		PaymentMethod:     paymentMethod,
		CustomerEmail:     customerEmail,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	var itemResults []database.OrderItem
	for _, pi := range items {
		pi.params.OrderID = order.ID
		oi, err := store.CreateOrderItem(ctx, pi.params)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		itemResults = append(itemResults, oi)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{
		Order: order,
		Items: itemResults,
	}, nil
}

// FindByRestaurant lists a restaurant's orders, optionally filtered by status.
func (s *OrderService) FindByRestaurant(ctx context.Context, restaurantID uuid.UUID, status database.NullOrderStatus) ([]database.Order, error) {
	return s.store.ListOrdersByRestaurant(ctx, database.ListOrdersByRestaurantParams{
		RestaurantID: restaurantID,
		Status:       status,
	})
}

// FindByID loads an order and enforces restaurant ownership.
func (s *OrderService) FindByID(ctx context.Context, id, restaurantID uuid.UUID) (database.Order, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	if order.RestaurantID != restaurantID {
		return database.Order{}, ErrForbiddenAccess
	}
	return order, nil
}

// UpdateOrderStatus applies a forward-only status transition. A legal move
// into PAID for an order carrying a customer email triggers a best-effort
// receipt email when a mailer is configured; its failure is logged and never
// fails the update.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id, restaurantID uuid.UUID, target database.OrderStatus) (database.Order, error) {
	order, err := s.FindByID(ctx, id, restaurantID)
	if err != nil {
		return database.Order{}, err
	}

	if err := validateStatusTransition(order.Status, target); err != nil {
		return database.Order{}, err
	}

	updated, err := s.store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:         id,
		Status:     target,
		PrevStatus: order.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost the compare-and-swap: the status moved between our read
			// and write.
			return database.Order{}, ErrStatusConflict
		}
		return database.Order{}, fmt.Errorf("update order status: %w", err)
	}

	if target == database.OrderStatusPAID && updated.CustomerEmail.Valid && s.receipts != nil && s.mailer != nil {
		s.sendReceipt(ctx, updated)
	}

	return updated, nil
}

func (s *OrderService) sendReceipt(ctx context.Context, order database.Order) {
	receipt, err := s.receipts.GenerateReceipt(ctx, order.ID)
	if err != nil {
		log.Printf("ERROR: generate receipt for order %s: %v", order.ID, err)
		return
	}
	ok, err := s.mailer.SendReceiptEmail(ctx, order.CustomerEmail.String, receipt)
	if err != nil {
		log.Printf("ERROR: send receipt email for order %s: %v", order.ID, err)
		return
	}
	if !ok {
		log.Printf("ERROR: receipt email for order %s was not delivered", order.ID)
	}
}

// --- Helpers ---

func isValidPaymentMethod(s string) bool {
	switch database.PaymentMethod(s) {
	case database.PaymentMethodCASH, database.PaymentMethodCARD, database.PaymentMethodTRANSFER:
		return true
	}
	return false
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
