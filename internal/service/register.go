package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/comanda-pos/api/internal/database"
)

// UnknownPaymentMethod buckets orders with no payment method in summaries.
const UnknownPaymentMethod = "UNKNOWN"

// RegisterStore defines the DB methods the register ledger needs.
// Satisfied by *database.Queries.
type RegisterStore interface {
	CreateRegisterSession(ctx context.Context, restaurantID uuid.UUID) (database.RegisterSession, error)
	GetOpenSession(ctx context.Context, restaurantID uuid.UUID) (database.RegisterSession, error)
	GetRegisterSession(ctx context.Context, id uuid.UUID) (database.RegisterSession, error)
	CloseRegisterSession(ctx context.Context, arg database.CloseRegisterSessionParams) (database.RegisterSession, error)
	CountOrdersBySession(ctx context.Context, sessionID uuid.UUID) (int64, error)
	ListOrdersBySession(ctx context.Context, sessionID uuid.UUID) ([]database.Order, error)
}

// PaymentTotals is one bucket of a per-payment-method breakdown.
type PaymentTotals struct {
	Count int
	Total decimal.Decimal
}

// SessionSummary aggregates the orders attached to a register session.
type SessionSummary struct {
	TotalOrders      int
	TotalSales       decimal.Decimal
	PaymentBreakdown map[string]PaymentTotals
}

// CloseSessionResult is the closed session with its frozen summary.
type CloseSessionResult struct {
	Session database.RegisterSession
	Summary SessionSummary
}

// CurrentSession is the OPEN session with a live order count.
type CurrentSession struct {
	Session    database.RegisterSession
	OrderCount int64
}

// SessionDetail is a session with its summary and orders.
type SessionDetail struct {
	Session database.RegisterSession
	Summary SessionSummary
	Orders  []database.Order
}

// RegisterService manages the register session lifecycle: at most one OPEN
// session per restaurant, with totals frozen at close.
type RegisterService struct {
	store RegisterStore
}

// NewRegisterService creates a new RegisterService.
func NewRegisterService(store RegisterStore) *RegisterService {
	return &RegisterService{store: store}
}

// OpenSession opens a new register session. Exactly one of two concurrent
// calls succeeds: the pre-check catches the common case, the partial unique
// index on open sessions decides the race.
func (s *RegisterService) OpenSession(ctx context.Context, restaurantID uuid.UUID) (database.RegisterSession, error) {
	_, err := s.store.GetOpenSession(ctx, restaurantID)
	if err == nil {
		return database.RegisterSession{}, ErrRegisterAlreadyOpen
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return database.RegisterSession{}, fmt.Errorf("find open session: %w", err)
	}

	session, err := s.store.CreateRegisterSession(ctx, restaurantID)
	if err != nil {
		if isOpenSessionConflict(err) {
			return database.RegisterSession{}, ErrRegisterAlreadyOpen
		}
		return database.RegisterSession{}, fmt.Errorf("create register session: %w", err)
	}
	return session, nil
}

// CloseSession closes the restaurant's OPEN session, freezing its totals and
// returning the computed summary.
func (s *RegisterService) CloseSession(ctx context.Context, restaurantID uuid.UUID, closedBy string) (*CloseSessionResult, error) {
	session, err := s.store.GetOpenSession(ctx, restaurantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoOpenRegister
		}
		return nil, fmt.Errorf("find open session: %w", err)
	}

	orders, err := s.store.ListOrdersBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("list session orders: %w", err)
	}

	summary := summarizeOrders(orders)

	closedByText := pgtype.Text{}
	if closedBy != "" {
		closedByText = pgtype.Text{String: closedBy, Valid: true}
	}

	closed, err := s.store.CloseRegisterSession(ctx, database.CloseRegisterSessionParams{
		ID:          session.ID,
		ClosedBy:    closedByText,
		TotalSales:  decimalToNumeric(summary.TotalSales),
		TotalOrders: int32(summary.TotalOrders),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// A concurrent close won.
			return nil, ErrNoOpenRegister
		}
		return nil, fmt.Errorf("close register session: %w", err)
	}

	return &CloseSessionResult{Session: closed, Summary: summary}, nil
}

// GetCurrentSession returns the OPEN session with a live order count, or nil
// when no session is open.
func (s *RegisterService) GetCurrentSession(ctx context.Context, restaurantID uuid.UUID) (*CurrentSession, error) {
	session, err := s.store.GetOpenSession(ctx, restaurantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find open session: %w", err)
	}

	count, err := s.store.CountOrdersBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("count session orders: %w", err)
	}

	return &CurrentSession{Session: session, OrderCount: count}, nil
}

// GetSessionSummary returns the session with its orders and summary. A closed
// session reports its frozen totals; the breakdown is always recomputed from
// the orders.
func (s *RegisterService) GetSessionSummary(ctx context.Context, sessionID uuid.UUID) (*SessionDetail, error) {
	session, err := s.store.GetRegisterSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRegisterNotFound
		}
		return nil, fmt.Errorf("get register session: %w", err)
	}

	orders, err := s.store.ListOrdersBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session orders: %w", err)
	}

	summary := summarizeOrders(orders)
	if session.Status == database.RegisterSessionStatusCLOSED {
		if session.TotalOrders.Valid {
			summary.TotalOrders = int(session.TotalOrders.Int32)
		}
		if session.TotalSales.Valid {
			summary.TotalSales = numericToDecimal(session.TotalSales)
		}
	}

	return &SessionDetail{Session: session, Summary: summary, Orders: orders}, nil
}

// summarizeOrders computes totals and the per-payment-method breakdown over
// exactly the given orders.
func summarizeOrders(orders []database.Order) SessionSummary {
	totalSales := decimal.Zero
	breakdown := make(map[string]PaymentTotals)

	for _, order := range orders {
		amount := numericToDecimal(order.TotalAmount)
		totalSales = totalSales.Add(amount)

		method := UnknownPaymentMethod
		if order.PaymentMethod.Valid {
			method = string(order.PaymentMethod.PaymentMethod)
		}
		bucket := breakdown[method]
		bucket.Count++
		bucket.Total = bucket.Total.Add(amount)
		breakdown[method] = bucket
	}

	return SessionSummary{
		TotalOrders:      len(orders),
		TotalSales:       totalSales,
		PaymentBreakdown: breakdown,
	}
}

// isOpenSessionConflict checks for a unique violation on the one-open-session
// partial index (pgconn error code 23505).
func isOpenSessionConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "idx_register_sessions_one_open"
	}
	return false
}
