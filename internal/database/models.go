package database

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type OrderStatus string

const (
	OrderStatusCREATED    OrderStatus = "CREATED"
	OrderStatusPROCESSING OrderStatus = "PROCESSING"
	OrderStatusPAID       OrderStatus = "PAID"
	OrderStatusCOMPLETED  OrderStatus = "COMPLETED"
)

func (e *OrderStatus) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = OrderStatus(s)
	case string:
		*e = OrderStatus(s)
	default:
		return fmt.Errorf("unsupported scan type for OrderStatus: %T", src)
	}
	return nil
}

type NullOrderStatus struct {
	OrderStatus OrderStatus
	Valid       bool
}

func (ns *NullOrderStatus) Scan(value interface{}) error {
	if value == nil {
		ns.OrderStatus, ns.Valid = "", false
		return nil
	}
	ns.Valid = true
	return ns.OrderStatus.Scan(value)
}

func (ns NullOrderStatus) Value() (driver.Value, error) {
	if !ns.Valid {
		return nil, nil
	}
	return string(ns.OrderStatus), nil
}

type RegisterSessionStatus string

const (
	RegisterSessionStatusOPEN   RegisterSessionStatus = "OPEN"
	RegisterSessionStatusCLOSED RegisterSessionStatus = "CLOSED"
)

func (e *RegisterSessionStatus) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = RegisterSessionStatus(s)
	case string:
		*e = RegisterSessionStatus(s)
	default:
		return fmt.Errorf("unsupported scan type for RegisterSessionStatus: %T", src)
	}
	return nil
}

type PaymentMethod string

const (
	PaymentMethodCASH     PaymentMethod = "CASH"
	PaymentMethodCARD     PaymentMethod = "CARD"
	PaymentMethodTRANSFER PaymentMethod = "TRANSFER"
)

func (e *PaymentMethod) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = PaymentMethod(s)
	case string:
		*e = PaymentMethod(s)
	default:
		return fmt.Errorf("unsupported scan type for PaymentMethod: %T", src)
	}
	return nil
}

type NullPaymentMethod struct {
	PaymentMethod PaymentMethod
	Valid         bool
}

func (ns *NullPaymentMethod) Scan(value interface{}) error {
	if value == nil {
		ns.PaymentMethod, ns.Valid = "", false
		return nil
	}
	ns.Valid = true
	return ns.PaymentMethod.Scan(value)
}

func (ns NullPaymentMethod) Value() (driver.Value, error) {
	if !ns.Valid {
		return nil, nil
	}
	return string(ns.PaymentMethod), nil
}

type Restaurant struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	Email     pgtype.Text
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type User struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Email        string
	PasswordHash string
	FullName     string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
}

type Product struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Name         string
	Description  pgtype.Text
	Price        pgtype.Numeric
	Stock        int32
	ImageUrl     pgtype.Text
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Menu struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Name         string
	Active       bool
	DaysOfWeek   pgtype.Text
	StartTime    pgtype.Text
	EndTime      pgtype.Text
	CreatedAt    time.Time
}

// MenuItem is a per-menu view of a product. Price overrides the product price
// when set; Stock is an independent counter when set (NULL defers to the
// product's stock).
type MenuItem struct {
	ID           uuid.UUID
	MenuID       uuid.UUID
	ProductID    uuid.UUID
	Price        pgtype.Numeric
	Stock        pgtype.Int4
	SectionName  pgtype.Text
	DisplayOrder int32
}

type Order struct {
	ID                uuid.UUID
	RestaurantID      uuid.UUID
	RegisterSessionID uuid.UUID
	OrderNumber       int32
	TotalAmount       pgtype.Numeric
	Status            OrderStatus
	PaymentMethod     NullPaymentMethod
	CustomerEmail     pgtype.Text
	CreatedAt         time.Time
}

type OrderItem struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	ProductID  uuid.UUID
	MenuItemID pgtype.UUID
	Quantity   int32
	UnitPrice  pgtype.Numeric
	Subtotal   pgtype.Numeric
	Notes      pgtype.Text
}

type RegisterSession struct {
	ID              uuid.UUID
	RestaurantID    uuid.UUID
	Status          RegisterSessionStatus
	LastOrderNumber int32
	OpenedAt        time.Time
	ClosedAt        pgtype.Timestamptz
	ClosedBy        pgtype.Text
	TotalSales      pgtype.Numeric
	TotalOrders     pgtype.Int4
}
