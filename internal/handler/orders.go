package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/comanda-pos/api/internal/database"
	"github.com/comanda-pos/api/internal/service"
	"github.com/comanda-pos/api/internal/ws"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
	FindByRestaurant(ctx context.Context, restaurantID uuid.UUID, status database.NullOrderStatus) ([]database.Order, error)
	FindByID(ctx context.Context, id, restaurantID uuid.UUID) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, id, restaurantID uuid.UUID, target database.OrderStatus) (database.Order, error)
}

// OrderItemsStore loads the item lines for the order detail endpoint.
// Satisfied by *database.Queries.
type OrderItemsStore interface {
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderItemsByOrderRow, error)
}

// ReceiptPrinter sends a receipt to the printer. Satisfied by
// *service.ReceiptService.
type ReceiptPrinter interface {
	PrintReceipt(ctx context.Context, orderID uuid.UUID) (string, error)
}

// Broadcaster pushes order events to connected clients. Satisfied by *ws.Hub.
type Broadcaster interface {
	BroadcastToRestaurant(restaurantID uuid.UUID, event ws.Event)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc       OrderServicer
	registers RegisterServicer
	store     OrderItemsStore
	printer   ReceiptPrinter
	hub       Broadcaster
}

// NewOrderHandler creates a new OrderHandler. printer and hub may be nil.
func NewOrderHandler(svc OrderServicer, registers RegisterServicer, store OrderItemsStore, printer ReceiptPrinter, hub Broadcaster) *OrderHandler {
	return &OrderHandler{
		svc:       svc,
		registers: registers,
		store:     store,
		printer:   printer,
		hub:       hub,
	}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted inside a restaurant-scoped subrouter:
// /restaurants/{rid}/orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Post("/{id}/print", h.Print)
}

// --- Request / Response types ---

type createOrderRequest struct {
	PaymentMethod string                   `json:"payment_method"`
	CustomerEmail string                   `json:"customer_email"`
	Items         []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	ProductID  string `json:"product_id"`
	MenuItemID string `json:"menu_item_id"`
	Quantity   int32  `json:"quantity"`
	Notes      string `json:"notes"`
}

type orderResponse struct {
	ID                uuid.UUID           `json:"id"`
	RestaurantID      uuid.UUID           `json:"restaurant_id"`
	RegisterSessionID uuid.UUID           `json:"register_session_id"`
	OrderNumber       int32               `json:"order_number"`
	TotalAmount       string              `json:"total_amount"`
	Status            string              `json:"status"`
	PaymentMethod     *string             `json:"payment_method"`
	CustomerEmail     *string             `json:"customer_email"`
	CreatedAt         time.Time           `json:"created_at"`
	Items             []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name,omitempty"`
	MenuItemID  *string   `json:"menu_item_id"`
	Quantity    int32     `json:"quantity"`
	UnitPrice   string    `json:"unit_price"`
	Subtotal    string    `json:"subtotal"`
	Notes       *string   `json:"notes"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type statusEventPayload struct {
	ID          uuid.UUID `json:"id"`
	OrderNumber int32     `json:"order_number"`
	Status      string    `json:"status"`
}

// --- Handlers ---

// Create handles POST /restaurants/{rid}/orders. The register session is
// resolved from the restaurant's currently OPEN session.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}
	for i, item := range req.Items {
		if item.ProductID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": formatItemError(i, "product_id is required"),
			})
			return
		}
		if item.Quantity <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": formatItemError(i, "quantity must be > 0"),
			})
			return
		}
	}

	current, err := h.registers.GetCurrentSession(r.Context(), restaurantID)
	if err != nil {
		log.Printf("ERROR: get current session: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if current == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": service.ErrRegisterNotOpen.Error()})
		return
	}

	svcItems := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		svcItems[i] = service.CreateOrderItemRequest{
			ProductID:  item.ProductID,
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
			Notes:      item.Notes,
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		RestaurantID:      restaurantID,
		RegisterSessionID: current.Session.ID,
		PaymentMethod:     req.PaymentMethod,
		CustomerEmail:     req.CustomerEmail,
		Items:             svcItems,
	})
	if err != nil {
		writeServiceError(w, "create order", err)
		return
	}

	resp := toOrderResponse(result)
	h.broadcast(restaurantID, ws.EventOrderCreated, resp)
	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /restaurants/{rid}/orders with an optional ?status filter.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	status := database.NullOrderStatus{}
	if s := r.URL.Query().Get("status"); s != "" {
		if !service.IsValidOrderStatus(database.OrderStatus(s)) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status filter"})
			return
		}
		status = database.NullOrderStatus{OrderStatus: database.OrderStatus(s), Valid: true}
	}

	orders, err := h.svc.FindByRestaurant(r.Context(), restaurantID, status)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}

	writeJSON(w, http.StatusOK, orderListResponse{Orders: resp})
}

// Get handles GET /restaurants/{rid}/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.svc.FindByID(r.Context(), orderID, restaurantID)
	if err != nil {
		writeServiceError(w, "get order", err)
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := dbOrderToResponse(order)
	resp.Items = make([]orderItemResponse, len(items))
	for i, item := range items {
		resp.Items[i] = itemRowToResponse(item)
	}

	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus handles PATCH /restaurants/{rid}/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	target := database.OrderStatus(req.Status)
	if !service.IsValidOrderStatus(target) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	updated, err := h.svc.UpdateOrderStatus(r.Context(), orderID, restaurantID, target)
	if err != nil {
		writeServiceError(w, "update order status", err)
		return
	}

	h.broadcast(restaurantID, ws.EventOrderStatusUpdated, statusEventPayload{
		ID:          updated.ID,
		OrderNumber: updated.OrderNumber,
		Status:      string(updated.Status),
	})
	writeJSON(w, http.StatusOK, dbOrderToResponse(updated))
}

// Print handles POST /restaurants/{rid}/orders/{id}/print.
func (h *OrderHandler) Print(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	// Ownership check before touching the printer.
	if _, err := h.svc.FindByID(r.Context(), orderID, restaurantID); err != nil {
		writeServiceError(w, "get order for print", err)
		return
	}

	if h.printer == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "printing is not configured"})
		return
	}

	msg, err := h.printer.PrintReceipt(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, "print receipt", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// --- Helpers ---

func (h *OrderHandler) broadcast(restaurantID uuid.UUID, eventType string, order interface{}) {
	if h.hub == nil {
		return
	}
	h.hub.BroadcastToRestaurant(restaurantID, ws.Event{Type: eventType, Order: order})
}

func formatItemError(idx int, msg string) string {
	return "items[" + strconv.Itoa(idx) + "]: " + msg
}

// isValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidProductID) ||
		errors.Is(err, service.ErrInvalidMenuItemID) ||
		errors.Is(err, service.ErrInvalidPaymentMethod)
}

// writeServiceError maps known service errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var stockErr *service.StockInsufficientError
	var transitionErr *service.InvalidStatusTransitionError
	switch {
	case isValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.As(err, &transitionErr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.As(err, &stockErr):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrRegisterNotOpen),
		errors.Is(err, service.ErrRegisterAlreadyOpen),
		errors.Is(err, service.ErrNoOpenRegister),
		errors.Is(err, service.ErrStatusConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrRegisterNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrForbiddenAccess):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func toOrderResponse(result *service.CreateOrderResult) orderResponse {
	resp := dbOrderToResponse(result.Order)
	resp.Items = make([]orderItemResponse, len(result.Items))
	for i, item := range result.Items {
		resp.Items[i] = dbOrderItemToResponse(item)
	}
	return resp
}

func dbOrderToResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:                o.ID,
		RestaurantID:      o.RestaurantID,
		RegisterSessionID: o.RegisterSessionID,
		OrderNumber:       o.OrderNumber,
		TotalAmount:       numericToString(o.TotalAmount),
		Status:            string(o.Status),
		CreatedAt:         o.CreatedAt,
	}
	if o.PaymentMethod.Valid {
		s := string(o.PaymentMethod.PaymentMethod)
		resp.PaymentMethod = &s
	}
	if o.CustomerEmail.Valid {
		resp.CustomerEmail = &o.CustomerEmail.String
	}
	return resp
}

func dbOrderItemToResponse(item database.OrderItem) orderItemResponse {
	resp := orderItemResponse{
		ID:        item.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		UnitPrice: numericToString(item.UnitPrice),
		Subtotal:  numericToString(item.Subtotal),
	}
	if item.MenuItemID.Valid {
		s := uuid.UUID(item.MenuItemID.Bytes).String()
		resp.MenuItemID = &s
	}
	if item.Notes.Valid {
		resp.Notes = &item.Notes.String
	}
	return resp
}

func itemRowToResponse(row database.ListOrderItemsByOrderRow) orderItemResponse {
	resp := orderItemResponse{
		ID:          row.ID,
		ProductID:   row.ProductID,
		ProductName: row.ProductName,
		Quantity:    row.Quantity,
		UnitPrice:   numericToString(row.UnitPrice),
		Subtotal:    numericToString(row.Subtotal),
	}
	if row.MenuItemID.Valid {
		s := uuid.UUID(row.MenuItemID.Bytes).String()
		resp.MenuItemID = &s
	}
	if row.Notes.Valid {
		resp.Notes = &row.Notes.String
	}
	return resp
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}
