package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/comanda-pos/api/internal/database"
	"github.com/comanda-pos/api/internal/middleware"
	"github.com/comanda-pos/api/internal/service"
)

// RegisterServicer defines the service methods needed by register handlers.
// Satisfied by *service.RegisterService; narrow interface for testability.
type RegisterServicer interface {
	OpenSession(ctx context.Context, restaurantID uuid.UUID) (database.RegisterSession, error)
	CloseSession(ctx context.Context, restaurantID uuid.UUID, closedBy string) (*service.CloseSessionResult, error)
	GetCurrentSession(ctx context.Context, restaurantID uuid.UUID) (*service.CurrentSession, error)
	GetSessionSummary(ctx context.Context, sessionID uuid.UUID) (*service.SessionDetail, error)
}

// RegisterHandler handles register session endpoints.
type RegisterHandler struct {
	svc RegisterServicer
}

// NewRegisterHandler creates a new RegisterHandler.
func NewRegisterHandler(svc RegisterServicer) *RegisterHandler {
	return &RegisterHandler{svc: svc}
}

// RegisterRoutes registers register session endpoints on the given Chi router.
// Expected to be mounted inside a restaurant-scoped subrouter:
// /restaurants/{rid}/register
func (h *RegisterHandler) RegisterRoutes(r chi.Router) {
	r.Post("/open", h.Open)
	r.Post("/close", h.Close)
	r.Get("/current", h.Current)
	r.Get("/sessions/{sid}/summary", h.Summary)
}

// --- Response types ---

type sessionResponse struct {
	ID              uuid.UUID  `json:"id"`
	RestaurantID    uuid.UUID  `json:"restaurant_id"`
	Status          string     `json:"status"`
	LastOrderNumber int32      `json:"last_order_number"`
	OpenedAt        time.Time  `json:"opened_at"`
	ClosedAt        *time.Time `json:"closed_at"`
	ClosedBy        *string    `json:"closed_by"`
}

type paymentTotalsResponse struct {
	Count int    `json:"count"`
	Total string `json:"total"`
}

type summaryResponse struct {
	TotalOrders      int                              `json:"total_orders"`
	TotalSales       string                           `json:"total_sales"`
	PaymentBreakdown map[string]paymentTotalsResponse `json:"payment_breakdown"`
}

type closeSessionResponse struct {
	Session sessionResponse `json:"session"`
	Summary summaryResponse `json:"summary"`
}

type currentSessionResponse struct {
	Session    *sessionResponse `json:"session"`
	OrderCount int64            `json:"order_count"`
}

type sessionDetailResponse struct {
	Session sessionResponse `json:"session"`
	Summary summaryResponse `json:"summary"`
	Orders  []orderResponse `json:"orders"`
}

// --- Handlers ---

// Open handles POST /restaurants/{rid}/register/open.
func (h *RegisterHandler) Open(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	session, err := h.svc.OpenSession(r.Context(), restaurantID)
	if err != nil {
		writeServiceError(w, "open register session", err)
		return
	}

	writeJSON(w, http.StatusCreated, toSessionResponse(session))
}

// Close handles POST /restaurants/{rid}/register/close.
func (h *RegisterHandler) Close(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	closedBy := ""
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		closedBy = claims.UserID.String()
	}

	result, err := h.svc.CloseSession(r.Context(), restaurantID, closedBy)
	if err != nil {
		writeServiceError(w, "close register session", err)
		return
	}

	writeJSON(w, http.StatusOK, closeSessionResponse{
		Session: toSessionResponse(result.Session),
		Summary: toSummaryResponse(result.Summary),
	})
}

// Current handles GET /restaurants/{rid}/register/current.
// Responds with a null session when no register is open.
func (h *RegisterHandler) Current(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	current, err := h.svc.GetCurrentSession(r.Context(), restaurantID)
	if err != nil {
		writeServiceError(w, "get current session", err)
		return
	}

	if current == nil {
		writeJSON(w, http.StatusOK, currentSessionResponse{Session: nil, OrderCount: 0})
		return
	}

	resp := toSessionResponse(current.Session)
	writeJSON(w, http.StatusOK, currentSessionResponse{
		Session:    &resp,
		OrderCount: current.OrderCount,
	})
}

// Summary handles GET /restaurants/{rid}/register/sessions/{sid}/summary.
func (h *RegisterHandler) Summary(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	sessionID, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session ID"})
		return
	}

	detail, err := h.svc.GetSessionSummary(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, "get session summary", err)
		return
	}

	if detail.Session.RestaurantID != restaurantID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": service.ErrForbiddenAccess.Error()})
		return
	}

	orders := make([]orderResponse, len(detail.Orders))
	for i, o := range detail.Orders {
		orders[i] = dbOrderToResponse(o)
	}

	writeJSON(w, http.StatusOK, sessionDetailResponse{
		Session: toSessionResponse(detail.Session),
		Summary: toSummaryResponse(detail.Summary),
		Orders:  orders,
	})
}

// --- Helpers ---

func toSessionResponse(s database.RegisterSession) sessionResponse {
	resp := sessionResponse{
		ID:              s.ID,
		RestaurantID:    s.RestaurantID,
		Status:          string(s.Status),
		LastOrderNumber: s.LastOrderNumber,
		OpenedAt:        s.OpenedAt,
	}
	if s.ClosedAt.Valid {
		resp.ClosedAt = &s.ClosedAt.Time
	}
	if s.ClosedBy.Valid {
		resp.ClosedBy = &s.ClosedBy.String
	}
	return resp
}

func toSummaryResponse(s service.SessionSummary) summaryResponse {
	breakdown := make(map[string]paymentTotalsResponse, len(s.PaymentBreakdown))
	for method, totals := range s.PaymentBreakdown {
		breakdown[method] = paymentTotalsResponse{
			Count: totals.Count,
			Total: totals.Total.StringFixed(2),
		}
	}
	return summaryResponse{
		TotalOrders:      s.TotalOrders,
		TotalSales:       s.TotalSales.StringFixed(2),
		PaymentBreakdown: breakdown,
	}
}
