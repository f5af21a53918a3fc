package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/comanda-pos/api/internal/database"
	"github.com/comanda-pos/api/internal/service"
	"github.com/comanda-pos/api/internal/ws"
)

// Stock status labels shown on the kiosk menu.
const (
	stockStatusAvailable = "available"
	stockStatusLow       = "low_stock"
	stockStatusOut       = "out_of_stock"
	lowStockThreshold    = 3
)

// KioskStore defines the database methods needed by kiosk handlers.
// Satisfied by *database.Queries.
type KioskStore interface {
	GetRestaurantBySlug(ctx context.Context, slug string) (database.Restaurant, error)
	ListMenusByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]database.Menu, error)
	GetMenu(ctx context.Context, id uuid.UUID) (database.Menu, error)
	ListMenuItemsWithProduct(ctx context.Context, menuID uuid.UUID) ([]database.ListMenuItemsWithProductRow, error)
}

// KioskHandler handles the public self-service ordering endpoints. Requests
// are scoped by restaurant slug instead of JWT claims.
type KioskHandler struct {
	store     KioskStore
	orders    OrderServicer
	registers RegisterServicer
	hub       Broadcaster
}

// NewKioskHandler creates a new KioskHandler. hub may be nil.
func NewKioskHandler(store KioskStore, orders OrderServicer, registers RegisterServicer, hub Broadcaster) *KioskHandler {
	return &KioskHandler{
		store:     store,
		orders:    orders,
		registers: registers,
		hub:       hub,
	}
}

// RegisterRoutes registers kiosk endpoints on the given Chi router.
func (h *KioskHandler) RegisterRoutes(r chi.Router) {
	r.Get("/kiosk/{slug}", h.GetRestaurant)
	r.Get("/kiosk/{slug}/menus", h.ListMenus)
	r.Get("/kiosk/{slug}/menus/{menuID}/items", h.ListMenuItems)
	r.Post("/kiosk/{slug}/orders", h.CreateOrder)
}

// --- Response types ---

type kioskRestaurantResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

type kioskMenuResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	DaysOfWeek *string   `json:"days_of_week"`
	StartTime  *string   `json:"start_time"`
	EndTime    *string   `json:"end_time"`
}

type kioskMenuItemResponse struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Price       string    `json:"price"`
	ImageURL    *string   `json:"image_url"`
	StockStatus string    `json:"stock_status"`
}

type kioskMenuSectionResponse struct {
	Section string                  `json:"section"`
	Items   []kioskMenuItemResponse `json:"items"`
}

// --- Handlers ---

// GetRestaurant handles GET /kiosk/{slug}.
func (h *KioskHandler) GetRestaurant(w http.ResponseWriter, r *http.Request) {
	restaurant, ok := h.loadRestaurant(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, kioskRestaurantResponse{
		ID:   restaurant.ID,
		Name: restaurant.Name,
		Slug: restaurant.Slug,
	})
}

// ListMenus handles GET /kiosk/{slug}/menus. Only active menus whose
// day/time window contains the current moment are shown.
func (h *KioskHandler) ListMenus(w http.ResponseWriter, r *http.Request) {
	restaurant, ok := h.loadRestaurant(w, r)
	if !ok {
		return
	}

	menus, err := h.store.ListMenusByRestaurant(r.Context(), restaurant.ID)
	if err != nil {
		log.Printf("ERROR: list menus: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	now := time.Now()
	resp := make([]kioskMenuResponse, 0, len(menus))
	for _, m := range menus {
		if !m.Active || !menuAvailableAt(m, now) {
			continue
		}
		item := kioskMenuResponse{ID: m.ID, Name: m.Name}
		if m.DaysOfWeek.Valid {
			item.DaysOfWeek = &m.DaysOfWeek.String
		}
		if m.StartTime.Valid {
			item.StartTime = &m.StartTime.String
		}
		if m.EndTime.Valid {
			item.EndTime = &m.EndTime.String
		}
		resp = append(resp, item)
	}

	writeJSON(w, http.StatusOK, map[string][]kioskMenuResponse{"menus": resp})
}

// ListMenuItems handles GET /kiosk/{slug}/menus/{menuID}/items.
// Items come back grouped by section, in display order.
func (h *KioskHandler) ListMenuItems(w http.ResponseWriter, r *http.Request) {
	restaurant, ok := h.loadRestaurant(w, r)
	if !ok {
		return
	}

	menuID, err := uuid.Parse(chi.URLParam(r, "menuID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu ID"})
		return
	}

	menu, err := h.store.GetMenu(r.Context(), menuID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu not found"})
			return
		}
		log.Printf("ERROR: get menu: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if menu.RestaurantID != restaurant.ID || !menu.Active {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu not found"})
		return
	}

	rows, err := h.store.ListMenuItemsWithProduct(r.Context(), menuID)
	if err != nil {
		log.Printf("ERROR: list menu items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	// Rows arrive ordered by section then display order; group preserving
	// first-seen section order.
	var sections []kioskMenuSectionResponse
	index := map[string]int{}
	for _, row := range rows {
		section := "General"
		if row.SectionName.Valid && row.SectionName.String != "" {
			section = row.SectionName.String
		}
		i, seen := index[section]
		if !seen {
			i = len(sections)
			index[section] = i
			sections = append(sections, kioskMenuSectionResponse{Section: section})
		}
		sections[i].Items = append(sections[i].Items, menuItemRowToResponse(row))
	}
	if sections == nil {
		sections = []kioskMenuSectionResponse{}
	}

	writeJSON(w, http.StatusOK, map[string][]kioskMenuSectionResponse{"sections": sections})
}

// CreateOrder handles POST /kiosk/{slug}/orders. The order lands in the
// restaurant's currently OPEN register session; ordering is rejected while
// the register is closed.
func (h *KioskHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	restaurant, ok := h.loadRestaurant(w, r)
	if !ok {
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

	current, err := h.registers.GetCurrentSession(r.Context(), restaurant.ID)
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

	result, err := h.orders.CreateOrder(r.Context(), service.CreateOrderRequest{
		RestaurantID:      restaurant.ID,
		RegisterSessionID: current.Session.ID,
		PaymentMethod:     req.PaymentMethod,
		CustomerEmail:     req.CustomerEmail,
		Items:             svcItems,
	})
	if err != nil {
		writeServiceError(w, "kiosk create order", err)
		return
	}

	resp := toOrderResponse(result)
	if h.hub != nil {
		h.hub.BroadcastToRestaurant(restaurant.ID, ws.Event{Type: ws.EventOrderCreated, Order: resp})
	}
	writeJSON(w, http.StatusCreated, resp)
}

// --- Helpers ---

var kioskDayAbbrevs = [...]string{"SUN", "MON", "TUE", "WED", "THU", "FRI", "SAT"}

// menuAvailableAt reports whether the menu's day/time window contains now.
// DaysOfWeek is a comma-separated list of SUN..SAT abbreviations; start and
// end times are zero-padded HH:MM strings compared lexicographically. Empty
// or NULL fields leave that part of the window unbounded.
func menuAvailableAt(m database.Menu, now time.Time) bool {
	if m.DaysOfWeek.Valid && m.DaysOfWeek.String != "" {
		day := kioskDayAbbrevs[now.Weekday()]
		allowed := false
		for _, d := range strings.Split(m.DaysOfWeek.String, ",") {
			if strings.TrimSpace(d) == day {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	current := now.Format("15:04")
	if m.StartTime.Valid && m.StartTime.String != "" && current < m.StartTime.String {
		return false
	}
	if m.EndTime.Valid && m.EndTime.String != "" && current > m.EndTime.String {
		return false
	}
	return true
}

func (h *KioskHandler) loadRestaurant(w http.ResponseWriter, r *http.Request) (database.Restaurant, bool) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing restaurant slug"})
		return database.Restaurant{}, false
	}

	restaurant, err := h.store.GetRestaurantBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "restaurant not found"})
			return database.Restaurant{}, false
		}
		log.Printf("ERROR: get restaurant by slug: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return database.Restaurant{}, false
	}

	return restaurant, true
}

func menuItemRowToResponse(row database.ListMenuItemsWithProductRow) kioskMenuItemResponse {
	resp := kioskMenuItemResponse{
		ID:        row.ID,
		ProductID: row.ProductID,
		Name:      row.ProductName,
	}
	if row.ProductDescription.Valid {
		resp.Description = &row.ProductDescription.String
	}
	if row.ProductImageUrl.Valid {
		resp.ImageURL = &row.ProductImageUrl.String
	}

	// Menu price overrides the product price when set.
	if row.Price.Valid {
		resp.Price = numericToString(row.Price)
	} else {
		resp.Price = numericToString(row.ProductPrice)
	}

	// Stock status follows the effective counter: the menu-item counter when
	// present, the product counter otherwise.
	effective := row.ProductStock
	if row.Stock.Valid {
		effective = row.Stock.Int32
	}
	switch {
	case effective <= 0:
		resp.StockStatus = stockStatusOut
	case effective <= lowStockThreshold:
		resp.StockStatus = stockStatusLow
	default:
		resp.StockStatus = stockStatusAvailable
	}

	return resp
}

