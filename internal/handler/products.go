package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/comanda-pos/api/internal/database"
)

// ProductStore defines the database methods needed by product handlers.
// Satisfied by *database.Queries.
type ProductStore interface {
	ListProductsByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]database.Product, error)
}

// ProductHandler handles product read endpoints.
type ProductHandler struct {
	store ProductStore
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(store ProductStore) *ProductHandler {
	return &ProductHandler{store: store}
}

// RegisterRoutes registers product endpoints on the given Chi router.
// Expected to be mounted inside a restaurant-scoped subrouter:
// /restaurants/{rid}/products
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
}

type productResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Price       string    `json:"price"`
	Stock       int32     `json:"stock"`
	ImageURL    *string   `json:"image_url"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// List handles GET /restaurants/{rid}/products.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	products, err := h.store.ListProductsByRestaurant(r.Context(), restaurantID)
	if err != nil {
		log.Printf("ERROR: list products: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = productResponse{
			ID:        p.ID,
			Name:      p.Name,
			Price:     numericToString(p.Price),
			Stock:     p.Stock,
			Active:    p.Active,
			CreatedAt: p.CreatedAt,
		}
		if p.Description.Valid {
			resp[i].Description = &p.Description.String
		}
		if p.ImageUrl.Valid {
			resp[i].ImageURL = &p.ImageUrl.String
		}
	}

	writeJSON(w, http.StatusOK, map[string][]productResponse{"products": resp})
}
