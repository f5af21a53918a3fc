package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comanda-pos/api/internal/config"
	"github.com/comanda-pos/api/internal/database"
	"github.com/comanda-pos/api/internal/email"
	"github.com/comanda-pos/api/internal/handler"
	mw "github.com/comanda-pos/api/internal/middleware"
	"github.com/comanda-pos/api/internal/service"
	"github.com/comanda-pos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication and restaurant scoping middleware as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Services
	newOrderStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	receipts := service.NewReceiptService(queries)
	mailer := email.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	orderService := service.NewOrderService(pool, newOrderStore, queries, receipts, mailer)
	registerService := service.NewRegisterService(queries)

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// Kiosk routes (public, slug-scoped)
	kioskHandler := handler.NewKioskHandler(queries, orderService, registerService, hub)
	kioskHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/restaurants/{rid}/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Restaurant-scoped routes
		r.Route("/restaurants/{rid}", func(r chi.Router) {
			r.Use(mw.RequireRestaurant)

			// Products
			productHandler := handler.NewProductHandler(queries)
			r.Route("/products", productHandler.RegisterRoutes)

			// Orders
			orderHandler := handler.NewOrderHandler(orderService, registerService, queries, receipts, hub)
			r.Route("/orders", orderHandler.RegisterRoutes)

			// Register sessions
			registerHandler := handler.NewRegisterHandler(registerService)
			r.Route("/register", registerHandler.RegisterRoutes)
		})
	})

	return r
}
