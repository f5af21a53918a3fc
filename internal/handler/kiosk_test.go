package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/comanda-pos/api/internal/database"
	"github.com/comanda-pos/api/internal/handler"
	"github.com/comanda-pos/api/internal/service"
)

// mockKioskStore implements handler.KioskStore.
type mockKioskStore struct {
	getRestaurantBySlugFn      func(ctx context.Context, slug string) (database.Restaurant, error)
	listMenusByRestaurantFn    func(ctx context.Context, restaurantID uuid.UUID) ([]database.Menu, error)
	getMenuFn                  func(ctx context.Context, id uuid.UUID) (database.Menu, error)
	listMenuItemsWithProductFn func(ctx context.Context, menuID uuid.UUID) ([]database.ListMenuItemsWithProductRow, error)
}

func (m *mockKioskStore) GetRestaurantBySlug(ctx context.Context, slug string) (database.Restaurant, error) {
	if m.getRestaurantBySlugFn != nil {
		return m.getRestaurantBySlugFn(ctx, slug)
	}
	return database.Restaurant{}, pgx.ErrNoRows
}

func (m *mockKioskStore) ListMenusByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]database.Menu, error) {
	if m.listMenusByRestaurantFn != nil {
		return m.listMenusByRestaurantFn(ctx, restaurantID)
	}
	return []database.Menu{}, nil
}

func (m *mockKioskStore) GetMenu(ctx context.Context, id uuid.UUID) (database.Menu, error) {
	if m.getMenuFn != nil {
		return m.getMenuFn(ctx, id)
	}
	return database.Menu{}, pgx.ErrNoRows
}

func (m *mockKioskStore) ListMenuItemsWithProduct(ctx context.Context, menuID uuid.UUID) ([]database.ListMenuItemsWithProductRow, error) {
	if m.listMenuItemsWithProductFn != nil {
		return m.listMenuItemsWithProductFn(ctx, menuID)
	}
	return []database.ListMenuItemsWithProductRow{}, nil
}

func kioskRestaurant(slug string) database.Restaurant {
	return database.Restaurant{
		ID:     uuid.New(),
		Name:   "Demo Bistro",
		Slug:   slug,
		Active: true,
	}
}

func slugStore(restaurant database.Restaurant) *mockKioskStore {
	return &mockKioskStore{
		getRestaurantBySlugFn: func(ctx context.Context, slug string) (database.Restaurant, error) {
			if slug != restaurant.Slug {
				return database.Restaurant{}, pgx.ErrNoRows
			}
			return restaurant, nil
		},
	}
}

func setupKioskRouter(store *mockKioskStore, orders *mockOrderService, registers *mockRegisterService, hub *mockHub) *chi.Mux {
	if orders == nil {
		orders = &mockOrderService{}
	}
	if registers == nil {
		registers = &mockRegisterService{}
	}
	var broadcaster handler.Broadcaster
	if hub != nil {
		broadcaster = hub
	}
	h := handler.NewKioskHandler(store, orders, registers, broadcaster)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func doKioskRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestKioskGetRestaurant(t *testing.T) {
	restaurant := kioskRestaurant("demo-bistro")
	router := setupKioskRouter(slugStore(restaurant), nil, nil, nil)

	rr := doKioskRequest(t, router, "GET", "/kiosk/demo-bistro", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeBody(t, rr)
	if resp["name"] != "Demo Bistro" {
		t.Errorf("name: got %v, want Demo Bistro", resp["name"])
	}
	if resp["slug"] != "demo-bistro" {
		t.Errorf("slug: got %v, want demo-bistro", resp["slug"])
	}
}

func TestKioskGetRestaurant_UnknownSlug(t *testing.T) {
	router := setupKioskRouter(&mockKioskStore{}, nil, nil, nil)

	rr := doKioskRequest(t, router, "GET", "/kiosk/no-such-place", nil)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusNotFound, rr.Body.String())
	}
}

func TestKioskListMenus_FiltersInactive(t *testing.T) {
	restaurant := kioskRestaurant("demo-bistro")
	store := slugStore(restaurant)
	store.listMenusByRestaurantFn = func(ctx context.Context, rid uuid.UUID) ([]database.Menu, error) {
		return []database.Menu{
			{
				ID:           uuid.New(),
				RestaurantID: rid,
				Name:         "All Day",
				Active:       true,
				DaysOfWeek:   pgtype.Text{String: "SUN,MON,TUE,WED,THU,FRI,SAT", Valid: true},
				StartTime:    pgtype.Text{String: "00:00", Valid: true},
				EndTime:      pgtype.Text{String: "23:59", Valid: true},
			},
			{
				ID:           uuid.New(),
				RestaurantID: rid,
				Name:         "Old Winter Menu",
				Active:       false,
			},
		}, nil
	}
	router := setupKioskRouter(store, nil, nil, nil)

	rr := doKioskRequest(t, router, "GET", "/kiosk/demo-bistro/menus", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeBody(t, rr)
	menus, ok := resp["menus"].([]interface{})
	if !ok || len(menus) != 1 {
		t.Fatalf("menus: got %v, want only the active one", resp["menus"])
	}
	menu := menus[0].(map[string]interface{})
	if menu["name"] != "All Day" {
		t.Errorf("menu name: got %v, want All Day", menu["name"])
	}
	if menu["days_of_week"] != "SUN,MON,TUE,WED,THU,FRI,SAT" {
		t.Errorf("days_of_week: got %v", menu["days_of_week"])
	}
}

func TestKioskListMenus_FiltersOutsideWindow(t *testing.T) {
	restaurant := kioskRestaurant("demo-bistro")

	// A menu scheduled only for tomorrow is never available today.
	days := []string{"SUN", "MON", "TUE", "WED", "THU", "FRI", "SAT"}
	tomorrow := days[(int(time.Now().Weekday())+1)%7]

	store := slugStore(restaurant)
	store.listMenusByRestaurantFn = func(ctx context.Context, rid uuid.UUID) ([]database.Menu, error) {
		return []database.Menu{
			{
				ID:           uuid.New(),
				RestaurantID: rid,
				Name:         "Tomorrow Special",
				Active:       true,
				DaysOfWeek:   pgtype.Text{String: tomorrow, Valid: true},
			},
			{
				ID:           uuid.New(),
				RestaurantID: rid,
				Name:         "Always On",
				Active:       true,
			},
		}, nil
	}
	router := setupKioskRouter(store, nil, nil, nil)

	rr := doKioskRequest(t, router, "GET", "/kiosk/demo-bistro/menus", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeBody(t, rr)
	menus, ok := resp["menus"].([]interface{})
	if !ok || len(menus) != 1 {
		t.Fatalf("menus: got %v, want only the unwindowed one", resp["menus"])
	}
	if menus[0].(map[string]interface{})["name"] != "Always On" {
		t.Errorf("menu name: got %v, want Always On", menus[0].(map[string]interface{})["name"])
	}
}

func TestKioskListMenuItems_SectionsAndStock(t *testing.T) {
	restaurant := kioskRestaurant("demo-bistro")
	menuID := uuid.New()
	store := slugStore(restaurant)
	store.getMenuFn = func(ctx context.Context, id uuid.UUID) (database.Menu, error) {
		return database.Menu{ID: menuID, RestaurantID: restaurant.ID, Name: "Lunch", Active: true}, nil
	}
	store.listMenuItemsWithProductFn = func(ctx context.Context, id uuid.UUID) ([]database.ListMenuItemsWithProductRow, error) {
		return []database.ListMenuItemsWithProductRow{
			{
				ID:           uuid.New(),
				MenuID:       menuID,
				ProductID:    uuid.New(),
				SectionName:  pgtype.Text{String: "Mains", Valid: true},
				ProductName:  "Margherita",
				ProductPrice: testNumeric("5.00"),
				ProductStock: 10,
			},
			{
				ID:          uuid.New(),
				MenuID:      menuID,
				ProductID:   uuid.New(),
				SectionName: pgtype.Text{String: "Mains", Valid: true},
				// Menu price override and a low menu-level counter.
				Price:        testNumeric("8.00"),
				Stock:        pgtype.Int4{Int32: 2, Valid: true},
				ProductName:  "Lasagna",
				ProductPrice: testNumeric("9.50"),
				ProductStock: 50,
			},
			{
				ID:           uuid.New(),
				MenuID:       menuID,
				ProductID:    uuid.New(),
				SectionName:  pgtype.Text{String: "Drinks", Valid: true},
				ProductName:  "Lemonade",
				ProductPrice: testNumeric("2.50"),
				ProductStock: 0,
			},
		}, nil
	}
	router := setupKioskRouter(store, nil, nil, nil)

	rr := doKioskRequest(t, router, "GET", "/kiosk/demo-bistro/menus/"+menuID.String()+"/items", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeBody(t, rr)
	sections, ok := resp["sections"].([]interface{})
	if !ok || len(sections) != 2 {
		t.Fatalf("sections: got %v, want 2", resp["sections"])
	}

	mains := sections[0].(map[string]interface{})
	if mains["section"] != "Mains" {
		t.Errorf("first section: got %v, want Mains", mains["section"])
	}
	mainsItems := mains["items"].([]interface{})
	if len(mainsItems) != 2 {
		t.Fatalf("Mains items: got %d, want 2", len(mainsItems))
	}

	margherita := mainsItems[0].(map[string]interface{})
	if margherita["price"] != "5.00" {
		t.Errorf("margherita price: got %v, want the product price 5.00", margherita["price"])
	}
	if margherita["stock_status"] != "available" {
		t.Errorf("margherita stock_status: got %v, want available", margherita["stock_status"])
	}

	lasagna := mainsItems[1].(map[string]interface{})
	if lasagna["price"] != "8.00" {
		t.Errorf("lasagna price: got %v, want the menu override 8.00", lasagna["price"])
	}
	if lasagna["stock_status"] != "low_stock" {
		t.Errorf("lasagna stock_status: got %v, want low_stock from the menu counter", lasagna["stock_status"])
	}

	drinks := sections[1].(map[string]interface{})
	lemonade := drinks["items"].([]interface{})[0].(map[string]interface{})
	if lemonade["stock_status"] != "out_of_stock" {
		t.Errorf("lemonade stock_status: got %v, want out_of_stock", lemonade["stock_status"])
	}
}

func TestKioskListMenuItems_NullSectionGroupsAsGeneral(t *testing.T) {
	restaurant := kioskRestaurant("demo-bistro")
	menuID := uuid.New()
	store := slugStore(restaurant)
	store.getMenuFn = func(ctx context.Context, id uuid.UUID) (database.Menu, error) {
		return database.Menu{ID: menuID, RestaurantID: restaurant.ID, Name: "Lunch", Active: true}, nil
	}
	store.listMenuItemsWithProductFn = func(ctx context.Context, id uuid.UUID) ([]database.ListMenuItemsWithProductRow, error) {
		return []database.ListMenuItemsWithProductRow{
			{
				ID:           uuid.New(),
				MenuID:       menuID,
				ProductID:    uuid.New(),
				ProductName:  "House Salad",
				ProductPrice: testNumeric("4.50"),
				ProductStock: 8,
			},
		}, nil
	}
	router := setupKioskRouter(store, nil, nil, nil)

	rr := doKioskRequest(t, router, "GET", "/kiosk/demo-bistro/menus/"+menuID.String()+"/items", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeBody(t, rr)
	sections := resp["sections"].([]interface{})
	if len(sections) != 1 {
		t.Fatalf("sections: got %d, want 1", len(sections))
	}
	if sections[0].(map[string]interface{})["section"] != "General" {
		t.Errorf("section: got %v, want General", sections[0].(map[string]interface{})["section"])
	}
}

func TestKioskListMenuItems_OtherRestaurantsMenu(t *testing.T) {
	restaurant := kioskRestaurant("demo-bistro")
	menuID := uuid.New()
	store := slugStore(restaurant)
	store.getMenuFn = func(ctx context.Context, id uuid.UUID) (database.Menu, error) {
		return database.Menu{ID: menuID, RestaurantID: uuid.New(), Active: true}, nil
	}
	router := setupKioskRouter(store, nil, nil, nil)

	rr := doKioskRequest(t, router, "GET", "/kiosk/demo-bistro/menus/"+menuID.String()+"/items", nil)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusNotFound, rr.Body.String())
	}
}

func TestKioskCreateOrder_HappyPath(t *testing.T) {
	restaurant := kioskRestaurant("demo-bistro")
	session := openSession(restaurant.ID)

	orders := &mockOrderService{
		createFn: func(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error) {
			if req.RestaurantID != restaurant.ID {
				t.Errorf("restaurant: got %v, want %v", req.RestaurantID, restaurant.ID)
			}
			if req.CustomerEmail != "guest@example.com" {
				t.Errorf("customer_email: got %q, want guest@example.com", req.CustomerEmail)
			}
			return &service.CreateOrderResult{
				Order: testOrder(restaurant.ID, session.Session.ID, 3),
			}, nil
		},
	}
	registers := &mockRegisterService{
		currentFn: func(ctx context.Context, rid uuid.UUID) (*service.CurrentSession, error) {
			return session, nil
		},
	}
	hub := &mockHub{}
	router := setupKioskRouter(slugStore(restaurant), orders, registers, hub)

	rr := doKioskRequest(t, router, "POST", "/kiosk/demo-bistro/orders", map[string]interface{}{
		"customer_email": "guest@example.com",
		"items": []map[string]interface{}{
			{"product_id": uuid.New().String(), "quantity": 1},
		},
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeBody(t, rr)
	if resp["order_number"] != float64(3) {
		t.Errorf("order_number: got %v, want 3", resp["order_number"])
	}

	if len(hub.events) != 1 || hub.events[0].Type != "order.created" {
		t.Fatalf("expected one order.created broadcast, got %+v", hub.events)
	}
}

func TestKioskCreateOrder_RegisterClosed(t *testing.T) {
	restaurant := kioskRestaurant("demo-bistro")

	orders := &mockOrderService{
		createFn: func(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error) {
			t.Fatal("CreateOrder must not be called while the register is closed")
			return nil, nil
		},
	}
	registers := &mockRegisterService{
		currentFn: func(ctx context.Context, rid uuid.UUID) (*service.CurrentSession, error) {
			return nil, nil
		},
	}
	router := setupKioskRouter(slugStore(restaurant), orders, registers, nil)

	rr := doKioskRequest(t, router, "POST", "/kiosk/demo-bistro/orders", map[string]interface{}{
		"items": []map[string]interface{}{
			{"product_id": uuid.New().String(), "quantity": 1},
		},
	})

	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusConflict, rr.Body.String())
	}
}

func TestKioskCreateOrder_StockConflict(t *testing.T) {
	restaurant := kioskRestaurant("demo-bistro")
	session := openSession(restaurant.ID)

	orders := &mockOrderService{
		createFn: func(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error) {
			return nil, &service.StockInsufficientError{ProductName: "Lasagna", Available: 0, Requested: 2}
		},
	}
	registers := &mockRegisterService{
		currentFn: func(ctx context.Context, rid uuid.UUID) (*service.CurrentSession, error) {
			return session, nil
		},
	}
	router := setupKioskRouter(slugStore(restaurant), orders, registers, nil)

	rr := doKioskRequest(t, router, "POST", "/kiosk/demo-bistro/orders", map[string]interface{}{
		"items": []map[string]interface{}{
			{"product_id": uuid.New().String(), "quantity": 2},
		},
	})

	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusConflict, rr.Body.String())
	}
}
