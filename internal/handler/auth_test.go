package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/comanda-pos/api/internal/auth"
	"github.com/comanda-pos/api/internal/database"
	"github.com/comanda-pos/api/internal/handler"
)

// mockAuthStore implements handler.AuthStore.
type mockAuthStore struct {
	getUserByEmailFn func(ctx context.Context, email string) (database.User, error)
	getUserByIDFn    func(ctx context.Context, id uuid.UUID) (database.User, error)
}

func (m *mockAuthStore) GetUserByEmail(ctx context.Context, email string) (database.User, error) {
	if m.getUserByEmailFn != nil {
		return m.getUserByEmailFn(ctx, email)
	}
	return database.User{}, pgx.ErrNoRows
}

func (m *mockAuthStore) GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error) {
	if m.getUserByIDFn != nil {
		return m.getUserByIDFn(ctx, id)
	}
	return database.User{}, pgx.ErrNoRows
}

const authTestSecret = "test-secret-for-auth"

func testUser(t *testing.T, password string) database.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return database.User{
		ID:           uuid.New(),
		RestaurantID: uuid.New(),
		Email:        "staff@example.com",
		PasswordHash: string(hash),
		FullName:     "Test Staff",
		Role:         "STAFF",
		IsActive:     true,
	}
}

func setupAuthRouter(store *mockAuthStore) *chi.Mux {
	h := handler.NewAuthHandler(store, authTestSecret)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestLogin_HappyPath(t *testing.T) {
	user := testUser(t, "correct-horse")
	store := &mockAuthStore{
		getUserByEmailFn: func(ctx context.Context, email string) (database.User, error) {
			if email != user.Email {
				return database.User{}, pgx.ErrNoRows
			}
			return user, nil
		},
	}
	router := setupAuthRouter(store)

	rr := postJSON(t, router, "/auth/login", map[string]string{
		"email":    user.Email,
		"password": "correct-horse",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeBody(t, rr)
	accessToken, _ := resp["access_token"].(string)
	if accessToken == "" {
		t.Fatal("expected a non-empty access_token")
	}
	if resp["refresh_token"] == "" {
		t.Fatal("expected a non-empty refresh_token")
	}

	// The access token must carry the user's identity.
	claims, err := auth.ValidateToken(authTestSecret, accessToken)
	if err != nil {
		t.Fatalf("validate issued token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("token user: got %v, want %v", claims.UserID, user.ID)
	}
	if claims.RestaurantID != user.RestaurantID {
		t.Errorf("token restaurant: got %v, want %v", claims.RestaurantID, user.RestaurantID)
	}
	if claims.Role != "STAFF" {
		t.Errorf("token role: got %q, want STAFF", claims.Role)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	user := testUser(t, "correct-horse")
	store := &mockAuthStore{
		getUserByEmailFn: func(ctx context.Context, email string) (database.User, error) {
			return user, nil
		},
	}
	router := setupAuthRouter(store)

	rr := postJSON(t, router, "/auth/login", map[string]string{
		"email":    user.Email,
		"password": "battery-staple",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusUnauthorized, rr.Body.String())
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	router := setupAuthRouter(&mockAuthStore{})

	rr := postJSON(t, router, "/auth/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "whatever",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusUnauthorized, rr.Body.String())
	}
}

func TestLogin_MissingFields(t *testing.T) {
	router := setupAuthRouter(&mockAuthStore{})

	rr := postJSON(t, router, "/auth/login", map[string]string{"email": "staff@example.com"})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
}

func TestRefresh_HappyPath(t *testing.T) {
	user := testUser(t, "correct-horse")
	store := &mockAuthStore{
		getUserByIDFn: func(ctx context.Context, id uuid.UUID) (database.User, error) {
			if id != user.ID {
				return database.User{}, pgx.ErrNoRows
			}
			return user, nil
		},
	}
	router := setupAuthRouter(store)

	refreshToken, err := auth.GenerateRefreshToken(authTestSecret, user.ID)
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	rr := postJSON(t, router, "/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeBody(t, rr)
	if resp["access_token"] == "" {
		t.Fatal("expected a fresh access_token")
	}
	userResp, ok := resp["user"].(map[string]interface{})
	if !ok || userResp["id"] != user.ID.String() {
		t.Errorf("user in response: got %v, want id %s", resp["user"], user.ID)
	}
}

func TestRefresh_InvalidToken(t *testing.T) {
	router := setupAuthRouter(&mockAuthStore{})

	rr := postJSON(t, router, "/auth/refresh", map[string]string{
		"refresh_token": "not-a-jwt",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusUnauthorized, rr.Body.String())
	}
}

func TestRefresh_AccessTokenRejected(t *testing.T) {
	user := testUser(t, "correct-horse")
	store := &mockAuthStore{
		getUserByIDFn: func(ctx context.Context, id uuid.UUID) (database.User, error) {
			return user, nil
		},
	}
	router := setupAuthRouter(store)

	// An access token is not a refresh token.
	accessToken, err := auth.GenerateToken(authTestSecret, user.ID, user.RestaurantID, user.Role)
	if err != nil {
		t.Fatalf("generate access token: %v", err)
	}

	rr := postJSON(t, router, "/auth/refresh", map[string]string{
		"refresh_token": accessToken,
	})

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusUnauthorized, rr.Body.String())
	}
}
