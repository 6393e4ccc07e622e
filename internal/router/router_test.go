package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/gate"
	"storefront/internal/handler"
	appmw "storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/repository"
	"storefront/internal/service"
)

const testSecret = "router-test-secret"

type testApp struct {
	e      *echo.Echo
	users  repository.UserRepository
	hasher *auth.PasswordHasher
}

func newTestApp(t *testing.T, federatedSecret string, opts ...func(*config.Config)) *testApp {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Env:              "test",
		DataDir:          filepath.Join(dir, "data"),
		PublicDir:        filepath.Join(dir, "public"),
		StoreDriver:      config.DriverFile,
		StoreLockTimeout: time.Second,
		JWTSecret:        testSecret,
		FederatedSecret:  federatedSecret,
		LoginRatePerSec:  1000,
		LoginRateBurst:   1000,
		Rates: config.Rates{
			INR: decimal.NewFromInt(82),
			GBP: decimal.RequireFromString("0.79"),
			CAD: decimal.RequireFromString("1.35"),
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	log := zap.NewNop()

	stores, err := db.Open(cfg, log, service.ValidateProduct)
	require.NoError(t, err)
	require.NoError(t, stores.Ensure(context.Background()))

	jwtService, err := auth.NewJWTService(cfg.JWTSecret)
	require.NoError(t, err)
	hasher, err := auth.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)

	users := repository.NewUserRepository(stores.Users)
	identity := service.NewIdentityResolver(users, hasher, log)
	authService := service.NewAuthService(users, identity, hasher, jwtService, auth.NewAssertionVerifier(cfg.FederatedSecret))

	e := echo.New()
	Register(e, cfg, log, gate.New(gate.DefaultRules(), jwtService), appmw.NewRateLimiter(cfg.LoginRatePerSec, cfg.LoginRateBurst, log), Handlers{
		Auth:     handler.NewAuthHandler(authService, false),
		Products: handler.NewProductHandler(service.NewProductService(repository.NewProductRepository(stores.Products), cfg.Rates)),
		Country:  handler.NewCountryHandler(service.NewCountryService(repository.NewCountryRepository(stores.Countries))),
	})
	return &testApp{e: e, users: users, hasher: hasher}
}

func (a *testApp) do(method, target, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

// login signs in and returns the value of the session cookie.
func (a *testApp) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := a.do(http.MethodPost, "/api/auth/login", `{"email":"`+email+`","password":"`+password+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)

	var resp handler.SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, cookie.Value, resp.Token)
	return cookie.Value
}

func (a *testApp) createAdmin(t *testing.T, email, password string) {
	t.Helper()
	hash, err := a.hasher.Hash(password)
	require.NoError(t, err)
	_, err = a.users.Create(context.Background(), &model.User{Name: "Admin", Email: email, PasswordHash: &hash, Role: model.RoleAdmin})
	require.NoError(t, err)
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	return nil
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	msg, _ := body["message"].(string)
	return msg
}

func TestCustomerSession(t *testing.T) {
	app := newTestApp(t, "")

	rec := app.do(http.MethodPost, "/api/auth/register", `{"name":"Asha","email":"asha@example.com","password":"secret123"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var registered handler.RegisterResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &registered))
	assert.Equal(t, model.RoleCustomer, registered.User.Role)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = app.do(http.MethodPost, "/api/auth/register", `{"name":"Asha","email":"asha@example.com","password":"other"}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = app.do(http.MethodPost, "/api/auth/login", `{"email":"asha@example.com","password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid email or password", message(t, rec))

	token := app.login(t, "asha@example.com", "secret123")

	rec = app.do(http.MethodGet, "/api/auth/me", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var me model.PublicUser
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, registered.User.ID, me.ID)

	rec = app.do(http.MethodGet, "/api/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "No authentication token", message(t, rec))

	rec = app.do(http.MethodGet, "/api/admin/products", "", token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, gate.MsgAdminRequired, message(t, rec))

	rec = app.do(http.MethodGet, "/admin/dashboard", "", token)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))

	rec = app.do(http.MethodPost, "/api/auth/logout", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := sessionCookie(rec)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestRegisterRejectsBadInput(t *testing.T) {
	app := newTestApp(t, "")

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{
			name:    "email with display name",
			body:    `{"name":"Bob","email":"Bob <bob@example.com>","password":"secret123"}`,
			message: "Invalid email address",
		},
		{
			name:    "password over 72 bytes",
			body:    `{"name":"Bob","email":"bob@example.com","password":"` + strings.Repeat("p", 73) + `"}`,
			message: "Password must be at most 72 bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodPost, "/api/auth/register", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.message, message(t, rec))
		})
	}

	_, err := app.users.FindByEmail(context.Background(), "bob@example.com")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestLoginRateLimitIgnoresForwardedFor(t *testing.T) {
	app := newTestApp(t, "", func(cfg *config.Config) {
		cfg.LoginRatePerSec = 0.001
		cfg.LoginRateBurst = 1
	})

	login := func(forwardedFor string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"x@example.com","password":"nope"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set(echo.HeaderXForwardedFor, forwardedFor)
		rec := httptest.NewRecorder()
		app.e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, login("203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, login("203.0.113.2"))
}

func TestConcurrentRegistration(t *testing.T) {
	app := newTestApp(t, "")

	const n = 8
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := app.do(http.MethodPost, "/api/auth/register", `{"name":"Dup","email":"dup@example.com","password":"secret123"}`, "")
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()

	created, conflicts := 0, 0
	for _, code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicts++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, n-1, conflicts)
}

func TestAnonymousAccess(t *testing.T) {
	app := newTestApp(t, "")

	tests := []struct {
		name     string
		method   string
		target   string
		status   int
		location string
	}{
		{"health", http.MethodGet, "/healthz", http.StatusOK, ""},
		{"catalog", http.MethodGet, "/api/products", http.StatusOK, ""},
		{"admin api", http.MethodGet, "/api/admin/products", http.StatusUnauthorized, ""},
		{"admin api dot segments", http.MethodGet, "/api/products/../admin/products", http.StatusUnauthorized, ""},
		{"admin ui", http.MethodGet, "/admin", http.StatusTemporaryRedirect, "/login"},
		{"customer ui", http.MethodGet, "/checkout", http.StatusTemporaryRedirect, "/login"},
		{"customer api", http.MethodGet, "/api/orders", http.StatusUnauthorized, ""},
		{"unknown product", http.MethodGet, "/api/products/prod-missing", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(tt.method, tt.target, "", "")
			assert.Equal(t, tt.status, rec.Code)
			if tt.location != "" {
				assert.Equal(t, tt.location, rec.Header().Get(echo.HeaderLocation))
			}
		})
	}
}

func TestAdminProductLifecycle(t *testing.T) {
	app := newTestApp(t, "")
	app.createAdmin(t, "admin@example.com", "adminpass")
	token := app.login(t, "admin@example.com", "adminpass")

	rec := app.do(http.MethodPost, "/api/admin/products",
		`{"title":"Navy Suit","description":"Wool","price_in_usd":"10","sizes":["M","L"],"stock":5}`, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created model.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.True(t, strings.HasPrefix(created.ID, model.ProductIDPrefix))
	assert.True(t, decimal.NewFromInt(820).Equal(created.PriceINR))
	assert.Equal(t, service.DefaultCountryAvailability, created.CountryAvailability)

	rec = app.do(http.MethodPost, "/api/admin/products", `{"title":"No price"}`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(http.MethodGet, "/api/products", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []model.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)

	rec = app.do(http.MethodPut, "/api/admin/products/"+created.ID, `{"stock":2,"id":"prod-hijack"}`, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated model.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, 2, updated.Stock)

	rec = app.do(http.MethodDelete, "/api/admin/products/"+created.ID, "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Product deleted successfully", message(t, rec))

	rec = app.do(http.MethodDelete, "/api/admin/products/"+created.ID, "", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExpiredToken(t *testing.T) {
	app := newTestApp(t, "")
	app.createAdmin(t, "admin@example.com", "adminpass")
	user, err := app.users.FindByEmail(context.Background(), "admin@example.com")
	require.NoError(t, err)

	past, err := auth.NewJWTService(testSecret, auth.WithClock(func() time.Time {
		return time.Now().Add(-8 * 24 * time.Hour)
	}))
	require.NoError(t, err)
	token, _, err := past.Issue(user)
	require.NoError(t, err)

	rec := app.do(http.MethodGet, "/api/admin/products", "", token)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(http.MethodGet, "/api/auth/me", "", token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token", message(t, rec))
}

func TestFederatedDisabled(t *testing.T) {
	app := newTestApp(t, "")
	rec := app.do(http.MethodPost, "/api/auth/federated", `{"assertion":"x"}`, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t, "")
	app.do(http.MethodGet, "/api/admin/products", "", "")

	rec := app.do(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "storefront_gate_decisions_total")
}
