package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"invest-platform-go/internal/auth"
	"invest-platform-go/internal/collections"
	"invest-platform-go/internal/database"
	"invest-platform-go/internal/invest"
	"invest-platform-go/internal/ledger"
	"invest-platform-go/internal/models"
	"invest-platform-go/internal/rates"
	"invest-platform-go/internal/store"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router *gin.Engine
	docs   *collections.Service
	ledger *ledger.Service
}

func setupAPITest(t *testing.T) (*testEnv, func()) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	backend, err := database.NewServiceWithDB(db)
	if err != nil {
		t.Fatalf("Failed to initialize document store: %v", err)
	}

	docs := collections.NewService(backend)
	rateService := rates.NewService(models.RatesConfig{
		QuoteCurrency:  "EUR",
		CacheTTL:       time.Minute,
		RequestTimeout: time.Second,
	})
	ledgerService := ledger.NewService(docs, rateService)
	investService := invest.NewService(docs, ledgerService, rateService)
	authService, err := auth.NewService(models.AuthConfig{
		JWTSecret: "test-secret",
		TokenTTL:  time.Hour,
	}, docs)
	if err != nil {
		t.Fatalf("Failed to create auth service: %v", err)
	}

	server := NewServer(models.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000},
		docs, rateService, ledgerService, investService, authService)

	env := &testEnv{router: server.Router(), docs: docs, ledger: ledgerService}
	return env, func() { db.Close() }
}

func (e *testEnv) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	e.router.ServeHTTP(recorder, req)
	return recorder
}

// registerUser creates an account and returns its token and user id.
// Setting admin flips the stored role before login so the token carries it.
func (e *testEnv) registerUser(t *testing.T, email string, admin bool) (string, string) {
	t.Helper()

	resp := e.request(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    email,
		"password": "password123",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("Register returned %d: %s", resp.Code, resp.Body.String())
	}

	var created struct {
		Data models.User `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to decode register response: %v", err)
	}

	if admin {
		if _, err := e.docs.Update(context.Background(), "users", created.Data.Id,
			store.Record{"role": "admin"}); err != nil {
			t.Fatalf("Failed to promote user: %v", err)
		}
	}

	resp = e.request(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    email,
		"password": "password123",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("Login returned %d: %s", resp.Code, resp.Body.String())
	}

	var login struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &login); err != nil {
		t.Fatalf("Failed to decode login response: %v", err)
	}
	return login.Data.Token, created.Data.Id
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode error body %q: %v", resp.Body.String(), err)
	}
	return body
}

func TestHealthz(t *testing.T) {
	env, cleanup := setupAPITest(t)
	defer cleanup()

	resp := env.request(t, http.MethodGet, "/healthz", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.Code)
	}
}

func TestDepositApprovalFlow(t *testing.T) {
	env, cleanup := setupAPITest(t)
	defer cleanup()

	clientToken, clientId := env.registerUser(t, "client@example.com", false)
	adminToken, _ := env.registerUser(t, "admin@example.com", true)

	resp := env.request(t, http.MethodPost, "/api/transactions/deposit", clientToken, gin.H{
		"crypto": "BTC",
		"amount": "0.01",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("Deposit returned %d: %s", resp.Code, resp.Body.String())
	}

	var deposit struct {
		Data models.Transaction `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &deposit); err != nil {
		t.Fatalf("Failed to decode deposit: %v", err)
	}
	if deposit.Data.Status != "pending" {
		t.Errorf("Expected pending deposit, got %s", deposit.Data.Status)
	}

	resp = env.request(t, http.MethodPost,
		fmt.Sprintf("/api/admin/transactions/%s/approve", deposit.Data.Id), adminToken, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Approve returned %d: %s", resp.Code, resp.Body.String())
	}

	wallet, err := env.ledger.GetWallet(context.Background(), clientId, "BTC")
	if err != nil {
		t.Fatalf("GetWallet failed: %v", err)
	}
	if !wallet.Balance.Equal(decimal.RequireFromString("0.01")) {
		t.Errorf("Expected balance 0.01, got %s", wallet.Balance)
	}
}

func TestAdminRoutes_RejectClients(t *testing.T) {
	env, cleanup := setupAPITest(t)
	defer cleanup()

	clientToken, _ := env.registerUser(t, "client@example.com", false)

	resp := env.request(t, http.MethodPost, "/api/admin/accrual/run", clientToken, nil)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("Expected 403, got %d", resp.Code)
	}
	if body := decodeError(t, resp); body.Code != codePermissionDenied {
		t.Errorf("Expected PERMISSION_DENIED, got %s", body.Code)
	}
}

func TestCollectionPost_MissingFieldsNamed(t *testing.T) {
	env, cleanup := setupAPITest(t)
	defer cleanup()

	adminToken, _ := env.registerUser(t, "admin@example.com", true)

	resp := env.request(t, http.MethodPost, "/api/db/transactions", adminToken, gin.H{
		"user_id": "u1",
		"type":    "deposit",
		"crypto":  "BTC",
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", resp.Code, resp.Body.String())
	}
	body := decodeError(t, resp)
	if body.Code != codeMissingFields {
		t.Errorf("Expected MISSING_FIELDS, got %s", body.Code)
	}
	if body.Message != "missing required fields: amount" {
		t.Errorf("Message must name the missing field, got %q", body.Message)
	}
}

func TestCollectionGet_UnknownCollection(t *testing.T) {
	env, cleanup := setupAPITest(t)
	defer cleanup()

	adminToken, _ := env.registerUser(t, "admin@example.com", true)

	resp := env.request(t, http.MethodGet, "/api/db/not-a-collection", adminToken, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", resp.Code)
	}
	if body := decodeError(t, resp); body.Code != codeInvalidCollection {
		t.Errorf("Expected INVALID_COLLECTION, got %s", body.Code)
	}
}

func TestCollectionGet_ClientsSeeOnlyOwnRecords(t *testing.T) {
	env, cleanup := setupAPITest(t)
	defer cleanup()

	aliceToken, aliceId := env.registerUser(t, "alice@example.com", false)
	_, bobId := env.registerUser(t, "bob@example.com", false)

	ctx := context.Background()
	if _, err := env.ledger.CreditWallet(ctx, aliceId, "BTC", decimal.NewFromInt(1)); err != nil {
		t.Fatalf("CreditWallet failed: %v", err)
	}
	if _, err := env.ledger.CreditWallet(ctx, bobId, "ETH", decimal.NewFromInt(2)); err != nil {
		t.Fatalf("CreditWallet failed: %v", err)
	}

	// The user_id filter is overridden with the caller's own id.
	resp := env.request(t, http.MethodGet, "/api/db/wallets?user_id="+bobId, aliceToken, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.Code)
	}
	var listing struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &listing); err != nil {
		t.Fatalf("Failed to decode listing: %v", err)
	}
	if len(listing.Data) != 1 || listing.Data[0]["user_id"] != aliceId {
		t.Errorf("Client must only see own wallets, got %+v", listing.Data)
	}
}

func TestMarkNotificationRead_OwnerScoped(t *testing.T) {
	env, cleanup := setupAPITest(t)
	defer cleanup()

	aliceToken, _ := env.registerUser(t, "alice@example.com", false)
	bobToken, bobId := env.registerUser(t, "bob@example.com", false)

	record, err := env.docs.Create(context.Background(), "notifications", store.Record{
		"user_id": bobId,
		"title":   "Deposit approved",
		"message": "Your deposit of 0.01 BTC has been credited",
		"read":    false,
	})
	if err != nil {
		t.Fatalf("Create notification failed: %v", err)
	}
	id := record["id"].(string)

	resp := env.request(t, http.MethodPost, "/api/notifications/"+id+"/read", aliceToken, nil)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for another user's notification, got %d", resp.Code)
	}
	if body := decodeError(t, resp); body.Code != codePermissionDenied {
		t.Errorf("Expected PERMISSION_DENIED, got %s", body.Code)
	}

	resp = env.request(t, http.MethodPost, "/api/notifications/"+id+"/read", bobToken, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected 200 for the owner, got %d: %s", resp.Code, resp.Body.String())
	}
	var updated struct {
		Data models.Notification `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &updated); err != nil {
		t.Fatalf("Failed to decode notification: %v", err)
	}
	if !updated.Data.Read {
		t.Error("Expected notification marked read")
	}
}

func TestAuthRequired(t *testing.T) {
	env, cleanup := setupAPITest(t)
	defer cleanup()

	resp := env.request(t, http.MethodGet, "/api/db/wallets", "", nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", resp.Code)
	}
}

func TestRatesEndpoint_Fallback(t *testing.T) {
	env, cleanup := setupAPITest(t)
	defer cleanup()

	resp := env.request(t, http.MethodGet, "/api/rates?action=rates", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.Code)
	}

	var body struct {
		Success  bool                    `json:"success"`
		Fallback bool                    `json:"fallback"`
		Data     map[string]models.Quote `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode rates: %v", err)
	}
	if !body.Success || !body.Fallback {
		t.Errorf("Expected fallback rates without an API key, got %+v", body)
	}
	if _, ok := body.Data["BTC"]; !ok {
		t.Error("Expected BTC in the rate table")
	}
}

func TestRatesEndpoint_Exchange(t *testing.T) {
	env, cleanup := setupAPITest(t)
	defer cleanup()

	resp := env.request(t, http.MethodGet, "/api/rates?action=exchange&from=EUR&to=BTC&amount=60000", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body struct {
		Data struct {
			Result decimal.Decimal `json:"result"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode exchange: %v", err)
	}
	if !body.Data.Result.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Expected 60000 EUR = 1 BTC on the fallback table, got %s", body.Data.Result)
	}
}

func TestRateLimit(t *testing.T) {
	env, cleanup := setupAPITest(t)
	defer cleanup()

	// Rebuild the router with a tiny bucket to trip the limiter.
	server := NewServer(models.ServerConfig{RateLimitPerSec: 0.001, RateLimitBurst: 2},
		env.docs, rates.NewService(models.RatesConfig{QuoteCurrency: "EUR", CacheTTL: time.Minute}),
		env.ledger, nil, nil)
	router := server.Router()

	var last int
	for i := 0; i < 5; i++ {
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		last = recorder.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("Expected 429 after the burst is spent, got %d", last)
	}
}
