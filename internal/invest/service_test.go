package invest

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"invest-platform-go/internal/collections"
	"invest-platform-go/internal/database"
	"invest-platform-go/internal/ledger"
	"invest-platform-go/internal/models"
	"invest-platform-go/internal/rates"
	"invest-platform-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

func setupInvestTest(t *testing.T) (*Service, *ledger.Service, func()) {
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
	service := NewService(docs, ledgerService, rateService)

	cleanup := func() {
		db.Close()
	}
	return service, ledgerService, cleanup
}

func createTestPlan(t *testing.T, service *Service, name string) *models.Plan {
	t.Helper()
	plan, err := service.CreatePlan(context.Background(), &models.Plan{
		Name:         name,
		RoiMin:       decimal.NewFromInt(8),
		RoiMax:       decimal.NewFromInt(12),
		MinEur:       decimal.NewFromInt(100),
		MaxEur:       decimal.NewFromInt(50000),
		DurationDays: 90,
		RefAsset:     "USDT",
	})
	if err != nil {
		t.Fatalf("CreatePlan failed: %v", err)
	}
	return plan
}

func TestCreatePlan_ValidatesBounds(t *testing.T) {
	service, _, cleanup := setupInvestTest(t)
	defer cleanup()

	_, err := service.CreatePlan(context.Background(), &models.Plan{
		Name:         "inverted",
		RoiMin:       decimal.NewFromInt(12),
		RoiMax:       decimal.NewFromInt(8),
		MinEur:       decimal.NewFromInt(100),
		MaxEur:       decimal.NewFromInt(1000),
		DurationDays: 30,
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("Expected ErrValidation for roi_min > roi_max, got %v", err)
	}

	_, err = service.CreatePlan(context.Background(), &models.Plan{
		Name:         "inverted-eur",
		RoiMin:       decimal.NewFromInt(8),
		RoiMax:       decimal.NewFromInt(12),
		MinEur:       decimal.NewFromInt(5000),
		MaxEur:       decimal.NewFromInt(1000),
		DurationDays: 30,
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("Expected ErrValidation for min_eur > max_eur, got %v", err)
	}
}

func TestPurchase_OpensSubscriptionAndDebitsWallet(t *testing.T) {
	service, ledgerService, cleanup := setupInvestTest(t)
	defer cleanup()

	ctx := context.Background()
	plan := createTestPlan(t, service, "growth")

	// Fallback table prices USDT at 0.92 EUR, so 1000 EUR = 1086.95652174 USDT.
	if _, err := ledgerService.CreditWallet(ctx, "u1", "USDT", decimal.NewFromInt(2000)); err != nil {
		t.Fatalf("CreditWallet failed: %v", err)
	}

	result, err := service.Purchase(ctx, "u1", plan.Id, decimal.NewFromInt(1000), "USDT")
	if err != nil {
		t.Fatalf("Purchase failed: %v", err)
	}

	if result.Subscription.Status != "ACTIVE" {
		t.Errorf("Expected ACTIVE subscription, got %s", result.Subscription.Status)
	}
	if result.Subscription.PlanName != "growth" {
		t.Errorf("Expected denormalized plan name, got %q", result.Subscription.PlanName)
	}
	if result.Subscription.DurationDays != 90 {
		t.Errorf("Expected denormalized duration 90, got %d", result.Subscription.DurationDays)
	}
	if !result.Subscription.AccruedEur.IsZero() {
		t.Errorf("Expected accrued_eur 0, got %s", result.Subscription.AccruedEur)
	}
	if !result.AssetAmount.Equal(decimal.RequireFromString("1086.95652174")) {
		t.Errorf("Expected 1086.95652174 USDT debited, got %s", result.AssetAmount)
	}
	if !result.Wallet.Balance.Equal(decimal.NewFromInt(2000).Sub(result.AssetAmount)) {
		t.Errorf("Wallet balance not reduced by asset amount, got %s", result.Wallet.Balance)
	}
	if result.Transaction.Type != "invest" || result.Transaction.Status != "completed" {
		t.Errorf("Unexpected invest transaction: %+v", result.Transaction)
	}
}

func TestPurchase_EnforcesPlanBounds(t *testing.T) {
	service, ledgerService, cleanup := setupInvestTest(t)
	defer cleanup()

	ctx := context.Background()
	plan := createTestPlan(t, service, "bounded")
	if _, err := ledgerService.CreditWallet(ctx, "u1", "USDT", decimal.NewFromInt(100000)); err != nil {
		t.Fatalf("CreditWallet failed: %v", err)
	}

	if _, err := service.Purchase(ctx, "u1", plan.Id, decimal.NewFromInt(50), "USDT"); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("Expected ErrValidation below min_eur, got %v", err)
	}
	if _, err := service.Purchase(ctx, "u1", plan.Id, decimal.NewFromInt(60000), "USDT"); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("Expected ErrValidation above max_eur, got %v", err)
	}
}

func TestPurchase_InsufficientWallet(t *testing.T) {
	service, ledgerService, cleanup := setupInvestTest(t)
	defer cleanup()

	ctx := context.Background()
	plan := createTestPlan(t, service, "starter")
	if _, err := ledgerService.CreditWallet(ctx, "u1", "USDT", decimal.NewFromInt(10)); err != nil {
		t.Fatalf("CreditWallet failed: %v", err)
	}

	_, err := service.Purchase(ctx, "u1", plan.Id, decimal.NewFromInt(1000), "USDT")
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
	}
}

// faultyCollectionStore wraps a backend and fails saves to one collection
// while armed, emulating a partial outage midway through a purchase.
type faultyCollectionStore struct {
	store.DocumentStore
	collection string
	armed      bool
}

func (f *faultyCollectionStore) Save(ctx context.Context, collection string, records []store.Record, expectedRevision string) (string, error) {
	if f.armed && collection == f.collection {
		return "", store.ErrNetwork
	}
	return f.DocumentStore.Save(ctx, collection, records, expectedRevision)
}

func TestPurchase_TransactionWriteFailureUnwinds(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	defer db.Close()

	backend, err := database.NewServiceWithDB(db)
	if err != nil {
		t.Fatalf("Failed to initialize document store: %v", err)
	}

	faulty := &faultyCollectionStore{DocumentStore: backend, collection: "transactions"}
	docs := collections.NewService(faulty)
	rateService := rates.NewService(models.RatesConfig{
		QuoteCurrency:  "EUR",
		CacheTTL:       time.Minute,
		RequestTimeout: time.Second,
	})
	ledgerService := ledger.NewService(docs, rateService)
	service := NewService(docs, ledgerService, rateService)

	ctx := context.Background()
	plan := createTestPlan(t, service, "growth")
	if _, err := ledgerService.CreditWallet(ctx, "u1", "USDT", decimal.NewFromInt(2000)); err != nil {
		t.Fatalf("CreditWallet failed: %v", err)
	}

	faulty.armed = true
	if _, err := service.Purchase(ctx, "u1", plan.Id, decimal.NewFromInt(1000), "USDT"); err == nil {
		t.Fatal("Expected purchase to fail when the transaction write fails")
	}
	faulty.armed = false

	// The debit and the subscription are both rolled back, so nothing
	// accrues against funds that were returned.
	wallet, err := ledgerService.GetWallet(ctx, "u1", "USDT")
	if err != nil {
		t.Fatalf("GetWallet failed: %v", err)
	}
	if !wallet.Balance.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("Expected balance restored to 2000, got %s", wallet.Balance)
	}

	subs, err := docs.List(ctx, "subscriptions", collections.Filter{UserId: "u1"})
	if err != nil {
		t.Fatalf("List subscriptions failed: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("Expected no subscription to survive the unwind, got %d", len(subs))
	}

	// A retried purchase goes through cleanly.
	result, err := service.Purchase(ctx, "u1", plan.Id, decimal.NewFromInt(1000), "USDT")
	if err != nil {
		t.Fatalf("Retried purchase failed: %v", err)
	}
	if result.Subscription.Status != "ACTIVE" {
		t.Errorf("Expected ACTIVE subscription on retry, got %s", result.Subscription.Status)
	}
}

func TestRunDailyAccrual_CreditsMidpointRate(t *testing.T) {
	service, ledgerService, cleanup := setupInvestTest(t)
	defer cleanup()

	ctx := context.Background()
	plan := createTestPlan(t, service, "growth")
	if _, err := ledgerService.CreditWallet(ctx, "u1", "USDT", decimal.NewFromInt(2000)); err != nil {
		t.Fatalf("CreditWallet failed: %v", err)
	}
	result, err := service.Purchase(ctx, "u1", plan.Id, decimal.NewFromInt(1000), "USDT")
	if err != nil {
		t.Fatalf("Purchase failed: %v", err)
	}

	summary, err := service.RunDailyAccrual(ctx)
	if err != nil {
		t.Fatalf("RunDailyAccrual failed: %v", err)
	}
	if summary.Processed != 1 || summary.Skipped != 0 || summary.Failed != 0 {
		t.Fatalf("Unexpected summary: %+v", summary)
	}

	// 1000 EUR at an 8-12 band: midpoint 10% monthly over 30 days is
	// 3.33333333 EUR per day at 8 decimal places.
	expected := decimal.RequireFromString("3.33333333")
	if !summary.TotalCredits.Equal(expected) {
		t.Errorf("Expected total credits %s, got %s", expected, summary.TotalCredits)
	}

	subscription, err := service.GetSubscription(ctx, result.Subscription.Id)
	if err != nil {
		t.Fatalf("GetSubscription failed: %v", err)
	}
	if !subscription.AccruedEur.Equal(expected) {
		t.Errorf("Expected accrued_eur %s, got %s", expected, subscription.AccruedEur)
	}
	if subscription.LastAccruedDate != time.Now().UTC().Format("2006-01-02") {
		t.Errorf("Expected last_accrued_date today, got %q", subscription.LastAccruedDate)
	}
}

func TestRunDailyAccrual_SkipsAlreadyAccruedToday(t *testing.T) {
	service, ledgerService, cleanup := setupInvestTest(t)
	defer cleanup()

	ctx := context.Background()
	plan := createTestPlan(t, service, "growth")
	if _, err := ledgerService.CreditWallet(ctx, "u1", "USDT", decimal.NewFromInt(2000)); err != nil {
		t.Fatalf("CreditWallet failed: %v", err)
	}
	result, err := service.Purchase(ctx, "u1", plan.Id, decimal.NewFromInt(1000), "USDT")
	if err != nil {
		t.Fatalf("Purchase failed: %v", err)
	}

	if _, err := service.RunDailyAccrual(ctx); err != nil {
		t.Fatalf("RunDailyAccrual failed: %v", err)
	}
	second, err := service.RunDailyAccrual(ctx)
	if err != nil {
		t.Fatalf("RunDailyAccrual failed: %v", err)
	}
	if second.Processed != 0 || second.Skipped != 1 {
		t.Fatalf("Second run must skip, got %+v", second)
	}

	subscription, err := service.GetSubscription(ctx, result.Subscription.Id)
	if err != nil {
		t.Fatalf("GetSubscription failed: %v", err)
	}
	if !subscription.AccruedEur.Equal(decimal.RequireFromString("3.33333333")) {
		t.Errorf("Accrued amount must not double, got %s", subscription.AccruedEur)
	}
}

func TestClose_OnlyActiveSubscriptions(t *testing.T) {
	service, ledgerService, cleanup := setupInvestTest(t)
	defer cleanup()

	ctx := context.Background()
	plan := createTestPlan(t, service, "growth")
	if _, err := ledgerService.CreditWallet(ctx, "u1", "USDT", decimal.NewFromInt(2000)); err != nil {
		t.Fatalf("CreditWallet failed: %v", err)
	}
	result, err := service.Purchase(ctx, "u1", plan.Id, decimal.NewFromInt(1000), "USDT")
	if err != nil {
		t.Fatalf("Purchase failed: %v", err)
	}

	closed, err := service.Close(ctx, result.Subscription.Id)
	if err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if closed.Status != "CLOSED" || closed.ClosedAt == nil {
		t.Errorf("Expected CLOSED with closed_at set, got %+v", closed)
	}

	if _, err := service.Close(ctx, result.Subscription.Id); !errors.Is(err, store.ErrTerminalState) {
		t.Fatalf("Expected ErrTerminalState closing twice, got %v", err)
	}

	// Closed subscriptions stop accruing.
	summary, err := service.RunDailyAccrual(ctx)
	if err != nil {
		t.Fatalf("RunDailyAccrual failed: %v", err)
	}
	if summary.Processed != 0 {
		t.Errorf("Closed subscription must not accrue, got %+v", summary)
	}
}
