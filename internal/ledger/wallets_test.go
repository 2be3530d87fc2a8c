package ledger

import (
	"context"
	"errors"
	"testing"

	"invest-platform-go/internal/store"

	"github.com/shopspring/decimal"
)

func TestDebitWallet_NeverGoesNegative(t *testing.T) {
	service, _, cleanup := setupLedgerTest(t)
	defer cleanup()

	ctx := context.Background()
	if _, err := service.CreditWallet(ctx, "u1", "BTC", decimal.RequireFromString("0.5")); err != nil {
		t.Fatalf("CreditWallet failed: %v", err)
	}

	_, err := service.DebitWallet(ctx, "u1", "BTC", decimal.RequireFromString("0.6"))
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
	}

	wallet, err := service.GetWallet(ctx, "u1", "BTC")
	if err != nil {
		t.Fatalf("GetWallet failed: %v", err)
	}
	if !wallet.Balance.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("Balance must be unchanged by rejected debit, got %s", wallet.Balance)
	}

	// Debiting the exact balance is allowed.
	wallet, err = service.DebitWallet(ctx, "u1", "BTC", decimal.RequireFromString("0.5"))
	if err != nil {
		t.Fatalf("DebitWallet failed: %v", err)
	}
	if !wallet.Balance.IsZero() {
		t.Errorf("Expected zero balance, got %s", wallet.Balance)
	}
}

func TestCreditWallet_RejectsNonPositiveAmounts(t *testing.T) {
	service, _, cleanup := setupLedgerTest(t)
	defer cleanup()

	ctx := context.Background()
	if _, err := service.CreditWallet(ctx, "u1", "ETH", decimal.Zero); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("Expected ErrValidation for zero credit, got %v", err)
	}
	if _, err := service.DebitWallet(ctx, "u1", "ETH", decimal.NewFromInt(-1)); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("Expected ErrValidation for negative debit, got %v", err)
	}
}

func TestCreditWallet_OneWalletPerPair(t *testing.T) {
	service, _, cleanup := setupLedgerTest(t)
	defer cleanup()

	ctx := context.Background()
	first, err := service.CreditWallet(ctx, "u1", "USDT", decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("CreditWallet failed: %v", err)
	}
	second, err := service.CreditWallet(ctx, "u1", "USDT", decimal.NewFromInt(5))
	if err != nil {
		t.Fatalf("CreditWallet failed: %v", err)
	}

	if first.Id != second.Id {
		t.Errorf("Expected the same wallet record, got %s and %s", first.Id, second.Id)
	}
	if !second.Balance.Equal(decimal.NewFromInt(15)) {
		t.Errorf("Expected balance 15, got %s", second.Balance)
	}

	wallets, err := service.GetUserWallets(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUserWallets failed: %v", err)
	}
	if len(wallets) != 1 {
		t.Errorf("Expected one wallet for the pair, got %d", len(wallets))
	}
}
