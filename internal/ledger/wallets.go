package ledger

import (
	"context"
	"fmt"

	"invest-platform-go/internal/collections"
	"invest-platform-go/internal/models"
	"invest-platform-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GetWallet returns the wallet for a (user, crypto) pair, or ErrNotFound.
func (s *Service) GetWallet(ctx context.Context, userId, crypto string) (*models.Wallet, error) {
	records, err := s.docs.List(ctx, "wallets", collections.Filter{UserId: userId})
	if err != nil {
		return nil, err
	}

	for _, record := range records {
		if record["crypto"] == crypto {
			var wallet models.Wallet
			if err := models.FromRecord(record, &wallet); err != nil {
				return nil, fmt.Errorf("failed to decode wallet: %w", err)
			}
			return &wallet, nil
		}
	}

	return nil, fmt.Errorf("wallet %s/%s - %w", userId, crypto, store.ErrNotFound)
}

// GetUserWallets returns all wallets owned by a user.
func (s *Service) GetUserWallets(ctx context.Context, userId string) ([]models.Wallet, error) {
	records, err := s.docs.List(ctx, "wallets", collections.Filter{UserId: userId})
	if err != nil {
		return nil, err
	}

	wallets := make([]models.Wallet, 0, len(records))
	for _, record := range records {
		var wallet models.Wallet
		if err := models.FromRecord(record, &wallet); err != nil {
			return nil, fmt.Errorf("failed to decode wallet: %w", err)
		}
		wallets = append(wallets, wallet)
	}
	return wallets, nil
}

// CreditWallet adds amount to the user's wallet for the given crypto,
// creating the wallet lazily on first credit. One wallet per (user, crypto)
// pair, enforced by upsert-by-lookup.
func (s *Service) CreditWallet(ctx context.Context, userId, crypto string, amount decimal.Decimal) (*models.Wallet, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("credit amount must be positive - %w", store.ErrValidation)
	}

	existing, err := s.GetWallet(ctx, userId, crypto)
	if err != nil {
		if !isNotFound(err) {
			return nil, err
		}

		record, err := s.docs.Create(ctx, "wallets", store.Record{
			"user_id": userId,
			"crypto":  crypto,
			"balance": amount,
		})
		if err != nil {
			return nil, err
		}

		var wallet models.Wallet
		if err := models.FromRecord(record, &wallet); err != nil {
			return nil, fmt.Errorf("failed to decode wallet: %w", err)
		}

		zap.L().Info("Created wallet on first credit",
			zap.String("user_id", userId),
			zap.String("crypto", crypto),
			zap.String("balance", amount.String()))
		return &wallet, nil
	}

	newBalance := existing.Balance.Add(amount)
	record, err := s.docs.Update(ctx, "wallets", existing.Id, store.Record{"balance": newBalance})
	if err != nil {
		return nil, err
	}

	var wallet models.Wallet
	if err := models.FromRecord(record, &wallet); err != nil {
		return nil, fmt.Errorf("failed to decode wallet: %w", err)
	}

	zap.L().Info("Credited wallet",
		zap.String("user_id", userId),
		zap.String("crypto", crypto),
		zap.String("old_balance", existing.Balance.String()),
		zap.String("new_balance", newBalance.String()))
	return &wallet, nil
}

// DebitWallet subtracts amount from the user's wallet. The balance is
// pre-checked so a wallet can never go negative; an insufficient balance
// rejects before any store write.
func (s *Service) DebitWallet(ctx context.Context, userId, crypto string, amount decimal.Decimal) (*models.Wallet, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("debit amount must be positive - %w", store.ErrValidation)
	}

	existing, err := s.GetWallet(ctx, userId, crypto)
	if err != nil {
		return nil, err
	}

	if existing.Balance.LessThan(amount) {
		return nil, fmt.Errorf("balance %s < requested %s %s - %w",
			existing.Balance.String(), amount.String(), crypto, store.ErrInsufficientFunds)
	}

	newBalance := existing.Balance.Sub(amount)
	record, err := s.docs.Update(ctx, "wallets", existing.Id, store.Record{"balance": newBalance})
	if err != nil {
		return nil, err
	}

	var wallet models.Wallet
	if err := models.FromRecord(record, &wallet); err != nil {
		return nil, fmt.Errorf("failed to decode wallet: %w", err)
	}

	zap.L().Info("Debited wallet",
		zap.String("user_id", userId),
		zap.String("crypto", crypto),
		zap.String("old_balance", existing.Balance.String()),
		zap.String("new_balance", newBalance.String()))
	return &wallet, nil
}
