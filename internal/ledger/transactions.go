/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package ledger

import (
	"context"
	"fmt"
	"strings"

	"invest-platform-go/internal/models"
	"invest-platform-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GetTransaction returns a transaction by id.
func (s *Service) GetTransaction(ctx context.Context, txId string) (*models.Transaction, error) {
	record, err := s.docs.Get(ctx, "transactions", txId)
	if err != nil {
		return nil, err
	}

	var tx models.Transaction
	if err := models.FromRecord(record, &tx); err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	return &tx, nil
}

// CreateDeposit records a client deposit claim awaiting admin approval.
func (s *Service) CreateDeposit(ctx context.Context, userId, crypto string, amount decimal.Decimal, reference string) (*models.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("deposit amount must be positive - %w", store.ErrValidation)
	}

	record, err := s.docs.Create(ctx, "transactions", store.Record{
		"user_id":   userId,
		"type":      "deposit",
		"crypto":    crypto,
		"amount":    amount,
		"status":    "pending",
		"reference": reference,
	})
	if err != nil {
		return nil, err
	}

	var tx models.Transaction
	if err := models.FromRecord(record, &tx); err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	return &tx, nil
}

// CreateWithdraw records a withdrawal request. The wallet balance is
// pre-checked against amount plus the per-crypto withdrawal fee so requests
// that could never be sent are rejected up front; nothing is debited until
// an admin marks the withdrawal sent.
func (s *Service) CreateWithdraw(ctx context.Context, userId, crypto string, amount decimal.Decimal) (*models.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("withdrawal amount must be positive - %w", store.ErrValidation)
	}

	settings, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}
	fee := settings.WithdrawalFees[crypto]

	wallet, err := s.GetWallet(ctx, userId, crypto)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("no %s wallet - %w", crypto, store.ErrInsufficientFunds)
		}
		return nil, err
	}
	if wallet.Balance.LessThan(amount.Add(fee)) {
		return nil, fmt.Errorf("balance %s < requested %s + fee %s %s - %w",
			wallet.Balance.String(), amount.String(), fee.String(), crypto, store.ErrInsufficientFunds)
	}

	record, err := s.docs.Create(ctx, "transactions", store.Record{
		"user_id":    userId,
		"type":       "withdraw",
		"crypto":     crypto,
		"amount":     amount,
		"status":     "awaiting_admin",
		"fee_amount": fee,
	})
	if err != nil {
		return nil, err
	}

	var tx models.Transaction
	if err := models.FromRecord(record, &tx); err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	return &tx, nil
}

// CreateExchange converts between two wallets at the current rate, net of
// the configured exchange fee. The transaction is written already completed;
// there is no admin step. If the destination credit fails after the source
// debit, the debit is compensated with a credit-back so funds are never
// stranded.
func (s *Service) CreateExchange(ctx context.Context, userId, fromCrypto, toCrypto string, amount decimal.Decimal) (*models.ExchangeResult, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("exchange amount must be positive - %w", store.ErrValidation)
	}
	if fromCrypto == toCrypto {
		return nil, fmt.Errorf("cannot exchange %s for itself - %w", fromCrypto, store.ErrValidation)
	}

	settings, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}

	feePct := settings.ExchangeFeePct
	feeAmount := amount.Mul(feePct).DivRound(decimal.NewFromInt(100), 8)
	netAmount := amount.Sub(feeAmount)

	credited, err := s.rates.Convert(ctx, fromCrypto, toCrypto, netAmount)
	if err != nil {
		return nil, err
	}

	debitedWallet, err := s.DebitWallet(ctx, userId, fromCrypto, amount)
	if err != nil {
		return nil, err
	}

	creditedWallet, err := s.CreditWallet(ctx, userId, toCrypto, credited)
	if err != nil {
		// Compensating credit-back: the exchange failed halfway, so the
		// source debit must be reversed.
		zap.L().Error("Exchange credit failed, reversing source debit",
			zap.String("user_id", userId),
			zap.String("from", fromCrypto),
			zap.String("to", toCrypto),
			zap.Error(err))
		if _, reverseErr := s.CreditWallet(ctx, userId, fromCrypto, amount); reverseErr != nil {
			zap.L().Error("Failed to reverse exchange debit",
				zap.String("user_id", userId),
				zap.String("crypto", fromCrypto),
				zap.String("amount", amount.String()),
				zap.Error(reverseErr))
		}
		return nil, err
	}

	record, err := s.docs.Create(ctx, "transactions", store.Record{
		"user_id":    userId,
		"type":       "exchange",
		"crypto":     fromCrypto + "-" + toCrypto,
		"amount":     amount,
		"status":     "completed",
		"fee_pct":    feePct,
		"fee_amount": feeAmount,
		"reference":  fmt.Sprintf("%s %s -> %s %s", amount.String(), fromCrypto, credited.String(), toCrypto),
	})
	if err != nil {
		return nil, err
	}

	var tx models.Transaction
	if err := models.FromRecord(record, &tx); err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}

	return &models.ExchangeResult{
		Transaction: &tx,
		Debited:     debitedWallet,
		Credited:    creditedWallet,
		FeeAmount:   feeAmount,
	}, nil
}

// ApproveDeposit moves a pending deposit to completed and credits the
// user's wallet.
func (s *Service) ApproveDeposit(ctx context.Context, txId string) (*models.ApprovalResult, error) {
	tx, err := s.GetTransaction(ctx, txId)
	if err != nil {
		return nil, err
	}
	if err := requireTransition(tx, "deposit", "pending"); err != nil {
		return nil, err
	}

	wallet, err := s.CreditWallet(ctx, tx.UserId, tx.Crypto, tx.Amount)
	if err != nil {
		return nil, err
	}

	record, err := s.docs.Update(ctx, "transactions", txId, store.Record{"status": "completed"})
	if err != nil {
		// Compensating debit: the deposit is still pending, so a retried
		// approval would credit the wallet a second time.
		if _, reverseErr := s.DebitWallet(ctx, tx.UserId, tx.Crypto, tx.Amount); reverseErr != nil {
			zap.L().Error("Failed to reverse deposit credit",
				zap.String("transaction_id", txId),
				zap.Error(reverseErr))
		}
		return nil, err
	}
	if err := models.FromRecord(record, tx); err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}

	s.notify(ctx, tx.UserId, "Deposit approved",
		fmt.Sprintf("Your deposit of %s %s has been credited.", tx.Amount.String(), tx.Crypto))

	balance := wallet.Balance
	return &models.ApprovalResult{Transaction: tx, Wallet: wallet, NewBalance: &balance}, nil
}

// MarkWithdrawalSent debits the wallet and moves the withdrawal to sent,
// optionally recording the chain transaction hash. The debit covers the
// requested amount plus the fee captured at request time.
func (s *Service) MarkWithdrawalSent(ctx context.Context, txId, txHash string) (*models.ApprovalResult, error) {
	tx, err := s.GetTransaction(ctx, txId)
	if err != nil {
		return nil, err
	}
	if err := requireTransition(tx, "withdraw", "pending", "awaiting_admin"); err != nil {
		return nil, err
	}

	wallet, err := s.DebitWallet(ctx, tx.UserId, tx.Crypto, tx.Amount.Add(tx.FeeAmount))
	if err != nil {
		return nil, err
	}

	patch := store.Record{"status": "sent"}
	if txHash != "" {
		patch["tx_hash"] = txHash
	}
	record, err := s.docs.Update(ctx, "transactions", txId, patch)
	if err != nil {
		// Compensating credit-back so the wallet is not left debited with
		// the request still awaiting admin.
		if _, reverseErr := s.CreditWallet(ctx, tx.UserId, tx.Crypto, tx.Amount.Add(tx.FeeAmount)); reverseErr != nil {
			zap.L().Error("Failed to reverse withdrawal debit",
				zap.String("transaction_id", txId),
				zap.Error(reverseErr))
		}
		return nil, err
	}
	if err := models.FromRecord(record, tx); err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}

	s.notify(ctx, tx.UserId, "Withdrawal sent",
		fmt.Sprintf("Your withdrawal of %s %s is on its way.", tx.Amount.String(), tx.Crypto))

	balance := wallet.Balance
	return &models.ApprovalResult{Transaction: tx, Wallet: wallet, NewBalance: &balance}, nil
}

// CompleteWithdrawal confirms delivery of a sent withdrawal.
func (s *Service) CompleteWithdrawal(ctx context.Context, txId string) (*models.Transaction, error) {
	tx, err := s.GetTransaction(ctx, txId)
	if err != nil {
		return nil, err
	}
	if err := requireTransition(tx, "withdraw", "sent"); err != nil {
		return nil, err
	}

	record, err := s.docs.Update(ctx, "transactions", txId, store.Record{"status": "completed"})
	if err != nil {
		return nil, err
	}
	if err := models.FromRecord(record, tx); err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	return tx, nil
}

// RejectTransaction moves a pre-sent transaction to rejected. A non-empty
// reason is required and captured on the record. No wallet mutation happens:
// deposits were never credited and withdrawals are only debited at sent.
func (s *Service) RejectTransaction(ctx context.Context, txId, reason string) (*models.Transaction, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("rejection requires a reason - %w", store.ErrValidation)
	}

	tx, err := s.GetTransaction(ctx, txId)
	if err != nil {
		return nil, err
	}
	if isTerminal(tx.Status) {
		return nil, fmt.Errorf("transaction %s is %s - %w", txId, tx.Status, store.ErrTerminalState)
	}
	if tx.Status == "sent" {
		return nil, fmt.Errorf("transaction %s already sent - %w", txId, store.ErrValidation)
	}

	record, err := s.docs.Update(ctx, "transactions", txId, store.Record{
		"status":        "rejected",
		"reject_reason": reason,
	})
	if err != nil {
		return nil, err
	}
	if err := models.FromRecord(record, tx); err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}

	s.notify(ctx, tx.UserId, "Transaction rejected", reason)
	return tx, nil
}

func isTerminal(status string) bool {
	return status == "completed" || status == "rejected"
}

func requireTransition(tx *models.Transaction, wantType string, fromStatuses ...string) error {
	if isTerminal(tx.Status) {
		return fmt.Errorf("transaction %s is %s - %w", tx.Id, tx.Status, store.ErrTerminalState)
	}
	if tx.Type != wantType {
		return fmt.Errorf("transaction %s is a %s, want %s - %w", tx.Id, tx.Type, wantType, store.ErrValidation)
	}
	for _, status := range fromStatuses {
		if tx.Status == status {
			return nil
		}
	}
	return fmt.Errorf("transaction %s in status %s cannot transition - %w", tx.Id, tx.Status, store.ErrValidation)
}
