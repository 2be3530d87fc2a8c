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

package httpapi

import (
	"net/http"

	"invest-platform-go/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type depositRequest struct {
	Crypto    string          `json:"crypto"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

type withdrawRequest struct {
	Crypto string          `json:"crypto"`
	Amount decimal.Decimal `json:"amount"`
}

type exchangeRequest struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

type purchaseRequest struct {
	PlanId    string          `json:"plan_id"`
	AmountEur decimal.Decimal `json:"amount_eur"`
	PayAsset  string          `json:"pay_asset"`
}

func (s *Server) handleDeposit(c *gin.Context) {
	claims := claimsFrom(c)

	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, codeInvalidType, "request body must be a JSON object")
		return
	}
	if req.Crypto == "" || req.Amount.IsZero() {
		writeError(c, http.StatusBadRequest, codeMissingFields, "missing required fields: crypto, amount")
		return
	}

	tx, err := s.ledger.CreateDeposit(c.Request.Context(), claims.UserId, req.Crypto, req.Amount, req.Reference)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": tx})
}

func (s *Server) handleWithdraw(c *gin.Context) {
	claims := claimsFrom(c)

	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, codeInvalidType, "request body must be a JSON object")
		return
	}
	if req.Crypto == "" || req.Amount.IsZero() {
		writeError(c, http.StatusBadRequest, codeMissingFields, "missing required fields: crypto, amount")
		return
	}

	tx, err := s.ledger.CreateWithdraw(c.Request.Context(), claims.UserId, req.Crypto, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": tx})
}

func (s *Server) handleExchange(c *gin.Context) {
	claims := claimsFrom(c)

	var req exchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, codeInvalidType, "request body must be a JSON object")
		return
	}
	if req.From == "" || req.To == "" || req.Amount.IsZero() {
		writeError(c, http.StatusBadRequest, codeMissingFields, "missing required fields: from, to, amount")
		return
	}

	result, err := s.ledger.CreateExchange(c.Request.Context(), claims.UserId, req.From, req.To, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": result})
}

func (s *Server) handlePurchase(c *gin.Context) {
	claims := claimsFrom(c)

	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, codeInvalidType, "request body must be a JSON object")
		return
	}
	if req.PlanId == "" || req.AmountEur.IsZero() || req.PayAsset == "" {
		writeError(c, http.StatusBadRequest, codeMissingFields, "missing required fields: plan_id, amount_eur, pay_asset")
		return
	}

	result, err := s.invest.Purchase(c.Request.Context(), claims.UserId, req.PlanId, req.AmountEur, req.PayAsset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": result})
}

// handleMarkNotificationRead flags one of the caller's notifications as read.
func (s *Server) handleMarkNotificationRead(c *gin.Context) {
	id := c.Param("id")

	record, err := s.docs.Get(c.Request.Context(), "notifications", id)
	if err != nil {
		respondError(c, err)
		return
	}

	var notification models.Notification
	if err := models.FromRecord(record, &notification); err != nil {
		respondError(c, err)
		return
	}
	if !authorizeUser(c, notification.UserId) {
		return
	}

	updated, err := s.docs.Update(c.Request.Context(), "notifications", id, map[string]any{"read": true})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": updated})
}

// handleWallets lists the authenticated user's wallets.
func (s *Server) handleWallets(c *gin.Context) {
	claims := claimsFrom(c)

	wallets, err := s.ledger.GetUserWallets(c.Request.Context(), claims.UserId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": wallets, "count": len(wallets)})
}
