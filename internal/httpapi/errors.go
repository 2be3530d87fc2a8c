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
	"errors"
	"net/http"
	"strings"

	"invest-platform-go/internal/store"

	"github.com/gin-gonic/gin"
)

// Stable machine-readable error codes carried in every error body.
const (
	codeMissingCollection = "MISSING_COLLECTION"
	codeInvalidCollection = "INVALID_COLLECTION"
	codeMissingFields     = "MISSING_FIELDS"
	codeInvalidType       = "INVALID_TYPE"
	codeNotFound          = "NOT_FOUND"
	codeConflict          = "CONFLICT"
	codeRateLimit         = "RATE_LIMIT"
	codeNetworkError      = "NETWORK_ERROR"
	codePermissionDenied  = "PERMISSION_DENIED"
	codeConfigError       = "CONFIG_ERROR"
	codeInsufficientFunds = "INSUFFICIENT_FUNDS"
	codeTerminalState     = "TERMINAL_STATE"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func writeError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorBody{
		Error:   http.StatusText(status),
		Message: message,
		Code:    code,
	})
}

// respondError maps service-layer sentinels onto HTTP statuses and codes.
// Unknown errors are reported as 500 without leaking internals.
func respondError(c *gin.Context, err error) {
	var validationErr *store.ValidationError
	if errors.As(err, &validationErr) {
		if len(validationErr.MissingFields) > 0 {
			writeError(c, http.StatusBadRequest, codeMissingFields,
				"missing required fields: "+strings.Join(validationErr.MissingFields, ", "))
			return
		}
		writeError(c, http.StatusBadRequest, codeInvalidType, validationErr.Error())
		return
	}

	switch {
	case errors.Is(err, store.ErrInsufficientFunds):
		writeError(c, http.StatusBadRequest, codeInsufficientFunds, err.Error())
	case errors.Is(err, store.ErrTerminalState):
		writeError(c, http.StatusConflict, codeTerminalState, err.Error())
	case errors.Is(err, store.ErrValidation):
		writeError(c, http.StatusBadRequest, codeInvalidType, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(c, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, store.ErrConflict):
		writeError(c, http.StatusConflict, codeConflict, err.Error())
	case errors.Is(err, store.ErrRateLimited):
		writeError(c, http.StatusTooManyRequests, codeRateLimit, err.Error())
	case errors.Is(err, store.ErrAuth):
		writeError(c, http.StatusUnauthorized, codePermissionDenied, err.Error())
	case errors.Is(err, store.ErrConfiguration):
		writeError(c, http.StatusInternalServerError, codeConfigError, err.Error())
	case errors.Is(err, store.ErrNetwork):
		writeError(c, http.StatusBadGateway, codeNetworkError, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, codeNetworkError, "internal error")
	}
}
