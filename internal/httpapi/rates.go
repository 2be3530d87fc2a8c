package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// handleRates serves the action-dispatched market data surface.
func (s *Server) handleRates(c *gin.Context) {
	switch c.DefaultQuery("action", "rates") {
	case "rates":
		snapshot := s.rates.GetRates(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"data":     snapshot.Rates,
			"quote":    snapshot.Quote,
			"cached":   snapshot.Cached,
			"fallback": snapshot.Fallback,
		})

	case "exchange":
		from := c.Query("from")
		to := c.Query("to")
		raw := c.Query("amount")
		if from == "" || to == "" || raw == "" {
			writeError(c, http.StatusBadRequest, codeMissingFields, "missing required fields: from, to, amount")
			return
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			writeError(c, http.StatusBadRequest, codeInvalidType, "amount must be a decimal number")
			return
		}

		converted, err := s.rates.Convert(c.Request.Context(), from, to, amount)
		if err != nil {
			respondError(c, err)
			return
		}
		snapshot := s.rates.GetRates(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"data":     gin.H{"from": from, "to": to, "amount": amount, "result": converted},
			"cached":   snapshot.Cached,
			"fallback": snapshot.Fallback,
		})

	case "symbols":
		c.JSON(http.StatusOK, gin.H{"success": true, "data": s.rates.Symbols()})

	default:
		writeError(c, http.StatusBadRequest, codeInvalidType, "unknown action")
	}
}
