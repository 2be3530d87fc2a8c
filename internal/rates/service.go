package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"invest-platform-go/internal/models"
	"invest-platform-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

// Service maintains a single time-boxed snapshot of spot prices. Cache
// misses fetch from the upstream market data API; any upstream failure
// (HTTP error, timeout, missing credentials) degrades to the static
// fallback table. GetRates never returns an error.
type Service struct {
	cfg        models.RatesConfig
	httpClient *http.Client
	symbols    []string
	fallback   map[string]decimal.Decimal

	mu        sync.Mutex
	snapshot  *models.RateSnapshot
	fetchedAt time.Time
}

func NewService(cfg models.RatesConfig) *Service {
	httpClient, err := createUpstreamClient(cfg.RequestTimeout)
	if err != nil {
		// The transport fallback still works without http2; log and carry on.
		zap.L().Warn("Failed to configure http2 transport for rates client", zap.Error(err))
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}

	return &Service{
		cfg:        cfg,
		httpClient: httpClient,
		symbols:    append([]string(nil), store.SupportedAssets...),
		fallback:   loadFallbackTable(cfg.FallbackFile),
	}
}

// NewServiceWithSymbols narrows the symbol set, for deployments that limit
// supported assets via the assets file.
func NewServiceWithSymbols(cfg models.RatesConfig, symbols []string) *Service {
	s := NewService(cfg)
	if len(symbols) > 0 {
		s.symbols = append([]string(nil), symbols...)
	}
	return s
}

func createUpstreamClient(timeout time.Duration) (*http.Client, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return nil, err
	}

	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &http.Client{Transport: tr, Timeout: timeout}, nil
}

// Symbols returns the supported crypto symbols.
func (s *Service) Symbols() []string {
	return append([]string(nil), s.symbols...)
}

// GetRates returns the current snapshot for the configured quote currency.
// A fresh cached snapshot is served immediately; otherwise the upstream is
// consulted, and on failure the static fallback table is returned tagged
// Source "fallback".
func (s *Service) GetRates(ctx context.Context) *models.RateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot != nil && time.Since(s.fetchedAt) < s.cfg.CacheTTL {
		cached := *s.snapshot
		cached.Cached = true
		cached.Age = time.Since(s.fetchedAt)
		return &cached
	}

	snapshot, err := s.fetchUpstream(ctx)
	if err != nil {
		zap.L().Warn("Upstream rate fetch failed, serving fallback table",
			zap.String("quote", s.cfg.QuoteCurrency),
			zap.Error(err))
		return s.fallbackSnapshot()
	}

	s.snapshot = snapshot
	s.fetchedAt = time.Now()

	result := *snapshot
	return &result
}

// Convert computes amount in `from` units expressed in `to` units, using the
// quote currency as the cross. Either side may be the quote currency itself.
func (s *Service) Convert(ctx context.Context, from, to string, amount decimal.Decimal) (decimal.Decimal, error) {
	snapshot := s.GetRates(ctx)

	fromPrice, err := s.priceOf(snapshot, from)
	if err != nil {
		return decimal.Zero, err
	}
	toPrice, err := s.priceOf(snapshot, to)
	if err != nil {
		return decimal.Zero, err
	}

	return amount.Mul(fromPrice).DivRound(toPrice, 8), nil
}

func (s *Service) priceOf(snapshot *models.RateSnapshot, symbol string) (decimal.Decimal, error) {
	if symbol == s.cfg.QuoteCurrency {
		return decimal.NewFromInt(1), nil
	}
	quote, ok := snapshot.Rates[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("unsupported symbol %q - %w", symbol, store.ErrValidation)
	}
	return quote.Price, nil
}

type exchangeRateResponse struct {
	Rate float64 `json:"rate"`
	Time string  `json:"time"`
}

func (s *Service) fetchUpstream(ctx context.Context) (*models.RateSnapshot, error) {
	if s.cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: market data API key not configured", store.ErrConfiguration)
	}

	now := time.Now().UTC()
	quotes := make(map[string]models.Quote, len(s.symbols))

	for _, symbol := range s.symbols {
		endpoint := fmt.Sprintf("%s/v1/exchangerate/%s/%s",
			s.cfg.APIBaseURL, url.PathEscape(symbol), url.PathEscape(s.cfg.QuoteCurrency))

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-CoinAPI-Key", s.cfg.APIKey)

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrNetwork, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			return nil, fmt.Errorf("%w: market data quota exceeded", store.ErrRateLimited)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("market data API returned %d for %s", resp.StatusCode, symbol)
		}

		var body exchangeRateResponse
		err = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to decode rate for %s: %w", symbol, err)
		}

		quotes[symbol] = models.Quote{
			Symbol: symbol,
			Price:  decimal.NewFromFloat(body.Rate),
			AsOf:   now,
			Source: "upstream",
		}
	}

	return &models.RateSnapshot{
		Quote: s.cfg.QuoteCurrency,
		Rates: quotes,
	}, nil
}

func (s *Service) fallbackSnapshot() *models.RateSnapshot {
	now := time.Now().UTC()
	quotes := make(map[string]models.Quote, len(s.fallback))
	for symbol, price := range s.fallback {
		quotes[symbol] = models.Quote{
			Symbol: symbol,
			Price:  price,
			AsOf:   now,
			Source: "fallback",
		}
	}

	return &models.RateSnapshot{
		Quote:    s.cfg.QuoteCurrency,
		Rates:    quotes,
		Fallback: true,
	}
}
