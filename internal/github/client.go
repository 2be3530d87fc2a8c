package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"time"

	"invest-platform-go/internal/models"
	"invest-platform-go/internal/store"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

// contentsFile is the subset of the contents API response the store needs.
type contentsFile struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	SHA      string `json:"sha"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha,omitempty"`
}

type putResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

type apiError struct {
	StatusCode int
	Message    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("contents API returned %d: %s", e.StatusCode, e.Message)
}

// client wraps the GitHub contents API for a single repository.
type client struct {
	baseURL    string
	owner      string
	repo       string
	branch     string
	token      string
	httpClient *http.Client

	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

func newClient(cfg models.GitHubConfig) (*client, error) {
	httpClient, err := createCustomHttpClient(cfg.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}

	return &client{
		baseURL:        cfg.APIBaseURL,
		owner:          cfg.Owner,
		repo:           cfg.Repo,
		branch:         cfg.Branch,
		token:          cfg.Token,
		httpClient:     &httpClient,
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
	}, nil
}

func createCustomHttpClient(timeout time.Duration) (http.Client, error) {
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
		return http.Client{}, err
	}

	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}

func (c *client) contentsURL(path string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.baseURL, url.PathEscape(c.owner), url.PathEscape(c.repo), path)
}

// getFile fetches a file's raw content and blob SHA. A missing file returns
// (nil, "", nil).
func (c *client) getFile(ctx context.Context, path string) ([]byte, string, error) {
	endpoint := c.contentsURL(path) + "?ref=" + url.QueryEscape(c.branch)

	var file contentsFile
	found, err := c.doWithRetry(ctx, http.MethodGet, endpoint, nil, &file)
	if err != nil {
		return nil, "", err
	}
	if !found {
		return nil, "", nil
	}

	decoded, err := decodeContent(file)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return decoded, file.SHA, nil
}

// putFile commits new content for path conditioned on sha. Empty sha creates
// the file and only succeeds when it does not exist yet.
func (c *client) putFile(ctx context.Context, path, message string, content []byte, sha string) (string, error) {
	body := putRequest{
		Message: message,
		Content: encodeContent(content),
		Branch:  c.branch,
		SHA:     sha,
	}

	var response putResponse
	if _, err := c.doWithRetry(ctx, http.MethodPut, c.contentsURL(path), &body, &response); err != nil {
		return "", err
	}
	return response.Content.SHA, nil
}

// doWithRetry performs one API call with bounded exponential backoff on
// transient failures. The boolean result reports whether the resource was
// found (GET 404 is not an error for this API's callers).
func (c *client) doWithRetry(ctx context.Context, method, endpoint string, body, out any) (bool, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.backoffFor(attempt)):
			case <-ctx.Done():
				return false, fmt.Errorf("%w: %v", store.ErrNetwork, ctx.Err())
			}
		}

		found, retryable, err := c.doOnce(ctx, method, endpoint, body, out)
		if err == nil {
			return found, nil
		}
		lastErr = err
		if !retryable {
			return false, err
		}

		zap.L().Warn("Transient contents API failure, retrying",
			zap.String("method", method),
			zap.String("endpoint", endpoint),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	return false, lastErr
}

func (c *client) doOnce(ctx context.Context, method, endpoint string, body, out any) (found bool, retryable bool, err error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return false, false, err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return false, false, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, true, fmt.Errorf("%w: %v", store.ErrNetwork, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, true, fmt.Errorf("%w: reading response: %v", store.ErrNetwork, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		if out != nil {
			if err := json.Unmarshal(payload, out); err != nil {
				return false, false, fmt.Errorf("failed to decode API response: %w", err)
			}
		}
		return true, false, nil

	case resp.StatusCode == http.StatusNotFound && method == http.MethodGet:
		return false, false, nil

	case resp.StatusCode == http.StatusConflict,
		resp.StatusCode == http.StatusUnprocessableEntity:
		// Stale or missing SHA on a PUT - another writer committed first.
		return false, false, fmt.Errorf("%w: %s", store.ErrConflict, apiMessage(payload))

	case resp.StatusCode == http.StatusUnauthorized:
		return false, false, fmt.Errorf("%w: %s", store.ErrAuth, apiMessage(payload))

	case resp.StatusCode == http.StatusForbidden:
		// GitHub reports quota exhaustion as 403 with a zeroed remaining header.
		if resp.Header.Get("X-RateLimit-Remaining") == "0" {
			return false, true, fmt.Errorf("%w: %s", store.ErrRateLimited, apiMessage(payload))
		}
		return false, false, fmt.Errorf("%w: %s", store.ErrAuth, apiMessage(payload))

	case resp.StatusCode == http.StatusTooManyRequests:
		return false, true, fmt.Errorf("%w: %s", store.ErrRateLimited, apiMessage(payload))

	case resp.StatusCode >= 500:
		return false, true, fmt.Errorf("%w: %s", store.ErrNetwork, (&apiError{resp.StatusCode, apiMessage(payload)}).Error())

	default:
		return false, false, &apiError{StatusCode: resp.StatusCode, Message: apiMessage(payload)}
	}
}

func (c *client) backoffFor(attempt int) time.Duration {
	backoff := float64(c.initialBackoff) * math.Pow(2, float64(attempt-1))
	if max := float64(c.maxBackoff); backoff > max {
		backoff = max
	}
	// Up to 10% jitter so concurrent retriers spread out.
	jitter := backoff * 0.1 * rand.Float64()
	return time.Duration(backoff + jitter)
}

func apiMessage(payload []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return string(payload)
}
