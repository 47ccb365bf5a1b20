package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/vietddude/dexcache/internal/metrics"
)

// maxBodyBytes bounds how much of a catalog response is read.
const maxBodyBytes = 8 << 20

// errBodyTooLarge marks a 200 whose body exceeds maxBodyBytes.
var errBodyTooLarge = errors.New("response body exceeds limit")

// Client fetches raw species payloads from the remote catalog.
// It is stateless across calls apart from the pooled transport.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	maxBody    int64
	log        *slog.Logger
}

// NewClient creates a catalog client. Zero config fields take their
// defaults; values that fail Validate fall back to the defaults as well.
func NewClient(cfg Config) *Client {
	cfg = cfg.WithDefaults()
	def := Config{}.WithDefaults()
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}

	dialer := &net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}

	return &Client{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				DialContext:         dialer.DialContext,
				TLSHandshakeTimeout: cfg.ConnectTimeout,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		maxBody: maxBodyBytes,
		log:     slog.Default().With("component", "catalog"),
	}
}

// URL returns the canonical catalog URL for key.
func (c *Client) URL(key string) string {
	return c.baseURL + "/" + url.PathEscape(key)
}

// Fetch looks key up in the catalog. 200 and 404 end the call at once; any
// other status or a transport failure is retried with exponential backoff
// until the attempt budget is spent, which yields Unavailable.
func (c *Client) Fetch(ctx context.Context, key string) Result {
	start := time.Now()
	res := Result{Outcome: Unavailable}

	backoff := retry.WithMaxRetries(
		uint64(c.cfg.MaxAttempts-1),
		retry.NewExponential(c.cfg.InitialBackoff),
	)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		res.Attempts++
		c.log.Debug("Fetching from catalog", "key", key, "attempt", res.Attempts, "max_attempts", c.cfg.MaxAttempts)

		status, body, err := c.attempt(ctx, key)
		res.Status = status
		if err != nil {
			metrics.RemoteAttemptsTotal.WithLabelValues("transport").Inc()
			c.log.Warn("Catalog attempt failed", "key", key, "attempt", res.Attempts, "error", err)
			return retry.RetryableError(err)
		}
		metrics.RemoteAttemptsTotal.WithLabelValues(statusClass(status)).Inc()

		switch classifyStatus(status) {
		case actionFound:
			res.Outcome = Found
			res.Body = body
			return nil
		case actionNotFound:
			res.Outcome = NotFound
			return nil
		}

		c.log.Warn("Unexpected catalog status", "key", key, "attempt", res.Attempts, "status", status)
		return retry.RetryableError(fmt.Errorf("unexpected status %d", status))
	})

	if err != nil {
		res.Outcome = Unavailable
		res.Body = ""
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			c.log.Warn("Catalog fetch interrupted", "key", key, "attempts", res.Attempts, "error", err)
		} else {
			c.log.Error("Giving up on catalog fetch", "key", key, "attempts", res.Attempts, "last_status", res.Status, "error", err)
		}
	} else {
		c.log.Info("Catalog answered", "key", key, "outcome", res.Outcome.String(), "attempts", res.Attempts)
	}

	metrics.RemoteOutcomesTotal.WithLabelValues(res.Outcome.String()).Inc()
	metrics.RemoteLatency.Observe(time.Since(start).Seconds())
	return res
}

// attempt issues one GET bounded by the per-attempt timeout.
func (c *Client) attempt(ctx context.Context, key string) (int, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(key), nil)
	if err != nil {
		return 0, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("catalog call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return resp.StatusCode, "", nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return 0, "", fmt.Errorf("read response: %w", err)
	}
	if int64(len(body)) > c.maxBody {
		return 0, "", fmt.Errorf("read response: %w (%d bytes)", errBodyTooLarge, c.maxBody)
	}
	return resp.StatusCode, string(body), nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
