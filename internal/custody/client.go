package custody

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/time/rate"

	"github.com/nimbusward/tokengate/internal/httputil"
	"github.com/nimbusward/tokengate/internal/logging"
	"github.com/nimbusward/tokengate/internal/metrics"
)

// API is the custody-service surface the rest of the system depends on.
// The REST client implements it; tests substitute fakes.
type API interface {
	CreateSigningOperation(ctx context.Context, req *SigningRequest) (string, error)
	GetOperationStatus(ctx context.Context, operationID string) (*OperationState, error)
	GetAddress(ctx context.Context, vaultAccountID, assetID string, derivationIndex int) (string, error)
	GetAddresses(ctx context.Context, vaultAccountID, assetID string) ([]string, error)
}

// Client is the REST client for the custody service. All calls pass through a
// rate limiter; address lookups are served from an optional cache because an
// address for a (vault account, asset) pair is immutable.
type Client struct {
	http    *httputil.Client
	limiter *rate.Limiter
	cache   *redis.Client
	ttl     time.Duration
	logger  *logging.Logger
}

// ClientConfig configures the custody client.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	// APISecretPath points at a file holding the API secret, kept out of
	// config files and the environment. Optional; when set it is sent as the
	// bearer credential on every request.
	APISecretPath string
	Timeout       time.Duration
	RatePerSecond float64
	RateBurst     int
	// Cache is optional; when nil, address lookups always hit the API.
	Cache    *redis.Client
	CacheTTL time.Duration
	Logger   *logging.Logger
}

// NewClient creates a custody client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("custody: API key required")
	}
	headers := map[string]string{"X-API-Key": cfg.APIKey}
	if cfg.APISecretPath != "" {
		secret, err := os.ReadFile(cfg.APISecretPath)
		if err != nil {
			return nil, fmt.Errorf("custody: read API secret: %w", err)
		}
		headers["Authorization"] = "Bearer " + strings.TrimSpace(string(secret))
	}
	httpClient, err := httputil.New(httputil.Config{
		Service: "custody",
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Headers: headers,
	})
	if err != nil {
		return nil, err
	}

	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 20
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &Client{
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		cache:   cfg.Cache,
		ttl:     ttl,
		logger:  logger,
	}, nil
}

// CreateSigningOperation submits a signing request and returns the operation
// id to poll.
func (c *Client) CreateSigningOperation(ctx context.Context, req *SigningRequest) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.http.Post(ctx, "/v1/transactions", req, &resp); err != nil {
		metrics.RecordAPIRequest("custody", "error")
		return "", fmt.Errorf("create signing operation for vault %s: %w", req.VaultAccountID, err)
	}
	metrics.RecordAPIRequest("custody", "ok")
	return resp.ID, nil
}

// GetOperationStatus fetches the current state of a signing operation.
func (c *Client) GetOperationStatus(ctx context.Context, operationID string) (*OperationState, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var state OperationState
	if err := c.http.Get(ctx, "/v1/transactions/"+operationID, &state); err != nil {
		metrics.RecordAPIRequest("custody", "error")
		return nil, fmt.Errorf("get operation %s status: %w", operationID, err)
	}
	metrics.RecordAPIRequest("custody", "ok")
	return &state, nil
}

// GetAddress returns the address at derivationIndex for the vault account and
// asset, consulting the cache first.
func (c *Client) GetAddress(ctx context.Context, vaultAccountID, assetID string, derivationIndex int) (string, error) {
	cacheKey := fmt.Sprintf("custody:addr:%s:%s:%d", vaultAccountID, assetID, derivationIndex)
	if c.cache != nil {
		if addr, err := c.cache.Get(ctx, cacheKey).Result(); err == nil && addr != "" {
			return addr, nil
		}
	}

	addrs, err := c.GetAddresses(ctx, vaultAccountID, assetID)
	if err != nil {
		return "", err
	}
	if derivationIndex >= len(addrs) {
		return "", fmt.Errorf("vault %s has no %s address at index %d", vaultAccountID, assetID, derivationIndex)
	}
	addr := addrs[derivationIndex]

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, addr, c.ttl).Err(); err != nil {
			c.logger.WithContext(ctx).WithError(err).Warn("address cache write failed")
		}
	}
	return addr, nil
}

// GetAddresses returns all addresses for the vault account and asset.
func (c *Client) GetAddresses(ctx context.Context, vaultAccountID, assetID string) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var resp []struct {
		Address string `json:"address"`
	}
	path := fmt.Sprintf("/v1/vault/accounts/%s/%s/addresses", vaultAccountID, assetID)
	if err := c.http.Get(ctx, path, &resp); err != nil {
		metrics.RecordAPIRequest("custody", "error")
		return nil, fmt.Errorf("get addresses for vault %s asset %s: %w", vaultAccountID, assetID, err)
	}
	metrics.RecordAPIRequest("custody", "ok")

	addrs := make([]string, 0, len(resp))
	for _, a := range resp {
		addrs = append(addrs, a.Address)
	}
	return addrs, nil
}
