package rewardsapi

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/nimbusward/tokengate/internal/httputil"
)

// ClaimsClient reads claims history and submits new claims.
type ClaimsClient struct {
	http *httputil.Client
}

// NewClaimsClient creates a ClaimsClient.
func NewClaimsClient(baseURL, apiKey string, timeout time.Duration) (*ClaimsClient, error) {
	client, err := httputil.New(httputil.Config{
		Service: "claims",
		BaseURL: baseURL,
		Timeout: timeout,
		Headers: apiKeyHeader(apiKey),
	})
	if err != nil {
		return nil, err
	}
	return &ClaimsClient{http: client}, nil
}

// History returns the claims recorded for an address.
func (c *ClaimsClient) History(ctx context.Context, address string) ([]ClaimRecord, error) {
	var records []ClaimRecord
	path := "/claims?address=" + url.QueryEscape(address)
	if err := c.http.Get(ctx, path, &records); err != nil {
		return nil, fmt.Errorf("claims history for %s: %w", address, err)
	}
	return records, nil
}

// Submit files a new claim.
func (c *ClaimsClient) Submit(ctx context.Context, claim *ClaimSubmission) (*ClaimRecord, error) {
	var record ClaimRecord
	if err := c.http.Post(ctx, "/claims", claim, &record); err != nil {
		return nil, fmt.Errorf("submit claim for %s: %w", claim.Address, err)
	}
	return &record, nil
}

// AllocationClient looks up allocation proofs.
type AllocationClient struct {
	http *httputil.Client
}

// NewAllocationClient creates an AllocationClient.
func NewAllocationClient(baseURL, apiKey string, timeout time.Duration) (*AllocationClient, error) {
	client, err := httputil.New(httputil.Config{
		Service: "allocation",
		BaseURL: baseURL,
		Timeout: timeout,
		Headers: apiKeyHeader(apiKey),
	})
	if err != nil {
		return nil, err
	}
	return &AllocationClient{http: client}, nil
}

// Lookup returns the allocation proof for an address.
func (c *AllocationClient) Lookup(ctx context.Context, address string) (*AllocationProof, error) {
	var proof AllocationProof
	path := "/allocations/" + url.PathEscape(address)
	if err := c.http.Get(ctx, path, &proof); err != nil {
		return nil, fmt.Errorf("allocation lookup for %s: %w", address, err)
	}
	return &proof, nil
}

func apiKeyHeader(apiKey string) map[string]string {
	if apiKey == "" {
		return nil
	}
	return map[string]string{"X-API-Key": apiKey}
}
