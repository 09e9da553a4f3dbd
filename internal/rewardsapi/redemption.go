package rewardsapi

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/nimbusward/tokengate/internal/httputil"
)

// RedemptionClient talks to the redemption REST API: phase configuration,
// thaw schedules, and building/submitting redemption transactions.
type RedemptionClient struct {
	http *httputil.Client
}

// NewRedemptionClient creates a RedemptionClient.
func NewRedemptionClient(baseURL, apiKey string, timeout time.Duration) (*RedemptionClient, error) {
	client, err := httputil.New(httputil.Config{
		Service: "redemption",
		BaseURL: baseURL,
		Timeout: timeout,
		Headers: apiKeyHeader(apiKey),
	})
	if err != nil {
		return nil, err
	}
	return &RedemptionClient{http: client}, nil
}

// PhaseConfig fetches the current redemption phase configuration.
func (c *RedemptionClient) PhaseConfig(ctx context.Context) (*PhaseConfig, error) {
	var cfg PhaseConfig
	if err := c.http.Get(ctx, "/redemption/phase", &cfg); err != nil {
		return nil, fmt.Errorf("fetch phase config: %w", err)
	}
	return &cfg, nil
}

// ThawSchedule returns the thaw schedule for an address.
func (c *RedemptionClient) ThawSchedule(ctx context.Context, address string) ([]ThawEntry, error) {
	var entries []ThawEntry
	path := "/redemption/thaw/" + url.PathEscape(address)
	if err := c.http.Get(ctx, path, &entries); err != nil {
		return nil, fmt.Errorf("thaw schedule for %s: %w", address, err)
	}
	return entries, nil
}

// BuildTransaction asks the redemption API to build an unsigned redemption
// transaction funded by the given UTXO.
func (c *RedemptionClient) BuildTransaction(ctx context.Context, address, fundingTxHash string, fundingIndex int) (*BuiltRedemption, error) {
	req := struct {
		Address      string `json:"address"`
		FundingTx    string `json:"fundingTx"`
		FundingIndex int    `json:"fundingIndex"`
	}{address, fundingTxHash, fundingIndex}

	var built BuiltRedemption
	if err := c.http.Post(ctx, "/redemption/build", req, &built); err != nil {
		return nil, fmt.Errorf("build redemption for %s: %w", address, err)
	}
	return &built, nil
}

// SubmitTransaction submits the signed redemption transaction with its
// witness set.
func (c *RedemptionClient) SubmitTransaction(ctx context.Context, txID, signedHex, witnessHex string) (string, error) {
	req := struct {
		TxID       string `json:"txId"`
		SignedHex  string `json:"signedHex"`
		WitnessHex string `json:"witnessHex"`
	}{txID, signedHex, witnessHex}

	var resp struct {
		TxHash string `json:"txHash"`
	}
	if err := c.http.Post(ctx, "/redemption/submit", req, &resp); err != nil {
		return "", fmt.Errorf("submit redemption %s: %w", txID, err)
	}
	return resp.TxHash, nil
}

// TransactionStatus returns the redemption API's view of a submitted
// transaction.
func (c *RedemptionClient) TransactionStatus(ctx context.Context, txHash string) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.http.Get(ctx, "/redemption/status/"+url.PathEscape(txHash), &resp); err != nil {
		return "", fmt.Errorf("redemption status for %s: %w", txHash, err)
	}
	return resp.Status, nil
}
