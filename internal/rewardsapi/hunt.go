package rewardsapi

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/nimbusward/tokengate/internal/httputil"
	"github.com/nimbusward/tokengate/internal/scavenger"
)

// HuntClient talks to the scavenger-hunt REST API: challenge retrieval,
// solution submission, address registration and donations.
type HuntClient struct {
	http *httputil.Client
}

// NewHuntClient creates a HuntClient.
func NewHuntClient(baseURL, apiKey string, timeout time.Duration) (*HuntClient, error) {
	client, err := httputil.New(httputil.Config{
		Service: "scavenger",
		BaseURL: baseURL,
		Timeout: timeout,
		Headers: apiKeyHeader(apiKey),
	})
	if err != nil {
		return nil, err
	}
	return &HuntClient{http: client}, nil
}

// Challenge fetches the current mining challenge for an address.
func (c *HuntClient) Challenge(ctx context.Context, address string) (*scavenger.Challenge, error) {
	var challenge scavenger.Challenge
	path := "/hunt/challenge?address=" + url.QueryEscape(address)
	if err := c.http.Get(ctx, path, &challenge); err != nil {
		return nil, fmt.Errorf("fetch challenge for %s: %w", address, err)
	}
	return &challenge, nil
}

// SubmitSolution submits a solved challenge.
func (c *HuntClient) SubmitSolution(ctx context.Context, address, challengeID string, sol *scavenger.Solution) (*SubmissionReceipt, error) {
	req := struct {
		Address     string `json:"address"`
		ChallengeID string `json:"challengeId"`
		Nonce       string `json:"nonce"`
		Hash        string `json:"hash"`
	}{address, challengeID, sol.Nonce, sol.Hash}

	var receipt SubmissionReceipt
	if err := c.http.Post(ctx, "/hunt/solve", req, &receipt); err != nil {
		return nil, fmt.Errorf("submit solution for challenge %s: %w", challengeID, err)
	}
	return &receipt, nil
}

// Register registers an address for the hunt.
func (c *HuntClient) Register(ctx context.Context, address, publicKey, signature string) (*RegisteredAddress, error) {
	req := struct {
		Address   string `json:"address"`
		PublicKey string `json:"publicKey"`
		Signature string `json:"signature"`
	}{address, publicKey, signature}

	var reg RegisteredAddress
	if err := c.http.Post(ctx, "/hunt/register", req, &reg); err != nil {
		return nil, fmt.Errorf("register %s: %w", address, err)
	}
	return &reg, nil
}

// Donate donates earned hunt rewards.
func (c *HuntClient) Donate(ctx context.Context, address, amount string) (*SubmissionReceipt, error) {
	req := struct {
		Address string `json:"address"`
		Amount  string `json:"amount"`
	}{address, amount}

	var receipt SubmissionReceipt
	if err := c.http.Post(ctx, "/hunt/donate", req, &receipt); err != nil {
		return nil, fmt.Errorf("donate from %s: %w", address, err)
	}
	return &receipt, nil
}

// Consolidate merges an address's hunt balances.
func (c *HuntClient) Consolidate(ctx context.Context, address string) (*SubmissionReceipt, error) {
	req := struct {
		Address string `json:"address"`
	}{address}

	var receipt SubmissionReceipt
	if err := c.http.Post(ctx, "/hunt/consolidate", req, &receipt); err != nil {
		return nil, fmt.Errorf("consolidate %s: %w", address, err)
	}
	return &receipt, nil
}
