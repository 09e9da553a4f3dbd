// Package orchestrator exposes one entry point per transaction type for the
// custody-backed reward-token system. It composes the resource pool, the
// custody signing state machine, coin selection and the external data
// services; the HTTP controller layer sits above it.
package orchestrator

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/nimbusward/tokengate/internal/audit"
	"github.com/nimbusward/tokengate/internal/cardano"
	"github.com/nimbusward/tokengate/internal/custody"
	"github.com/nimbusward/tokengate/internal/logging"
	"github.com/nimbusward/tokengate/internal/pool"
	"github.com/nimbusward/tokengate/internal/rewardsapi"
	"github.com/nimbusward/tokengate/internal/scavenger"
)

// ClaimsAPI is the claims-service surface the orchestrator needs.
type ClaimsAPI interface {
	History(ctx context.Context, address string) ([]rewardsapi.ClaimRecord, error)
	Submit(ctx context.Context, claim *rewardsapi.ClaimSubmission) (*rewardsapi.ClaimRecord, error)
}

// AllocationAPI is the allocation-proof surface.
type AllocationAPI interface {
	Lookup(ctx context.Context, address string) (*rewardsapi.AllocationProof, error)
}

// RedemptionAPI is the redemption-service surface.
type RedemptionAPI interface {
	PhaseConfig(ctx context.Context) (*rewardsapi.PhaseConfig, error)
	ThawSchedule(ctx context.Context, address string) ([]rewardsapi.ThawEntry, error)
	BuildTransaction(ctx context.Context, address, fundingTxHash string, fundingIndex int) (*rewardsapi.BuiltRedemption, error)
	SubmitTransaction(ctx context.Context, txID, signedHex, witnessHex string) (string, error)
	TransactionStatus(ctx context.Context, txHash string) (string, error)
}

// HuntAPI is the scavenger-hunt surface.
type HuntAPI interface {
	Challenge(ctx context.Context, address string) (*scavenger.Challenge, error)
	SubmitSolution(ctx context.Context, address, challengeID string, sol *scavenger.Solution) (*rewardsapi.SubmissionReceipt, error)
	Register(ctx context.Context, address, publicKey, signature string) (*rewardsapi.RegisteredAddress, error)
	Donate(ctx context.Context, address, amount string) (*rewardsapi.SubmissionReceipt, error)
	Consolidate(ctx context.Context, address string) (*rewardsapi.SubmissionReceipt, error)
}

// Service is the orchestration entry point.
type Service struct {
	pool     *pool.Pool
	provider cardano.Provider
	codec    cardano.Codec

	claims     ClaimsAPI
	allocation AllocationAPI
	redemption RedemptionAPI
	hunt       HuntAPI

	audit  *audit.Writer
	logger *logging.Logger

	tokenUnit        string
	recipientMinimum *big.Int
	changeMinimum    *big.Int

	// now is swapped in tests to pin the clock.
	now func() time.Time
}

// Config wires a Service.
type Config struct {
	Custody  custody.API
	Provider cardano.Provider
	Codec    cardano.Codec

	Claims     ClaimsAPI
	Allocation AllocationAPI
	Redemption RedemptionAPI
	Hunt       HuntAPI

	Audit  *audit.Writer
	Logger *logging.Logger

	// TokenUnit is policy id ++ hex token name.
	TokenUnit        string
	RecipientMinimum *big.Int
	ChangeMinimum    *big.Int

	PoolCapacity      int
	PoolIdleTimeout   time.Duration
	PoolSweepSchedule string
	PollInterval      time.Duration
	// SigningTimeout bounds each custody signing operation; zero means the
	// caller's ctx is the only bound.
	SigningTimeout time.Duration
}

// New creates a Service and its handle pool.
func New(cfg Config) (*Service, error) {
	if cfg.Custody == nil {
		return nil, fmt.Errorf("orchestrator: custody API required")
	}
	if cfg.Provider == nil || cfg.Codec == nil {
		return nil, fmt.Errorf("orchestrator: chain provider and codec required")
	}
	if cfg.TokenUnit == "" {
		return nil, fmt.Errorf("orchestrator: token unit required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	recipientMin := cfg.RecipientMinimum
	if recipientMin == nil {
		recipientMin = big.NewInt(1_200_000)
	}
	changeMin := cfg.ChangeMinimum
	if changeMin == nil {
		changeMin = big.NewInt(1_200_000)
	}

	s := &Service{
		provider:         cfg.Provider,
		codec:            cfg.Codec,
		claims:           cfg.Claims,
		allocation:       cfg.Allocation,
		redemption:       cfg.Redemption,
		hunt:             cfg.Hunt,
		audit:            cfg.Audit,
		logger:           logger,
		tokenUnit:        cfg.TokenUnit,
		recipientMinimum: recipientMin,
		changeMinimum:    changeMin,
		now:              time.Now,
	}

	handles, err := pool.New(pool.Config{
		Capacity:      cfg.PoolCapacity,
		IdleTimeout:   cfg.PoolIdleTimeout,
		SweepSchedule: cfg.PoolSweepSchedule,
		Logger:        logger,
		Builder: func(ctx context.Context, key pool.Key) (*custody.AccountHandle, error) {
			return custody.NewAccountHandle(ctx, cfg.Custody, key.VaultAccountID, key.Chain, cfg.PollInterval, cfg.SigningTimeout, logger)
		},
	})
	if err != nil {
		return nil, err
	}
	s.pool = handles
	return s, nil
}

// acquire checks out the handle for (vaultAccountID, chain). The returned
// release function must be called exactly once.
func (s *Service) acquire(ctx context.Context, vaultAccountID string, chain custody.Chain) (*custody.AccountHandle, func(), error) {
	key := pool.Key{VaultAccountID: vaultAccountID, Chain: chain}
	handle, err := s.pool.Acquire(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	return handle, func() { s.pool.Release(key) }, nil
}

// GetAddresses lists the vault account's addresses on a chain.
func (s *Service) GetAddresses(ctx context.Context, vaultAccountID string, chain custody.Chain) ([]string, error) {
	handle, release, err := s.acquire(ctx, vaultAccountID, chain)
	if err != nil {
		return nil, err
	}
	defer release()
	return handle.Addresses(ctx)
}

// AllocationCheck looks up the allocation proof for the vault account's
// address on a chain.
func (s *Service) AllocationCheck(ctx context.Context, vaultAccountID string, chain custody.Chain) (*rewardsapi.AllocationProof, error) {
	handle, release, err := s.acquire(ctx, vaultAccountID, chain)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.allocation.Lookup(ctx, handle.Address)
}

// ClaimsHistory returns the claims recorded for the vault account's address
// on a chain.
func (s *Service) ClaimsHistory(ctx context.Context, vaultAccountID string, chain custody.Chain) ([]rewardsapi.ClaimRecord, error) {
	handle, release, err := s.acquire(ctx, vaultAccountID, chain)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.claims.History(ctx, handle.Address)
}

// MakeClaim signs the claim message with the custody service and files the
// claim, proving address ownership without the key ever leaving custody.
func (s *Service) MakeClaim(ctx context.Context, vaultAccountID string, chain custody.Chain, messageHex string) (*rewardsapi.ClaimRecord, error) {
	handle, release, err := s.acquire(ctx, vaultAccountID, chain)
	if err != nil {
		return nil, err
	}
	defer release()

	sig, outcome, err := handle.SignReshaped(ctx, messageHex, "reward claim for "+handle.Address)
	if err != nil {
		return nil, fmt.Errorf("make claim for vault %s on %s: %w", vaultAccountID, chain, err)
	}

	return s.claims.Submit(ctx, &rewardsapi.ClaimSubmission{
		Address:   handle.Address,
		Chain:     chain.String(),
		PublicKey: outcome.PublicKey,
		Signature: sig,
		Message:   messageHex,
	})
}

// PoolMetrics reports pool occupancy.
func (s *Service) PoolMetrics() pool.Metrics {
	return s.pool.Metrics()
}

// Shutdown stops the pool sweep, drops all handles and closes the audit
// trail.
func (s *Service) Shutdown() {
	s.pool.Shutdown()
	if s.audit != nil {
		if err := s.audit.Close(); err != nil {
			s.logger.WithError(err).Warn("audit writer close failed")
		}
	}
}
