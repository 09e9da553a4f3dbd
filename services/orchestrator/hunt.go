package orchestrator

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/nimbusward/tokengate/internal/custody"
	"github.com/nimbusward/tokengate/internal/rewardsapi"
	"github.com/nimbusward/tokengate/internal/scavenger"
)

// RegisterHunt registers the vault account's address for the scavenger hunt,
// proving ownership with a custody signature over the address itself.
func (s *Service) RegisterHunt(ctx context.Context, vaultAccountID string, chain custody.Chain) (*rewardsapi.RegisteredAddress, error) {
	handle, release, err := s.acquire(ctx, vaultAccountID, chain)
	if err != nil {
		return nil, err
	}
	defer release()

	message := hex.EncodeToString([]byte("register:" + handle.Address))
	sig, outcome, err := handle.SignReshaped(ctx, message, "hunt registration for "+handle.Address)
	if err != nil {
		return nil, fmt.Errorf("register hunt for vault %s: %w", vaultAccountID, err)
	}
	return s.hunt.Register(ctx, handle.Address, outcome.PublicKey, sig)
}

// SolveHuntRequest parameterizes one solve attempt.
type SolveHuntRequest struct {
	VaultAccountID string
	Chain          custody.Chain
	// MaxAttempts bounds the search; zero means unbounded.
	MaxAttempts uint64
	// OnProgress, when set, receives solver telemetry at most once per
	// second.
	OnProgress scavenger.ProgressFunc
}

// SolveHuntResult carries the solution and the server's verdict.
type SolveHuntResult struct {
	Challenge *scavenger.Challenge
	Solution  *scavenger.Solution
	Receipt   *rewardsapi.SubmissionReceipt
}

// SolveHunt fetches the current challenge for the vault account's address,
// runs the proof-of-work search, and submits the solution. The search is
// CPU-bound and runs on the calling goroutine; callers wanting concurrency
// dispatch this on a worker and cancel via ctx.
func (s *Service) SolveHunt(ctx context.Context, req SolveHuntRequest) (*SolveHuntResult, error) {
	handle, release, err := s.acquire(ctx, req.VaultAccountID, req.Chain)
	if err != nil {
		return nil, err
	}
	address := handle.Address
	// The custody handle is only needed for the address; release it before
	// the potentially long search.
	release()

	challenge, err := s.hunt.Challenge(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("solve hunt for %s: fetch challenge: %w", address, err)
	}

	solver := &scavenger.Solver{
		MaxAttempts: req.MaxAttempts,
		OnProgress:  req.OnProgress,
	}
	solution, err := solver.Solve(ctx, address, challenge)
	if err != nil {
		return nil, fmt.Errorf("solve hunt for %s: %w", address, err)
	}

	s.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"address":   address,
		"challenge": challenge.ChallengeID,
		"attempts":  solution.Attempts,
		"elapsed":   solution.Elapsed.String(),
	}).Info("challenge solved")

	receipt, err := s.hunt.SubmitSolution(ctx, address, challenge.ChallengeID, solution)
	if err != nil {
		return nil, fmt.Errorf("solve hunt for %s: submit solution: %w", address, err)
	}

	return &SolveHuntResult{Challenge: challenge, Solution: solution, Receipt: receipt}, nil
}

// Donate donates hunt rewards from the vault account's address.
func (s *Service) Donate(ctx context.Context, vaultAccountID string, chain custody.Chain, amount string) (*rewardsapi.SubmissionReceipt, error) {
	handle, release, err := s.acquire(ctx, vaultAccountID, chain)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.hunt.Donate(ctx, handle.Address, amount)
}

// Consolidate merges the vault account's hunt balances.
func (s *Service) Consolidate(ctx context.Context, vaultAccountID string, chain custody.Chain) (*rewardsapi.SubmissionReceipt, error) {
	handle, release, err := s.acquire(ctx, vaultAccountID, chain)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.hunt.Consolidate(ctx, handle.Address)
}
