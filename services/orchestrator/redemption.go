package orchestrator

import (
	"context"
	"fmt"

	"github.com/nimbusward/tokengate/internal/audit"
	"github.com/nimbusward/tokengate/internal/cardano"
	"github.com/nimbusward/tokengate/internal/custody"
	"github.com/nimbusward/tokengate/internal/errors"
	"github.com/nimbusward/tokengate/internal/rewardsapi"
)

// RedemptionResult reports a submitted redemption.
type RedemptionResult struct {
	TxHash  string
	TxID    string
	Funding string
	AuditID string
}

// Redeem runs the token-redemption sequence for the vault account's Cardano
// address. Every step fails fast and is wrapped with its name, so operators
// can tell "window closed" from "no redeemable thaw" from "build failed" from
// "signing failed" from "submit failed".
func (s *Service) Redeem(ctx context.Context, vaultAccountID string) (*RedemptionResult, error) {
	handle, release, err := s.acquire(ctx, vaultAccountID, custody.ChainCardano)
	if err != nil {
		return nil, err
	}
	defer release()
	address := handle.Address

	// 1. Phase window. Read fresh each attempt; the window is
	// time-dependent and must never be cached across runs.
	phase, err := s.redemption.PhaseConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("redeem %s: fetch phase config: %w", address, err)
	}
	if now := s.now(); !phase.IsOpen(now) {
		start, end := phase.Window()
		return nil, fmt.Errorf("redeem %s: %w", address,
			errors.NewPreconditionError("redemption window",
				fmt.Sprintf("closed at %s (window %s to %s)", now.UTC().Format("2006-01-02T15:04:05Z"), start.Format("2006-01-02T15:04:05Z"), end.Format("2006-01-02T15:04:05Z"))))
	}

	// 2. Thaw eligibility.
	schedule, err := s.redemption.ThawSchedule(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("redeem %s: fetch thaw schedule: %w", address, err)
	}
	if !hasRedeemable(schedule) {
		return nil, fmt.Errorf("redeem %s: %w", address,
			errors.NewPreconditionError("thaw schedule", "no redeemable entry"))
	}

	// 3. Funding input: the single largest base-asset UTXO. Redemption
	// spends only base asset, so no token-aware selection is needed.
	utxos, err := s.provider.ListUtxos(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("redeem %s: fetch utxos: %w", address, err)
	}
	funding, err := largestBaseUtxo(utxos)
	if err != nil {
		return nil, fmt.Errorf("redeem %s: select funding utxo: %w", address, err)
	}

	// 4. Unsigned transaction from the redemption API.
	built, err := s.redemption.BuildTransaction(ctx, address, funding.TxHash, funding.OutputIndex)
	if err != nil {
		return nil, fmt.Errorf("redeem %s: build transaction: %w", address, err)
	}

	// 5. Sign the transaction id; the raw ed25519 signature is wrapped into
	// a witness-set encoding by the codec.
	outcome, err := handle.Sign(ctx, built.TxID, "redemption for "+address)
	if err != nil {
		return nil, fmt.Errorf("redeem %s: sign transaction %s: %w", address, built.TxID, err)
	}
	signedHex, err := s.codec.AssembleWitness(ctx, built.UnsignedHex, outcome.PublicKey, outcome.FullSignature)
	if err != nil {
		return nil, fmt.Errorf("redeem %s: assemble witness: %w", address, err)
	}

	// 6. Submit signed transaction + witness set.
	txHash, err := s.redemption.SubmitTransaction(ctx, built.TxID, signedHex, outcome.FullSignature)
	if err != nil {
		return nil, fmt.Errorf("redeem %s: submit transaction: %w", address, err)
	}

	// 7. Audit record of the submission.
	auditID := s.writeAudit(audit.Record{
		Operation:      "redeem",
		VaultAccountID: vaultAccountID,
		Chain:          custody.ChainCardano.String(),
		Address:        address,
		TxHash:         txHash,
		Detail:         "funding=" + funding.Ref(),
	})

	s.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"vault":   vaultAccountID,
		"address": address,
		"tx_hash": txHash,
	}).Info("redemption submitted")

	return &RedemptionResult{
		TxHash:  txHash,
		TxID:    built.TxID,
		Funding: funding.Ref(),
		AuditID: auditID,
	}, nil
}

// PhaseConfig returns the current redemption phase configuration.
func (s *Service) PhaseConfig(ctx context.Context) (*rewardsapi.PhaseConfig, error) {
	return s.redemption.PhaseConfig(ctx)
}

// ThawSchedule returns the thaw schedule for the vault account's address.
func (s *Service) ThawSchedule(ctx context.Context, vaultAccountID string) ([]rewardsapi.ThawEntry, error) {
	handle, release, err := s.acquire(ctx, vaultAccountID, custody.ChainCardano)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.redemption.ThawSchedule(ctx, handle.Address)
}

// ThawStatus returns the redemption API's status for a submitted transaction.
func (s *Service) ThawStatus(ctx context.Context, txHash string) (string, error) {
	return s.redemption.TransactionStatus(ctx, txHash)
}

func hasRedeemable(schedule []rewardsapi.ThawEntry) bool {
	for _, e := range schedule {
		if e.Status == rewardsapi.ThawStatusRedeemable {
			return true
		}
	}
	return false
}

// largestBaseUtxo returns the UTXO with the most base asset.
func largestBaseUtxo(utxos []cardano.Utxo) (*cardano.Utxo, error) {
	if len(utxos) == 0 {
		return nil, fmt.Errorf("no utxos available")
	}
	best := &utxos[0]
	for i := 1; i < len(utxos); i++ {
		if utxos[i].Lovelace().Cmp(best.Lovelace()) > 0 {
			best = &utxos[i]
		}
	}
	return best, nil
}
