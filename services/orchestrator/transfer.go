package orchestrator

import (
	"context"
	"fmt"
	"math/big"

	"github.com/nimbusward/tokengate/internal/audit"
	"github.com/nimbusward/tokengate/internal/coinselect"
	"github.com/nimbusward/tokengate/internal/custody"
)

// ttlSlotMargin is added to the current slot for the transaction's time to
// live.
const ttlSlotMargin = 7200

// TransferRequest describes one reward-token transfer.
type TransferRequest struct {
	VaultAccountID string
	Recipient      string
	// Amount is the token quantity to transfer.
	Amount *big.Int
	// Fee is the fee estimate; required, the orchestrator does not estimate.
	Fee *big.Int
}

// TransferResult reports a submitted transfer.
type TransferResult struct {
	TxHash     string
	TxID       string
	Inputs     int
	AuditID    string
	ChangeBase *big.Int
}

// Transfer moves reward tokens from the vault account's Cardano address to
// the recipient. Steps are strictly sequential: selection, build, sign,
// assemble and submit must all reference the same funding set.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("transfer: amount must be positive")
	}
	if req.Fee == nil || req.Fee.Sign() <= 0 {
		return nil, fmt.Errorf("transfer: fee estimate required")
	}

	handle, release, err := s.acquire(ctx, req.VaultAccountID, custody.ChainCardano)
	if err != nil {
		return nil, err
	}
	defer release()

	log := s.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"vault":   req.VaultAccountID,
		"address": handle.Address,
		"amount":  req.Amount.String(),
	})

	utxos, err := s.provider.ListUtxos(ctx, handle.Address)
	if err != nil {
		return nil, fmt.Errorf("transfer: fetch utxos: %w", err)
	}

	params := coinselect.Params{
		TokenUnit:        s.tokenUnit,
		RequiredToken:    req.Amount,
		Fee:              req.Fee,
		RecipientMinimum: s.recipientMinimum,
		ChangeMinimum:    s.changeMinimum,
	}
	selection, err := coinselect.Select(utxos, params)
	if err != nil {
		return nil, fmt.Errorf("transfer: coin selection: %w", err)
	}

	outputs, err := coinselect.BuildOutputs(selection, req.Recipient, handle.Address, params)
	if err != nil {
		return nil, fmt.Errorf("transfer: build outputs: %w", err)
	}

	tip, err := s.provider.LatestBlock(ctx)
	if err != nil {
		return nil, fmt.Errorf("transfer: latest block: %w", err)
	}

	unsignedHex, txID, err := s.codec.BuildTransfer(ctx, selection.Selected, outputs, req.Fee, tip.Slot+ttlSlotMargin)
	if err != nil {
		return nil, fmt.Errorf("transfer: build transaction: %w", err)
	}

	outcome, err := handle.Sign(ctx, txID, fmt.Sprintf("transfer %s to %s", req.Amount, req.Recipient))
	if err != nil {
		return nil, fmt.Errorf("transfer: sign transaction %s: %w", txID, err)
	}

	signedHex, err := s.codec.AssembleWitness(ctx, unsignedHex, outcome.PublicKey, outcome.FullSignature)
	if err != nil {
		return nil, fmt.Errorf("transfer: assemble witness for %s: %w", txID, err)
	}

	txHash, err := s.codec.Submit(ctx, signedHex)
	if err != nil {
		return nil, fmt.Errorf("transfer: submit transaction %s: %w", txID, err)
	}

	auditID := s.writeAudit(audit.Record{
		Operation:      "transfer",
		VaultAccountID: req.VaultAccountID,
		Chain:          custody.ChainCardano.String(),
		Address:        handle.Address,
		TxHash:         txHash,
		Detail:         fmt.Sprintf("token=%s recipient=%s inputs=%d", req.Amount, req.Recipient, len(selection.Selected)),
	})

	log.WithField("tx_hash", txHash).Info("transfer submitted")

	changeBase := new(big.Int).Sub(selection.AccumulatedBase, s.recipientMinimum)
	changeBase.Sub(changeBase, req.Fee)
	return &TransferResult{
		TxHash:     txHash,
		TxID:       txID,
		Inputs:     len(selection.Selected),
		AuditID:    auditID,
		ChangeBase: changeBase,
	}, nil
}

// writeAudit persists an audit record. Audit failures are logged, never allowed
// to fail an already-submitted transaction.
func (s *Service) writeAudit(rec audit.Record) string {
	if s.audit == nil {
		return ""
	}
	id, err := s.audit.Write(rec)
	if err != nil {
		s.logger.WithError(err).WithField("tx_hash", rec.TxHash).Error("audit write failed")
		return ""
	}
	return id
}
