package custody

import (
	"context"
	"fmt"
	"time"

	"github.com/nimbusward/tokengate/internal/logging"
)

// AccountHandle binds one (vault account, chain) pair to the custody service.
// Construction resolves the account's primary address, which is a network
// round trip and can fail; no handle exists until it succeeds.
type AccountHandle struct {
	VaultAccountID string
	Chain          Chain
	Address        string

	api    API
	signer *Signer
}

// NewAccountHandle builds a handle for the vault account on the given chain.
// signingTimeout bounds each signing operation; zero means no bound beyond
// the caller's ctx.
func NewAccountHandle(ctx context.Context, api API, vaultAccountID string, chain Chain, pollInterval, signingTimeout time.Duration, logger *logging.Logger) (*AccountHandle, error) {
	address, err := api.GetAddress(ctx, vaultAccountID, chain.AssetID(), 0)
	if err != nil {
		return nil, fmt.Errorf("resolve primary address for vault %s on %s: %w", vaultAccountID, chain, err)
	}
	return &AccountHandle{
		VaultAccountID: vaultAccountID,
		Chain:          chain,
		Address:        address,
		api:            api,
		signer:         NewSigner(api, pollInterval, signingTimeout, logger),
	}, nil
}

// Sign builds the chain-specific signing request for contentHex and drives it
// to a terminal state.
func (h *AccountHandle) Sign(ctx context.Context, contentHex, note string) (*SigningOutcome, error) {
	req, err := BuildSigningRequest(h.Chain, h.VaultAccountID, contentHex, note)
	if err != nil {
		return nil, err
	}
	return h.signer.Sign(ctx, req)
}

// SignReshaped signs contentHex and reshapes the result for the handle's
// chain.
func (h *AccountHandle) SignReshaped(ctx context.Context, contentHex, note string) (string, *SigningOutcome, error) {
	outcome, err := h.Sign(ctx, contentHex, note)
	if err != nil {
		return "", nil, err
	}
	sig, err := ReshapeSignature(outcome.Algorithm, h.Chain, SignatureParts{
		FullSig: outcome.FullSignature,
		R:       outcome.R,
		S:       outcome.S,
		V:       outcome.V,
	})
	if err != nil {
		return "", nil, fmt.Errorf("reshape signature for %s: %w", h.Chain, err)
	}
	return sig, outcome, nil
}

// Addresses lists every address of the vault account on the handle's chain.
func (h *AccountHandle) Addresses(ctx context.Context) ([]string, error) {
	return h.api.GetAddresses(ctx, h.VaultAccountID, h.Chain.AssetID())
}
