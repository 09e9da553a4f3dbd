package custody

import (
	"fmt"
)

// BuildSigningRequest constructs the chain-specific signing request for a raw
// payload. The switch over Chain is exhaustive; extending the chain set
// requires a new case here.
func BuildSigningRequest(chain Chain, vaultAccountID, contentHex, note string) (*SigningRequest, error) {
	if vaultAccountID == "" {
		return nil, fmt.Errorf("vault account id required")
	}
	if contentHex == "" {
		return nil, fmt.Errorf("signing content required")
	}

	req := &SigningRequest{
		AssetID:        chain.AssetID(),
		VaultAccountID: vaultAccountID,
		Content:        contentHex,
		Note:           note,
	}

	switch chain {
	case ChainBitcoin:
		// Bitcoin payloads are personal-message signatures over the claim
		// text, signed by the account's first external address.
		req.Operation = "RAW_MESSAGE"
		req.DerivationIndex = 0
	case ChainEthereum:
		req.Operation = "RAW_MESSAGE"
		req.DerivationIndex = 0
	case ChainXRPLedger:
		req.Operation = "RAW_MESSAGE"
		req.DerivationIndex = 0
	case ChainCardano:
		// Cardano payloads are transaction ids; the signature becomes a
		// witness-set entry rather than a message signature.
		req.Operation = "RAW_TRANSACTION"
		req.DerivationIndex = 0
	default:
		return nil, fmt.Errorf("unsupported chain %q", chain)
	}

	return req, nil
}
