// Package custody integrates the third-party custody signing service.
// Private keys never leave the custody boundary: this package submits signing
// operations, polls them to a terminal state, and normalizes the results.
package custody

import (
	"fmt"
)

// Chain identifies a supported target chain. The set is closed: per-chain
// behavior is selected by exhaustive switches so adding a chain is a
// compile-time-checked extension point.
type Chain string

const (
	ChainBitcoin   Chain = "bitcoin"
	ChainEthereum  Chain = "ethereum"
	ChainCardano   Chain = "cardano"
	ChainXRPLedger Chain = "xrpl"
)

// AllChains lists every supported chain.
var AllChains = []Chain{ChainBitcoin, ChainEthereum, ChainCardano, ChainXRPLedger}

// ParseChain converts a wire string into a Chain.
func ParseChain(s string) (Chain, error) {
	switch Chain(s) {
	case ChainBitcoin, ChainEthereum, ChainCardano, ChainXRPLedger:
		return Chain(s), nil
	}
	return "", fmt.Errorf("unsupported chain %q", s)
}

// AssetID returns the custody-service asset identifier for the chain.
func (c Chain) AssetID() string {
	switch c {
	case ChainBitcoin:
		return "BTC"
	case ChainEthereum:
		return "ETH"
	case ChainCardano:
		return "ADA"
	case ChainXRPLedger:
		return "XRP"
	}
	return ""
}

// String implements fmt.Stringer.
func (c Chain) String() string { return string(c) }

// OperationStatus is a custody signing operation status.
type OperationStatus string

// The full status set reported by the custody service.
const (
	StatusSubmitted               OperationStatus = "SUBMITTED"
	StatusQueued                  OperationStatus = "QUEUED"
	StatusPendingSignature        OperationStatus = "PENDING_SIGNATURE"
	StatusPendingAuthorization    OperationStatus = "PENDING_AUTHORIZATION"
	StatusPending3rdParty         OperationStatus = "PENDING_3RD_PARTY"
	StatusPending3rdPartyApproval OperationStatus = "PENDING_3RD_PARTY_MANUAL_APPROVAL"
	StatusBroadcasting            OperationStatus = "BROADCASTING"
	StatusCompleted               OperationStatus = "COMPLETED"
	StatusBlocked                 OperationStatus = "BLOCKED"
	StatusCancelled               OperationStatus = "CANCELLED"
	StatusFailed                  OperationStatus = "FAILED"
	StatusRejected                OperationStatus = "REJECTED"
)

// IsTerminalSuccess reports whether the status ends polling with a signature
// available.
func (s OperationStatus) IsTerminalSuccess() bool {
	return s == StatusCompleted || s == StatusBroadcasting
}

// IsTerminalFailure reports whether the status ends polling without a
// signature.
func (s OperationStatus) IsTerminalFailure() bool {
	switch s {
	case StatusBlocked, StatusCancelled, StatusFailed, StatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether polling stops at this status.
func (s OperationStatus) IsTerminal() bool {
	return s.IsTerminalSuccess() || s.IsTerminalFailure()
}

// SigningRequest describes one custody signing operation. Immutable once
// built; use BuildSigningRequest for the chain-specific shape.
type SigningRequest struct {
	AssetID        string `json:"assetId"`
	Operation      string `json:"operation"`
	VaultAccountID string `json:"vaultAccountId"`
	// Content is the hex-encoded payload to sign (a transaction id or
	// message hash, depending on chain).
	Content string `json:"content"`
	// DerivationIndex selects the address within the vault account.
	DerivationIndex int    `json:"derivationIndex"`
	Note            string `json:"note"`
}

// SignatureParts carries the raw signature components returned by custody.
// R/S/V are populated for ECDSA-style chains only.
type SignatureParts struct {
	FullSig string `json:"fullSig"`
	R       string `json:"r"`
	S       string `json:"s"`
	V       int    `json:"v"`
}

// SignedMessage is one signed payload record on a completed operation.
type SignedMessage struct {
	Content   string         `json:"content"`
	Algorithm string         `json:"algorithm"`
	PublicKey string         `json:"publicKey"`
	Signature SignatureParts `json:"signature"`
}

// OperationState is a status snapshot of a signing operation.
type OperationState struct {
	ID             string          `json:"id"`
	Status         OperationStatus `json:"status"`
	SubStatus      string          `json:"subStatus"`
	SignedMessages []SignedMessage `json:"signedMessages"`
}

// SigningOutcome is the normalized result of a terminal-success operation.
type SigningOutcome struct {
	FullSignature string
	R             string
	S             string
	V             int
	PublicKey     string
	Algorithm     string
	SignedContent string
}

// Signing algorithms reported by the custody service.
const (
	AlgorithmECDSA = "MPC_ECDSA_SECP256K1"
	AlgorithmEdDSA = "MPC_EDDSA_ED25519"
)
