// Package rewardsapi holds the thin read/submit clients for the reward-token
// REST services: claims history, allocation proofs, the redemption API and
// the scavenger-hunt API. Every non-200 response maps to a typed API error
// carrying status code, error type and raw payload.
package rewardsapi

import (
	"time"
)

// ClaimRecord is one historical claim.
type ClaimRecord struct {
	ID        string    `json:"id"`
	Address   string    `json:"address"`
	Chain     string    `json:"chain"`
	Amount    string    `json:"amount"`
	TxHash    string    `json:"txHash"`
	Status    string    `json:"status"`
	ClaimedAt time.Time `json:"claimedAt"`
}

// ClaimSubmission is a new claim: a signed proof of address ownership.
type ClaimSubmission struct {
	Address   string `json:"address"`
	Chain     string `json:"chain"`
	PublicKey string `json:"publicKey"`
	Signature string `json:"signature"`
	Message   string `json:"message"`
}

// AllocationProof is the allocation entry for an address.
type AllocationProof struct {
	Address   string   `json:"address"`
	Amount    string   `json:"amount"`
	ProofPath []string `json:"proofPath"`
	Eligible  bool     `json:"eligible"`
}

// PhaseConfig describes the redemption phase schedule.
type PhaseConfig struct {
	// GenesisTimestamp is the phase start, unix seconds.
	GenesisTimestamp int64 `json:"genesisTimestamp"`
	// IncrementPeriod is the length of one increment (seconds).
	IncrementPeriod int64 `json:"incrementPeriod"`
	// IncrementCount is the number of increments in the phase.
	IncrementCount int64 `json:"incrementCount"`
}

// Window returns the phase's [start, end) interval.
func (p *PhaseConfig) Window() (start, end time.Time) {
	start = time.Unix(p.GenesisTimestamp, 0).UTC()
	end = start.Add(time.Duration(p.IncrementPeriod*p.IncrementCount) * time.Second)
	return start, end
}

// IsOpen reports whether now falls inside the half-open redemption window.
// The window is time-dependent: callers must read a fresh PhaseConfig per
// redemption attempt, never cache one across runs.
func (p *PhaseConfig) IsOpen(now time.Time) bool {
	start, end := p.Window()
	return !now.Before(start) && now.Before(end)
}

// ThawStatusRedeemable marks a thaw entry eligible for on-chain redemption.
const ThawStatusRedeemable = "redeemable"

// ThawEntry is one time-locked allocation tranche.
type ThawEntry struct {
	Amount  string    `json:"amount"`
	Status  string    `json:"status"`
	ThawsAt time.Time `json:"thawsAt"`
}

// BuiltRedemption is an unsigned redemption transaction from the redemption
// API.
type BuiltRedemption struct {
	UnsignedHex string `json:"unsignedHex"`
	TxID        string `json:"txId"`
}

// RegisteredAddress confirms scavenger-hunt registration.
type RegisteredAddress struct {
	Address    string `json:"address"`
	Registered bool   `json:"registered"`
}

// SubmissionReceipt acknowledges a solution, donation or consolidation.
type SubmissionReceipt struct {
	Accepted bool   `json:"accepted"`
	Detail   string `json:"detail"`
}
