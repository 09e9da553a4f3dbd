// Package scavenger implements the scavenger-hunt proof-of-work solver.
package scavenger

import "time"

// Challenge is one mining challenge issued by the hunt server.
type Challenge struct {
	ChallengeID string `json:"challengeId"`
	// Difficulty is the hex-encoded difficulty mask: a candidate hash is
	// accepted when it has a zero bit everywhere the mask does.
	Difficulty       string    `json:"difficulty"`
	AntiPremineToken string    `json:"antiPremineToken"`
	AntiPremineHour  string    `json:"antiPremineHour"`
	LatestSubmission string    `json:"latestSubmission"`
	IssuedAt         time.Time `json:"issuedAt"`
	Day              int       `json:"day"`
	Number           int       `json:"number"`
}

// Solution is a solved challenge.
type Solution struct {
	// Nonce is the winning nonce, fixed-width 16-hex zero-padded.
	Nonce string `json:"nonce"`
	// Hash is the hex-encoded hash of the winning preimage.
	Hash string `json:"hash"`
	// Attempts counts hashed nonces including the winning one.
	Attempts uint64 `json:"attempts"`
	// Elapsed is the wall time of the search.
	Elapsed time.Duration `json:"elapsed"`
}

// Progress carries throttled solver telemetry.
type Progress struct {
	Attempts uint64
	// HashRate is the instantaneous rate in hashes per second.
	HashRate float64
}

// ProgressFunc receives solver progress at most once per second.
type ProgressFunc func(Progress)
