package scavenger

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/nimbusward/tokengate/internal/metrics"
)

// progressInterval throttles the progress callback so telemetry never
// degrades hash throughput.
const progressInterval = time.Second

// Solver searches nonces for a hash satisfying a challenge's difficulty mask.
// The search is CPU-bound; run it on its own goroutine and cancel via ctx.
type Solver struct {
	// MaxAttempts bounds the search; zero means unbounded (ctx is then the
	// only way out of an unsolvable challenge).
	MaxAttempts uint64
	// OnProgress, when set, is invoked at most once per second.
	OnProgress ProgressFunc
}

// Matches reports whether hash satisfies the difficulty mask. Only the first
// 32 bits of each are compared, matching the server-side verifier: the hash
// is accepted iff it has a zero bit everywhere the mask does.
func Matches(hash, difficulty []byte) bool {
	if len(hash) < 4 || len(difficulty) < 4 {
		return false
	}
	h := binary.BigEndian.Uint32(hash[:4])
	d := binary.BigEndian.Uint32(difficulty[:4])
	return h|d == d
}

// Preimage builds the deterministic candidate string for a nonce.
func Preimage(nonce uint64, address string, c *Challenge) string {
	return fmt.Sprintf("%016x%s%s%s%s%s%s",
		nonce, address, c.ChallengeID, c.Difficulty,
		c.AntiPremineToken, c.LatestSubmission, c.AntiPremineHour)
}

// Solve iterates nonces from zero until a hash satisfies the challenge's
// difficulty mask, returning the winning nonce, its hash, the attempt count
// and the elapsed time. The hash primitive is keyed blake2b-256 initialized
// with the challenge's anti-premine token. Cancellation is checked every
// nonce; exceeding MaxAttempts fails explicitly rather than looping forever.
func (s *Solver) Solve(ctx context.Context, address string, c *Challenge) (*Solution, error) {
	difficulty, err := hex.DecodeString(c.Difficulty)
	if err != nil {
		return nil, fmt.Errorf("decode difficulty %q: %w", c.Difficulty, err)
	}
	if len(difficulty) < 4 {
		return nil, fmt.Errorf("difficulty %q shorter than 4 bytes", c.Difficulty)
	}

	start := time.Now()
	lastTick := start
	var attemptsAtTick uint64

	for nonce := uint64(0); ; nonce++ {
		select {
		case <-ctx.Done():
			metrics.AddPowAttempts(nonce)
			return nil, fmt.Errorf("solve challenge %s: %w", c.ChallengeID, ctx.Err())
		default:
		}

		attempts := nonce + 1
		if s.MaxAttempts > 0 && attempts > s.MaxAttempts {
			metrics.AddPowAttempts(nonce)
			return nil, fmt.Errorf("challenge %s unsolved after %d attempts", c.ChallengeID, s.MaxAttempts)
		}

		sum, err := keyedHash([]byte(c.AntiPremineToken), []byte(Preimage(nonce, address, c)))
		if err != nil {
			return nil, fmt.Errorf("hash candidate: %w", err)
		}

		if Matches(sum, difficulty) {
			metrics.AddPowAttempts(attempts)
			metrics.RecordPowSolution()
			return &Solution{
				Nonce:    fmt.Sprintf("%016x", nonce),
				Hash:     hex.EncodeToString(sum),
				Attempts: attempts,
				Elapsed:  time.Since(start),
			}, nil
		}

		if s.OnProgress != nil {
			if now := time.Now(); now.Sub(lastTick) >= progressInterval {
				delta := attempts - attemptsAtTick
				s.OnProgress(Progress{
					Attempts: attempts,
					HashRate: float64(delta) / now.Sub(lastTick).Seconds(),
				})
				lastTick = now
				attemptsAtTick = attempts
			}
		}
	}
}

// keyedHash computes blake2b-256 over data keyed with key. Keys longer than
// the blake2b limit are truncated.
func keyedHash(key, data []byte) ([]byte, error) {
	if len(key) > blake2b.Size {
		key = key[:blake2b.Size]
	}
	h, err := blake2b.New256(key)
	if err != nil {
		return nil, err
	}
	h.Write(data)
	return h.Sum(nil), nil
}
