package custody

import (
	"context"
	"fmt"
	"time"

	"github.com/nimbusward/tokengate/internal/errors"
	"github.com/nimbusward/tokengate/internal/logging"
	"github.com/nimbusward/tokengate/internal/metrics"
)

// DefaultPollInterval is the interval between status checks.
const DefaultPollInterval = time.Second

// Signer drives one custody signing operation from submission to a terminal
// state. The custody service can legitimately sit in PENDING_AUTHORIZATION
// until a human approves, so every poll loop is bounded: by the configured
// timeout, by the caller's ctx, or both.
type Signer struct {
	api          API
	pollInterval time.Duration
	timeout      time.Duration
	logger       *logging.Logger
}

// NewSigner creates a Signer. A zero pollInterval selects the default; a zero
// timeout leaves the caller's ctx as the only bound.
func NewSigner(api API, pollInterval, timeout time.Duration, logger *logging.Logger) *Signer {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Signer{api: api, pollInterval: pollInterval, timeout: timeout, logger: logger}
}

// Sign submits the request and polls until the operation reaches a terminal
// state, returning the normalized outcome on success.
//
// Terminal success (COMPLETED, BROADCASTING) without a signed-message record
// is reported as errors.ErrSignatureMissing, never swallowed. Terminal
// failure surfaces the custody sub-status. Every other status keeps polling.
func (s *Signer) Sign(ctx context.Context, req *SigningRequest) (*SigningOutcome, error) {
	start := time.Now()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	operationID, err := s.api.CreateSigningOperation(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("submit signing request: %w", err)
	}

	log := s.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"operation_id": operationID,
		"vault":        req.VaultAccountID,
		"asset":        req.AssetID,
	})
	log.Info("signing operation submitted")

	var lastStatus OperationStatus
	for {
		state, err := s.api.GetOperationStatus(ctx, operationID)
		if err != nil {
			return nil, fmt.Errorf("poll operation %s: %w", operationID, err)
		}

		// One log line per transition, not per poll.
		if state.Status != lastStatus {
			log.WithField("status", string(state.Status)).Info("signing operation state changed")
			lastStatus = state.Status
		}

		switch {
		case state.Status.IsTerminalSuccess():
			metrics.RecordSigning(string(state.Status), time.Since(start))
			return outcomeFromState(state)

		case state.Status.IsTerminalFailure():
			metrics.RecordSigning(string(state.Status), time.Since(start))
			return nil, &errors.SigningError{
				OperationID: operationID,
				Status:      string(state.Status),
				SubStatus:   state.SubStatus,
			}
		}

		select {
		case <-ctx.Done():
			metrics.RecordSigning("cancelled", time.Since(start))
			return nil, fmt.Errorf("signing operation %s: %w", operationID, ctx.Err())
		case <-time.After(s.pollInterval):
		}
	}
}

// outcomeFromState extracts the SigningOutcome from the first signed-message
// record of a terminal-success state.
func outcomeFromState(state *OperationState) (*SigningOutcome, error) {
	if len(state.SignedMessages) == 0 {
		return nil, fmt.Errorf("operation %s: %w", state.ID, errors.ErrSignatureMissing)
	}
	msg := state.SignedMessages[0]
	return &SigningOutcome{
		FullSignature: msg.Signature.FullSig,
		R:             msg.Signature.R,
		S:             msg.Signature.S,
		V:             msg.Signature.V,
		PublicKey:     msg.PublicKey,
		Algorithm:     msg.Algorithm,
		SignedContent: msg.Content,
	}, nil
}
