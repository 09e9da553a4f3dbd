// Package errors defines the error taxonomy for the orchestration service.
//
// The taxonomy mirrors how callers are expected to react:
//   - configuration errors are fatal at startup
//   - capacity errors are retryable after backoff
//   - remote signing failures carry the custody sub-status and are not retried
//   - insufficient-funds errors carry exact shortfalls
//   - precondition errors (window closed, nothing redeemable) are not transient
//   - API errors wrap every non-2xx response with status code and raw payload
package errors

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/tidwall/gjson"
)

// Re-exported stdlib helpers so callers need a single errors import.
var (
	Is  = errors.Is
	As  = errors.As
	New = errors.New
)

// =============================================================================
// Configuration
// =============================================================================

// ConfigError indicates missing or invalid startup configuration. Fatal.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// NewConfigError creates a ConfigError for the named field.
func NewConfigError(field, reason string) *ConfigError {
	return &ConfigError{Field: field, Reason: reason}
}

// =============================================================================
// Capacity
// =============================================================================

// CapacityError indicates the resource pool is full with no idle entry to
// evict. Callers may retry after backoff.
type CapacityError struct {
	Capacity int
	Key      string
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("pool at capacity (%d) with no idle entry, cannot admit %q", e.Capacity, e.Key)
}

// BusyError indicates the pool entry for a key is checked out by another
// caller. Retryable after backoff, like CapacityError.
type BusyError struct {
	Key string
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("pool entry %q is in use", e.Key)
}

// =============================================================================
// Signing
// =============================================================================

// SigningError indicates the custody service ended a signing operation in a
// terminal failure state. Not retried automatically.
type SigningError struct {
	OperationID string
	Status      string
	SubStatus   string
}

func (e *SigningError) Error() string {
	if e.SubStatus != "" {
		return fmt.Sprintf("signing operation %s failed: %s (%s)", e.OperationID, e.Status, e.SubStatus)
	}
	return fmt.Sprintf("signing operation %s failed: %s", e.OperationID, e.Status)
}

// ErrSignatureMissing is returned when a signing operation reached a terminal
// success state but carried no signed message record.
var ErrSignatureMissing = errors.New("signing completed but no signed message present")

// =============================================================================
// Funds
// =============================================================================

// InsufficientFundsError carries the exact shortfall of a failed coin
// selection. Amounts are in the chain's minimal units.
type InsufficientFundsError struct {
	Address           string
	TokenShortfall    *big.Int // zero when the token requirement was met
	BaseShortfall     *big.Int // zero when the base-asset requirement was met
	RequiredToken     *big.Int
	RequiredBaseAsset *big.Int
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient balance at %s: token shortfall %s, base shortfall %s",
		e.Address, bigString(e.TokenShortfall), bigString(e.BaseShortfall))
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// =============================================================================
// Preconditions
// =============================================================================

// PreconditionError indicates an eligibility check failed (redemption window
// closed, no redeemable thaw entry, address not registered). Distinct from
// transient transport failures.
type PreconditionError struct {
	Check  string
	Detail string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed: %s: %s", e.Check, e.Detail)
}

// NewPreconditionError creates a PreconditionError for the named check.
func NewPreconditionError(check, detail string) *PreconditionError {
	return &PreconditionError{Check: check, Detail: detail}
}

// =============================================================================
// Transport
// =============================================================================

// APIError is the uniform wrapper for non-2xx responses from any of the
// external REST collaborators.
type APIError struct {
	Service    string
	StatusCode int
	ErrorType  string
	Message    string
	RawBody    []byte
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s API error (status %d, type %s): %s", e.Service, e.StatusCode, e.ErrorType, e.Message)
	}
	return fmt.Sprintf("%s API error (status %d, type %s)", e.Service, e.StatusCode, e.ErrorType)
}

// NewAPIError builds an APIError from a raw response body, extracting the
// error type and message fields when the payload is JSON.
func NewAPIError(service string, statusCode int, body []byte) *APIError {
	e := &APIError{
		Service:    service,
		StatusCode: statusCode,
		ErrorType:  "unknown",
		RawBody:    body,
	}
	if gjson.ValidBytes(body) {
		if t := gjson.GetBytes(body, "error"); t.Exists() {
			e.ErrorType = t.String()
		} else if t := gjson.GetBytes(body, "type"); t.Exists() {
			e.ErrorType = t.String()
		}
		if m := gjson.GetBytes(body, "message"); m.Exists() {
			e.Message = m.String()
		} else if m := gjson.GetBytes(body, "detail"); m.Exists() {
			e.Message = m.String()
		}
	}
	return e
}
