// Package errs provides the error types the node's handlers use to send
// failures back to clients.
package errs

import (
	"errors"
	"net/http"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
)

// Response is the form used for API responses from failures in the API.
// Reason is a stable code for ledger rejections a client can act on.
type Response struct {
	Error  string            `json:"error"`
	Reason string            `json:"reason,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is an error whose message is safe to return to the client.
type Trusted struct {
	Err    error
	Status int
	Reason string
}

// NewTrusted wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors.
func NewTrusted(err error, status int) error {
	return &Trusted{Err: err, Status: status}
}

// Error implements the error interface. It uses the default message of the
// wrapped error. This is what will be shown in the services' logs.
func (te *Trusted) Error() string {
	return te.Err.Error()
}

// Unwrap returns the wrapped error.
func (te *Trusted) Unwrap() error {
	return te.Err
}

// IsTrusted checks if an error of type Trusted exists.
func IsTrusted(err error) bool {
	var te *Trusted
	return errors.As(err, &te)
}

// GetTrusted returns a copy of the Trusted pointer.
func GetTrusted(err error) *Trusted {
	var te *Trusted
	if !errors.As(err, &te) {
		return nil
	}
	return te
}

// =============================================================================

// rejections maps the ledger errors a client can correct to the reason
// sent back. A missing signature also matches the invalid signature error
// so it must be checked first.
var rejections = []struct {
	err    error
	reason string
}{
	{database.ErrIncompleteAddress, "incomplete_address"},
	{database.ErrAmountTooLarge, "amount_too_large"},
	{database.ErrMissingSignature, "missing_signature"},
	{database.ErrInvalidSignature, "invalid_signature"},
}

// NewRejection wraps a ledger rejection as a trusted bad request carrying
// its reason. It returns nil when the error is not a known rejection.
func NewRejection(err error) error {
	for _, r := range rejections {
		if errors.Is(err, r.err) {
			return &Trusted{Err: err, Status: http.StatusBadRequest, Reason: r.reason}
		}
	}
	return nil
}
