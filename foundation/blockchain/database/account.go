package database

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"errors"

	"github.com/ardanlabs/powledger/foundation/blockchain/signature"
)

// AccountID represents an account id that is used to sign transactions and is
// associated with transactions on the ledger. It is the hex encoding of the
// uncompressed secp256k1 public key. The empty AccountID is the sender of
// system issued reward transactions.
type AccountID string

// ToAccountID converts a hex-encoded string to an account and validates the
// hex-encoded string is formatted correctly.
func ToAccountID(hex string) (AccountID, error) {
	a := AccountID(hex)
	if !a.IsAccountID() {
		return "", errors.New("invalid account format")
	}

	return a, nil
}

// PublicKeyToAccountID converts the public key to an account value.
func PublicKeyToAccountID(pk ecdsa.PublicKey) AccountID {
	return AccountID(signature.DerivePublic(pk))
}

// IsAccountID verifies whether the underlying data represents a valid
// hex-encoded uncompressed public key.
func (a AccountID) IsAccountID() bool {
	const publicKeyLength = 65

	if has0xPrefix(a) {
		a = a[2:]
	}

	return len(a) == 2*publicKeyLength && isHex(a)
}

// IsNone reports whether the account is the sentinel used by reward
// transactions.
func (a AccountID) IsNone() bool {
	return a == ""
}

// MarshalJSON implements the json.Marshaler interface. The reward sentinel
// is written as null.
func (a AccountID) MarshalJSON() ([]byte, error) {
	if a.IsNone() {
		return []byte("null"), nil
	}

	return json.Marshal(string(a))
}

// UnmarshalJSON implements the json.Unmarshaler interface. A null value
// decodes to the reward sentinel.
func (a *AccountID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*a = AccountID(s)

	return nil
}

// hashText returns the text used for this account when calculating a
// transaction hash.
func (a AccountID) hashText() string {
	if a.IsNone() {
		return "null"
	}

	return string(a)
}

// =============================================================================

// has0xPrefix validates the account starts with a 0x.
func has0xPrefix(a AccountID) bool {
	return len(a) >= 2 && a[0] == '0' && (a[1] == 'x' || a[1] == 'X')
}

// isHex validates whether each byte is valid hexadecimal string.
func isHex(a AccountID) bool {
	if len(a)%2 != 0 {
		return false
	}

	for _, c := range []byte(a) {
		if !isHexCharacter(c) {
			return false
		}
	}

	return true
}

// isHexCharacter returns bool of c being a valid hexadecimal.
func isHexCharacter(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
