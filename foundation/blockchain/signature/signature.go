// Package signature provides helper functions for handling the ledger
// signature needs. Keys are secp256k1 and an account is identified by the
// hex encoding of its uncompressed public key.
package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ZeroHash represents a hash code of zeros.
const ZeroHash string = "0000000000000000000000000000000000000000000000000000000000000000"

// =============================================================================

// Hash returns a unique string for the value.
func Hash(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return ZeroHash
	}

	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// DerivePublic returns the account identifier for the specified public key.
func DerivePublic(publicKey ecdsa.PublicKey) string {
	return hexutil.Encode(crypto.FromECDSAPub(&publicKey))
}

// Sign uses the specified private key to sign the 32 byte digest. The
// signature is returned hex encoded in the 65 byte [R|S|V] format.
func Sign(digest []byte, privateKey *ecdsa.PrivateKey) (string, error) {
	if len(digest) != crypto.DigestLength {
		return "", fmt.Errorf("digest must be %d bytes, got %d", crypto.DigestLength, len(digest))
	}

	// Sign the digest with the private key to produce a signature.
	sig, err := crypto.Sign(digest, privateKey)
	if err != nil {
		return "", err
	}

	// Extract the public key from the digest and the signature.
	publicKey, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return "", err
	}

	// Check the public key extracted from the digest and signature.
	rs := sig[:crypto.RecoveryIDOffset]
	if !crypto.VerifySignature(crypto.FromECDSAPub(publicKey), digest, rs) {
		return "", errors.New("invalid signature")
	}

	return hex.EncodeToString(sig), nil
}

// Verify reports whether the hex encoded signature was produced over the
// digest by the key behind the specified account. Any malformed input is
// reported as an invalid signature.
func Verify(account string, digest []byte, sig string) bool {
	if len(digest) != crypto.DigestLength {
		return false
	}

	publicKey, err := hexutil.Decode(account)
	if err != nil {
		return false
	}

	if _, err := crypto.UnmarshalPubkey(publicKey); err != nil {
		return false
	}

	raw, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}

	// Accept both the [R|S|V] and [R|S] formats.
	switch len(raw) {
	case crypto.SignatureLength:
		raw = raw[:crypto.RecoveryIDOffset]
	case crypto.RecoveryIDOffset:
	default:
		return false
	}

	return crypto.VerifySignature(publicKey, digest, raw)
}
