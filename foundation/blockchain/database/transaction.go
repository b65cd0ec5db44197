package database

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"

	"github.com/ardanlabs/powledger/foundation/blockchain/signature"
)

// MaxAmount is the largest amount a single transaction can move.
const MaxAmount uint64 = math.MaxInt64

// Tx is the transactional information between two parties. The field order
// is significant since the encoded transactions are part of the block hash.
type Tx struct {
	FromAddress AccountID `json:"fromAddress"`                                // Empty for system issued rewards.
	ToAddress   AccountID `json:"toAddress" validate:"required"`              // Account receiving the amount.
	Amount      uint64    `json:"amount" validate:"max=9223372036854775807"`  // Ledger credit moved by this transaction.
	Signature   string    `json:"signature" validate:"omitempty,hexadecimal"` // Hex encoded [R|S|V] signature.
}

// NewTx constructs a new unsigned transaction.
func NewTx(from AccountID, to AccountID, amount uint64) Tx {
	return Tx{
		FromAddress: from,
		ToAddress:   to,
		Amount:      amount,
	}
}

// NewRewardTx constructs the system issued transaction that pays a miner.
func NewRewardTx(to AccountID, amount uint64) Tx {
	return Tx{
		ToAddress: to,
		Amount:    amount,
	}
}

// IsReward reports whether the transaction was issued by the system.
func (tx Tx) IsReward() bool {
	return tx.FromAddress.IsNone()
}

// Hash returns the hex encoded content hash of the transaction. The
// signature is not part of the hash.
func (tx Tx) Hash() string {
	digest := tx.digest()
	return hex.EncodeToString(digest[:])
}

// Sign uses the specified private key to sign the transaction. The key must
// belong to the sending account.
func (tx *Tx) Sign(privateKey *ecdsa.PrivateKey) error {
	if PublicKeyToAccountID(privateKey.PublicKey) != tx.FromAddress {
		return ErrAuthorization
	}

	digest := tx.digest()
	sig, err := signature.Sign(digest[:], privateKey)
	if err != nil {
		return fmt.Errorf("signing transaction: %w", err)
	}
	tx.Signature = sig

	return nil
}

// Verify checks the signature against the sending account. Reward
// transactions have no signer and are always valid.
func (tx Tx) Verify() (bool, error) {
	if tx.IsReward() {
		return true, nil
	}

	if tx.Signature == "" {
		return false, ErrMissingSignature
	}

	digest := tx.digest()
	return signature.Verify(string(tx.FromAddress), digest[:], tx.Signature), nil
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	from := string(tx.FromAddress)
	if tx.IsReward() {
		from = "reward"
	}

	return fmt.Sprintf("%s->%s:%d", short(from), short(string(tx.ToAddress)), tx.Amount)
}

// digest hashes the from, to and amount values in that order.
func (tx Tx) digest() [sha256.Size]byte {
	data := tx.FromAddress.hashText() + string(tx.ToAddress) + strconv.FormatUint(tx.Amount, 10)
	return sha256.Sum256([]byte(data))
}

// short trims long account values for log output.
func short(s string) string {
	const size = 12
	if len(s) <= size {
		return s
	}
	return s[:size]
}
