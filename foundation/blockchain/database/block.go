package database

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// maxDifficulty is the number of hex characters in a block hash. A larger
// difficulty can never be solved.
const maxDifficulty = 2 * sha256.Size

// =============================================================================

// Block represents a group of transactions batched together and bound to
// the previous block in the chain.
type Block struct {
	Timestamp    string `json:"timestamp" validate:"required"`               // Time the block was created.
	Transactions []Tx   `json:"transactions" validate:"required,dive"`       // Ordered transactions, part of the hash.
	PreviousHash string `json:"previousHash" validate:"required"`            // Hash of the parent block.
	Hash         string `json:"hash" validate:"required,len=64,hexadecimal"` // Hash of this block's content.
	Nonce        uint64 `json:"nonce"`                                       // Value identified to solve the hash solution.
}

// NewBlock constructs a block with a provisional hash using a zero nonce.
// The transactions are copied so the caller can't alter the block.
func NewBlock(timestamp string, trans []Tx, previousHash string) Block {
	b := Block{
		Timestamp:    timestamp,
		Transactions: copyTrans(trans),
		PreviousHash: previousHash,
	}
	b.Hash = b.CalculateHash()

	return b
}

// CalculateHash returns the hex encoded hash of the previous hash, timestamp,
// encoded transactions and nonce of the block.
func (b Block) CalculateHash() string {
	var sb strings.Builder
	sb.WriteString(b.PreviousHash)
	sb.WriteString(b.Timestamp)
	sb.Write(encodeTrans(b.Transactions))
	sb.WriteString(strconv.FormatUint(b.Nonce, 10))

	hash := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(hash[:])
}

// Mine does the work of finding a nonce that produces a hash with the
// specified number of leading zeros. Pointer semantics are being used since
// a nonce is being discovered. Mining stops early if the context is cancelled.
func (b *Block) Mine(ctx context.Context, difficulty uint16, ev func(v string, args ...any)) error {
	if ev == nil {
		ev = func(string, ...any) {}
	}

	if difficulty > maxDifficulty {
		return fmt.Errorf("difficulty %d is larger than the hash size %d", difficulty, maxDifficulty)
	}

	ev("database: Mine: MINING: started: difficulty[%d] trans[%d]", difficulty, len(b.Transactions))
	defer ev("database: Mine: MINING: completed")

	b.Hash = b.CalculateHash()

	var attempts uint64
	for !IsHashSolved(difficulty, b.Hash) {
		attempts++
		if attempts%1_000_000 == 0 {
			ev("database: Mine: MINING: attempts[%d]", attempts)
		}

		// Did we timeout trying to solve the problem.
		if err := ctx.Err(); err != nil {
			ev("database: Mine: MINING: CANCELLED")
			return err
		}

		b.Nonce++
		b.Hash = b.CalculateHash()
	}

	ev("database: Mine: MINING: SOLVED: prevBlk[%s]: newBlk[%s]: attempts[%d]", b.PreviousHash, b.Hash, attempts)

	return nil
}

// HasValidTransactions reports whether every transaction in the block has
// a valid signature and amount. A missing signature makes the block invalid.
func (b Block) HasValidTransactions() bool {
	for _, tx := range b.Transactions {
		if tx.Amount > MaxAmount {
			return false
		}

		ok, err := tx.Verify()
		if err != nil || !ok {
			return false
		}
	}

	return true
}

// ValidateBlock takes a block and validates it against its parent and the
// proof of work rules.
func (b Block) ValidateBlock(previousBlock Block, difficulty uint16, ev func(v string, args ...any)) error {
	if ev == nil {
		ev = func(string, ...any) {}
	}

	ev("database: ValidateBlock: validate: blk[%s]: check: transactions are signed", short(b.Hash))

	for i, tx := range b.Transactions {
		if tx.Amount > MaxAmount {
			return fmt.Errorf("transaction %d: %w", i, ErrAmountTooLarge)
		}

		ok, err := tx.Verify()
		if err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
		if !ok {
			return fmt.Errorf("transaction %d: %w", i, ErrInvalidSignature)
		}
	}

	ev("database: ValidateBlock: validate: blk[%s]: check: block hash matches content", short(b.Hash))

	if hash := b.CalculateHash(); b.Hash != hash {
		return fmt.Errorf("block hash doesn't match content, got %s, exp %s", b.Hash, hash)
	}

	ev("database: ValidateBlock: validate: blk[%s]: check: parent hash does match parent block", short(b.Hash))

	if b.PreviousHash != previousBlock.Hash {
		return fmt.Errorf("parent block hash doesn't match our known parent, got %s, exp %s", b.PreviousHash, previousBlock.Hash)
	}

	ev("database: ValidateBlock: validate: blk[%s]: check: block hash has been solved", short(b.Hash))

	if !IsHashSolved(difficulty, b.Hash) {
		return fmt.Errorf("%s invalid block hash for difficulty %d", b.Hash, difficulty)
	}

	return nil
}

// Equal reports whether the two blocks hold exactly the same content.
func (b Block) Equal(other Block) bool {
	if b.Timestamp != other.Timestamp ||
		b.PreviousHash != other.PreviousHash ||
		b.Hash != other.Hash ||
		b.Nonce != other.Nonce ||
		len(b.Transactions) != len(other.Transactions) {
		return false
	}

	for i := range b.Transactions {
		if b.Transactions[i] != other.Transactions[i] {
			return false
		}
	}

	return true
}

// Copy returns a copy of the block that doesn't share transactions.
func (b Block) Copy() Block {
	b.Transactions = copyTrans(b.Transactions)
	return b
}

// =============================================================================

// IsHashSolved checks the hash to make sure it complies with
// the POW rules. We need to match a difficulty number of 0's.
func IsHashSolved(difficulty uint16, hash string) bool {
	if int(difficulty) > len(hash) {
		return false
	}

	return strings.Count(hash[:difficulty], "0") == int(difficulty)
}

// encodeTrans returns the JSON encoding of the transactions. HTML escaping
// is turned off and an empty set encodes as [].
func encodeTrans(trans []Tx) []byte {
	if trans == nil {
		trans = []Tx{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(trans); err != nil {
		return nil
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}

// copyTrans returns a non-nil copy of the transactions.
func copyTrans(trans []Tx) []Tx {
	cpy := make([]Tx, len(trans))
	copy(cpy, trans)
	return cpy
}
