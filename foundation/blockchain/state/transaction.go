package state

import (
	"fmt"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
)

// AddTransaction accepts a signed transaction into the pool of pending
// transactions. The pool is not changed when the transaction is rejected.
// There is no balance check, balances are informational only.
func (s *State) AddTransaction(tx database.Tx) error {
	if tx.FromAddress.IsNone() || tx.ToAddress == "" {
		return database.ErrIncompleteAddress
	}

	if tx.Amount > database.MaxAmount {
		return database.ErrAmountTooLarge
	}

	ok, err := tx.Verify()
	if err != nil {
		return fmt.Errorf("%w: %w", database.ErrInvalidSignature, err)
	}
	if !ok {
		return database.ErrInvalidSignature
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = append(s.pending, tx)
	s.evHandler("state: AddTransaction: tx[%s]: pending[%d]", tx, len(s.pending))

	return nil
}

// requeue places transactions from a discarded block back at the front of
// the pool. A transaction is dropped only when one of the adopted blocks
// carries it, and each adopted copy accounts for one pooled copy, so an
// identical transfer submitted twice on purpose is not lost. The caller must
// hold the write lock.
func (s *State) requeue(trans []database.Tx, adopted []database.Block) {
	if len(trans) == 0 {
		return
	}

	inChain := make(map[database.Tx]int)
	for _, block := range adopted {
		for _, tx := range block.Transactions {
			inChain[tx]++
		}
	}

	pending := make([]database.Tx, 0, len(trans)+len(s.pending))
	for _, tx := range trans {
		if inChain[tx] > 0 {
			inChain[tx]--
			continue
		}
		pending = append(pending, tx)
	}
	s.pending = append(pending, s.pending...)

	s.evHandler("state: requeue: requeued[%d] dropped[%d] pending[%d]", len(pending), len(trans)-len(pending), len(s.pending))
}

// adoptedBlocks returns the blocks of the current chain that are not part of
// the previous chain. The caller must hold a lock.
func adoptedBlocks(previous []database.Block, current []database.Block) []database.Block {
	var i int
	for i < len(previous) && i < len(current) && previous[i].Hash == current[i].Hash {
		i++
	}

	return current[i:]
}
