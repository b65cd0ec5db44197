package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
)

// ErrChainChanged is returned when the chain was replaced while a block was
// being mined. The mined block no longer links to the latest block.
var ErrChainChanged = errors.New("chain changed while mining, block discarded")

// =============================================================================

// MinePendingTransactions adds the mining reward to the pending transactions,
// mines them into a new block and appends that block to the chain. The pool
// is frozen into the block when mining starts, transactions added while the
// block is being mined wait for the next block. The reward is part of the
// block it is declared in.
func (s *State) MinePendingTransactions(ctx context.Context, rewardAddress database.AccountID) (database.Block, error) {
	s.miningMu.Lock()
	defer s.miningMu.Unlock()

	s.evHandler("state: MinePendingTransactions: MINING: started: reward[%s]", rewardAddress)
	defer s.evHandler("state: MinePendingTransactions: MINING: completed")

	// Freeze the current pool into the block and start a new pool.
	s.mu.Lock()
	user := s.pending
	s.pending = nil
	previous := s.chain
	parent := previous[len(previous)-1]
	s.mu.Unlock()

	trans := make([]database.Tx, 0, len(user)+1)
	trans = append(trans, user...)
	trans = append(trans, database.NewRewardTx(rewardAddress, s.genesis.MiningReward))

	block := database.NewBlock(timestamp(), trans, parent.Hash)

	t := time.Now()
	if err := block.Mine(ctx, s.genesis.Difficulty, s.evHandler); err != nil {
		s.mu.Lock()
		s.requeue(user, adoptedBlocks(previous, s.chain))
		s.mu.Unlock()
		return database.Block{}, fmt.Errorf("mining block: %w", err)
	}
	s.evHandler("state: MinePendingTransactions: MINING: duration[%v]", time.Since(t))

	s.mu.Lock()
	defer s.mu.Unlock()

	// A longer chain may have been accepted while we were mining.
	if latest := s.chain[len(s.chain)-1]; latest.Hash != parent.Hash {
		s.requeue(user, adoptedBlocks(previous, s.chain))
		return database.Block{}, ErrChainChanged
	}

	s.chain = append(s.chain, block)
	s.blockEvent(block)

	return block.Copy(), nil
}

// =============================================================================

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block) {
	blockTransJSON, err := json.Marshal(block.Transactions)
	if err != nil {
		blockTransJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(`viewer: block: {"hash":%q,"previousHash":%q,"nonce":%d,"trans":%s}`, block.Hash, block.PreviousHash, block.Nonce, string(blockTransJSON))
}

// timestamp returns the current time in milliseconds as text.
func timestamp() string {
	return strconv.FormatInt(time.Now().UTC().UnixMilli(), 10)
}
