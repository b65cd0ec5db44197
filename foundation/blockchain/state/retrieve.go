package state

import (
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
)

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveGenesisBlock returns a copy of the canonical genesis block.
func (s *State) RetrieveGenesisBlock() database.Block {
	return s.genesisBlock.Copy()
}

// RetrieveBeneficiary returns the account credited when this node mines.
func (s *State) RetrieveBeneficiary() database.AccountID {
	return s.beneficiaryID
}

// RetrieveChain returns a copy of the current chain.
func (s *State) RetrieveChain() []database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return database.CopyChain(s.chain)
}

// RetrieveLatestBlock returns a copy the current latest block.
func (s *State) RetrieveLatestBlock() database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.chain[len(s.chain)-1].Copy()
}

// RetrieveChainLength returns the number of blocks in the chain.
func (s *State) RetrieveChainLength() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.chain)
}

// RetrieveMempool returns a copy of the pending transactions.
func (s *State) RetrieveMempool() []database.Tx {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trans := make([]database.Tx, len(s.pending))
	copy(trans, s.pending)
	return trans
}
