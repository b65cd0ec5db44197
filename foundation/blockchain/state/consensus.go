package state

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
)

// Set of reasons a candidate chain from a peer is not adopted.
var (
	ErrChainNotLonger = errors.New("candidate chain is not longer than the current chain")
	ErrInvalidChain   = errors.New("candidate chain is not valid")
	ErrGenesisMatch   = errors.New("candidate genesis block doesn't match")
)

// =============================================================================

// IsChainValid validates every block after genesis in the current chain.
func (s *State) IsChainValid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := database.ValidateChain(s.chain, s.genesis.Difficulty, s.evHandler); err != nil {
		s.evHandler("state: IsChainValid: ERROR: %s", err)
		return false
	}

	return true
}

// IsValidForeignChain validates a chain received from a peer. The chain must
// start with our exact genesis block and every block is recomputed from its
// fields rather than trusting the hash that was provided.
func (s *State) IsValidForeignChain(candidate []database.Block) bool {
	if err := s.validateForeignChain(candidate); err != nil {
		s.evHandler("state: IsValidForeignChain: ERROR: %s", err)
		return false
	}

	return true
}

// ReplaceChain adopts the candidate chain when it is longer than the current
// chain and fully valid. Ties keep the current chain. It reports whether the
// chain was replaced, the error explains why it was not.
func (s *State) ReplaceChain(candidate []database.Block) (bool, error) {
	s.evHandler("state: ReplaceChain: started: candidate[%d]", len(candidate))
	defer s.evHandler("state: ReplaceChain: completed")

	// Take our own copy so the caller can't alter the chain afterwards.
	candidate = database.CopyChain(candidate)

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(candidate) <= len(s.chain) {
		s.evHandler("state: ReplaceChain: candidate[%d] current[%d]: not longer", len(candidate), len(s.chain))
		return false, ErrChainNotLonger
	}

	if err := s.validateForeignChain(candidate); err != nil {
		s.evHandler("state: ReplaceChain: rejected: %s", err)
		return false, fmt.Errorf("%w: %w", ErrInvalidChain, err)
	}

	s.chain = candidate
	s.evHandler("state: ReplaceChain: replaced: length[%d] latest[%s]", len(s.chain), s.chain[len(s.chain)-1].Hash)

	return true, nil
}

// =============================================================================

// validateForeignChain performs the checks for a chain from a peer.
func (s *State) validateForeignChain(candidate []database.Block) error {
	if len(candidate) == 0 {
		return database.ErrEmptyChain
	}

	if !candidate[0].Equal(s.genesisBlock) {
		return ErrGenesisMatch
	}

	return database.ValidateChain(candidate, s.genesis.Difficulty, s.evHandler)
}
