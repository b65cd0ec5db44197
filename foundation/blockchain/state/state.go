// Package state is the core API for the ledger and implements all the
// business rules and processing.
package state

import (
	"sync"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
)

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of the ledger.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining and chain broadcasting.
type Worker interface {
	Shutdown()
	SignalStartMining()
}

// =============================================================================

// Config represents the configuration required to start
// the ledger node.
type Config struct {
	BeneficiaryID database.AccountID
	Genesis       genesis.Genesis
	EvHandler     EventHandler
}

// State manages the chain of blocks and the pool of transactions waiting to
// be mined. The chain always starts with the genesis block.
type State struct {
	beneficiaryID database.AccountID
	evHandler     EventHandler

	genesis      genesis.Genesis
	genesisBlock database.Block

	mu      sync.RWMutex
	chain   []database.Block
	pending []database.Tx

	// miningMu makes sure only one block is mined at a time.
	miningMu sync.Mutex

	Worker Worker
}

// New constructs a new ledger holding only the genesis block.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	genesisBlock := cfg.Genesis.Block()

	// Create the State to provide support for managing the ledger.
	state := State{
		beneficiaryID: cfg.BeneficiaryID,
		evHandler:     ev,
		genesis:       cfg.Genesis,
		genesisBlock:  genesisBlock,
		chain:         []database.Block{genesisBlock.Copy()},
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all ledger writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return nil
}
