// Package worker implements the mining and chain broadcasting cycle for
// the node.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/state"
)

// defaultMineInterval is used when no interval is configured.
const defaultMineInterval = 10 * time.Second

// Network represents the behavior required to share the chain with peers.
type Network interface {
	BroadcastChain() int
}

// Config represents the configuration required to start the worker.
type Config struct {
	State        *state.State
	Network      Network
	MineInterval time.Duration
	EvHandler    state.EventHandler
}

// =============================================================================

// Worker manages the POW workflows for the node.
type Worker struct {
	state       *state.State
	network     Network
	wg          sync.WaitGroup
	ticker      *time.Ticker
	shut        chan struct{}
	startMining chan bool
	ctx         context.Context
	cancel      context.CancelFunc
	evHandler   state.EventHandler
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes.
func Run(cfg Config) *Worker {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	interval := cfg.MineInterval
	if interval <= 0 {
		interval = defaultMineInterval
	}

	ctx, cancel := context.WithCancel(context.Background())

	w := Worker{
		state:       cfg.State,
		network:     cfg.Network,
		ticker:      time.NewTicker(interval),
		shut:        make(chan struct{}),
		startMining: make(chan bool, 1),
		ctx:         ctx,
		cancel:      cancel,
		evHandler:   ev,
	}

	// Register this worker with the state package.
	cfg.State.Worker = &w

	// Load the set of operations we need to run.
	operations := []func(){
		w.miningOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}

	return &w
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutine performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: stop ticker")
	w.ticker.Stop()

	w.evHandler("worker: shutdown: cancel mining")
	w.cancel()

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// SignalStartMining starts a mining operation. If there is already a signal
// pending in the channel, just return since a mining operation will start.
func (w *Worker) SignalStartMining() {
	select {
	case w.startMining <- true:
	default:
	}
	w.evHandler("worker: SignalStartMining: mining signaled")
}

// =============================================================================

// miningOperations runs a mining cycle on every tick or signal.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case <-w.ticker.C:
			if !w.isShutdown() {
				w.runMiningOperation()
			}
		case <-w.startMining:
			if !w.isShutdown() {
				w.runMiningOperation()
			}
		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// runMiningOperation mines the pending transactions into a new block and
// then shares the chain with every connected peer. The chain is broadcast
// even when mining fails.
func (w *Worker) runMiningOperation() {
	w.evHandler("worker: runMiningOperation: MINING: started")
	defer w.evHandler("worker: runMiningOperation: MINING: completed")

	t := time.Now()
	block, err := w.state.MinePendingTransactions(w.ctx, w.state.RetrieveBeneficiary())
	duration := time.Since(t)

	w.evHandler("worker: runMiningOperation: MINING: mining duration[%v]", duration)

	switch {
	case err == nil:
		w.evHandler("worker: runMiningOperation: MINING: block[%s] trans[%d]", block.Hash, len(block.Transactions))
	case errors.Is(err, state.ErrChainChanged):
		w.evHandler("worker: runMiningOperation: MINING: WARNING: %s", err)
	case w.ctx.Err() != nil:
		w.evHandler("worker: runMiningOperation: MINING: CANCEL: complete")
		return
	default:
		w.evHandler("worker: runMiningOperation: MINING: ERROR: %s", err)
	}

	if w.network == nil {
		return
	}

	// Share the chain whether we mined a block or not. Log the outcome,
	// but that's it.
	sent := w.network.BroadcastChain()
	w.evHandler("worker: runMiningOperation: MINING: broadcast: peers[%d]", sent)
}

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
