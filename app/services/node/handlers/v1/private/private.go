// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"net/http"

	"github.com/ardanlabs/powledger/foundation/blockchain/p2p"
	"github.com/ardanlabs/powledger/foundation/blockchain/peer"
	"github.com/ardanlabs/powledger/foundation/blockchain/signature"
	"github.com/ardanlabs/powledger/foundation/blockchain/state"
	"github.com/ardanlabs/powledger/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	Net   *p2p.Network
	Peers *peer.PeerSet
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	latestBlock := h.State.RetrieveLatestBlock()
	mempool := h.State.RetrieveMempool()

	// The pending hash lets two nodes compare their pools without
	// transferring them.
	status := peer.PeerStatus{
		LatestBlockHash: latestBlock.Hash,
		ChainLength:     h.State.RetrieveChainLength(),
		ChainValid:      h.State.IsChainValid(),
		Pending:         len(mempool),
		PendingHash:     signature.Hash(mempool),
		KnownPeers:      h.Peers.Copy(""),
		Connected:       h.Net.Peers(),
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}

// P2P upgrades the request into a peer connection that speaks the chain
// synchronization protocol. The call blocks until the connection closes.
func (h Handlers) P2P(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.Net.Accept(w, r); err != nil {

		// The upgrader has already replied to the client.
		h.Log.Infow("p2p", "traceid", web.GetTraceID(ctx), "remoteaddr", r.RemoteAddr, "ERROR", err)
	}

	return nil
}

// SignalMining starts a mining operation right away.
func (h Handlers) SignalMining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	h.State.Worker.SignalStartMining()

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "mining signaled",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}
