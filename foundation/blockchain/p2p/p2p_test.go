package p2p_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/powledger/foundation/blockchain/p2p"
	"github.com/ardanlabs/powledger/foundation/blockchain/peer"
	"github.com/ardanlabs/powledger/foundation/blockchain/state"
	"github.com/davecgh/go-spew/spew"
	"github.com/gorilla/websocket"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

type node struct {
	state *state.State
	net   *p2p.Network
	srv   *httptest.Server
}

func (n node) host() string {
	return strings.TrimPrefix(n.srv.URL, "http://")
}

func (n node) close() {
	n.net.Shutdown()
	n.srv.Close()
}

func newNode(t *testing.T, name string, opts ...func(cfg *p2p.Config)) node {
	gen := genesis.Default()
	gen.Difficulty = 1

	ev := func(v string, args ...any) {
		t.Logf("%s: %s", name, fmt.Sprintf(v, args...))
	}

	st, err := state.New(state.Config{
		BeneficiaryID: database.AccountID(name),
		Genesis:       gen,
		EvHandler:     ev,
	})
	if err != nil {
		t.Fatalf("Should be able to construct the state: %v", err)
	}

	cfg := p2p.Config{
		State:     st,
		EvHandler: ev,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	net := p2p.New(cfg)

	mux := http.NewServeMux()
	mux.HandleFunc(p2p.Path, func(w http.ResponseWriter, r *http.Request) {
		if err := net.Accept(w, r); err != nil {
			t.Logf("%s: accept: %s", name, err)
		}
	})

	return node{
		state: st,
		net:   net,
		srv:   httptest.NewServer(mux),
	}
}

func mine(t *testing.T, st *state.State, blocks int) {
	for i := 0; i < blocks; i++ {
		if _, err := st.MinePendingTransactions(context.Background(), st.RetrieveBeneficiary()); err != nil {
			t.Fatalf("Should be able to mine a block: %v", err)
		}
	}
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func sameTip(a *state.State, b *state.State) func() bool {
	return func() bool {
		return a.RetrieveLatestBlock().Hash == b.RetrieveLatestBlock().Hash
	}
}

// =============================================================================

func Test_Converge(t *testing.T) {
	t.Log("Given the need for two nodes to agree on the longest chain.")
	{
		nodeA := newNode(t, "nodeA")
		defer nodeA.close()

		nodeB := newNode(t, "nodeB")
		defer nodeB.close()

		mine(t, nodeA.state, 3)
		mine(t, nodeB.state, 1)

		t.Logf("\tTest 0:\tWhen nodeB connects to nodeA with a shorter chain.")
		{
			if err := nodeB.net.Connect(context.Background(), peer.New(nodeA.host())); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to connect: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to connect.", success)

			if !waitFor(sameTip(nodeA.state, nodeB.state)) {
				t.Log(spew.Sdump(nodeB.state.RetrieveChain()))
				t.Fatalf("\t%s\tTest 0:\tShould adopt the chain of nodeA.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould adopt the chain of nodeA.", success)

			if nodeB.state.RetrieveChainLength() != 4 {
				t.Fatalf("\t%s\tTest 0:\tShould have 4 blocks, got %d.", failed, nodeB.state.RetrieveChainLength())
			}
			t.Logf("\t%s\tTest 0:\tShould have 4 blocks.", success)

			if !waitFor(func() bool { return len(nodeA.net.Peers()) == 1 }) {
				t.Fatalf("\t%s\tTest 0:\tShould show one peer on nodeA.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould show one peer on nodeA.", success)
		}

		t.Logf("\tTest 1:\tWhen nodeB mines ahead and broadcasts.")
		{
			mine(t, nodeB.state, 2)

			if sent := nodeB.net.BroadcastChain(); sent != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould send the chain to one peer, got %d.", failed, sent)
			}
			t.Logf("\t%s\tTest 1:\tShould send the chain to one peer.", success)

			if !waitFor(sameTip(nodeA.state, nodeB.state)) {
				t.Fatalf("\t%s\tTest 1:\tShould have nodeA adopt the longer chain.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould have nodeA adopt the longer chain.", success)

			if nodeA.state.RetrieveChainLength() != 6 || !nodeA.state.IsChainValid() {
				t.Fatalf("\t%s\tTest 1:\tShould have a valid chain of 6 blocks, got %d.", failed, nodeA.state.RetrieveChainLength())
			}
			t.Logf("\t%s\tTest 1:\tShould have a valid chain of 6 blocks.", success)
		}
	}
}

func Test_Protocol(t *testing.T) {
	nodeA := newNode(t, "nodeA")
	defer nodeA.close()

	mine(t, nodeA.state, 2)
	original := nodeA.state.RetrieveChain()

	url := fmt.Sprintf("ws://%s%s", nodeA.host(), p2p.Path)
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Should be able to dial the node: %v", err)
	}
	defer ws.Close()

	ws.SetReadDeadline(time.Now().Add(5 * time.Second))

	t.Log("Given the need to speak the chain protocol.")
	{
		t.Logf("\tTest 0:\tWhen a connection is accepted.")
		{
			var msg p2p.Message
			if err := ws.ReadJSON(&msg); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to read a message: %v", failed, err)
			}

			if msg.Type != p2p.TypeRequestChain || string(msg.Data) != "null" {
				t.Logf("got: %s %s", msg.Type, msg.Data)
				t.Fatalf("\t%s\tTest 0:\tShould receive a chain request first.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould receive a chain request first.", success)
		}

		t.Logf("\tTest 1:\tWhen junk and a tampered chain are sent.")
		{
			if err := ws.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to send junk: %v", failed, err)
			}

			if err := ws.WriteJSON(p2p.Message{Type: p2p.TypeChain, Data: json.RawMessage(`{"blocks":1}`)}); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to send a bad payload: %v", failed, err)
			}

			tampered := nodeA.state.RetrieveChain()
			tampered = append(tampered, tampered[len(tampered)-1])
			tampered[1].Transactions[0].Amount = 1_000_000
			data, err := json.Marshal(tampered)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to marshal the chain: %v", failed, err)
			}

			if err := ws.WriteJSON(p2p.Message{Type: p2p.TypeChain, Data: data}); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to send the chain: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould be able to send the messages.", success)
		}

		t.Logf("\tTest 2:\tWhen the chain is requested.")
		{
			if err := ws.WriteJSON(p2p.Message{Type: p2p.TypeRequestChain}); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to request the chain: %v", failed, err)
			}

			var msg p2p.Message
			if err := ws.ReadJSON(&msg); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to read a message: %v", failed, err)
			}

			if msg.Type != p2p.TypeChain {
				t.Fatalf("\t%s\tTest 2:\tShould receive the chain, got %s.", failed, msg.Type)
			}

			blocks, err := database.DecodeChain(msg.Data)
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to decode the chain: %v", failed, err)
			}

			if len(blocks) != len(original) || !blocks[len(blocks)-1].Equal(original[len(original)-1]) {
				t.Log(spew.Sdump(blocks))
				t.Fatalf("\t%s\tTest 2:\tShould receive the unchanged chain.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould receive the unchanged chain.", success)
		}
	}
}

func Test_ConnectFailure(t *testing.T) {
	nodeA := newNode(t, "nodeA")
	defer nodeA.close()

	srv := httptest.NewServer(http.NotFoundHandler())
	host := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	peers := []peer.Peer{peer.New(host)}
	if connected := nodeA.net.ConnectKnownPeers(context.Background(), peers); connected != 0 {
		t.Fatalf("Should not connect to a closed peer, got %d.", connected)
	}

	if len(nodeA.net.Peers()) != 0 {
		t.Fatalf("Should not register a failed connection.")
	}
}

func Test_ReadLimit(t *testing.T) {
	nodeA := newNode(t, "nodeA", func(cfg *p2p.Config) { cfg.MaxMessageSize = 1024 })
	defer nodeA.close()

	url := fmt.Sprintf("ws://%s%s", nodeA.host(), p2p.Path)
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Should be able to dial the node: %v", err)
	}
	defer ws.Close()

	ws.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg p2p.Message
	if err := ws.ReadJSON(&msg); err != nil {
		t.Fatalf("Should be able to read the chain request: %v", err)
	}

	if !waitFor(func() bool { return len(nodeA.net.Peers()) == 1 }) {
		t.Fatalf("Should show one peer on nodeA.")
	}

	big := p2p.Message{Type: p2p.TypeChain, Data: json.RawMessage(`"` + strings.Repeat("a", 4096) + `"`)}
	if err := ws.WriteJSON(big); err != nil {
		t.Fatalf("Should be able to send the oversized frame: %v", err)
	}

	if err := ws.ReadJSON(&msg); err == nil {
		t.Fatalf("Should have the connection closed after an oversized frame, got %s.", msg.Type)
	}

	if !waitFor(func() bool { return len(nodeA.net.Peers()) == 0 }) {
		t.Fatalf("Should drop the peer after an oversized frame.")
	}
}
