package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/powledger/app/services/node/handlers"
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/powledger/foundation/blockchain/p2p"
	"github.com/ardanlabs/powledger/foundation/blockchain/peer"
	"github.com/ardanlabs/powledger/foundation/blockchain/signature"
	"github.com/ardanlabs/powledger/foundation/blockchain/state"
	"github.com/ardanlabs/powledger/foundation/blockchain/worker"
	"github.com/ardanlabs/powledger/foundation/events"
	"github.com/ardanlabs/powledger/foundation/nameservice"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

const kennedyKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"

func newConfig(t *testing.T) handlers.MuxConfig {
	ns, err := nameservice.New("../../../../zblock/accounts")
	if err != nil {
		t.Fatalf("Should be able to load the name service: %v", err)
	}

	miner, _ := ns.Account("miner1")

	gen := genesis.Default()
	gen.Difficulty = 1

	st, err := state.New(state.Config{
		BeneficiaryID: miner,
		Genesis:       gen,
	})
	if err != nil {
		t.Fatalf("Should be able to construct the state: %v", err)
	}

	net := p2p.New(p2p.Config{State: st})

	worker.Run(worker.Config{
		State:        st,
		Network:      net,
		MineInterval: time.Hour,
	})

	t.Cleanup(func() {
		st.Shutdown()
		net.Shutdown()
	})

	return handlers.MuxConfig{
		Shutdown: make(chan os.Signal, 1),
		Log:      zap.NewNop().Sugar(),
		State:    st,
		NS:       ns,
		Evts:     events.New(),
		Net:      net,
		Peers:    peer.NewPeerSet(),
	}
}

func do(h http.Handler, method string, path string, body []byte) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func Test_PublicRoutes(t *testing.T) {
	cfg := newConfig(t)
	public := handlers.PublicMux(cfg)

	pk, err := crypto.HexToECDSA(kennedyKey)
	if err != nil {
		t.Fatalf("Should be able to load the key: %v", err)
	}
	kennedy := database.PublicKeyToAccountID(pk.PublicKey)
	miner, _ := cfg.NS.Account("miner1")

	t.Log("Given the need to use the ledger through the public api.")
	{
		t.Logf("\tTest 0:\tWhen submitting a signed transaction.")
		{
			tx := database.NewTx(kennedy, miner, 10)
			if err := tx.Sign(pk); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to sign: %v", failed, err)
			}
			data, _ := json.Marshal(tx)

			w := do(public, http.MethodPost, "/v1/tx/submit", data)
			if w.Code != http.StatusOK {
				t.Logf("\t\tTest 0:\tbody: %s", w.Body.String())
				t.Fatalf("\t%s\tTest 0:\tShould receive a 200, got %d.", failed, w.Code)
			}
			t.Logf("\t%s\tTest 0:\tShould receive a 200.", success)

			w = do(public, http.MethodGet, "/v1/tx/uncommitted/list", nil)
			var pending []map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &pending); err != nil || len(pending) != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould list one pending transaction: %s", failed, w.Body.String())
			}
			t.Logf("\t%s\tTest 0:\tShould list one pending transaction.", success)

			if pending[0]["from_name"] != "kennedy" || pending[0]["to_name"] != "miner1" {
				t.Fatalf("\t%s\tTest 0:\tShould resolve the account names: %v", failed, pending[0])
			}
			t.Logf("\t%s\tTest 0:\tShould resolve the account names.", success)
		}

		t.Logf("\tTest 1:\tWhen submitting an unsigned transaction.")
		{
			data, _ := json.Marshal(database.NewTx(kennedy, miner, 10))

			w := do(public, http.MethodPost, "/v1/tx/submit", data)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest 1:\tShould receive a 400, got %d.", failed, w.Code)
			}
			t.Logf("\t%s\tTest 1:\tShould receive a 400.", success)

			var resp struct {
				Reason string `json:"reason"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Reason != "missing_signature" {
				t.Fatalf("\t%s\tTest 1:\tShould receive the missing signature reason: %s", failed, w.Body.String())
			}
			t.Logf("\t%s\tTest 1:\tShould receive the missing signature reason.", success)

			big := database.NewTx(kennedy, miner, math.MaxInt64+1)
			if err := big.Sign(pk); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to sign: %v", failed, err)
			}
			data, _ = json.Marshal(big)

			w = do(public, http.MethodPost, "/v1/tx/submit", data)
			if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "amount") {
				t.Fatalf("\t%s\tTest 1:\tShould reject an amount over the max, got %d: %s", failed, w.Code, w.Body.String())
			}
			t.Logf("\t%s\tTest 1:\tShould reject an amount over the max.", success)

			if n := len(cfg.State.RetrieveMempool()); n != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould leave the mempool unchanged, got %d.", failed, n)
			}
			t.Logf("\t%s\tTest 1:\tShould leave the mempool unchanged.", success)
		}

		t.Logf("\tTest 2:\tWhen the pending transaction is mined.")
		{
			if _, err := cfg.State.MinePendingTransactions(context.Background(), miner); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to mine: %v", failed, err)
			}

			w := do(public, http.MethodGet, "/v1/accounts/list/kennedy", nil)
			var info struct {
				Accounts []struct {
					Name    string `json:"name"`
					Balance int64  `json:"balance"`
				} `json:"accounts"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil || len(info.Accounts) != 1 {
				t.Fatalf("\t%s\tTest 2:\tShould get back one account: %s", failed, w.Body.String())
			}

			if info.Accounts[0].Name != "kennedy" || info.Accounts[0].Balance != -10 {
				t.Fatalf("\t%s\tTest 2:\tShould get back a balance of -10 for kennedy: %+v", failed, info.Accounts[0])
			}
			t.Logf("\t%s\tTest 2:\tShould get back a balance of -10 for kennedy.", success)

			w = do(public, http.MethodGet, "/v1/blocks/list/miner1", nil)
			var blocks []map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &blocks); err != nil || len(blocks) != 1 {
				t.Fatalf("\t%s\tTest 2:\tShould get back one block for the miner: %s", failed, w.Body.String())
			}
			t.Logf("\t%s\tTest 2:\tShould get back one block for the miner.", success)
		}

		t.Logf("\tTest 3:\tWhen asking for a bad account.")
		{
			w := do(public, http.MethodGet, "/v1/accounts/list/nobody", nil)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest 3:\tShould receive a 400, got %d.", failed, w.Code)
			}
			t.Logf("\t%s\tTest 3:\tShould receive a 400.", success)
		}
	}
}

func Test_PrivateRoutes(t *testing.T) {
	cfg := newConfig(t)
	private := handlers.PrivateMux(cfg)

	w := do(private, http.MethodPost, "/v1/node/mine", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Should be able to signal mining, got %d.", w.Code)
	}

	deadline := time.Now().Add(5 * time.Second)
	for cfg.State.RetrieveChainLength() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	w = do(private, http.MethodGet, "/v1/node/status", nil)
	var status peer.PeerStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("Should be able to decode the status: %v", err)
	}

	if status.ChainLength < 2 || !status.ChainValid {
		t.Fatalf("Should report the mined chain: %+v", status)
	}

	if status.LatestBlockHash != cfg.State.RetrieveLatestBlock().Hash {
		t.Fatalf("Should report the latest block hash.")
	}

	emptyHash := status.PendingHash
	if emptyHash != signature.Hash(cfg.State.RetrieveMempool()) {
		t.Fatalf("Should report the hash of the pending pool.")
	}

	pk, err := crypto.HexToECDSA(kennedyKey)
	if err != nil {
		t.Fatalf("Should be able to load the key: %v", err)
	}
	tx := database.NewTx(database.PublicKeyToAccountID(pk.PublicKey), "bob", 10)
	if err := tx.Sign(pk); err != nil {
		t.Fatalf("Should be able to sign: %v", err)
	}
	if err := cfg.State.AddTransaction(tx); err != nil {
		t.Fatalf("Should be able to add the transaction: %v", err)
	}

	w = do(private, http.MethodGet, "/v1/node/status", nil)
	status = peer.PeerStatus{}
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("Should be able to decode the status: %v", err)
	}

	if status.Pending != 1 || status.PendingHash == emptyHash || status.PendingHash != signature.Hash([]database.Tx{tx}) {
		t.Fatalf("Should report a new pending hash for the new transaction: %+v", status)
	}
}
