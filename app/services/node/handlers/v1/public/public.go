// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/ardanlabs/powledger/business/web/errs"
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/state"
	"github.com/ardanlabs/powledger/foundation/events"
	"github.com/ardanlabs/powledger/foundation/nameservice"
	"github.com/ardanlabs/powledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	// A viewer can limit the stream with one or more prefix parameters.
	ch := h.Evts.Acquire(v.TraceID, r.URL.Query()["prefix"]...)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitWalletTransaction adds a new signed user transaction to the
// pending pool.
func (h Handlers) SubmitWalletTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var tran database.Tx
	if err := web.Decode(r, &tran); err != nil {
		return err
	}

	h.Log.Infow("add user tran", "traceid", v.TraceID, "tx", tran, "hash", tran.Hash())
	if err := h.State.AddTransaction(tran); err != nil {
		if rerr := errs.NewRejection(err); rerr != nil {
			return rerr
		}
		return fmt.Errorf("add transaction: %w", err)
	}

	resp := struct {
		Status string `json:"status"`
		Hash   string `json:"hash"`
	}{
		Status: "transaction added to mempool",
		Hash:   tran.Hash(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.RetrieveGenesis()
	return web.Respond(ctx, w, gen, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	mempool := h.State.RetrieveMempool()

	trans := make([]tx, len(mempool))
	for i, tran := range mempool {
		trans[i] = h.toTx(tran)
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}

// Accounts returns the current balances for all accounts or the
// specified account.
func (h Handlers) Accounts(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accountStr := web.Param(r, "account")

	var balances map[database.AccountID]int64
	switch accountStr {
	case "":
		balances = h.State.QueryAccounts()

	default:
		account, err := h.lookupAccount(accountStr)
		if err != nil {
			return err
		}
		balances = map[database.AccountID]int64{
			account: h.State.QueryBalance(account),
		}
	}

	acts := make([]act, 0, len(balances))
	for account, balance := range balances {
		acts = append(acts, act{
			Account: account,
			Name:    h.NS.Lookup(account),
			Balance: balance,
		})
	}
	sort.Slice(acts, func(i, j int) bool { return acts[i].Account < acts[j].Account })

	ai := actInfo{
		LatestBlock: h.State.RetrieveLatestBlock().Hash,
		Uncommitted: len(h.State.RetrieveMempool()),
		Accounts:    acts,
	}

	return web.Respond(ctx, w, ai, http.StatusOK)
}

// BlocksByAccount returns all the blocks and their details. When an account
// is provided, only blocks holding a transaction for that account are
// returned.
func (h Handlers) BlocksByAccount(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var account database.AccountID
	if accountStr := web.Param(r, "account"); accountStr != "" {
		var err error
		if account, err = h.lookupAccount(accountStr); err != nil {
			return err
		}
	}

	dbBlocks := h.State.QueryBlocksByAccount(account)
	if len(dbBlocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	blocks := make([]block, len(dbBlocks))
	for j, blk := range dbBlocks {
		trans := make([]tx, len(blk.Transactions))
		for i, tran := range blk.Transactions {
			trans[i] = h.toTx(tran)
		}

		blocks[j] = block{
			Timestamp:    blk.Timestamp,
			PreviousHash: blk.PreviousHash,
			Hash:         blk.Hash,
			Nonce:        blk.Nonce,
			Transactions: trans,
		}
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// =============================================================================

// lookupAccount accepts an account id or a name known to the name service.
func (h Handlers) lookupAccount(value string) (database.AccountID, error) {
	if account, exists := h.NS.Account(value); exists {
		return account, nil
	}

	account, err := database.ToAccountID(value)
	if err != nil {
		return "", errs.NewTrusted(err, http.StatusBadRequest)
	}

	return account, nil
}

// toTx converts a ledger transaction into the response model.
func (h Handlers) toTx(tran database.Tx) tx {
	return tx{
		FromAccount: tran.FromAddress,
		FromName:    h.NS.Lookup(tran.FromAddress),
		To:          tran.ToAddress,
		ToName:      h.NS.Lookup(tran.ToAddress),
		Amount:      tran.Amount,
		Hash:        tran.Hash(),
		Sig:         tran.Signature,
	}
}
