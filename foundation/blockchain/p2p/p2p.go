// Package p2p implements the chain synchronization protocol between nodes.
// Nodes exchange JSON messages over websocket connections. A node asks a
// peer for its chain with REQUEST_CHAIN and the peer answers with CHAIN.
// Any received chain is offered to the ledger, which keeps the longest
// valid chain.
package p2p

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/peer"
	"github.com/ardanlabs/powledger/foundation/blockchain/signature"
	"github.com/ardanlabs/powledger/foundation/blockchain/state"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Set of message types exchanged between nodes.
const (
	TypeRequestChain = "REQUEST_CHAIN"
	TypeChain        = "CHAIN"
)

// Path is the route a node serves the protocol on.
const Path = "/v1/node/p2p"

// writeWait is the time allowed to write a message to a peer.
const writeWait = 10 * time.Second

// defaultMaxMessageSize is the largest frame read from a peer when the
// configuration doesn't provide one.
const defaultMaxMessageSize = 32 << 20

// ErrShutdown is returned when a connection is attempted after the
// network has been shut down.
var ErrShutdown = errors.New("network is shut down")

// =============================================================================

// Message is the envelope for every frame sent between nodes.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Config represents the configuration required to start the network.
type Config struct {
	State          *state.State
	MaxMessageSize int64
	EvHandler      state.EventHandler
}

// Network manages the set of open peer connections for the node.
type Network struct {
	state     *state.State
	evHandler state.EventHandler
	upgrader  websocket.Upgrader
	dialer    *websocket.Dialer
	readLimit int64

	mu    sync.RWMutex
	conns map[string]*conn
	shut  bool

	wg sync.WaitGroup
}

// New constructs a network for the specified ledger.
func New(cfg Config) *Network {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	readLimit := cfg.MaxMessageSize
	if readLimit <= 0 {
		readLimit = defaultMaxMessageSize
	}

	return &Network{
		state:     cfg.State,
		readLimit: readLimit,
		evHandler: ev,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		dialer: &websocket.Dialer{
			HandshakeTimeout: writeWait,
		},
		conns: make(map[string]*conn),
	}
}

// Accept upgrades the inbound request into a peer connection and serves it
// until the connection is closed.
func (n *Network) Accept(w http.ResponseWriter, r *http.Request) error {
	ws, err := n.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade: %w", err)
	}

	c, err := n.register(ws, r.RemoteAddr)
	if err != nil {
		ws.Close()
		return err
	}

	n.serve(c)

	return nil
}

// Connect dials the peer once and serves the connection in the background.
// There is no reconnection when the connection drops.
func (n *Network) Connect(ctx context.Context, p peer.Peer) error {
	url := fmt.Sprintf("ws://%s%s", p.Host, Path)

	ws, _, err := n.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}

	c, err := n.register(ws, p.Host)
	if err != nil {
		ws.Close()
		return err
	}

	go n.serve(c)

	return nil
}

// ConnectKnownPeers dials every peer in the list. Peers that can't be
// reached are logged and skipped.
func (n *Network) ConnectKnownPeers(ctx context.Context, peers []peer.Peer) int {
	var connected int
	for _, p := range peers {
		if err := n.Connect(ctx, p); err != nil {
			n.evHandler("p2p: ConnectKnownPeers: %s: ERROR: %s", p.Host, err)
			continue
		}
		connected++
	}

	return connected
}

// BroadcastChain sends the current chain to every connected peer. It
// returns the number of peers the chain was delivered to.
func (n *Network) BroadcastChain() int {
	msg, err := n.chainMessage()
	if err != nil {
		n.evHandler("p2p: BroadcastChain: ERROR: %s", err)
		return 0
	}

	n.mu.RLock()
	conns := make([]*conn, 0, len(n.conns))
	for _, c := range n.conns {
		conns = append(conns, c)
	}
	n.mu.RUnlock()

	var sent int
	for _, c := range conns {
		if err := c.write(msg); err != nil {
			n.evHandler("p2p: BroadcastChain: %s: WARNING: %s", c, err)
			continue
		}
		sent++
	}

	n.evHandler("p2p: BroadcastChain: sent[%d] peers[%d]", sent, len(conns))

	return sent
}

// Peers returns the remote address of every open connection.
func (n *Network) Peers() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	peers := make([]string, 0, len(n.conns))
	for _, c := range n.conns {
		peers = append(peers, c.remote)
	}

	return peers
}

// Shutdown closes every connection and waits for every connection to
// finish serving.
func (n *Network) Shutdown() {
	n.evHandler("p2p: shutdown: started")
	defer n.evHandler("p2p: shutdown: completed")

	n.mu.Lock()
	n.shut = true
	for _, c := range n.conns {
		c.ws.Close()
	}
	n.mu.Unlock()

	n.wg.Wait()
}

// =============================================================================

// register adds the connection to the set and asks the peer for its chain.
// A frame larger than the read limit closes the connection.
func (n *Network) register(ws *websocket.Conn, remote string) (*conn, error) {
	ws.SetReadLimit(n.readLimit)

	c := conn{
		id:     uuid.NewString(),
		remote: remote,
		ws:     ws,
	}

	n.mu.Lock()
	if n.shut {
		n.mu.Unlock()
		return nil, ErrShutdown
	}
	n.conns[c.id] = &c
	total := len(n.conns)
	n.wg.Add(1)
	n.mu.Unlock()

	n.evHandler("p2p: register: %s: connected: total[%d]", &c, total)

	if err := c.write(Message{Type: TypeRequestChain, Data: json.RawMessage("null")}); err != nil {
		n.evHandler("p2p: register: %s: request chain: WARNING: %s", &c, err)
	}

	return &c, nil
}

// remove drops the connection from the set and closes it.
func (n *Network) remove(c *conn) {
	n.mu.Lock()
	delete(n.conns, c.id)
	total := len(n.conns)
	n.mu.Unlock()

	c.ws.Close()

	n.evHandler("p2p: remove: %s: disconnected: total[%d]", c, total)
}

// serve reads messages from the connection until it fails.
func (n *Network) serve(c *conn) {
	defer n.wg.Done()
	defer n.remove(c)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			switch {
			case errors.Is(err, websocket.ErrReadLimit):
				n.evHandler("p2p: serve: %s: ERROR: frame larger than %d bytes", c, n.readLimit)
			case websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				n.evHandler("p2p: serve: %s: ERROR: %s", c, err)
			}
			return
		}

		n.handle(c, data)
	}
}

// handle processes a single message. Messages that can't be understood
// are logged and ignored.
func (n *Network) handle(c *conn, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		n.evHandler("p2p: handle: %s: malformed message: %s", c, err)
		return
	}

	switch msg.Type {
	case TypeRequestChain:
		reply, err := n.chainMessage()
		if err != nil {
			n.evHandler("p2p: handle: %s: REQUEST_CHAIN: ERROR: %s", c, err)
			return
		}

		if err := c.write(reply); err != nil {
			n.evHandler("p2p: handle: %s: REQUEST_CHAIN: WARNING: %s", c, err)
		}

	case TypeChain:
		blocks, err := database.DecodeChain(msg.Data)
		if err != nil {
			n.evHandler("p2p: handle: %s: CHAIN: malformed chain: %s", c, err)
			return
		}

		n.evHandler("p2p: handle: %s: CHAIN: received: length[%d] fingerprint[%s]", c, len(blocks), signature.Hash(blocks))

		replaced, err := n.state.ReplaceChain(blocks)
		if err != nil {
			n.evHandler("p2p: handle: %s: CHAIN: kept current chain: %s", c, err)
			return
		}

		if replaced {
			n.evHandler("p2p: handle: %s: CHAIN: replaced chain: length[%d]", c, len(blocks))
		}

	default:
		n.evHandler("p2p: handle: %s: unknown message type %q", c, msg.Type)
	}
}

// chainMessage builds a CHAIN message from a consistent snapshot of the chain.
func (n *Network) chainMessage() (Message, error) {
	data, err := json.Marshal(n.state.RetrieveChain())
	if err != nil {
		return Message{}, fmt.Errorf("marshal chain: %w", err)
	}

	return Message{Type: TypeChain, Data: data}, nil
}

// =============================================================================

// conn is a single peer connection. The websocket allows one concurrent
// writer so every write goes through the mutex.
type conn struct {
	id     string
	remote string
	ws     *websocket.Conn
	mu     sync.Mutex
}

// write sends the message as a single text frame.
func (c *conn) write(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	return c.ws.WriteJSON(msg)
}

// String implements the fmt.Stringer interface for logging.
func (c *conn) String() string {
	return fmt.Sprintf("%s[%s]", c.remote, c.id[:8])
}
