// Package gossip implements the UDP transport nodes use to find each other
// and to exchange chains, transactions and blocks.
package gossip

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/database"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/peer"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/state"
	"github.com/google/uuid"
)

// maxDatagram is the largest payload a single UDP datagram can carry.
// Every message must fit in one datagram.
const maxDatagram = 65507

// Set of error variables for the transport.
var (
	ErrUnknownMessage  = errors.New("unknown message type")
	ErrMessageTooLarge = errors.New("message does not fit in a datagram")
	ErrNotStarted      = errors.New("transport is not started")
)

// Config represents the configuration required to start the transport.
type Config struct {
	Host      string
	Port      int
	Peers     *peer.PeerSet
	State     *state.State
	EvHandler state.EventHandler
}

// Transport owns the node's UDP socket. Inbound datagrams are processed
// one at a time, in the order they arrive.
type Transport struct {
	host      string
	port      int
	peers     *peer.PeerSet
	state     *state.State
	evHandler state.EventHandler

	mu   sync.RWMutex
	conn *net.UDPConn
	wg   sync.WaitGroup
}

// New constructs a transport that is not yet bound.
func New(cfg Config) (*Transport, error) {
	if cfg.Peers == nil {
		return nil, errors.New("a peer set is required")
	}
	if cfg.State == nil {
		return nil, errors.New("a state is required")
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	t := Transport{
		host:      cfg.Host,
		port:      cfg.Port,
		peers:     cfg.Peers,
		state:     cfg.State,
		evHandler: ev,
	}

	return &t, nil
}

// Start binds the socket, records this node's identity and starts
// processing datagrams. A node that is not the seed announces itself to
// the seed.
func (t *Transport) Start() error {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: t.port})
	if err != nil {
		return fmt.Errorf("binding udp port %d: %w", t.port, err)
	}

	bound := conn.LocalAddr().(*net.UDPAddr)
	self := peer.New(t.host, bound.Port)
	t.peers.SetSelf(self)

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()

	t.evHandler("gossip: start: listening: self[%s]", self.Host())

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.readLoop(conn)
	}()

	seed := t.peers.Seed()
	if self.Match(seed) {
		t.evHandler("gossip: start: running as the seed node")
		return nil
	}

	msg, _ := NewMessage(TypeNewPeer, nil)
	if err := t.Send(msg, seed); err != nil {
		t.evHandler("gossip: start: ERROR: announcing to seed[%s]: %s", seed.Host(), err)
	}

	return nil
}

// Shutdown closes the socket and waits for the read loop to finish. No
// departure notice is sent to other peers.
func (t *Transport) Shutdown() error {
	t.evHandler("gossip: shutdown: started")
	defer t.evHandler("gossip: shutdown: completed")

	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn == nil {
		return nil
	}

	err := conn.Close()
	t.wg.Wait()

	if remote := t.peers.Remote(); !remote.IsZero() {
		t.evHandler("gossip: shutdown: leaving network: remote[%s]", remote.Host())
	}

	return err
}

// Self returns this node's identity.
func (t *Transport) Self() peer.Peer {
	return t.peers.Self()
}

// =============================================================================

// Send writes a single message to the specified peer. There is no
// acknowledgement and no retry.
func (t *Transport) Send(msg Message, to peer.Peer) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", msg.Type, err)
	}

	if len(data) > maxDatagram {
		return fmt.Errorf("%s: %d bytes: %w", msg.Type, len(data), ErrMessageTooLarge)
	}

	addr, err := net.ResolveUDPAddr("udp4", to.Host())
	if err != nil {
		return fmt.Errorf("resolving %s: %w", to.Host(), err)
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.conn == nil {
		return ErrNotStarted
	}

	t.evHandler("gossip: send: type[%s] to[%s]", msg.Type, to.Host())

	if _, err := t.conn.WriteToUDP(data, addr); err != nil {
		return fmt.Errorf("writing %s to %s: %w", msg.Type, to.Host(), err)
	}

	return nil
}

// Broadcast sends the message to every known peer except this node.
func (t *Transport) Broadcast(msg Message) error {
	return t.broadcast(msg, peer.Peer{})
}

// BroadcastTx shares a transaction with the network.
func (t *Transport) BroadcastTx(tx database.Tx) error {
	msg, err := NewMessage(TypeTransaction, tx)
	if err != nil {
		return err
	}

	return t.Broadcast(msg)
}

// BroadcastBlock shares a block with the network.
func (t *Transport) BroadcastBlock(block database.Block) error {
	msg, err := NewMessage(TypeMine, block)
	if err != nil {
		return err
	}

	return t.Broadcast(msg)
}

// broadcast sends the message to every known peer except this node and the
// specified peer. Every peer is attempted even when some sends fail.
func (t *Transport) broadcast(msg Message, exclude peer.Peer) error {
	self := t.peers.Self()

	var errs []error
	for _, p := range t.peers.Copy(self) {
		if p.Match(exclude) {
			continue
		}

		if err := t.Send(msg, p); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// =============================================================================

// readLoop processes datagrams until the socket is closed.
func (t *Transport) readLoop(conn *net.UDPConn) {
	t.evHandler("gossip: readLoop: G started")
	defer t.evHandler("gossip: readLoop: G completed")

	buf := make([]byte, 64*1024)

	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			t.evHandler("gossip: readLoop: ERROR: %s", err)
			continue
		}

		from := peer.New(addr.IP.String(), addr.Port)
		traceID := uuid.NewString()

		msg, err := decode(buf[:n])
		if err != nil {
			t.evHandler("gossip: readLoop: traceid[%s]: from[%s]: ERROR: %s", traceID, from.Host(), err)
			continue
		}

		t.evHandler("gossip: readLoop: traceid[%s]: received: type[%s] from[%s]", traceID, msg.Type, from.Host())

		if err := t.dispatch(msg, from); err != nil {
			t.evHandler("gossip: readLoop: traceid[%s]: type[%s]: ERROR: %s", traceID, msg.Type, err)
		}
	}
}
