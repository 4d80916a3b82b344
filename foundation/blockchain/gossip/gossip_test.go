package gossip_test

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/database"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/gossip"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/peer"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/state"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/wallet"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/worker"
	"go.uber.org/goleak"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const host = "127.0.0.1"

// node is a complete node running on the loopback interface.
type node struct {
	wallet    *wallet.Wallet
	peers     *peer.PeerSet
	state     *state.State
	worker    *worker.Worker
	transport *gossip.Transport
}

func startNode(t *testing.T, name string, seed peer.Peer, port int) *node {
	w, err := wallet.Generate()
	if err != nil {
		t.Fatalf("Should be able to generate a wallet: %s", err)
	}

	ev := func(v string, args ...any) {
		t.Logf(name+": "+v, args...)
	}

	st, err := state.New(state.Config{Identity: w, EvHandler: ev})
	if err != nil {
		t.Fatalf("Should be able to construct the state: %s", err)
	}

	peers := peer.NewPeerSet(seed)

	tr, err := gossip.New(gossip.Config{
		Host:      host,
		Port:      port,
		Peers:     peers,
		State:     st,
		EvHandler: ev,
	})
	if err != nil {
		t.Fatalf("Should be able to construct the transport: %s", err)
	}

	wrk := worker.Run(st, tr, ev)

	if err := tr.Start(); err != nil {
		t.Fatalf("Should be able to start the transport: %s", err)
	}

	return &node{
		wallet:    w,
		peers:     peers,
		state:     st,
		worker:    wrk,
		transport: tr,
	}
}

func (n *node) stop() {
	n.state.Shutdown()
	n.transport.Shutdown()
}

func (n *node) knows(p peer.Peer) bool {
	for _, known := range n.peers.Copy(peer.Peer{}) {
		if known.Match(p) {
			return true
		}
	}
	return false
}

// freePort finds a port the seed can bind to.
func freePort(t *testing.T) int {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP(host)})
	if err != nil {
		t.Fatalf("Should be able to find a free port: %s", err)
	}
	defer conn.Close()

	return conn.LocalAddr().(*net.UDPAddr).Port
}

// eventually polls the condition until it holds or the deadline passes.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return false
}

// =============================================================================

func Test_Network(t *testing.T) {
	defer goleak.VerifyNone(t)

	seedPort := freePort(t)
	seed := peer.New(host, seedPort)

	a := startNode(t, "A", seed, seedPort)
	defer a.stop()

	if _, err := a.worker.Mine(context.Background(), a.wallet.PublicKey()); err != nil {
		t.Fatalf("Should be able to mine on the seed: %s", err)
	}

	pending, err := a.state.Transfer(a.wallet.PublicKey(), "bob", 5)
	if err != nil {
		t.Fatalf("Should be able to transfer on the seed: %s", err)
	}

	t.Log("Given the need for a node to join through the seed.")
	{
		b := startNode(t, "B", seed, 0)
		defer b.stop()

		ok := eventually(func() bool {
			return a.knows(b.transport.Self()) && b.knows(seed) && b.knows(b.transport.Self())
		})
		if !ok {
			t.Fatalf("\t%s\tShould exchange peers with the seed.", failed)
		}
		t.Logf("\t%s\tShould exchange peers with the seed.", success)

		if !eventually(func() bool { return b.peers.Remote().Match(seed) }) {
			t.Fatalf("\t%s\tShould record the seed as the remote.", failed)
		}
		t.Logf("\t%s\tShould record the seed as the remote.", success)

		ok = eventually(func() bool {
			return len(b.state.RetrieveChain()) == 2 && b.state.QueryMempoolLength() == 1
		})
		if !ok {
			t.Fatalf("\t%s\tShould adopt the chain and mempool of the seed.", failed)
		}
		t.Logf("\t%s\tShould adopt the chain and mempool of the seed.", success)

		if !b.state.RetrieveMempool()[0].Equals(pending) {
			t.Fatalf("\t%s\tShould adopt the pending transfer.", failed)
		}
		t.Logf("\t%s\tShould adopt the pending transfer.", success)

		t.Log("\tWhen a third node joins.")
		{
			c := startNode(t, "C", seed, 0)
			defer c.stop()

			if !eventually(func() bool { return b.knows(c.transport.Self()) }) {
				t.Fatalf("\t%s\tShould tell existing peers about the newcomer.", failed)
			}
			t.Logf("\t%s\tShould tell existing peers about the newcomer.", success)

			if !eventually(func() bool { return len(c.state.RetrieveChain()) == 2 }) {
				t.Fatalf("\t%s\tShould give the newcomer the chain.", failed)
			}
			t.Logf("\t%s\tShould give the newcomer the chain.", success)

			block, err := b.worker.Mine(context.Background(), b.wallet.PublicKey())
			if err != nil {
				t.Fatalf("\t%s\tShould be able to mine on a peer: %s", failed, err)
			}

			same := func(n *node) bool {
				return n.state.RetrieveLatestBlock().Equals(block)
			}
			if !eventually(func() bool { return same(a) && same(c) }) {
				t.Fatalf("\t%s\tShould spread the mined block to every node.", failed)
			}
			t.Logf("\t%s\tShould spread the mined block to every node.", success)

			for _, n := range []*node{a, b, c} {
				if n.state.QueryMempoolLength() != 0 {
					t.Fatalf("\t%s\tShould confirm the pending transfer everywhere.", failed)
				}
				if got := n.state.BalanceOf("bob"); got != 5 {
					t.Fatalf("\t%s\tShould agree on balances: %v", failed, got)
				}
			}
			t.Logf("\t%s\tShould confirm the pending transfer everywhere.", success)

			tx, err := a.state.Transfer(a.wallet.PublicKey(), "carol", 1)
			if err != nil {
				t.Fatalf("\t%s\tShould be able to transfer: %s", failed, err)
			}

			has := func(n *node) bool {
				pool := n.state.RetrieveMempool()
				return len(pool) == 1 && pool[0].Equals(tx)
			}
			if !eventually(func() bool { return has(b) && has(c) }) {
				t.Fatalf("\t%s\tShould spread the transfer to every node.", failed)
			}
			t.Logf("\t%s\tShould spread the transfer to every node.", success)
		}
	}
}

func Test_Bootstrap(t *testing.T) {
	defer goleak.VerifyNone(t)

	seedPort := freePort(t)
	seed := peer.New(host, seedPort)

	a := startNode(t, "A", seed, seedPort)
	defer a.stop()

	client, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP(host)})
	if err != nil {
		t.Fatalf("Should be able to open a client socket: %s", err)
	}
	defer client.Close()

	addr := &net.UDPAddr{IP: net.ParseIP(host), Port: seedPort}
	self := peer.New(host, client.LocalAddr().(*net.UDPAddr).Port)

	t.Log("Given the need to speak the wire protocol.")
	{
		for _, raw := range []string{`{"type":"bogus"}`, `not json`, `{"data":1}`} {
			if _, err := client.WriteToUDP([]byte(raw), addr); err != nil {
				t.Fatalf("\t%s\tShould be able to send a bad datagram: %s", failed, err)
			}
		}

		if _, err := client.WriteToUDP([]byte(`{"type":"new_peer"}`), addr); err != nil {
			t.Fatalf("\t%s\tShould be able to send new_peer: %s", failed, err)
		}

		replies := make(map[string]gossip.Message)
		buf := make([]byte, 64*1024)
		client.SetReadDeadline(time.Now().Add(5 * time.Second))

		for len(replies) < 3 {
			n, _, err := client.ReadFromUDP(buf)
			if err != nil {
				t.Fatalf("\t%s\tShould receive the bootstrap replies: got %d: %s", failed, len(replies), err)
			}

			var msg gossip.Message
			if err := json.Unmarshal(buf[:n], &msg); err != nil {
				t.Fatalf("\t%s\tShould receive JSON messages: %s", failed, err)
			}
			replies[msg.Type] = msg
		}
		t.Logf("\t%s\tShould survive bad datagrams and receive the bootstrap replies.", success)

		var remote peer.Peer
		if err := replies[gossip.TypeRemotePeer].ParsePayload(&remote); err != nil || !remote.Match(seed) {
			t.Fatalf("\t%s\tShould receive the seed as remote_peer: %v %v", failed, remote, err)
		}
		t.Logf("\t%s\tShould receive the seed as remote_peer.", success)

		var list []peer.Peer
		if err := replies[gossip.TypePeerList].ParsePayload(&list); err != nil || len(list) != 2 || !list[1].Match(self) {
			t.Fatalf("\t%s\tShould receive the seed and itself in peer_list: %v %v", failed, list, err)
		}
		t.Logf("\t%s\tShould receive the seed and itself in peer_list.", success)

		var data gossip.ChainData
		if err := replies[gossip.TypeBlockchainData].ParsePayload(&data); err != nil {
			t.Fatalf("\t%s\tShould receive blockchain_data: %s", failed, err)
		}
		if len(data.Blockchain) != 1 || !data.Blockchain[0].Equals(database.Genesis()) {
			t.Fatalf("\t%s\tShould receive the genesis chain: %v", failed, data.Blockchain)
		}
		t.Logf("\t%s\tShould receive the genesis chain.", success)
	}
}

func Test_NewMessage(t *testing.T) {
	msg, err := gossip.NewMessage(gossip.TypeHi, nil)
	if err != nil {
		t.Fatalf("Should be able to construct a message: %s", err)
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Should be able to encode a message: %s", err)
	}

	if string(raw) != `{"type":"hi"}` {
		t.Fatalf("Should omit the data of an empty message: %s", raw)
	}

	var p peer.Peer
	if err := msg.ParsePayload(&p); err == nil {
		t.Fatalf("Should not parse a message without data.")
	}
}
