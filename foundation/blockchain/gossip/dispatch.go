package gossip

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/database"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/peer"
	"github.com/ardanlabs/gossipchain/foundation/validate"
)

// dispatch routes a message to the handler for its type.
func (t *Transport) dispatch(msg Message, from peer.Peer) error {
	switch msg.Type {
	case TypeNewPeer:
		return t.handleNewPeer(from)
	case TypeRemotePeer:
		return t.handleRemotePeer(msg)
	case TypePeerList:
		return t.handlePeerList(msg)
	case TypeSayHi:
		return t.handleSayHi(msg)
	case TypeHi:
		t.evHandler("gossip: dispatch: hi: from[%s]", from.Host())
		return nil
	case TypeBlockchainData:
		return t.handleBlockchainData(msg)
	case TypeTransaction:
		return t.handleTransaction(msg)
	case TypeMine:
		return t.handleMine(msg)
	}

	return fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
}

// handleNewPeer welcomes a node joining through this node. The newcomer
// learns the seed, the known peers and the ledger, and every other peer is
// told about the newcomer.
func (t *Transport) handleNewPeer(from peer.Peer) error {
	if t.peers.Add(from) {
		t.evHandler("gossip: dispatch: new_peer: added peer[%s]", from.Host())
	}

	remote, err := NewMessage(TypeRemotePeer, t.peers.Seed())
	if err != nil {
		return err
	}

	list, err := NewMessage(TypePeerList, t.peers.Copy(peer.Peer{}))
	if err != nil {
		return err
	}

	hi, err := NewMessage(TypeSayHi, from)
	if err != nil {
		return err
	}

	data, err := NewMessage(TypeBlockchainData, ChainData{
		Blockchain: t.state.RetrieveChain(),
		Trans:      t.state.RetrieveMempool(),
	})
	if err != nil {
		return err
	}

	var errs []error
	errs = append(errs, t.Send(remote, from))
	errs = append(errs, t.Send(list, from))
	errs = append(errs, t.broadcast(hi, from))
	errs = append(errs, t.Send(data, from))

	return errors.Join(errs...)
}

// handleRemotePeer records the seed reference this node joined through.
func (t *Transport) handleRemotePeer(msg Message) error {
	var remote peer.Peer
	if err := msg.ParsePayload(&remote); err != nil {
		return err
	}

	if err := validate.Check(remote); err != nil {
		return fmt.Errorf("remote_peer: %w", err)
	}

	t.peers.SetRemote(remote)

	return nil
}

// handlePeerList unions the peers known to the seed into this node's set.
func (t *Transport) handlePeerList(msg Message) error {
	var peers []peer.Peer
	if err := msg.ParsePayload(&peers); err != nil {
		return err
	}

	valid := make([]peer.Peer, 0, len(peers))
	for _, p := range peers {
		if err := validate.Check(p); err != nil {
			t.evHandler("gossip: dispatch: peer_list: ERROR: dropping peer: %s", err)
			continue
		}
		valid = append(valid, p)
	}

	added := t.peers.AddPeers(valid)
	t.evHandler("gossip: dispatch: peer_list: added[%d]", added)

	return nil
}

// handleSayHi records a newcomer announced by the seed and greets it.
func (t *Transport) handleSayHi(msg Message) error {
	var newcomer peer.Peer
	if err := msg.ParsePayload(&newcomer); err != nil {
		return err
	}

	if err := validate.Check(newcomer); err != nil {
		return fmt.Errorf("sayhi: %w", err)
	}

	t.peers.Add(newcomer)

	hi, _ := NewMessage(TypeHi, nil)
	return t.Send(hi, newcomer)
}

// handleBlockchainData adopts the chain and the mempool of the seed. The
// mempool is replaced even when the chain is not.
func (t *Transport) handleBlockchainData(msg Message) error {
	var data ChainData
	if err := msg.ParsePayload(&data); err != nil {
		return err
	}

	return errors.Join(
		t.state.ReplaceChain(data.Blockchain),
		t.state.ReplaceTransactions(data.Trans),
	)
}

// handleTransaction hands a transaction to the ledger, which relays it
// when it is accepted.
func (t *Transport) handleTransaction(msg Message) error {
	var tx database.Tx
	if err := msg.ParsePayload(&tx); err != nil {
		return err
	}

	return t.state.AddNewTransaction(tx)
}

// handleMine hands a mined block to the ledger, which relays it when it
// is accepted.
func (t *Transport) handleMine(msg Message) error {
	var block database.Block
	if err := msg.ParsePayload(&block); err != nil {
		return err
	}

	return t.state.AddNewBlock(block)
}
