package gossip

import (
	"encoding/json"
	"fmt"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/database"
	"github.com/ardanlabs/gossipchain/foundation/validate"
)

// Set of message types nodes exchange.
const (
	TypeNewPeer        = "new_peer"
	TypeRemotePeer     = "remote_peer"
	TypePeerList       = "peer_list"
	TypeSayHi          = "sayhi"
	TypeHi             = "hi"
	TypeBlockchainData = "blockchain_data"
	TypeTransaction    = "transaction"
	TypeMine           = "mine"
)

// Message is the envelope of every datagram. Data is decoded once the
// type is known.
type Message struct {
	Type string          `json:"type" validate:"required"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ChainData is the payload of a blockchain_data message.
type ChainData struct {
	Blockchain []database.Block `json:"blockchain"`
	Trans      []database.Tx    `json:"trans"`
}

// NewMessage constructs a message of the specified type carrying the data.
// A nil data value produces a message without data.
func NewMessage(typ string, data any) (Message, error) {
	msg := Message{
		Type: typ,
	}

	if data == nil {
		return msg, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, fmt.Errorf("encoding %s: %w", typ, err)
	}
	msg.Data = raw

	return msg, nil
}

// ParsePayload unmarshals the message data into the provided value.
func (m Message) ParsePayload(v any) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("%s: message carries no data", m.Type)
	}

	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("%s: decoding data: %w", m.Type, err)
	}

	return nil
}

// =============================================================================

// decode turns a datagram into a message.
func decode(datagram []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(datagram, &msg); err != nil {
		return Message{}, fmt.Errorf("decoding message: %w", err)
	}

	if err := validate.Check(msg); err != nil {
		return Message{}, fmt.Errorf("validating message: %w", err)
	}

	return msg, nil
}
