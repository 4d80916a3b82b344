package public

import "github.com/ardanlabs/gossipchain/foundation/blockchain/peer"

type balance struct {
	Address     string  `json:"address"`
	Balance     float64 `json:"balance"`
	LatestBlock string  `json:"latest_block"`
}

type directory struct {
	Self   peer.Peer   `json:"self"`
	Seed   peer.Peer   `json:"seed"`
	Remote peer.Peer   `json:"remote"`
	Peers  []peer.Peer `json:"peers"`
}
