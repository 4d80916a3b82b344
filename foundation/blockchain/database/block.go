package database

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// =============================================================================

// Block represents a group of transactions batched together.
type Block struct {
	Index     uint64 `json:"index"`     // Position of the block in the chain.
	TimeStamp int64  `json:"timestamp"` // Milliseconds since epoch when the block was mined.
	Data      []Tx   `json:"data"`      // Transactions confirmed by this block.
	Hash      string `json:"hash"`      // Hash solving the POW puzzle for this block.
	PrevHash  string `json:"prevHash"`  // Hash of the previous block in the chain.
	Nonce     uint64 `json:"nonce"`     // Value identified to solve the hash solution.
}

// Genesis returns the block every chain starts with. It carries no hash and
// is never validated against the hash formula, only compared structurally.
func Genesis() Block {
	return Block{
		Index:     0,
		TimeStamp: 0,
		Data:      []Tx{},
		Hash:      "",
		PrevHash:  "0",
		Nonce:     0,
	}
}

// POWArgs represents the set of arguments required to run POW.
type POWArgs struct {
	Difficulty uint
	PrevBlock  Block
	Trans      []Tx
	EvHandler  func(v string, args ...any)
}

// POW constructs a new Block on top of the previous block and performs the
// work to find a nonce that solves the cryptographic POW puzzle.
func POW(ctx context.Context, args POWArgs) (Block, error) {
	trans := args.Trans
	if trans == nil {
		trans = []Tx{}
	}

	ev := args.EvHandler
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	nb := Block{
		Index:     args.PrevBlock.Index + 1,
		TimeStamp: time.Now().UnixMilli(),
		Data:      trans,
		PrevHash:  args.PrevBlock.Hash,
		Nonce:     0, // Will be identified by the POW algorithm.
	}

	if err := nb.performPOW(ctx, args.Difficulty, ev); err != nil {
		return Block{}, err
	}

	return nb, nil
}

// performPOW does the work of mining to find a valid hash for a specified
// block. Pointer semantics are being used since a nonce is being discovered.
func (b *Block) performPOW(ctx context.Context, difficulty uint, ev func(v string, args ...any)) error {
	ev("database: PerformPOW: MINING: started: blk[%d]", b.Index)
	defer ev("database: PerformPOW: MINING: completed: blk[%d]", b.Index)

	for _, tx := range b.Data {
		ev("database: PerformPOW: MINING: tx[%s]", tx)
	}

	// The data is the same for every attempt so it is encoded once.
	data := encodeData(b.Data)

	var attempts uint64
	for {
		attempts++
		if attempts%1_000_000 == 0 {
			ev("database: PerformPOW: MINING: attempts[%d]", attempts)
		}

		// Did we get asked to stop trying to solve the problem.
		if attempts%1024 == 0 && ctx.Err() != nil {
			ev("database: PerformPOW: MINING: CANCELLED")
			return ctx.Err()
		}

		hash := computeHash(b.Index, b.PrevHash, b.TimeStamp, data, b.Nonce)
		if !isHashSolved(difficulty, hash) {
			b.Nonce++
			continue
		}

		b.Hash = hash

		ev("database: PerformPOW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]", b.PrevHash, hash)
		ev("database: PerformPOW: MINING: attempts[%d]", attempts)

		return nil
	}
}

// ComputeHash recomputes the hash of the block from its contents.
func (b Block) ComputeHash() string {
	return computeHash(b.Index, b.PrevHash, b.TimeStamp, encodeData(b.Data), b.Nonce)
}

// ValidateBlock takes a block and validates it to be the next block after
// the previous block.
func (b Block) ValidateBlock(previousBlock Block, difficulty uint, evHandler func(v string, args ...any)) error {
	evHandler("database: ValidateBlock: validate: blk[%d]: check: block number is the next number", b.Index)

	nextNumber := previousBlock.Index + 1
	if b.Index != nextNumber {
		return fmt.Errorf("this block is not the next number, got %d, exp %d", b.Index, nextNumber)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block's timestamp is greater than parent block's timestamp", b.Index)

	if b.TimeStamp <= previousBlock.TimeStamp {
		return fmt.Errorf("block timestamp is not after parent block, parent %d, block %d", previousBlock.TimeStamp, b.TimeStamp)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: parent hash does match parent block", b.Index)

	if b.PrevHash != previousBlock.Hash {
		return fmt.Errorf("parent block hash doesn't match our known parent, got %s, exp %s", b.PrevHash, previousBlock.Hash)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block hash has been solved", b.Index)

	if !isHashSolved(difficulty, b.Hash) {
		return fmt.Errorf("%s invalid block hash", b.Hash)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block hash matches the block contents", b.Index)

	if hash := b.ComputeHash(); b.Hash != hash {
		return fmt.Errorf("block hash doesn't match contents, got %s, exp %s", b.Hash, hash)
	}

	return nil
}

// Equals performs a structural comparison of two blocks. A nil and an empty
// set of transactions are considered equal.
func (b Block) Equals(other Block) bool {
	if b.Index != other.Index || b.TimeStamp != other.TimeStamp || b.Hash != other.Hash ||
		b.PrevHash != other.PrevHash || b.Nonce != other.Nonce || len(b.Data) != len(other.Data) {
		return false
	}

	for i := range b.Data {
		if !b.Data[i].Equals(other.Data[i]) {
			return false
		}
	}

	return true
}

// =============================================================================

// isHashSolved checks the hash to make sure it complies with
// the POW rules. We need to match a difficulty number of 0's.
func isHashSolved(difficulty uint, hash string) bool {
	return strings.HasPrefix(hash, strings.Repeat("0", int(difficulty)))
}

// computeHash concatenates the block fields in their decimal and JSON forms
// and returns the lowercase hex SHA-256 of the result.
func computeHash(index uint64, prevHash string, timeStamp int64, data []byte, nonce uint64) string {
	input := fmt.Appendf(nil, "%d%s%d%s%d", index, prevHash, timeStamp, data, nonce)
	sum := sha256.Sum256(input)
	return hex.EncodeToString(sum[:])
}

// encodeData produces the canonical JSON for the transactions of a block.
// An empty set is always written as [].
func encodeData(trans []Tx) []byte {
	if trans == nil {
		trans = []Tx{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(trans); err != nil {
		return []byte("[]")
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}
