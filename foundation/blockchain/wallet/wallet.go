// Package wallet provides the node's identity: a secp256k1 key pair that is
// persisted to a wallet file and used to sign transactions.
package wallet

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/database"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

// File represents what is written to the wallet file.
type File struct {
	Private string `json:"private"`
	Public  string `json:"public"`
}

// Wallet holds the key pair for this node.
type Wallet struct {
	privateKey *ecdsa.PrivateKey
	public     string
}

// New constructs a wallet from an existing private key.
func New(privateKey *ecdsa.PrivateKey) *Wallet {
	return &Wallet{
		privateKey: privateKey,
		public:     signature.PublicKeyHex(privateKey.PublicKey),
	}
}

// Generate constructs a wallet with a fresh key pair.
func Generate() (*Wallet, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}

	return New(privateKey), nil
}

// Load reads the wallet file at the specified path. If the file does not
// exist or its public key can't be derived from its private key, a new key
// pair is generated and written in its place.
func Load(path string) (*Wallet, error) {
	if w, err := read(path); err == nil {
		return w, nil
	}

	w, err := Generate()
	if err != nil {
		return nil, err
	}

	if err := w.Save(path); err != nil {
		return nil, err
	}

	return w, nil
}

// Save writes the key pair to the specified path.
func (w *Wallet) Save(path string) error {
	data, err := json.Marshal(File{
		Private: signature.PrivateKeyHex(w.privateKey),
		Public:  w.public,
	})
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing wallet: %w", err)
	}

	return nil
}

// PublicKey returns the hex encoded public key, which is the account
// address of this node.
func (w *Wallet) PublicKey() string {
	return w.public
}

// Sign produces the signature of this wallet over the transaction.
func (w *Wallet) Sign(tx database.Tx) (string, error) {
	return signature.Sign(tx.SigningMessage(), w.privateKey)
}

// Verify checks the signature was produced over the transaction by the
// owner of the public key.
func (w *Wallet) Verify(tx database.Tx, sig string, publicKey string) bool {
	return signature.Verify(tx.SigningMessage(), sig, publicKey)
}

// =============================================================================

// read loads and checks an existing wallet file.
func read(path string) (*Wallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	privateKey, err := crypto.HexToECDSA(file.Private)
	if err != nil {
		return nil, err
	}

	w := New(privateKey)
	if w.public != file.Public {
		return nil, fmt.Errorf("public key does not match private key")
	}

	return w, nil
}
