// Package signature provides helper functions for handling the blockchain
// signature needs.
package signature

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// =============================================================================

// Sign uses the specified private key to sign the message. The signature
// is returned hex encoded in the [R|S|V] format.
func Sign(message []byte, privateKey *ecdsa.PrivateKey) (string, error) {

	// Prepare the data for signing.
	data := stamp(message)

	// Sign the hash with the private key to produce a signature.
	sig, err := crypto.Sign(data, privateKey)
	if err != nil {
		return "", err
	}

	// Check the public key extracted from the data and signature.
	publicKey, err := crypto.SigToPub(data, sig)
	if err != nil {
		return "", err
	}

	rs := sig[:crypto.RecoveryIDOffset]
	if !crypto.VerifySignature(crypto.FromECDSAPub(publicKey), data, rs) {
		return "", errors.New("invalid signature")
	}

	return hex.EncodeToString(sig), nil
}

// Verify checks the hex encoded signature was produced over the message by
// the owner of the hex encoded public key.
func Verify(message []byte, sigHex string, publicKeyHex string) bool {
	sig, err := hex.DecodeString(sigHex)
	if err != nil || len(sig) < crypto.RecoveryIDOffset {
		return false
	}

	publicKey, err := ToPublicKey(publicKeyHex)
	if err != nil {
		return false
	}

	return crypto.VerifySignature(crypto.FromECDSAPub(publicKey), stamp(message), sig[:crypto.RecoveryIDOffset])
}

// =============================================================================

// PublicKeyHex returns the uncompressed public key as a hex string. This
// string is the account address used on the chain.
func PublicKeyHex(publicKey ecdsa.PublicKey) string {
	return hex.EncodeToString(crypto.FromECDSAPub(&publicKey))
}

// PrivateKeyHex returns the private key as a hex string.
func PrivateKeyHex(privateKey *ecdsa.PrivateKey) string {
	return hex.EncodeToString(crypto.FromECDSA(privateKey))
}

// ToPublicKey decodes a hex encoded uncompressed public key.
func ToPublicKey(publicKeyHex string) (*ecdsa.PublicKey, error) {
	b, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("decoding public key: %w", err)
	}

	return crypto.UnmarshalPubkey(b)
}

// =============================================================================

// stamp returns a hash of 32 bytes that represents this message with
// the gossipchain stamp embedded into the final hash.
func stamp(message []byte) []byte {

	// Hash the message into a 32 byte array. This will provide
	// a data length consistency with all messages.
	msgHash := crypto.Keccak256(message)

	// This stamp is used so signatures we produce are always unique
	// to this blockchain.
	stamp := []byte("\x19Gossipchain Signed Message:\n32")

	return crypto.Keccak256(stamp, msgHash)
}
