package signature_test

import (
	"testing"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	pkHexKey    = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	otherHexKey = "9f332e3700d8fc2446eaf6d15034cf96e0c2745e40353deef032a5dbf1dfed93"
)

// =============================================================================

func Test_Signing(t *testing.T) {
	message := []byte("alice-bob-10-1633072800000")

	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}
	pub := signature.PublicKeyHex(pk.PublicKey)

	sig, err := signature.Sign(message, pk)
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	if !signature.Verify(message, sig, pub) {
		t.Fatalf("Should be able to verify the signature.")
	}

	if signature.Verify([]byte("alice-bob-11-1633072800000"), sig, pub) {
		t.Fatalf("Should not verify the signature over a different message.")
	}

	other, err := crypto.HexToECDSA(otherHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a second private key: %s", err)
	}

	if signature.Verify(message, sig, signature.PublicKeyHex(other.PublicKey)) {
		t.Fatalf("Should not verify the signature against another public key.")
	}
}

func Test_Malformed(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}
	pub := signature.PublicKeyHex(pk.PublicKey)

	tt := []struct {
		name string
		sig  string
		pub  string
	}{
		{name: "notHex", sig: "zz", pub: pub},
		{name: "short", sig: "00ff", pub: pub},
		{name: "badKey", sig: "00", pub: "system"},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			if signature.Verify([]byte("message"), tst.sig, tst.pub) {
				t.Fatalf("Test %s:\tShould reject a malformed signature or key.", tst.name)
			}
		}

		t.Run(tst.name, f)
	}
}

func Test_KeyHex(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	if got := signature.PrivateKeyHex(pk); got != pkHexKey {
		t.Logf("got: %s", got)
		t.Logf("exp: %s", pkHexKey)
		t.Fatalf("Should get back the same private key hex.")
	}

	pub := signature.PublicKeyHex(pk.PublicKey)
	if len(pub) != 130 || pub[:2] != "04" {
		t.Fatalf("Should get back an uncompressed public key: %s", pub)
	}

	key, err := signature.ToPublicKey(pub)
	if err != nil {
		t.Fatalf("Should be able to decode the public key: %s", err)
	}

	if !key.Equal(&pk.PublicKey) {
		t.Fatalf("Should decode back to the same public key.")
	}
}
