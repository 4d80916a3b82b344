package wallet_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/database"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/wallet"
)

func Test_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.json")

	w1, err := wallet.Load(path)
	if err != nil {
		t.Fatalf("Should be able to create a wallet: %s", err)
	}

	w2, err := wallet.Load(path)
	if err != nil {
		t.Fatalf("Should be able to reload the wallet: %s", err)
	}

	if w1.PublicKey() != w2.PublicKey() {
		t.Fatalf("Should reuse the persisted key pair.")
	}
}

func Test_LoadInconsistent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.json")

	w1, err := wallet.Load(path)
	if err != nil {
		t.Fatalf("Should be able to create a wallet: %s", err)
	}

	data, _ := json.Marshal(wallet.File{Private: "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959", Public: w1.PublicKey()})
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("Should be able to corrupt the wallet: %s", err)
	}

	w2, err := wallet.Load(path)
	if err != nil {
		t.Fatalf("Should be able to regenerate the wallet: %s", err)
	}

	if w2.PublicKey() == w1.PublicKey() {
		t.Fatalf("Should regenerate a wallet whose keys don't match.")
	}
}

func Test_SignVerify(t *testing.T) {
	w, err := wallet.Generate()
	if err != nil {
		t.Fatalf("Should be able to generate a wallet: %s", err)
	}

	tx := database.NewTx(w.PublicKey(), "bob", 10)

	sig, err := w.Sign(tx)
	if err != nil {
		t.Fatalf("Should be able to sign: %s", err)
	}

	if !w.Verify(tx, sig, w.PublicKey()) {
		t.Fatalf("Should be able to verify own signature.")
	}

	tx.Amount = 11
	if w.Verify(tx, sig, w.PublicKey()) {
		t.Fatalf("Should not verify a modified transaction.")
	}
}
