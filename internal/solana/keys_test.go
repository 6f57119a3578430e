package solana

import (
	"crypto/ed25519"
	"encoding/json"
	"testing"

	"github.com/mr-tron/base58"
)

func testKeypair(t *testing.T) (*Keypair, ed25519.PublicKey) {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	kp, err := LoadKeypair(base58.Encode(priv))
	if err != nil {
		t.Fatalf("LoadKeypair failed: %v", err)
	}
	return kp, pub
}

func TestLoadKeypair_Base58(t *testing.T) {
	kp, pub := testKeypair(t)

	if kp.PublicKey() != base58.Encode(pub) {
		t.Errorf("PublicKey mismatch: got %s", kp.PublicKey())
	}
}

func TestLoadKeypair_JSONArray(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	// json.Marshal encodes []byte as base64; build the array form explicitly.
	arr := make([]int, len(priv))
	for i, b := range priv {
		arr[i] = int(b)
	}
	raw, err := json.Marshal(arr)
	if err != nil {
		t.Fatalf("marshal key array: %v", err)
	}

	kp, err := LoadKeypair(string(raw))
	if err != nil {
		t.Fatalf("LoadKeypair failed: %v", err)
	}
	if kp.PublicKey() != base58.Encode(pub) {
		t.Errorf("PublicKey mismatch: got %s", kp.PublicKey())
	}
}

func TestLoadKeypair_WrongLength(t *testing.T) {
	if _, err := LoadKeypair(base58.Encode([]byte("short"))); err == nil {
		t.Error("Expected error for short key")
	}
}

func TestSign(t *testing.T) {
	kp, pub := testKeypair(t)

	msg := []byte("hello")
	sig := kp.Sign(msg)

	if !ed25519.Verify(pub, msg, sig) {
		t.Error("signature does not verify")
	}
}

func TestValidateAddress(t *testing.T) {
	kp, _ := testKeypair(t)

	if err := ValidateAddress(kp.PublicKey()); err != nil {
		t.Errorf("valid address rejected: %v", err)
	}

	if err := ValidateAddress("not-base58-0OIl"); err == nil {
		t.Error("Expected error for invalid base58")
	}

	// 16 bytes, wrong length for an address.
	short := base58.Encode(make([]byte, 16))
	if err := ValidateAddress(short); err == nil {
		t.Error("Expected error for wrong-length address")
	}
}
