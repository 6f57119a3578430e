// Package solana provides the minimal chain primitives the sniper needs:
// keypair handling, transaction building/signing, amount math, and a
// JSON-RPC client.
package solana

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Keypair is an ed25519 signing key with its base58 public address.
type Keypair struct {
	priv ed25519.PrivateKey
}

// LoadKeypair parses a secret key in either of the two common formats:
// a base58-encoded 64-byte secret, or a JSON array of 64 bytes.
func LoadKeypair(secret string) (*Keypair, error) {
	var raw []byte
	if strings.HasPrefix(strings.TrimSpace(secret), "[") {
		if err := json.Unmarshal([]byte(secret), &raw); err != nil {
			return nil, fmt.Errorf("parse keypair byte array: %w", err)
		}
	} else {
		var err error
		raw, err = base58.Decode(secret)
		if err != nil {
			return nil, fmt.Errorf("decode base58 keypair: %w", err)
		}
	}

	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("keypair must be %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}

	return &Keypair{priv: ed25519.PrivateKey(raw)}, nil
}

// PublicKey returns the base58-encoded public key.
func (k *Keypair) PublicKey() string {
	pub := k.priv.Public().(ed25519.PublicKey)
	return base58.Encode(pub)
}

// Sign signs a message with the keypair.
func (k *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.priv, message)
}

// ValidateAddress checks that addr is a well-formed Solana address:
// base58, 32 bytes, and a valid curve point.
func ValidateAddress(addr string) error {
	raw, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("decode address %q: %w", addr, err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("address %q: expected 32 bytes, got %d", addr, len(raw))
	}
	if !isOnCurve(raw) {
		return fmt.Errorf("address %q is not a valid curve point", addr)
	}
	return nil
}

// isOnCurve reports whether the 32-byte value decodes as an ed25519 point.
// Program-derived addresses are intentionally off-curve, so callers that
// accept PDAs must not use ValidateAddress.
func isOnCurve(point []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
