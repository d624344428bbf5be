package gateway

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// ECDSASigner is the default Signer: a secp256k1 key held in-process.
// The wire format this engine targets is not EVM, but the signing
// primitive and opaque address identifier are the same concern, so the
// same library backs it here. Signer stays swappable for a chain with a
// different curve.
type ECDSASigner struct {
	privateKey *ecdsa.PrivateKey
	address    string
}

// NewECDSASigner loads a secp256k1 private key from its hex
// representation (with or without a leading "0x").
func NewECDSASigner(privateKeyHex string) (*ECDSASigner, error) {
	privateKeyHex = strings.TrimPrefix(privateKeyHex, "0x")

	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("gateway: invalid private key: %w", err)
	}

	publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("gateway: failed to derive public key")
	}

	return &ECDSASigner{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(*publicKeyECDSA).Hex(),
	}, nil
}

// Address implements Signer.
func (s *ECDSASigner) Address() string {
	return s.address
}

// Sign implements Signer. nonce is folded into the hashed payload so an
// identical call body at two different nonces never produces the same
// signature.
func (s *ECDSASigner) Sign(payload []byte, nonce uint64) ([]byte, error) {
	digest := crypto.Keccak256(payload, nonceBytes(nonce))
	sig, err := crypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("gateway: sign: %w", err)
	}
	return sig, nil
}

func nonceBytes(nonce uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(nonce >> (8 * (7 - i)))
	}
	return b
}
