package keys

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer signs network messages with a custodial key.
type Signer struct {
	key     *ecdsa.PrivateKey
	address string
}

// NewSigner wraps a private key.
func NewSigner(key *ecdsa.PrivateKey) *Signer {
	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey).Hex(),
	}
}

// Address returns the checksummed hex address.
func (s *Signer) Address() string {
	return s.address
}

// PubKeyHash returns the L2 signing key hash registered by an unlock.
func (s *Signer) PubKeyHash() string {
	return PubKeyHash(&s.key.PublicKey)
}

// SignMessage produces a personal_sign signature (65 bytes, V in {27,28}).
func (s *Signer) SignMessage(msg []byte) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(msg), s.key)
	if err != nil {
		return nil, fmt.Errorf("sign message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// PubKeyHash computes "sync:" + 20-byte hash of the uncompressed public key.
func PubKeyHash(pub *ecdsa.PublicKey) string {
	h := crypto.Keccak256(crypto.FromECDSAPub(pub)[1:])
	return "sync:" + hex.EncodeToString(h[12:])
}

// RecoverAddress returns the address that produced a personal_sign signature.
func RecoverAddress(msg, sig []byte) (string, error) {
	if len(sig) != crypto.SignatureLength {
		return "", fmt.Errorf("signature length %d, want %d", len(sig), crypto.SignatureLength)
	}
	normalized := make([]byte, len(sig))
	copy(normalized, sig)
	if normalized[crypto.RecoveryIDOffset] >= 27 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash(msg), normalized)
	if err != nil {
		return "", fmt.Errorf("recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub).Hex(), nil
}
