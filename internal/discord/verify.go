package discord

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
)

// Request signature headers.
const (
	HeaderSignature = "X-Signature-Ed25519"
	HeaderTimestamp = "X-Signature-Timestamp"
)

// ErrInvalidPublicKey is returned for keys that are not a valid curve point.
var ErrInvalidPublicKey = errors.New("invalid application public key")

// Verifier checks interaction request signatures.
type Verifier struct {
	key ed25519.PublicKey
}

// NewVerifier parses the hex application public key.
func NewVerifier(publicKeyHex string) (*Verifier, error) {
	key, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidPublicKey, len(key))
	}
	if _, err := new(edwards25519.Point).SetBytes(key); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return &Verifier{key: ed25519.PublicKey(key)}, nil
}

// Verify reports whether signatureHex signs timestamp||body.
func (v *Verifier) Verify(signatureHex, timestamp string, body []byte) bool {
	if signatureHex == "" || timestamp == "" {
		return false
	}
	sig, err := hex.DecodeString(signatureHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	msg := make([]byte, 0, len(timestamp)+len(body))
	msg = append(msg, timestamp...)
	msg = append(msg, body...)
	return ed25519.Verify(v.key, msg, sig)
}
