// Package keys manages custodial signing keys: derivation, signing and
// encryption at rest.
package keys

import (
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"
)

// ErrInvalidMnemonic is returned for a master mnemonic that fails the checksum.
var ErrInvalidMnemonic = errors.New("invalid master mnemonic")

// Deriver produces the signing key for a newly seen user.
type Deriver interface {
	Derive(userID string) (*ecdsa.PrivateKey, error)
}

// RandomDeriver generates an independent random key per user.
type RandomDeriver struct{}

// Derive returns a fresh random key.
func (RandomDeriver) Derive(_ string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}

// SeedDeriver derives user keys deterministically from a BIP-39 master
// mnemonic, so a lost key store can be rebuilt from the mnemonic alone.
type SeedDeriver struct {
	seed []byte
}

// NewSeedDeriver validates the mnemonic and expands it into a seed.
func NewSeedDeriver(mnemonic, passphrase string) (*SeedDeriver, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	return &SeedDeriver{seed: seed}, nil
}

// Derive computes HMAC-SHA512(seed, "tipbot/user/<id>/<counter>") and uses the
// left half as the secret scalar, bumping the counter on the (negligible)
// chance the scalar is out of range.
func (d *SeedDeriver) Derive(userID string) (*ecdsa.PrivateKey, error) {
	var counter [4]byte
	for i := uint32(0); i < 16; i++ {
		binary.BigEndian.PutUint32(counter[:], i)

		mac := hmac.New(sha512.New, d.seed)
		mac.Write([]byte("tipbot/user/" + userID + "/"))
		mac.Write(counter[:])
		sum := mac.Sum(nil)

		key, err := crypto.ToECDSA(sum[:32])
		if err == nil {
			return key, nil
		}
	}
	return nil, fmt.Errorf("derive key for user %s: no valid scalar", userID)
}

// NewMnemonic returns a fresh 24-word master mnemonic.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	return bip39.NewMnemonic(entropy)
}

var (
	_ Deriver = RandomDeriver{}
	_ Deriver = (*SeedDeriver)(nil)
)
