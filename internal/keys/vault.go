package keys

import (
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const vaultFormatVersion = 1

var (
	// ErrWrongPassphrase is returned when a sealed key cannot be opened.
	ErrWrongPassphrase = errors.New("wrong passphrase or corrupted key")

	// ErrEmptyPassphrase is returned by NewVault without a passphrase.
	ErrEmptyPassphrase = errors.New("vault passphrase is required")
)

// sealed is the stored JSON structure holding the ciphertext and KDF parameters.
type sealed struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Cipher []byte `json:"cipher"`
}

// Vault encrypts private keys at rest with a passphrase-derived key.
type Vault struct {
	passphrase string
	n, r, p    int
}

// VaultOption configures Vault.
type VaultOption func(*Vault)

// WithScryptParams overrides the scrypt cost parameters.
func WithScryptParams(n, r, p int) VaultOption {
	return func(v *Vault) {
		v.n, v.r, v.p = n, r, p
	}
}

// NewVault creates a vault for the given passphrase.
func NewVault(passphrase string, opts ...VaultOption) (*Vault, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	v := &Vault{passphrase: passphrase, n: 1 << 15, r: 8, p: 1}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Seal encrypts a private key.
func (v *Vault) Seal(key *ecdsa.PrivateKey) ([]byte, error) {
	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, fmt.Errorf("read salt: %w", err)
	}
	aead, err := v.aead(salt[:], v.n, v.r, v.p)
	if err != nil {
		return nil, err
	}

	// zero nonce: every blob has its own salt and therefore its own key
	var nonce [chacha20poly1305.NonceSize]byte
	ct := aead.Seal(nil, nonce[:], crypto.FromECDSA(key), salt[:])

	return json.Marshal(sealed{
		V:      vaultFormatVersion,
		Salt:   salt[:],
		N:      v.n,
		R:      v.r,
		P:      v.p,
		Cipher: ct,
	})
}

// Open decrypts a key sealed by Seal.
func (v *Vault) Open(blob []byte) (*ecdsa.PrivateKey, error) {
	var s sealed
	if err := json.Unmarshal(blob, &s); err != nil {
		return nil, fmt.Errorf("decode sealed key: %w", err)
	}
	if s.V > vaultFormatVersion {
		return nil, fmt.Errorf("unsupported sealed key version %d", s.V)
	}

	aead, err := v.aead(s.Salt, s.N, s.R, s.P)
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte
	raw, err := aead.Open(nil, nonce[:], s.Cipher, s.Salt)
	if err != nil {
		return nil, ErrWrongPassphrase
	}

	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	return key, nil
}

func (v *Vault) aead(salt []byte, n, r, p int) (cipher.AEAD, error) {
	k, err := scrypt.Key([]byte(v.passphrase), salt, n, r, p, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("derive vault key: %w", err)
	}
	aead, err := chacha20poly1305.New(k)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	return aead, nil
}
