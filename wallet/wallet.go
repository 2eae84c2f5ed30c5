// Package wallet holds the local key pair used to sign transfers and mine
// rewards. The public key doubles as the ledger address.
package wallet

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"github.com/luca-patrignani/dedecoin/common"
	"github.com/luca-patrignani/dedecoin/ledger"
	"golang.org/x/crypto/ripemd160"
)

// fingerprintVersion is the version byte prefixed to every fingerprint.
const fingerprintVersion byte = 0x00

var ErrInvalidFingerprint = errors.New("invalid fingerprint")

// Wallet is a key pair bound to the provider that created it.
type Wallet struct {
	privateKey string
	publicKey  string
	provider   common.SignatureProvider
}

// New generates a fresh key pair with p.
func New(p common.SignatureProvider) (*Wallet, error) {
	priv, pub, err := p.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}
	return &Wallet{privateKey: priv, publicKey: pub, provider: p}, nil
}

// FromPrivateKey restores a wallet from a hex private key.
func FromPrivateKey(p common.SignatureProvider, privateKey string) (*Wallet, error) {
	pub, err := p.PublicKeyOf(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load private key: %w", err)
	}
	return &Wallet{privateKey: privateKey, publicKey: pub, provider: p}, nil
}

func (w *Wallet) PrivateKey() string {
	return w.privateKey
}

func (w *Wallet) PublicKey() string {
	return w.publicKey
}

// Address returns the ledger address of the wallet, its public key.
func (w *Wallet) Address() string {
	return w.publicKey
}

// Owns reports whether address belongs to this wallet.
func (w *Wallet) Owns(address string) bool {
	return address != "" && address == w.publicKey
}

// Transfer builds a transfer from this wallet and signs it.
func (w *Wallet) Transfer(to string, amount int64) (ledger.Transaction, error) {
	tx := ledger.NewTransfer(w.publicKey, to, amount)
	if err := tx.Sign(w.provider, w.privateKey); err != nil {
		return ledger.Transaction{}, err
	}
	return tx, nil
}

// Fingerprint returns a short base58check form of the wallet address for
// display.
func (w *Wallet) Fingerprint() string {
	return Fingerprint(w.publicKey)
}

// Fingerprint derives the display form of a hex address: version byte,
// RIPEMD-160 of the SHA-256 of the key bytes and a 4 byte checksum, base58
// encoded. Addresses that are not hex are hashed as text.
func Fingerprint(address string) string {
	key, err := hex.DecodeString(address)
	if err != nil {
		key = []byte(address)
	}
	digest := sha256.Sum256(key)

	h := ripemd160.New()
	h.Write(digest[:])
	// CheckEncode appends the double SHA-256 checksum.
	return base58.CheckEncode(h.Sum(nil), fingerprintVersion)
}

// ParseFingerprint checks the checksum and version of a fingerprint and
// returns its 20 byte payload.
func ParseFingerprint(fingerprint string) ([]byte, error) {
	payload, version, err := base58.CheckDecode(fingerprint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFingerprint, err)
	}
	if version != fingerprintVersion {
		return nil, fmt.Errorf("%w: unknown version %d", ErrInvalidFingerprint, version)
	}
	if len(payload) != ripemd160.Size {
		return nil, fmt.Errorf("%w: payload is %d bytes", ErrInvalidFingerprint, len(payload))
	}
	return payload, nil
}

// MarshalJSON exposes the public side of the wallet only.
func (w *Wallet) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		PublicKey   string `json:"publicKey"`
		Fingerprint string `json:"fingerprint"`
	}{
		PublicKey:   w.publicKey,
		Fingerprint: w.Fingerprint(),
	})
}
