package common

import (
	"encoding/hex"
	"fmt"

	"go.dedis.ch/kyber/v4"
	"go.dedis.ch/kyber/v4/sign/eddsa"
	"go.dedis.ch/kyber/v4/suites"
)

const (
	publicKeySize  = 32
	privateKeySize = 64
	signatureSize  = 64
)

var suite suites.Suite = suites.MustFind("Ed25519")

// SignatureVerifier checks a signature produced by a SignatureProvider.
type SignatureVerifier interface {
	// Verify reports whether signature is a valid signature of digest by the
	// owner of publicKey. An error is returned only for malformed inputs.
	Verify(publicKey string, digest []byte, signature string) (bool, error)
}

// SignatureProvider signs digests on behalf of key owners and verifies the
// resulting signatures.
type SignatureProvider interface {
	SignatureVerifier

	// Sign produces a deterministic signature of digest with privateKey.
	Sign(privateKey string, digest []byte) (string, error)

	// PublicKeyOf derives the public key that matches privateKey.
	PublicKeyOf(privateKey string) (string, error)

	// GenerateKey creates a fresh key pair.
	GenerateKey() (privateKey string, publicKey string, err error)
}

// EdDSA is the Ed25519 SignatureProvider.
type EdDSA struct{}

func (EdDSA) GenerateKey() (string, string, error) {
	e := eddsa.NewEdDSA(suite.RandomStream())
	priv, err := e.MarshalBinary()
	if err != nil {
		return "", "", fmt.Errorf("failed to encode private key: %w", err)
	}
	pub, err := e.Public.MarshalBinary()
	if err != nil {
		return "", "", fmt.Errorf("failed to encode public key: %w", err)
	}
	return hex.EncodeToString(priv), hex.EncodeToString(pub), nil
}

func (EdDSA) Sign(privateKey string, digest []byte) (string, error) {
	e, err := decodePrivateKey(privateKey)
	if err != nil {
		return "", err
	}
	sig, err := e.Sign(digest)
	if err != nil {
		return "", fmt.Errorf("failed to sign digest: %w", err)
	}
	return hex.EncodeToString(sig), nil
}

func (EdDSA) PublicKeyOf(privateKey string) (string, error) {
	e, err := decodePrivateKey(privateKey)
	if err != nil {
		return "", err
	}
	pub, err := e.Public.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to encode public key: %w", err)
	}
	return hex.EncodeToString(pub), nil
}

func (EdDSA) Verify(publicKey string, digest []byte, signature string) (bool, error) {
	pub, err := decodePublicKey(publicKey)
	if err != nil {
		return false, err
	}
	sig, err := hex.DecodeString(signature)
	if err != nil {
		return false, fmt.Errorf("signature is not hex: %w", err)
	}
	if len(sig) != signatureSize {
		return false, fmt.Errorf("invalid signature length: expected %d bytes, got %d", signatureSize, len(sig))
	}
	return eddsa.Verify(pub, digest, sig) == nil, nil
}

func decodePrivateKey(privateKey string) (*eddsa.EdDSA, error) {
	b, err := hex.DecodeString(privateKey)
	if err != nil {
		return nil, fmt.Errorf("private key is not hex: %w", err)
	}
	if len(b) != privateKeySize {
		return nil, fmt.Errorf("invalid private key length: expected %d bytes, got %d", privateKeySize, len(b))
	}
	e := &eddsa.EdDSA{}
	if err := e.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	return e, nil
}

func decodePublicKey(publicKey string) (kyber.Point, error) {
	b, err := hex.DecodeString(publicKey)
	if err != nil {
		return nil, fmt.Errorf("public key is not hex: %w", err)
	}
	if len(b) != publicKeySize {
		return nil, fmt.Errorf("invalid public key length: expected %d bytes, got %d", publicKeySize, len(b))
	}
	p := suite.Point()
	if err := p.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("failed to decode public key: %w", err)
	}
	return p, nil
}
