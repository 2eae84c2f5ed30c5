// Package common holds the cryptographic primitives shared by the ledger and
// the wallet: a deterministic hasher and an elliptic-curve signature provider.
//
// # Hasher
//
// SHA256 produces the 64 character lowercase hexadecimal digest used for
// transaction and block hashes. Two independent implementations hashing the
// same bytes always agree, so chain hashes are portable.
//
// # Signature Provider
//
// EdDSA implements Ed25519 (RFC 8032) over the edwards25519 curve using the
// kyber library. Signatures are deterministic and interoperate with any other
// RFC 8032 implementation.
//
// Keys and signatures are exchanged as lowercase hex strings:
//   - public key: 32 byte compressed curve point (64 hex chars)
//   - private key: 64 byte kyber EdDSA encoding, seed followed by public key
//   - signature: 64 bytes, R followed by S
package common
