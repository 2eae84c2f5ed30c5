// Package ledger implements an append-only, proof-of-work blockchain of
// signed value transfers held in memory by a single process.
//
// # Core Components
//
// Transaction: An intent to move an amount from one public key to another.
// Transfers are signed by the sender; rewards have no sender and are minted
// by the ledger itself.
//
// Block: An ordered batch of transactions linked to its predecessor by hash
// and sealed by a nonce whose hash starts with the required number of '0'
// characters.
//
// Blockchain: The chain of blocks, the FIFO pool of pending transactions and
// the operations that mine, validate and query them.
//
// # Security Properties
//
// The blockchain provides:
//   - Tamper detection: every block hash is recomputed from its content
//   - Linkage: each block must reference the hash of its predecessor
//   - Authenticity: every transfer carries a verifiable sender signature
//   - Proof of work: mined hashes satisfy the configured difficulty
//
// # Balance Policy
//
// Balances are folded over committed blocks only. Transactions that are still
// pending are not debited when a new transaction is checked, so several
// pending transfers may together exceed the sender's committed balance.
package ledger
