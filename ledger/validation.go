package ledger

import (
	"errors"
	"fmt"

	"github.com/luca-patrignani/dedecoin/common"
)

// ValidateChain checks the integrity of blocks as a complete chain. It is
// used on the ledger's own chain and on chains decoded from elsewhere.
//
// Verification checks:
//   - The chain is not empty
//   - The genesis block has previous hash "0", no transactions and a correct hash
//   - Each block only contains valid transactions
//   - Each block's stored hash equals its recomputed hash
//   - Each block's previous hash matches the previous block's hash
//
// Returns nil if the chain is valid, or an error describing the first
// integrity violation found.
func ValidateChain(blocks []Block, v common.SignatureVerifier) error {
	if len(blocks) == 0 {
		return errors.New("empty blockchain")
	}

	genesis := blocks[0]
	if genesis.PreviousHash != GenesisPreviousHash || len(genesis.Transactions) != 0 {
		return errors.New("invalid genesis block")
	}
	if expected := ComputeHash(genesis); genesis.Hash != expected {
		return fmt.Errorf("invalid genesis hash: expected %s, got %s", expected, genesis.Hash)
	}

	for i := 1; i < len(blocks); i++ {
		if err := validateBlock(blocks[i], blocks[i-1], v); err != nil {
			return fmt.Errorf("block %d invalid: %w", i, err)
		}
	}
	return nil
}

// validateBlock verifies a block relative to its predecessor: transaction
// signatures, content hash and previous hash linkage.
func validateBlock(current, previous Block, v common.SignatureVerifier) error {
	if !current.HasValidTransactions(v) {
		return errors.New("block contains invalid transactions")
	}

	expected := ComputeHash(current)
	if current.Hash != expected {
		return fmt.Errorf("invalid hash: expected %s, got %s", expected, current.Hash)
	}

	// Catches spliced or reordered blocks whose own hashes are consistent.
	if current.PreviousHash != previous.Hash {
		return fmt.Errorf("invalid prev hash: expected %s, got %s", previous.Hash, current.PreviousHash)
	}
	return nil
}
