package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/luca-patrignani/dedecoin/common"
)

// Block is a batch of transactions linked to its predecessor.
// Hash is a cached ComputeHash result, refreshed only by NewBlock and by
// mining.
type Block struct {
	Timestamp    int64         `json:"timestamp"` // Unix milliseconds
	Transactions []Transaction `json:"transactions"`
	PreviousHash string        `json:"previousHash"`
	Nonce        uint64        `json:"nonce"`
	Hash         string        `json:"hash"`
}

// NewBlock creates an unmined block holding a copy of txs.
func NewBlock(timestamp int64, txs []Transaction, previousHash string) Block {
	b := Block{
		Timestamp:    timestamp,
		Transactions: cloneTransactions(txs),
		PreviousHash: previousHash,
		Nonce:        0,
	}
	b.Hash = ComputeHash(b)
	return b
}

// ComputeHash returns the digest of the previous hash, timestamp,
// transactions and nonce of b. The stored Hash is not an input.
func ComputeHash(b Block) string {
	txs := b.Transactions
	if txs == nil {
		txs = []Transaction{}
	}
	// Transaction only holds strings and integers, Marshal cannot fail.
	txsBytes, _ := json.Marshal(txs)

	data := fmt.Sprintf("%s|%d|%s|%d",
		b.PreviousHash,
		b.Timestamp,
		string(txsBytes),
		b.Nonce,
	)
	return common.SHA256.Hash([]byte(data))
}

func (b Block) CalculateHash() string {
	return ComputeHash(b)
}

// HasValidTransactions reports whether every transaction in the block is
// valid. Verification errors count as invalid.
func (b Block) HasValidTransactions(v common.SignatureVerifier) bool {
	for _, tx := range b.Transactions {
		ok, err := tx.IsValid(v)
		if err != nil || !ok {
			return false
		}
	}
	return true
}

func (b Block) clone() Block {
	b.Transactions = cloneTransactions(b.Transactions)
	return b
}

func cloneTransactions(txs []Transaction) []Transaction {
	out := make([]Transaction, len(txs))
	copy(out, txs)
	return out
}

func cloneBlocks(blocks []Block) []Block {
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		out[i] = b.clone()
	}
	return out
}
