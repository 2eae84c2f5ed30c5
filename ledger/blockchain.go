package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/luca-patrignani/dedecoin/common"
)

// GenesisPreviousHash is the previous hash sentinel of the genesis block.
const GenesisPreviousHash = "0"

// GenesisTimestamp is the fixed creation time of every genesis block.
var GenesisTimestamp = time.Date(2020, time.May, 2, 0, 0, 0, 0, time.UTC).UnixMilli()

// Blockchain owns the chain of mined blocks and the pool of transactions
// waiting to be mined. All methods are safe for concurrent use; reads return
// copies.
type Blockchain struct {
	mu      sync.RWMutex // Protects chain, pending and config
	mineMu  sync.Mutex   // Serialises miners
	chain   []Block
	pending []Transaction
	config  Config

	verifier common.SignatureVerifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewBlockchain creates a blockchain holding only the genesis block.
// Without options it uses DefaultConfig.
func NewBlockchain(v common.SignatureVerifier, opts ...option) (*Blockchain, error) {
	bc := &Blockchain{
		pending:  make([]Transaction, 0),
		config:   DefaultConfig(),
		verifier: v,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(bc)
	}
	if err := bc.config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	bc.chain = []Block{GenesisBlock()}
	return bc, nil
}

// GenesisBlock returns the first block of every chain: fixed timestamp, no
// transactions and previous hash "0".
func GenesisBlock() Block {
	return NewBlock(GenesisTimestamp, []Transaction{}, GenesisPreviousHash)
}

// LatestBlock returns the most recently mined block.
func (bc *Blockchain) LatestBlock() Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.chain[len(bc.chain)-1].clone()
}

// BlockAt returns the block at index, genesis being 0.
func (bc *Blockchain) BlockAt(index int) (Block, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	if index < 0 || index >= len(bc.chain) {
		return Block{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	return bc.chain[index].clone(), nil
}

// Blocks returns a copy of the whole chain.
func (bc *Blockchain) Blocks() []Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return cloneBlocks(bc.chain)
}

// Len returns the number of blocks including genesis.
func (bc *Blockchain) Len() int {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return len(bc.chain)
}

// Pending returns a copy of the transactions waiting to be mined, oldest first.
func (bc *Blockchain) Pending() []Transaction {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return cloneTransactions(bc.pending)
}

func (bc *Blockchain) Config() Config {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.config
}

// SetDifficulty changes the difficulty used for the next mined block.
func (bc *Blockchain) SetDifficulty(difficulty int) error {
	if _, err := difficultyPrefix(difficulty); err != nil {
		return err
	}
	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.config.Difficulty = difficulty
	return nil
}

// SetMiningReward changes the reward credited by the next mined block.
func (bc *Blockchain) SetMiningReward(reward int64) error {
	if err := checkAmount(reward); err != nil {
		return fmt.Errorf("mining reward: %w", err)
	}
	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.config.MiningReward = reward
	return nil
}

// AddTransaction validates tx and appends it to the pending pool.
//
// The checks run in order and the first failure is returned:
//  1. ErrMissingAddress if the sender or the recipient is empty
//  2. ErrMissingSignature or ErrInvalidSignature if the signature does not verify
//  3. ErrNonPositiveAmount or ErrAmountTooLarge if the amount is not in (0, MaxAmount]
//  4. ErrInsufficientBalance if the committed balance of the sender is lower than the amount
//
// The pool is left untouched on failure.
func (bc *Blockchain) AddTransaction(tx Transaction) error {
	if err := bc.checkTransaction(tx); err != nil {
		bc.logger.Warn("transaction rejected", "from", short(tx.From), "to", short(tx.To), "amount", tx.Amount, "error", err)
		return err
	}

	bc.mu.Lock()
	defer bc.mu.Unlock()

	if balance := bc.balanceOf(tx.From); balance < tx.Amount {
		err := fmt.Errorf("%w: has %d, needs %d", ErrInsufficientBalance, balance, tx.Amount)
		bc.logger.Warn("transaction rejected", "from", short(tx.From), "to", short(tx.To), "amount", tx.Amount, "error", err)
		return err
	}

	bc.pending = append(bc.pending, tx)
	bc.logger.Debug("transaction added", "hash", short(tx.CalculateHash()), "pending", len(bc.pending))
	return nil
}

// checkTransaction runs the checks of AddTransaction that do not need the
// chain.
func (bc *Blockchain) checkTransaction(tx Transaction) error {
	if tx.From == "" || tx.To == "" {
		return ErrMissingAddress
	}

	ok, err := tx.IsValid(bc.verifier)
	if errors.Is(err, ErrMissingSignature) {
		return err
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !ok {
		return ErrInvalidSignature
	}

	return checkAmount(tx.Amount)
}

// MinePendingTransactions bundles the pending pool and a reward for
// rewardAddress into a new block, mines it and appends it to the chain. The
// mined transactions leave the pool; transactions submitted while mining
// stay pending.
//
// When ctx is done before a nonce is found the chain and the pool are left
// untouched and the context error is returned.
func (bc *Blockchain) MinePendingTransactions(ctx context.Context, rewardAddress string) (Block, error) {
	if rewardAddress == "" {
		return Block{}, fmt.Errorf("reward address: %w", ErrMissingAddress)
	}

	bc.mineMu.Lock()
	defer bc.mineMu.Unlock()

	bc.mu.RLock()
	batch := cloneTransactions(bc.pending)
	cfg := bc.config
	previousHash := bc.chain[len(bc.chain)-1].Hash
	bc.mu.RUnlock()

	now := bc.now().UnixMilli()
	reward := Transaction{
		To:        rewardAddress,
		Amount:    cfg.MiningReward,
		Timestamp: now,
	}
	mined := len(batch)
	batch = append(batch, reward)

	block := NewBlock(now, batch, previousHash)
	started := time.Now()
	if err := block.MineParallel(ctx, cfg.Difficulty, cfg.Workers); err != nil {
		bc.logger.Warn("mining aborted", "error", err)
		return Block{}, fmt.Errorf("mining aborted: %w", err)
	}

	bc.mu.Lock()
	bc.chain = append(bc.chain, block)
	bc.pending = cloneTransactions(bc.pending[mined:])
	height := len(bc.chain) - 1
	bc.mu.Unlock()

	bc.logger.Debug("block mined",
		"height", height,
		"hash", block.Hash,
		"nonce", block.Nonce,
		"transactions", len(block.Transactions),
		"elapsed", time.Since(started),
	)
	return block.clone(), nil
}

// BalanceOf folds every committed transaction: amounts sent by address are
// subtracted and amounts received are added. Pending transactions are not
// counted.
func (bc *Blockchain) BalanceOf(address string) int64 {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	balance := bc.balanceOf(address)
	bc.logger.Debug("balance computed", "address", short(address), "balance", balance)
	return balance
}

// balanceOf must be called with mu held.
func (bc *Blockchain) balanceOf(address string) int64 {
	var balance int64
	for _, block := range bc.chain {
		for _, tx := range block.Transactions {
			if tx.From == address {
				balance -= tx.Amount
			}
			if tx.To == address {
				balance += tx.Amount
			}
		}
	}
	return balance
}

// TransactionsFor returns the committed transactions sent or received by
// address, in chain order.
func (bc *Blockchain) TransactionsFor(address string) []Transaction {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	txs := make([]Transaction, 0)
	for _, block := range bc.chain {
		for _, tx := range block.Transactions {
			if tx.From == address || tx.To == address {
				txs = append(txs, tx)
			}
		}
	}
	bc.logger.Debug("transactions for wallet", "address", short(address), "count", len(txs))
	return txs
}

// Verify validates the integrity of the entire blockchain, see ValidateChain.
func (bc *Blockchain) Verify() error {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return ValidateChain(bc.chain, bc.verifier)
}

// IsValidTransaction checks tx with the verifier of the chain. Errors count
// as invalid.
func (bc *Blockchain) IsValidTransaction(tx Transaction) bool {
	ok, err := tx.IsValid(bc.verifier)
	return err == nil && ok
}

// IsChainValid reports whether Verify finds no integrity violation.
func (bc *Blockchain) IsChainValid() bool {
	if err := bc.Verify(); err != nil {
		bc.logger.Debug("chain is invalid", "error", err)
		return false
	}
	return true
}

// short trims keys and hashes for log lines.
func short(s string) string {
	if len(s) > 12 {
		return s[:12]
	}
	return s
}
