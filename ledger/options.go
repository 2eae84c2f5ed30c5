package ledger

import (
	"fmt"
	"log/slog"
	"time"
)

// MaxAmount bounds transfer amounts and mining rewards so that balance folds
// stay far from int64 overflow.
const MaxAmount int64 = 1_000_000_000_000

// Config holds the mining parameters of a Blockchain.
type Config struct {
	// Difficulty is the number of leading '0' characters a mined hash needs.
	Difficulty int `json:"difficulty"`
	// MiningReward is credited to the reward address of every mined block.
	MiningReward int64 `json:"miningReward"`
	// Workers is the number of goroutines searching nonces. 1 mines sequentially.
	Workers int `json:"workers"`
}

// DefaultConfig returns difficulty 2, reward 100 and sequential mining.
func DefaultConfig() Config {
	return Config{
		Difficulty:   2,
		MiningReward: 100,
		Workers:      1,
	}
}

func (c Config) validate() error {
	if c.Difficulty < 0 || c.Difficulty > MaxDifficulty {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidDifficulty, c.Difficulty, MaxDifficulty)
	}
	if err := checkAmount(c.MiningReward); err != nil {
		return fmt.Errorf("mining reward: %w", err)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	return nil
}

func checkAmount(amount int64) error {
	if amount <= 0 {
		return ErrNonPositiveAmount
	}
	if amount > MaxAmount {
		return fmt.Errorf("%w: %d > %d", ErrAmountTooLarge, amount, MaxAmount)
	}
	return nil
}

type option func(*Blockchain)

func WithDifficulty(difficulty int) option {
	return func(bc *Blockchain) {
		bc.config.Difficulty = difficulty
	}
}

func WithMiningReward(reward int64) option {
	return func(bc *Blockchain) {
		bc.config.MiningReward = reward
	}
}

// WithWorkers enables parallel nonce search when workers is greater than 1.
func WithWorkers(workers int) option {
	return func(bc *Blockchain) {
		bc.config.Workers = workers
	}
}

func WithLogger(logger *slog.Logger) option {
	return func(bc *Blockchain) {
		bc.logger = logger
	}
}

// WithClock replaces time.Now as the source of block timestamps.
func WithClock(now func() time.Time) option {
	return func(bc *Blockchain) {
		bc.now = now
	}
}
