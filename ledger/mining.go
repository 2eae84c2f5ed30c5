package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// MaxDifficulty is the length of a hex encoded SHA-256 digest.
const MaxDifficulty = 64

// Number of nonces tried between two context checks.
const ctxCheckInterval = 4096

// Mine increments the nonce until the hash starts with difficulty '0'
// characters. With difficulty 0 it returns immediately without touching the
// nonce. It stops with the context error when ctx is done.
func (b *Block) Mine(ctx context.Context, difficulty int) error {
	prefix, err := difficultyPrefix(difficulty)
	if err != nil {
		return err
	}
	for i := 0; !strings.HasPrefix(b.Hash, prefix); i++ {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		b.Nonce++
		b.Hash = ComputeHash(*b)
	}
	return nil
}

// MineParallel splits the nonce search among workers goroutines. Worker w
// tries nonces start+1+w, start+1+w+workers, ... and the first match wins,
// so the resulting nonce is not necessarily the smallest one.
func (b *Block) MineParallel(ctx context.Context, difficulty int, workers int) error {
	if workers <= 1 {
		return b.Mine(ctx, difficulty)
	}
	prefix, err := difficultyPrefix(difficulty)
	if err != nil {
		return err
	}
	if strings.HasPrefix(b.Hash, prefix) {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		found  atomic.Bool
		once   sync.Once
		result Block
		wg     sync.WaitGroup
	)
	start := b.Nonce
	step := uint64(workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(offset uint64) {
			defer wg.Done()
			candidate := *b
			for i, nonce := 0, start+1+offset; !found.Load(); i, nonce = i+1, nonce+step {
				if i%ctxCheckInterval == 0 && ctx.Err() != nil {
					return
				}
				candidate.Nonce = nonce
				candidate.Hash = ComputeHash(candidate)
				if strings.HasPrefix(candidate.Hash, prefix) {
					once.Do(func() {
						result = candidate
						found.Store(true)
						cancel()
					})
					return
				}
			}
		}(uint64(w))
	}
	wg.Wait()

	if !found.Load() {
		return ctx.Err()
	}
	b.Nonce = result.Nonce
	b.Hash = result.Hash
	return nil
}

// MeetsDifficulty reports whether hash starts with difficulty '0' characters.
func MeetsDifficulty(hash string, difficulty int) bool {
	prefix, err := difficultyPrefix(difficulty)
	if err != nil {
		return false
	}
	return strings.HasPrefix(hash, prefix)
}

func difficultyPrefix(difficulty int) (string, error) {
	if difficulty < 0 || difficulty > MaxDifficulty {
		return "", fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidDifficulty, difficulty, MaxDifficulty)
	}
	return strings.Repeat("0", difficulty), nil
}
