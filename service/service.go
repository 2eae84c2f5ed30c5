// Package service is the surface the user interfaces talk to. It binds the
// local wallet to a ledger and exposes the read and write operations of the
// explorer, the wallet page and the miner.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/luca-patrignani/dedecoin/ledger"
	"github.com/luca-patrignani/dedecoin/wallet"
)

// Service owns a ledger and the wallet of the local user.
type Service struct {
	chain  *ledger.Blockchain
	wallet *wallet.Wallet
	logger *slog.Logger

	miners sync.WaitGroup
}

// MineResult is delivered by MineAsync once mining ends.
type MineResult struct {
	Block ledger.Block
	Err   error
}

// ConfigUpdate changes the mining parameters. Nil fields are left unchanged.
type ConfigUpdate struct {
	Difficulty   *int   `json:"difficulty,omitempty"`
	MiningReward *int64 `json:"miningReward,omitempty"`
}

func New(chain *ledger.Blockchain, w *wallet.Wallet, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{chain: chain, wallet: w, logger: logger}
}

// Bootstrap mines one block rewarding the local wallet so that it starts
// with funds.
func (s *Service) Bootstrap(ctx context.Context) (ledger.Block, error) {
	block, err := s.chain.MinePendingTransactions(ctx, s.wallet.Address())
	if err != nil {
		return ledger.Block{}, err
	}
	s.logger.Info("bootstrap block mined", "hash", block.Hash, "wallet", s.wallet.Fingerprint())
	return block, nil
}

func (s *Service) Wallet() *wallet.Wallet {
	return s.wallet
}

func (s *Service) Blocks() []ledger.Block {
	return s.chain.Blocks()
}

func (s *Service) Block(index int) (ledger.Block, error) {
	return s.chain.BlockAt(index)
}

func (s *Service) Pending() []ledger.Transaction {
	return s.chain.Pending()
}

func (s *Service) Balance(address string) int64 {
	return s.chain.BalanceOf(address)
}

// IsMine reports whether address is the local wallet's address.
func (s *Service) IsMine(address string) bool {
	return s.wallet.Owns(address)
}

// History returns the committed transactions of address in chain order.
func (s *Service) History(address string) []ledger.Transaction {
	return s.chain.TransactionsFor(address)
}

// IsTransactionValid checks the signature of tx with the ledger's verifier.
func (s *Service) IsTransactionValid(tx ledger.Transaction) bool {
	return s.chain.IsValidTransaction(tx)
}

func (s *Service) Verify() error {
	return s.chain.Verify()
}

func (s *Service) IsChainValid() bool {
	return s.chain.IsChainValid()
}

func (s *Service) Config() ledger.Config {
	return s.chain.Config()
}

// SetConfig applies every field of u that is set. Valid fields are applied
// even when another field is rejected.
func (s *Service) SetConfig(u ConfigUpdate) error {
	var errDifficulty, errReward error
	if u.Difficulty != nil {
		errDifficulty = s.chain.SetDifficulty(*u.Difficulty)
	}
	if u.MiningReward != nil {
		errReward = s.chain.SetMiningReward(*u.MiningReward)
	}
	if err := errors.Join(errDifficulty, errReward); err != nil {
		return err
	}
	s.logger.Info("configuration updated", "config", s.chain.Config())
	return nil
}

// SubmitTransaction signs a transfer of amount from the local wallet to to
// and adds it to the pending pool.
func (s *Service) SubmitTransaction(to string, amount int64) (ledger.Transaction, error) {
	tx, err := s.wallet.Transfer(to, amount)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if err := s.chain.AddTransaction(tx); err != nil {
		return ledger.Transaction{}, err
	}
	s.logger.Info("transaction submitted", "to", wallet.Fingerprint(to), "amount", amount)
	return tx, nil
}

// Mine mines the pending pool. An empty rewardAddress rewards the local
// wallet.
func (s *Service) Mine(ctx context.Context, rewardAddress string) (ledger.Block, error) {
	if rewardAddress == "" {
		rewardAddress = s.wallet.Address()
	}
	block, err := s.chain.MinePendingTransactions(ctx, rewardAddress)
	if err != nil {
		return ledger.Block{}, err
	}
	s.logger.Info("block mined", "hash", block.Hash, "transactions", len(block.Transactions))
	return block, nil
}

// MineAsync runs Mine on a new goroutine. The returned channel receives
// exactly one result and is then closed.
func (s *Service) MineAsync(ctx context.Context, rewardAddress string) <-chan MineResult {
	results := make(chan MineResult, 1)
	s.miners.Add(1)
	go func() {
		defer s.miners.Done()
		defer close(results)
		block, err := s.Mine(ctx, rewardAddress)
		results <- MineResult{Block: block, Err: err}
	}()
	return results
}

// Wait blocks until every miner started by MineAsync has returned.
func (s *Service) Wait() {
	s.miners.Wait()
}
