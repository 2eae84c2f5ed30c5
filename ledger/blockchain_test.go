package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"
)

// newTestChain returns a blockchain with difficulty 1 so that tests mine fast.
func newTestChain(t *testing.T, opts ...option) *Blockchain {
	t.Helper()
	opts = append([]option{WithDifficulty(1)}, opts...)
	bc, err := NewBlockchain(provider, opts...)
	if err != nil {
		t.Fatalf("failed to create blockchain : %v", err)
	}
	return bc
}

// fund mines one block whose reward goes to address.
func fund(t *testing.T, bc *Blockchain, address string) {
	t.Helper()
	if _, err := bc.MinePendingTransactions(context.Background(), address); err != nil {
		t.Fatalf("failed to mine reward for %s: %v", short(address), err)
	}
}

// transfer builds and signs a transfer of amount from the owner of priv.
func transfer(t *testing.T, priv, from, to string, amount int64) Transaction {
	t.Helper()
	tx := NewTransfer(from, to, amount)
	if err := tx.Sign(provider, priv); err != nil {
		t.Fatalf("failed to sign transaction: %v", err)
	}
	return tx
}

// TestNewBlockchainGenesis verifies that a new chain holds only a valid genesis
// block with previous hash "0" and the fixed genesis timestamp.
func TestNewBlockchainGenesis(t *testing.T) {
	bc := newTestChain(t)

	if bc.Len() != 1 {
		t.Fatalf("expected 1 block, got %d", bc.Len())
	}
	genesis := bc.LatestBlock()
	if genesis.PreviousHash != GenesisPreviousHash {
		t.Fatalf("expected previous hash %q, got %q", GenesisPreviousHash, genesis.PreviousHash)
	}
	if genesis.Timestamp != GenesisTimestamp {
		t.Fatalf("expected genesis timestamp %d, got %d", GenesisTimestamp, genesis.Timestamp)
	}
	if len(genesis.Transactions) != 0 {
		t.Fatalf("genesis should have no transactions, got %d", len(genesis.Transactions))
	}
	if genesis.Hash != GenesisBlock().Hash {
		t.Fatal("every genesis block should have the same hash")
	}
	if !bc.IsChainValid() {
		t.Fatal("fresh blockchain should be valid")
	}
	if len(bc.Pending()) != 0 {
		t.Fatal("fresh blockchain should have an empty pool")
	}
}

func TestNewBlockchainInvalidConfig(t *testing.T) {
	cases := map[string]option{
		"negative difficulty": WithDifficulty(-1),
		"huge difficulty":     WithDifficulty(MaxDifficulty + 1),
		"zero reward":         WithMiningReward(0),
		"zero workers":        WithWorkers(0),
	}
	for name, opt := range cases {
		if _, err := NewBlockchain(provider, opt); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

// TestMineRewardOnly verifies that mining an empty pool at difficulty 1 with
// reward 100 appends one block holding only the reward, and credits the miner.
func TestMineRewardOnly(t *testing.T) {
	bc := newTestChain(t, WithMiningReward(100))
	_, miner := newKeyPair(t)

	block, err := bc.MinePendingTransactions(context.Background(), miner)
	if err != nil {
		t.Fatalf("mining failed: %v", err)
	}
	if bc.Len() != 2 {
		t.Fatalf("expected 2 blocks, got %d", bc.Len())
	}
	if len(block.Transactions) != 1 || block.Transactions[0].Kind() != KindReward {
		t.Fatalf("expected a single reward transaction, got %+v", block.Transactions)
	}
	if !strings.HasPrefix(block.Hash, "0") {
		t.Fatalf("hash %s does not meet difficulty 1", block.Hash)
	}
	if block.PreviousHash != GenesisBlock().Hash {
		t.Fatal("mined block should link to genesis")
	}
	if got := bc.BalanceOf(miner); got != 100 {
		t.Fatalf("expected balance 100, got %d", got)
	}
	if !bc.IsChainValid() {
		t.Fatal("chain should be valid after mining")
	}
}

// TestTransferFlow verifies the full flow: the sender earns two rewards, sends
// 30 and mines again to a third address. The sender ends at 170.
func TestTransferFlow(t *testing.T) {
	bc := newTestChain(t)
	priv, alice := newKeyPair(t)
	_, bob := newKeyPair(t)
	_, miner := newKeyPair(t)

	fund(t, bc, alice)
	fund(t, bc, alice)

	tx := transfer(t, priv, alice, bob, 30)
	if err := bc.AddTransaction(tx); err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}
	if len(bc.Pending()) != 1 {
		t.Fatalf("expected 1 pending transaction, got %d", len(bc.Pending()))
	}
	// Pending transactions do not count.
	if got := bc.BalanceOf(bob); got != 0 {
		t.Fatalf("expected bob balance 0 before mining, got %d", got)
	}

	block, err := bc.MinePendingTransactions(context.Background(), miner)
	if err != nil {
		t.Fatalf("mining failed: %v", err)
	}
	if len(block.Transactions) != 2 || block.Transactions[1].Kind() != KindReward {
		t.Fatalf("expected transfer then reward, got %+v", block.Transactions)
	}
	if len(bc.Pending()) != 0 {
		t.Fatal("mined transactions should leave the pool")
	}
	if got := bc.BalanceOf(alice); got != 170 {
		t.Fatalf("expected alice balance 170, got %d", got)
	}
	if got := bc.BalanceOf(bob); got != 30 {
		t.Fatalf("expected bob balance 30, got %d", got)
	}
	if got := bc.BalanceOf(miner); got != 100 {
		t.Fatalf("expected miner balance 100, got %d", got)
	}
	if got := len(bc.TransactionsFor(alice)); got != 3 {
		t.Fatalf("expected 3 transactions for alice, got %d", got)
	}
	if !bc.IsChainValid() {
		t.Fatal("chain should be valid")
	}
}

// TestAddTransactionRejections verifies each rejection reason of AddTransaction
// and that the pool is never modified by a rejected transaction.
func TestAddTransactionRejections(t *testing.T) {
	bc := newTestChain(t)
	priv, alice := newKeyPair(t)
	otherPriv, mallory := newKeyPair(t)
	_, bob := newKeyPair(t)
	fund(t, bc, alice)
	if err := bc.AddTransaction(transfer(t, priv, alice, bob, 1)); err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}
	queued := bc.Pending()

	zero := transfer(t, priv, alice, bob, 0)
	negative := transfer(t, priv, alice, bob, -5)
	tooMuch := transfer(t, priv, alice, bob, 101)
	forged := transfer(t, otherPriv, mallory, bob, 5)
	forged.From = alice
	noRecipient := transfer(t, priv, alice, "", 5)

	cases := []struct {
		name string
		tx   Transaction
		want error
	}{
		{"zero amount", zero, ErrNonPositiveAmount},
		{"negative amount", negative, ErrNonPositiveAmount},
		{"overdraw", tooMuch, ErrInsufficientBalance},
		{"unsigned", NewTransfer(alice, bob, 5), ErrMissingSignature},
		{"forged", forged, ErrInvalidSignature},
		{"missing recipient", noRecipient, ErrMissingAddress},
		{"reward", NewReward(bob, 5), ErrMissingAddress},
		{"huge amount", transfer(t, priv, alice, bob, MaxAmount+1), ErrAmountTooLarge},
	}
	for _, c := range cases {
		err := bc.AddTransaction(c.tx)
		if !errors.Is(err, c.want) {
			t.Fatalf("%s: expected %v, got %v", c.name, c.want, err)
		}
		pending := bc.Pending()
		if len(pending) != len(queued) || pending[0].Signature != queued[0].Signature {
			t.Fatalf("%s: pool should be unchanged, got %d transactions", c.name, len(pending))
		}
	}
}

// TestRelaxedPendingPolicy verifies that the balance check only counts
// committed blocks, so several pending transfers may together exceed it.
func TestRelaxedPendingPolicy(t *testing.T) {
	bc := newTestChain(t)
	priv, alice := newKeyPair(t)
	_, bob := newKeyPair(t)
	fund(t, bc, alice)

	for i := 0; i < 2; i++ {
		if err := bc.AddTransaction(transfer(t, priv, alice, bob, 80)); err != nil {
			t.Fatalf("transfer %d rejected: %v", i, err)
		}
	}
	fund(t, bc, bob)

	if got := bc.BalanceOf(alice); got != -60 {
		t.Fatalf("expected alice balance -60, got %d", got)
	}
	if !bc.IsChainValid() {
		t.Fatal("overdrawn chain is still structurally valid")
	}
}

// TestMineCancelledLeavesStateUntouched verifies that a cancelled mining run
// neither appends a block nor drains the pool.
func TestMineCancelledLeavesStateUntouched(t *testing.T) {
	bc := newTestChain(t)
	priv, alice := newKeyPair(t)
	_, bob := newKeyPair(t)
	fund(t, bc, alice)
	if err := bc.AddTransaction(transfer(t, priv, alice, bob, 10)); err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}
	if err := bc.SetDifficulty(MaxDifficulty); err != nil {
		t.Fatalf("SetDifficulty failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := bc.MinePendingTransactions(ctx, bob)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
	if bc.Len() != 2 {
		t.Fatalf("expected 2 blocks, got %d", bc.Len())
	}
	if len(bc.Pending()) != 1 {
		t.Fatalf("expected the transfer to stay pending, got %d", len(bc.Pending()))
	}
}

func TestMineRequiresRewardAddress(t *testing.T) {
	bc := newTestChain(t)
	if _, err := bc.MinePendingTransactions(context.Background(), ""); !errors.Is(err, ErrMissingAddress) {
		t.Fatalf("expected ErrMissingAddress, got %v", err)
	}
	if bc.Len() != 1 {
		t.Fatal("no block should be appended")
	}
}

// TestVerifyDetectsTampering verifies that editing a committed block's
// timestamp, a transaction amount or the nonce makes the chain invalid.
func TestVerifyDetectsTampering(t *testing.T) {
	tamperings := map[string]func(bc *Blockchain){
		"timestamp": func(bc *Blockchain) { bc.chain[1].Timestamp++ },
		"amount":    func(bc *Blockchain) { bc.chain[1].Transactions[0].Amount = 1_000_000 },
		"nonce":     func(bc *Blockchain) { bc.chain[1].Nonce++ },
	}
	for name, tamper := range tamperings {
		bc := newTestChain(t)
		_, miner := newKeyPair(t)
		fund(t, bc, miner)
		fund(t, bc, miner)

		tamper(bc)
		err := bc.Verify()
		if err == nil {
			t.Fatalf("%s: tampering should be detected", name)
		}
		if !strings.Contains(err.Error(), "block 1 invalid") {
			t.Fatalf("%s: expected block 1 to be reported, got %v", name, err)
		}
		if bc.IsChainValid() {
			t.Fatalf("%s: IsChainValid should be false", name)
		}
	}
}

// TestVerifyDetectsRehashedTampering verifies that recomputing the hash of a
// tampered block still breaks the link from its successor.
func TestVerifyDetectsRehashedTampering(t *testing.T) {
	bc := newTestChain(t)
	_, miner := newKeyPair(t)
	fund(t, bc, miner)
	fund(t, bc, miner)

	bc.chain[1].Transactions[0].Amount = 1_000_000
	bc.chain[1].Hash = bc.chain[1].CalculateHash()

	err := bc.Verify()
	if err == nil || !strings.Contains(err.Error(), "invalid prev hash") {
		t.Fatalf("expected a broken link error, got %v", err)
	}
}

// TestVerifyDetectsSignatureTampering verifies that a transfer whose amount
// was changed and whose block was rehashed is caught by the signature check.
func TestVerifyDetectsSignatureTampering(t *testing.T) {
	bc := newTestChain(t)
	priv, alice := newKeyPair(t)
	_, bob := newKeyPair(t)
	fund(t, bc, alice)
	if err := bc.AddTransaction(transfer(t, priv, alice, bob, 10)); err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}
	fund(t, bc, bob)

	bc.chain[2].Transactions[0].Amount = 99
	bc.chain[2].Hash = bc.chain[2].CalculateHash()

	err := bc.Verify()
	if err == nil || !strings.Contains(err.Error(), "invalid transactions") {
		t.Fatalf("expected an invalid transactions error, got %v", err)
	}
}

// TestVerifyDetectsSplice verifies that swapping two blocks whose own hashes
// are consistent is detected through the previous hash linkage.
func TestVerifyDetectsSplice(t *testing.T) {
	bc := newTestChain(t)
	_, miner := newKeyPair(t)
	fund(t, bc, miner)
	fund(t, bc, miner)

	bc.chain[1], bc.chain[2] = bc.chain[2], bc.chain[1]
	err := bc.Verify()
	if err == nil || !strings.Contains(err.Error(), "invalid prev hash") {
		t.Fatalf("expected splice to be detected, got %v", err)
	}
}

func TestVerifyDetectsGenesisTampering(t *testing.T) {
	bc := newTestChain(t)
	bc.chain[0].Timestamp++
	if err := bc.Verify(); err == nil || !strings.Contains(err.Error(), "genesis") {
		t.Fatalf("expected genesis error, got %v", err)
	}
}

// TestValidateDecodedChain verifies that a chain survives a JSON round trip
// and still validates, and that a decoded chain with an edited amount does not.
func TestValidateDecodedChain(t *testing.T) {
	bc := newTestChain(t)
	priv, alice := newKeyPair(t)
	_, bob := newKeyPair(t)
	fund(t, bc, alice)
	if err := bc.AddTransaction(transfer(t, priv, alice, bob, 25)); err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}
	fund(t, bc, bob)

	data, err := json.Marshal(bc.Blocks())
	if err != nil {
		t.Fatalf("failed to encode chain: %v", err)
	}
	var decoded []Block
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to decode chain: %v", err)
	}
	if err := ValidateChain(decoded, provider); err != nil {
		t.Fatalf("decoded chain should be valid: %v", err)
	}

	decoded[2].Transactions[0].Amount = 1
	if err := ValidateChain(decoded, provider); err == nil {
		t.Fatal("edited decoded chain should be invalid")
	}
	if err := ValidateChain(nil, provider); err == nil {
		t.Fatal("empty chain should be invalid")
	}
}

// TestReadsReturnCopies verifies that callers cannot mutate the chain through
// the values it returns.
func TestReadsReturnCopies(t *testing.T) {
	bc := newTestChain(t)
	_, miner := newKeyPair(t)
	fund(t, bc, miner)

	blocks := bc.Blocks()
	blocks[1].Transactions[0].Amount = 1_000_000
	latest := bc.LatestBlock()
	latest.Transactions[0].To = "someone"

	if !bc.IsChainValid() {
		t.Fatal("mutating returned blocks must not affect the chain")
	}
}

func TestBlockAt(t *testing.T) {
	bc := newTestChain(t)
	_, miner := newKeyPair(t)
	fund(t, bc, miner)

	b, err := bc.BlockAt(1)
	if err != nil {
		t.Fatalf("BlockAt(1) failed: %v", err)
	}
	if b.Hash != bc.LatestBlock().Hash {
		t.Fatal("BlockAt(1) should be the latest block")
	}
	for _, i := range []int{-1, 2} {
		if _, err := bc.BlockAt(i); !errors.Is(err, ErrIndexOutOfRange) {
			t.Fatalf("expected ErrIndexOutOfRange for %d, got %v", i, err)
		}
	}
}

// TestSetters verifies that difficulty and reward changes apply to the next
// mined block and that invalid values are rejected.
func TestSetters(t *testing.T) {
	bc := newTestChain(t)
	_, miner := newKeyPair(t)

	if err := bc.SetDifficulty(2); err != nil {
		t.Fatalf("SetDifficulty failed: %v", err)
	}
	if err := bc.SetMiningReward(7); err != nil {
		t.Fatalf("SetMiningReward failed: %v", err)
	}
	block, err := bc.MinePendingTransactions(context.Background(), miner)
	if err != nil {
		t.Fatalf("mining failed: %v", err)
	}
	if !strings.HasPrefix(block.Hash, "00") {
		t.Fatalf("hash %s does not meet difficulty 2", block.Hash)
	}
	if got := bc.BalanceOf(miner); got != 7 {
		t.Fatalf("expected balance 7, got %d", got)
	}

	if err := bc.SetDifficulty(-1); !errors.Is(err, ErrInvalidDifficulty) {
		t.Fatalf("expected ErrInvalidDifficulty, got %v", err)
	}
	if err := bc.SetMiningReward(0); !errors.Is(err, ErrNonPositiveAmount) {
		t.Fatalf("expected ErrNonPositiveAmount, got %v", err)
	}
	if err := bc.SetMiningReward(math.MaxInt64); !errors.Is(err, ErrAmountTooLarge) {
		t.Fatalf("expected ErrAmountTooLarge, got %v", err)
	}
	cfg := bc.Config()
	if cfg.Difficulty != 2 || cfg.MiningReward != 7 {
		t.Fatalf("rejected values should not change config, got %+v", cfg)
	}
}

// TestWithClock verifies that block and reward timestamps come from the
// configured clock.
func TestWithClock(t *testing.T) {
	fixed := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	bc := newTestChain(t, WithClock(func() time.Time { return fixed }))
	_, miner := newKeyPair(t)

	block, err := bc.MinePendingTransactions(context.Background(), miner)
	if err != nil {
		t.Fatalf("mining failed: %v", err)
	}
	if block.Timestamp != fixed.UnixMilli() || block.Transactions[0].Timestamp != fixed.UnixMilli() {
		t.Fatalf("expected timestamp %d, got block %d reward %d", fixed.UnixMilli(), block.Timestamp, block.Transactions[0].Timestamp)
	}
}

// TestConcurrentSubmitAndMine verifies that transactions submitted while
// other goroutines mine are either mined or still pending, never lost.
func TestConcurrentSubmitAndMine(t *testing.T) {
	bc := newTestChain(t, WithWorkers(2))
	priv, alice := newKeyPair(t)
	_, bob := newKeyPair(t)
	fund(t, bc, alice)

	const transfers = 20
	txs := make([]Transaction, transfers)
	for i := range txs {
		txs[i] = transfer(t, priv, alice, bob, 1)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i, tx := range txs {
			if err := bc.AddTransaction(tx); err != nil {
				t.Errorf("transfer %d rejected: %v", i, err)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 5; i++ {
			if _, err := bc.MinePendingTransactions(context.Background(), bob); err != nil {
				t.Errorf("mining %d failed: %v", i, err)
			}
		}
	}()
	wg.Wait()

	var mined int
	for _, tx := range bc.TransactionsFor(alice) {
		if tx.From == alice {
			mined++
		}
	}
	if mined+len(bc.Pending()) != transfers {
		t.Fatalf("expected %d transfers in total, got %d mined and %d pending", transfers, mined, len(bc.Pending()))
	}
	if !bc.IsChainValid() {
		t.Fatal("chain should be valid after concurrent use")
	}
}

// TestSignatureNotReusableAcrossFields verifies that moving digits between the
// amount and the timestamp of a signed transfer changes its hash, so the
// copied signature is rejected.
func TestSignatureNotReusableAcrossFields(t *testing.T) {
	bc := newTestChain(t)
	priv, alice := newKeyPair(t)
	_, bob := newKeyPair(t)
	fund(t, bc, alice)

	signed := Transaction{From: alice, To: bob, Amount: 1, Timestamp: 1700000000000}
	if err := signed.Sign(provider, priv); err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	shifted := Transaction{From: alice, To: bob, Amount: 11, Timestamp: 700000000000, Signature: signed.Signature}
	if shifted.CalculateHash() == signed.CalculateHash() {
		t.Fatal("shifting digits from timestamp to amount should change the hash")
	}

	err := bc.AddTransaction(shifted)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	if len(bc.Pending()) != 0 {
		t.Fatal("forged transfer must not enter the pool")
	}
	if err := bc.AddTransaction(signed); err != nil {
		t.Fatalf("original transfer rejected: %v", err)
	}
}

// TestRewardIsBounded verifies that rewards above MaxAmount are rejected at
// construction and by the setter, so balances cannot wrap around.
func TestRewardIsBounded(t *testing.T) {
	if _, err := NewBlockchain(provider, WithMiningReward(math.MaxInt64)); !errors.Is(err, ErrAmountTooLarge) {
		t.Fatalf("expected ErrAmountTooLarge, got %v", err)
	}

	bc := newTestChain(t)
	_, miner := newKeyPair(t)
	if err := bc.SetMiningReward(math.MaxInt64); !errors.Is(err, ErrAmountTooLarge) {
		t.Fatalf("expected ErrAmountTooLarge, got %v", err)
	}
	if err := bc.SetMiningReward(MaxAmount); err != nil {
		t.Fatalf("SetMiningReward(MaxAmount) failed: %v", err)
	}
	fund(t, bc, miner)
	fund(t, bc, miner)
	if got := bc.BalanceOf(miner); got != 2*MaxAmount {
		t.Fatalf("expected balance %d, got %d", 2*MaxAmount, got)
	}
}

func TestIsValidTransaction(t *testing.T) {
	bc := newTestChain(t)
	priv, alice := newKeyPair(t)
	_, bob := newKeyPair(t)

	tx := transfer(t, priv, alice, bob, 5)
	if !bc.IsValidTransaction(tx) {
		t.Fatal("signed transfer should be valid")
	}
	if !bc.IsValidTransaction(NewReward(bob, 5)) {
		t.Fatal("reward should be valid")
	}
	tx.Signature = "zz"
	if bc.IsValidTransaction(tx) {
		t.Fatal("malformed signature should be invalid")
	}
	if bc.IsValidTransaction(NewTransfer(alice, bob, 5)) {
		t.Fatal("unsigned transfer should be invalid")
	}
}
