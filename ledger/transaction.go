package ledger

import (
	"fmt"
	"time"

	"github.com/luca-patrignani/dedecoin/common"
)

// Kind distinguishes signed transfers from ledger-minted rewards.
type Kind string

const (
	KindTransfer Kind = "transfer"
	KindReward   Kind = "reward"
)

// Transaction moves Amount from the From public key to the To public key.
// An empty From marks a reward: it has no owner and needs no signature.
type Transaction struct {
	From      string `json:"fromAddress,omitempty"`
	To        string `json:"toAddress"`
	Amount    int64  `json:"amount"`
	Timestamp int64  `json:"timestamp"` // Unix milliseconds
	Signature string `json:"signature,omitempty"`
}

// NewTransfer creates an unsigned transfer stamped with the current time.
func NewTransfer(from, to string, amount int64) Transaction {
	return Transaction{
		From:      from,
		To:        to,
		Amount:    amount,
		Timestamp: time.Now().UnixMilli(),
	}
}

// NewReward creates a reward crediting to with amount.
func NewReward(to string, amount int64) Transaction {
	return Transaction{
		To:        to,
		Amount:    amount,
		Timestamp: time.Now().UnixMilli(),
	}
}

func (tx Transaction) Kind() Kind {
	if tx.From == "" {
		return KindReward
	}
	return KindTransfer
}

// CalculateHash returns the digest of the sender, recipient, amount and
// timestamp. The signature is not part of it. Fields are separated by '|'
// so digits cannot move between amount and timestamp.
func (tx Transaction) CalculateHash() string {
	data := fmt.Sprintf("%s|%s|%d|%d", tx.From, tx.To, tx.Amount, tx.Timestamp)
	return common.SHA256.Hash([]byte(data))
}

// Sign signs the transaction with privateKey, which must belong to From.
// Signature is left untouched when signing fails.
func (tx *Transaction) Sign(p common.SignatureProvider, privateKey string) error {
	pub, err := p.PublicKeyOf(privateKey)
	if err != nil {
		return err
	}
	if tx.Kind() == KindReward || pub != tx.From {
		return ErrOwnershipMismatch
	}
	sig, err := p.Sign(privateKey, []byte(tx.CalculateHash()))
	if err != nil {
		return err
	}
	tx.Signature = sig
	return nil
}

// IsValid reports whether the transaction may enter the pending pool or a
// block. Rewards are always valid. A transfer without signature yields
// ErrMissingSignature.
func (tx Transaction) IsValid(v common.SignatureVerifier) (bool, error) {
	switch tx.Kind() {
	case KindReward:
		return true, nil
	default:
		if len(tx.Signature) == 0 {
			return false, ErrMissingSignature
		}
		return v.Verify(tx.From, []byte(tx.CalculateHash()), tx.Signature)
	}
}
