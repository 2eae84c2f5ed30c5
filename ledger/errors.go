package ledger

import "errors"

var (
	// ErrOwnershipMismatch is returned when a transaction is signed with a
	// key that does not belong to its sender.
	ErrOwnershipMismatch = errors.New("cannot sign transactions for other wallets")
	// ErrMissingSignature is returned when a transfer has no signature.
	ErrMissingSignature = errors.New("missing signature")
	// ErrMissingAddress is returned when a sender or recipient is absent.
	ErrMissingAddress = errors.New("transaction must include from and to address")
	// ErrNonPositiveAmount is returned when an amount is zero or negative.
	ErrNonPositiveAmount = errors.New("amount must be greater than zero")
	// ErrInsufficientBalance is returned when the sender's committed balance
	// does not cover the amount.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrAmountTooLarge is returned when an amount or reward exceeds MaxAmount.
	ErrAmountTooLarge = errors.New("amount exceeds maximum")
	// ErrInvalidSignature is returned when a signature does not verify.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrInvalidDifficulty is returned for a difficulty outside 0..MaxDifficulty.
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	// ErrIndexOutOfRange is returned by BlockAt for a missing index.
	ErrIndexOutOfRange = errors.New("index out of range")
)
