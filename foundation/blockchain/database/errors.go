package database

import "errors"

// Set of error variables for signing, admitting and validating ledger data.
var (
	// ErrAuthorization is returned when a transaction is signed with a key
	// that doesn't belong to the sending account.
	ErrAuthorization = errors.New("cannot sign transactions for other wallets")

	// ErrMissingSignature is returned when a non-reward transaction is
	// verified without a signature.
	ErrMissingSignature = errors.New("no signature in this transaction")

	// ErrInvalidSignature is returned when a transaction is rejected because
	// its signature doesn't verify.
	ErrInvalidSignature = errors.New("transaction signature is not valid")

	// ErrIncompleteAddress is returned when a transaction is missing the
	// from or to address.
	ErrIncompleteAddress = errors.New("transaction must include from and to address")

	// ErrAmountTooLarge is returned when a transaction moves more than
	// MaxAmount. Balances are signed so larger amounts can't be counted.
	ErrAmountTooLarge = errors.New("transaction amount is larger than the max amount")

	// ErrEmptyChain is returned when the chain has no blocks. This should
	// never happen since every chain starts with a genesis block.
	ErrEmptyChain = errors.New("chain is empty")
)
