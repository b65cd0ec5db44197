package public

import "github.com/ardanlabs/powledger/foundation/blockchain/database"

type act struct {
	Account database.AccountID `json:"account"`
	Name    string             `json:"name"`
	Balance int64              `json:"balance"`
}

type actInfo struct {
	LatestBlock string `json:"latest_block"`
	Uncommitted int    `json:"uncommitted"`
	Accounts    []act  `json:"accounts"`
}

type tx struct {
	FromAccount database.AccountID `json:"from"`
	FromName    string             `json:"from_name"`
	To          database.AccountID `json:"to"`
	ToName      string             `json:"to_name"`
	Amount      uint64             `json:"amount"`
	Hash        string             `json:"hash"`
	Sig         string             `json:"sig"`
}

type block struct {
	Timestamp    string `json:"timestamp"`
	PreviousHash string `json:"previous_hash"`
	Hash         string `json:"hash"`
	Nonce        uint64 `json:"nonce"`
	Transactions []tx   `json:"txs"`
}
