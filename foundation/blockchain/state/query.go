package state

import (
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
)

// QueryBalance returns the balance for the account by scanning every
// transaction in the chain. Pending transactions are not included.
func (s *State) QueryBalance(account database.AccountID) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var balance int64
	for _, block := range s.chain {
		for _, tx := range block.Transactions {
			if tx.FromAddress == account {
				balance -= int64(tx.Amount)
			}
			if tx.ToAddress == account {
				balance += int64(tx.Amount)
			}
		}
	}

	return balance
}

// QueryAccounts returns the balance of every account found in the chain.
func (s *State) QueryAccounts() map[database.AccountID]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make(map[database.AccountID]int64)
	for _, block := range s.chain {
		for _, tx := range block.Transactions {
			if !tx.FromAddress.IsNone() {
				accounts[tx.FromAddress] -= int64(tx.Amount)
			}
			accounts[tx.ToAddress] += int64(tx.Amount)
		}
	}

	return accounts
}

// QueryBlocksByAccount returns the set of blocks by account. If the account
// is empty, all blocks are returned.
func (s *State) QueryBlocksByAccount(account database.AccountID) []database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []database.Block
	for _, block := range s.chain {
		if account == "" {
			out = append(out, block.Copy())
			continue
		}

		for _, tx := range block.Transactions {
			if tx.FromAddress == account || tx.ToAddress == account {
				out = append(out, block.Copy())
				break
			}
		}
	}

	return out
}
