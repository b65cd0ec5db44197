// Package nameservice reads the zblock/accounts folder and creates a name
// service lookup for the ledger accounts.
package nameservice

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/crypto"
)

// NameService maintains a map of accounts for name lookup.
type NameService struct {
	accounts map[database.AccountID]string
	names    map[string]database.AccountID
}

// New constructs a name service with accounts from the zblock/accounts folder.
func New(root string) (*NameService, error) {
	ns := NameService{
		accounts: make(map[database.AccountID]string),
		names:    make(map[string]database.AccountID),
	}

	fn := func(fileName string, info fs.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if path.Ext(fileName) != ".ecdsa" {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return fmt.Errorf("loading %s: %w", fileName, err)
		}

		account := database.PublicKeyToAccountID(privateKey.PublicKey)
		name := strings.TrimSuffix(path.Base(fileName), ".ecdsa")

		ns.accounts[account] = name
		ns.names[name] = account

		return nil
	}

	if err := filepath.Walk(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified account.
func (ns *NameService) Lookup(account database.AccountID) string {
	if account.IsNone() {
		return "reward"
	}

	name, exists := ns.accounts[account]
	if !exists {
		return string(account)
	}
	return name
}

// Account returns the account for the specified name.
func (ns *NameService) Account(name string) (database.AccountID, bool) {
	account, exists := ns.names[name]
	return account, exists
}

// Copy returns a copy of the map of names and accounts.
func (ns *NameService) Copy() map[database.AccountID]string {
	cpy := make(map[database.AccountID]string, len(ns.accounts))
	for account, name := range ns.accounts {
		cpy[account] = name
	}
	return cpy
}
