package cmd

import (
	"fmt"
	"os"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate new key pair",
	RunE:  generateRun,
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func generateRun(cmd *cobra.Command, args []string) error {
	path := getPrivateKeyPath()

	account, err := generate(path)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Private key:", path)
	fmt.Fprintln(cmd.OutOrStdout(), "Account:", account)

	return nil
}

// generate creates a new key pair and saves the private key to the path.
// An existing key file is never overwritten.
func generate(path string) (database.AccountID, error) {
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("key file %s already exists", path)
	}

	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return "", fmt.Errorf("generating key: %w", err)
	}

	if err := crypto.SaveECDSA(path, privateKey); err != nil {
		return "", fmt.Errorf("saving key: %w", err)
	}

	return database.PublicKeyToAccountID(privateKey.PublicKey), nil
}
