package cmd

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/nameservice"
	"github.com/spf13/cobra"
)

var (
	url    string
	to     string
	amount uint64
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send transaction",
	RunE: func(cmd *cobra.Command, args []string) error {
		privateKey, err := loadPrivateKey()
		if err != nil {
			return err
		}

		toID, err := resolveAccount(to)
		if err != nil {
			return err
		}

		status, err := sendWithDetails(url, privateKey, toID, amount)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), status)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Account or wallet name receiving the amount.")
	sendCmd.Flags().Uint64VarP(&amount, "amount", "v", 0, "Amount to send.")
	sendCmd.MarkFlagRequired("to")
}

// resolveAccount accepts an account id or the name of a key file in the
// account path.
func resolveAccount(value string) (database.AccountID, error) {
	if account, err := database.ToAccountID(value); err == nil {
		return account, nil
	}

	ns, err := nameservice.New(accountPath)
	if err != nil {
		return "", err
	}

	account, exists := ns.Account(value)
	if !exists {
		return "", fmt.Errorf("%q is not an account or a known wallet name", value)
	}

	return account, nil
}

// sendWithDetails signs a transaction from the key's account and submits
// it to the node.
func sendWithDetails(url string, privateKey *ecdsa.PrivateKey, toID database.AccountID, amount uint64) (string, error) {
	tx := database.NewTx(database.PublicKeyToAccountID(privateKey.PublicKey), toID, amount)
	if err := tx.Sign(privateKey); err != nil {
		return "", err
	}

	data, err := json.Marshal(tx)
	if err != nil {
		return "", err
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/tx/submit", url), "application/json", bytes.NewBuffer(data))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("node responded with %s: %s", resp.Status, body)
	}

	return string(body), nil
}
