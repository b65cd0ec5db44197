package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

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

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance.",
	RunE:  balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
}

func balanceRun(cmd *cobra.Command, args []string) error {
	privateKey, err := loadPrivateKey()
	if err != nil {
		return err
	}

	accountID := database.PublicKeyToAccountID(privateKey.PublicKey)
	fmt.Fprintln(cmd.OutOrStdout(), "For Account:", accountID)

	balance, err := queryBalance(url, accountID)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), balance)

	return nil
}

// queryBalance asks the node for the balance of the account.
func queryBalance(url string, accountID database.AccountID) (int64, error) {
	resp, err := http.Get(fmt.Sprintf("%s/v1/accounts/list/%s", url, accountID))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("node responded with %s", resp.Status)
	}

	var info actInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return 0, fmt.Errorf("decoding response: %w", err)
	}

	for _, a := range info.Accounts {
		if a.Account == accountID {
			return a.Balance, nil
		}
	}

	return 0, nil
}
