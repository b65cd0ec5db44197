// This program provides a wallet for the ledger. It manages private keys
// and sends signed transactions to a node.
package main

import "github.com/ardanlabs/powledger/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
