// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
)

// Genesis represents the genesis file.
type Genesis struct {
	Date         string `json:"date"`          // Timestamp written into the genesis block.
	PrevHash     string `json:"prev_hash"`     // Sentinel previous hash for the genesis block.
	Difficulty   uint16 `json:"difficulty"`    // How difficult it needs to be to solve the work problem.
	MiningReward uint64 `json:"mining_reward"` // Reward for mining a block.
}

// Default returns the genesis information every node starts with when no
// genesis file is provided.
func Default() Genesis {
	return Genesis{
		Date:         "22/12/2025",
		PrevHash:     "0",
		Difficulty:   2,
		MiningReward: 100,
	}
}

// =============================================================================

// Load opens and consumes the genesis file. An empty path returns the
// default genesis.
func Load(path string) (Genesis, error) {
	if path == "" {
		return Default(), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	err = json.Unmarshal(content, &genesis)
	if err != nil {
		return Genesis{}, err
	}

	if genesis.PrevHash == "" {
		return Genesis{}, fmt.Errorf("genesis file %s: prev_hash is required", path)
	}

	return genesis, nil
}

// Block constructs the canonical genesis block. It holds no transactions
// and is never mined.
func (g Genesis) Block() database.Block {
	return database.NewBlock(g.Date, nil, g.PrevHash)
}
