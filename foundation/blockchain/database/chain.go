// Package database handles the ledger data model: transactions, blocks and
// the rules that bind a sequence of blocks into a valid chain.
package database

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ardanlabs/powledger/foundation/validate"
)

// ValidateChain walks the chain starting with the first block after genesis
// and validates every block against its parent. The genesis block is not
// checked since its content is fixed by the ledger rules.
func ValidateChain(blocks []Block, difficulty uint16, ev func(v string, args ...any)) error {
	if len(blocks) == 0 {
		return ErrEmptyChain
	}

	for i := 1; i < len(blocks); i++ {
		if err := blocks[i].ValidateBlock(blocks[i-1], difficulty, ev); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
	}

	return nil
}

// CopyChain returns a copy of the blocks that doesn't share any memory
// with the original.
func CopyChain(blocks []Block) []Block {
	cpy := make([]Block, len(blocks))
	for i, block := range blocks {
		cpy[i] = block.Copy()
	}
	return cpy
}

// DecodeChain decodes a set of blocks received from outside the node. Unknown
// fields are rejected and every block is checked for the proper shape. The
// content is not validated against the chain rules here.
func DecodeChain(data []byte) ([]Block, error) {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, errors.New("no blocks provided")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var blocks []Block
	if err := dec.Decode(&blocks); err != nil {
		return nil, fmt.Errorf("decoding blocks: %w", err)
	}

	for i, block := range blocks {
		if err := validate.Check(block); err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
	}

	return blocks, nil
}
