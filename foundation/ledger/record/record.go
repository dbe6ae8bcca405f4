// Package record implements the immutable data model for the ledger: the
// transaction leaf records and the hash-chained, proof-of-work sealed blocks
// that batch them.
package record

import (
	"crypto/sha256"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ZeroHash represents a hash code of zeros. It is the previous-block hash
// sentinel for the genesis block.
const ZeroHash string = "0x0000000000000000000000000000000000000000000000000000000000000000"

// hashLength is the expected length of a hex encoded hash with its 0x prefix.
const hashLength = 66

// Hash returns a unique string for the value.
func Hash(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return ZeroHash
	}

	hash := sha256.Sum256(data)
	return hexutil.Encode(hash[:])
}

// isHashSolved checks the hash complies with the proof-of-work rules. The
// hash must carry the difficulty number of leading zero hex characters.
func isHashSolved(difficulty uint, hash string) bool {
	const match = "0x00000000000000000"

	if len(hash) != hashLength {
		return false
	}

	return hash[:2+difficulty] == match[:2+difficulty]
}
