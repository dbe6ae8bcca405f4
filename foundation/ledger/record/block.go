package record

import (
	"context"
	"fmt"
	"time"

	"github.com/rsl37/GLX-Systems-Network-sub008/foundation/ledger/merkle"
)

// BlockHeader represents the common information carried by each block. The
// block hash is the deterministic function of exactly these fields.
type BlockHeader struct {
	Number        uint64 `json:"number"`
	PrevBlockHash string `json:"prev_block_hash"`
	TimeStamp     uint64 `json:"timestamp"`
	MerkleRoot    string `json:"merkle_root"`
	Nonce         uint64 `json:"nonce"`
	Difficulty    uint   `json:"difficulty"`
}

// Block represents an ordered batch of transactions sealed together. A block
// is immutable once mined.
type Block struct {
	Header BlockHeader
	Trans  []Tx
}

// NewBlock constructs an unsealed block. The merkle root is accumulated
// before the header exists so the root is an input to the block hash.
func NewBlock(number uint64, prevBlockHash string, timeStamp time.Time, trans []Tx, difficulty uint) (Block, error) {
	tree, err := merkle.NewTree(trans)
	if err != nil {
		return Block{}, err
	}

	b := Block{
		Header: BlockHeader{
			Number:        number,
			PrevBlockHash: prevBlockHash,
			TimeStamp:     uint64(timeStamp.UTC().Unix()),
			MerkleRoot:    tree.RootHex(),
			Nonce:         0,
			Difficulty:    difficulty,
		},
		Trans: trans,
	}

	return b, nil
}

// Hash returns the unique hash for the block, computed over the header only.
func (b Block) Hash() string {
	return Hash(b.Header)
}

// Mine performs the proof-of-work search, incrementing the nonce until the
// block hash satisfies the difficulty target. This is a tight CPU-bound loop
// and the context is the only way to stop it early. Pointer semantics are
// used since a nonce is being discovered.
func (b *Block) Mine(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if isHashSolved(b.Header.Difficulty, b.Hash()) {
			return nil
		}

		b.Header.Nonce++
	}
}

// Validate checks every invariant a sealed block must hold: the merkle root
// matches the transactions, the proof-of-work target is satisfied, every
// transaction independently validates, and, when a previous block is
// supplied, the chain link holds.
func (b Block) Validate(now time.Time, previous *Block) error {
	tree, err := merkle.NewTree(b.Trans)
	if err != nil {
		return err
	}

	if root := tree.RootHex(); root != b.Header.MerkleRoot {
		return NewValidationError("merkle root does not match transactions, got %s, exp %s", root, b.Header.MerkleRoot)
	}

	if hash := b.Hash(); !isHashSolved(b.Header.Difficulty, hash) {
		return NewValidationError("block hash %s does not satisfy difficulty %d", hash, b.Header.Difficulty)
	}

	if previous != nil {
		if exp := previous.Header.Number + 1; b.Header.Number != exp {
			return NewValidationError("block is not the next number, got %d, exp %d", b.Header.Number, exp)
		}

		if prevHash := previous.Hash(); b.Header.PrevBlockHash != prevHash {
			return NewValidationError("previous block hash does not match, got %s, exp %s", b.Header.PrevBlockHash, prevHash)
		}

		if b.Header.TimeStamp < previous.Header.TimeStamp {
			return NewValidationError("block timestamp %d is before its parent %d", b.Header.TimeStamp, previous.Header.TimeStamp)
		}
	}

	for _, tx := range b.Trans {
		if err := tx.Validate(now); err != nil {
			return fmt.Errorf("transaction %s: %w", tx.ID, err)
		}
	}

	return nil
}

// VerifyHash compares the recomputed block hash with a hash carried by an
// external source, such as a persisted row.
func (b Block) VerifyHash(hash string) error {
	if computed := b.Hash(); computed != hash {
		return &IntegrityError{
			Resource: "block",
			ID:       fmt.Sprintf("%d", b.Header.Number),
			Reason:   fmt.Sprintf("recomputed hash %s does not match stored hash %s", computed, hash),
		}
	}

	return nil
}

// Head summarizes the most recently persisted block. It is the only chain
// state the ledger keeps in memory, keeping memory O(1) in chain length.
type Head struct {
	Number    uint64 `json:"number"`
	Hash      string `json:"hash"`
	TimeStamp uint64 `json:"timestamp"`
}

// HeadOf returns the head summary for a sealed block.
func HeadOf(b Block) Head {
	return Head{
		Number:    b.Header.Number,
		Hash:      b.Hash(),
		TimeStamp: b.Header.TimeStamp,
	}
}

// =============================================================================

// Genesis mines the first block of a new chain with a single synthetic
// transaction. This is the one place where proof-of-work runs synchronously
// on the caller, an accepted one-time cost at process bootstrap.
func Genesis(ctx context.Context, ledgerName string, difficulty uint) (Block, error) {
	tx, err := NewTx("genesis", "ledger", ledgerName, nil, "")
	if err != nil {
		return Block{}, err
	}

	b, err := NewBlock(0, ZeroHash, time.Now(), []Tx{tx}, difficulty)
	if err != nil {
		return Block{}, err
	}

	if err := b.Mine(ctx); err != nil {
		return Block{}, err
	}

	return b, nil
}

// =============================================================================

// BlockData is the serialized form of a block, carrying the block hash so a
// reader can verify the content was not altered in flight or at rest.
type BlockData struct {
	Hash   string      `json:"hash"`
	Header BlockHeader `json:"block"`
	Trans  []Tx        `json:"trans"`
}

// NewBlockData constructs the value to serialize from a sealed block.
func NewBlockData(block Block) BlockData {
	return BlockData{
		Hash:   block.Hash(),
		Header: block.Header,
		Trans:  block.Trans,
	}
}

// ToBlock converts serialized block data back into a block, re-verifying the
// hash it carries.
func ToBlock(data BlockData) (Block, error) {
	b := Block{
		Header: data.Header,
		Trans:  data.Trans,
	}

	if err := b.VerifyHash(data.Hash); err != nil {
		return Block{}, err
	}

	return b, nil
}
