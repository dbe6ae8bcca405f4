// Package merkle provides merkle root accumulation over the hashes of the
// records sealed inside a block. The root is the tamper-evidence summary for
// the whole batch: changing any record, or the order of records, changes it.
package merkle

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"hash"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Hashable represents the behavior records must exhibit to be
// accumulated into a merkle tree.
type Hashable interface {
	Hash() ([]byte, error)
}

// =============================================================================

// Tree holds the leaf hashes and the accumulated root for a batch of records.
type Tree[T Hashable] struct {
	Leafs        [][]byte
	Root         []byte
	hashStrategy func() hash.Hash
}

// WithHashStrategy changes the default sha256 hash strategy used when
// constructing a new tree.
func WithHashStrategy[T Hashable](hashStrategy func() hash.Hash) func(t *Tree[T]) {
	return func(t *Tree[T]) {
		t.hashStrategy = hashStrategy
	}
}

// NewTree constructs a merkle tree from the specified set of records. An
// empty set is legal and produces the degenerate root, the hash of no input.
func NewTree[T Hashable](records []T, options ...func(t *Tree[T])) (*Tree[T], error) {
	t := Tree[T]{
		hashStrategy: sha256.New,
	}

	for _, option := range options {
		option(&t)
	}

	if err := t.Generate(records); err != nil {
		return nil, err
	}

	return &t, nil
}

// Generate computes the leaf hashes and accumulates the root from scratch.
func (t *Tree[T]) Generate(records []T) error {
	leafs := make([][]byte, 0, len(records))
	for _, record := range records {
		hash, err := record.Hash()
		if err != nil {
			return err
		}
		leafs = append(leafs, hash)
	}

	root, err := t.accumulate(leafs)
	if err != nil {
		return err
	}

	t.Leafs = leafs
	t.Root = root

	return nil
}

// Verify recomputes the root from the current leaf hashes and compares it
// against the accumulated root.
func (t *Tree[T]) Verify() error {
	root, err := t.accumulate(t.Leafs)
	if err != nil {
		return err
	}

	if !bytes.Equal(root, t.Root) {
		return errors.New("merkle root does not match the leaf hashes")
	}

	return nil
}

// Proof returns the sibling hashes and concatenation order needed to prove a
// leaf hash is part of the tree. Order 0 means the proof hash concatenates
// first, order 1 second.
func (t *Tree[T]) Proof(leafHash []byte) ([][]byte, []int, error) {
	index := -1
	for i, leaf := range t.Leafs {
		if bytes.Equal(leaf, leafHash) {
			index = i
			break
		}
	}
	if index == -1 {
		return nil, nil, errors.New("unable to find the hash in the tree")
	}

	var proof [][]byte
	var order []int

	level := t.Leafs
	for len(level) > 1 {
		sibling := index ^ 1
		if sibling >= len(level) {
			sibling = index
		}

		proof = append(proof, level[sibling])
		if sibling < index {
			order = append(order, 0)
		} else {
			order = append(order, 1)
		}

		next, err := t.nextLevel(level)
		if err != nil {
			return nil, nil, err
		}

		level = next
		index /= 2
	}

	return proof, order, nil
}

// RootHex returns the accumulated root as a hex encoded string.
func (t *Tree[T]) RootHex() string {
	return hexutil.Encode(t.Root)
}

// =============================================================================

// accumulate folds a set of leaf hashes level by level into a single root.
func (t *Tree[T]) accumulate(leafs [][]byte) ([]byte, error) {
	if len(leafs) == 0 {
		h := t.hashStrategy()
		return h.Sum(nil), nil
	}

	level := leafs
	for len(level) > 1 {
		next, err := t.nextLevel(level)
		if err != nil {
			return nil, err
		}
		level = next
	}

	return level[0], nil
}

// nextLevel hashes a level pairwise into its parent level. A level with an
// odd number of nodes pairs its last node with itself rather than dropping it.
func (t *Tree[T]) nextLevel(level [][]byte) ([][]byte, error) {
	next := make([][]byte, 0, (len(level)+1)/2)

	for i := 0; i < len(level); i += 2 {
		left, right := level[i], level[i]
		if i+1 < len(level) {
			right = level[i+1]
		}

		h := t.hashStrategy()
		if _, err := h.Write(append(append([]byte{}, left...), right...)); err != nil {
			return nil, err
		}
		next = append(next, h.Sum(nil))
	}

	return next, nil
}
