package ledgergrp

import (
	"encoding/json"

	"github.com/rsl37/GLX-Systems-Network-sub008/business/sys/validate"
	"github.com/rsl37/GLX-Systems-Network-sub008/foundation/ledger/record"
)

// newTran is what a domain service submits to append an auditable fact.
type newTran struct {
	Type       string          `json:"type" validate:"required"`
	EntityType string          `json:"entity_type" validate:"required"`
	EntityID   string          `json:"entity_id" validate:"required"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Creator    string          `json:"creator,omitempty"`
}

// Validate checks the data in the model is considered clean.
func (nt newTran) Validate() error {
	if err := validate.Check(nt); err != nil {
		return err
	}
	return nil
}

// =============================================================================

// tran represents a sealed or accepted transaction in API responses.
type tran struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	TimeStamp  uint64          `json:"timestamp"`
	Creator    string          `json:"creator,omitempty"`
	Hash       string          `json:"hash"`
}

func toTran(tx record.Tx) tran {
	return tran{
		ID:         tx.ID,
		Type:       tx.Type,
		EntityType: tx.EntityType,
		EntityID:   tx.EntityID,
		Payload:    tx.Payload,
		TimeStamp:  tx.TimeStamp,
		Creator:    tx.Creator,
		Hash:       tx.TxHash,
	}
}

// block represents a sealed block in API responses.
type block struct {
	Number        uint64 `json:"number"`
	PrevBlockHash string `json:"prev_block_hash"`
	Hash          string `json:"hash"`
	TimeStamp     uint64 `json:"timestamp"`
	Nonce         uint64 `json:"nonce"`
	Difficulty    uint   `json:"difficulty"`
	MerkleRoot    string `json:"merkle_root"`
	Transactions  []tran `json:"transactions"`
}

func toBlock(blk record.Block) block {
	trans := make([]tran, len(blk.Trans))
	for i, tx := range blk.Trans {
		trans[i] = toTran(tx)
	}

	return block{
		Number:        blk.Header.Number,
		PrevBlockHash: blk.Header.PrevBlockHash,
		Hash:          blk.Hash(),
		TimeStamp:     blk.Header.TimeStamp,
		Nonce:         blk.Header.Nonce,
		Difficulty:    blk.Header.Difficulty,
		MerkleRoot:    blk.Header.MerkleRoot,
		Transactions:  trans,
	}
}
