package store

import (
	"database/sql"
	"encoding/json"

	"github.com/rsl37/GLX-Systems-Network-sub008/foundation/ledger/record"
)

// dbBlock represents a row in the blocks table.
type dbBlock struct {
	Number       uint64 `db:"number"`
	PreviousHash string `db:"previous_hash"`
	Hash         string `db:"hash"`
	TimeStamp    uint64 `db:"timestamp"`
	Nonce        uint64 `db:"nonce"`
	Difficulty   uint   `db:"difficulty"`
	MerkleRoot   string `db:"merkle_root"`
	TxCount      int    `db:"tx_count"`
}

// dbTran represents a row in the transactions table. The position column
// preserves the FIFO sealing order within the block.
type dbTran struct {
	ID          string         `db:"id"`
	BlockNumber uint64         `db:"block_number"`
	Position    int            `db:"position"`
	Hash        string         `db:"hash"`
	TxType      string         `db:"tx_type"`
	EntityType  string         `db:"entity_type"`
	EntityID    string         `db:"entity_id"`
	Payload     []byte         `db:"payload"`
	TimeStamp   uint64         `db:"timestamp"`
	Creator     sql.NullString `db:"creator"`
}

// =============================================================================

func toDBBlock(block record.Block) dbBlock {
	return dbBlock{
		Number:       block.Header.Number,
		PreviousHash: block.Header.PrevBlockHash,
		Hash:         block.Hash(),
		TimeStamp:    block.Header.TimeStamp,
		Nonce:        block.Header.Nonce,
		Difficulty:   block.Header.Difficulty,
		MerkleRoot:   block.Header.MerkleRoot,
		TxCount:      len(block.Trans),
	}
}

func toDBTran(blockNumber uint64, position int, tx record.Tx) dbTran {
	creator := sql.NullString{}
	if tx.Creator != "" {
		creator = sql.NullString{String: tx.Creator, Valid: true}
	}

	return dbTran{
		ID:          tx.ID,
		BlockNumber: blockNumber,
		Position:    position,
		Hash:        tx.TxHash,
		TxType:      tx.Type,
		EntityType:  tx.EntityType,
		EntityID:    tx.EntityID,
		Payload:     tx.Payload,
		TimeStamp:   tx.TimeStamp,
		Creator:     creator,
	}
}

// toRecordTran converts a row back into a transaction, re-verifying the
// content hash the row carries.
func toRecordTran(dbTx dbTran) (record.Tx, error) {
	tx := record.Tx{
		ID:         dbTx.ID,
		Type:       dbTx.TxType,
		EntityType: dbTx.EntityType,
		EntityID:   dbTx.EntityID,
		Payload:    json.RawMessage(dbTx.Payload),
		TimeStamp:  dbTx.TimeStamp,
		Creator:    dbTx.Creator.String,
		TxHash:     dbTx.Hash,
	}

	if err := tx.Verify(); err != nil {
		return record.Tx{}, err
	}

	return tx, nil
}

// toRecordBlock converts a block row and its transaction rows back into a
// block, re-verifying the block hash the row carries.
func toRecordBlock(dbBlk dbBlock, dbTrans []dbTran) (record.Block, error) {
	trans := make([]record.Tx, 0, len(dbTrans))
	for _, dbTx := range dbTrans {
		tx, err := toRecordTran(dbTx)
		if err != nil {
			return record.Block{}, err
		}
		trans = append(trans, tx)
	}

	block := record.Block{
		Header: record.BlockHeader{
			Number:        dbBlk.Number,
			PrevBlockHash: dbBlk.PreviousHash,
			TimeStamp:     dbBlk.TimeStamp,
			MerkleRoot:    dbBlk.MerkleRoot,
			Nonce:         dbBlk.Nonce,
			Difficulty:    dbBlk.Difficulty,
		},
		Trans: trans,
	}

	if err := block.VerifyHash(dbBlk.Hash); err != nil {
		return record.Block{}, err
	}

	return block, nil
}
