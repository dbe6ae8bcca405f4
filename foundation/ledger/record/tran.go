package record

import (
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
)

// Tx is the immutable leaf record of one domain event. Once constructed a
// transaction is only ever read, never edited or deleted.
type Tx struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	TimeStamp  uint64          `json:"timestamp"`
	Creator    string          `json:"creator,omitempty"`
	TxHash     string          `json:"hash"`
}

// NewTx constructs a new transaction, assigning its identity, creation
// timestamp and content hash.
func NewTx(txType string, entityType string, entityID string, payload json.RawMessage, creator string) (Tx, error) {
	if txType == "" || entityType == "" || entityID == "" {
		return Tx{}, NewValidationError("type, entity type and entity id are required")
	}

	tx := Tx{
		ID:         uuid.NewString(),
		Type:       txType,
		EntityType: entityType,
		EntityID:   entityID,
		Payload:    payload,
		TimeStamp:  uint64(time.Now().UTC().Unix()),
		Creator:    creator,
	}
	tx.TxHash = Hash(tx.content())

	return tx, nil
}

// Validate checks the transaction content still matches its hash and the
// record is well formed. Post-dated transactions are rejected.
func (tx Tx) Validate(now time.Time) error {
	if tx.Type == "" || tx.EntityType == "" || tx.EntityID == "" {
		return NewValidationError("type, entity type and entity id are required")
	}

	if tx.TimeStamp == 0 {
		return NewValidationError("transaction is missing a timestamp")
	}

	if tx.TimeStamp > uint64(now.UTC().Unix()) {
		return NewValidationError("transaction timestamp %d is in the future", tx.TimeStamp)
	}

	if hash := Hash(tx.content()); hash != tx.TxHash {
		return NewValidationError("transaction hash does not match content, got %s, exp %s", tx.TxHash, hash)
	}

	return nil
}

// Hash implements the merkle Hashable interface, providing the raw bytes of
// the transaction content hash.
func (tx Tx) Hash() ([]byte, error) {
	return hexutil.Decode(tx.TxHash)
}

// Size reports the serialized size of the transaction in bytes. It backs the
// resource-exhaustion guards on transactions and blocks.
func (tx Tx) Size() int {
	data, err := json.Marshal(tx)
	if err != nil {
		return 0
	}

	return len(data)
}

// Verify recomputes the content hash and compares it with the hash the
// transaction carries. Used on every load from an external source.
func (tx Tx) Verify() error {
	if hash := Hash(tx.content()); hash != tx.TxHash {
		return &IntegrityError{
			Resource: "transaction",
			ID:       tx.ID,
			Reason:   "content hash does not match the hash carried by the record",
		}
	}

	return nil
}

// UnmarshalJSON implements the json Unmarshaler interface and re-verifies the
// content hash. An externally supplied hash is never trusted.
func (tx *Tx) UnmarshalJSON(data []byte) error {
	type alias Tx
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	decoded := Tx(a)
	if err := decoded.Verify(); err != nil {
		return err
	}

	*tx = decoded

	return nil
}

// =============================================================================

// content returns the hashable view of the transaction, which is every field
// except the hash itself.
func (tx Tx) content() any {
	return struct {
		ID         string          `json:"id"`
		Type       string          `json:"type"`
		EntityType string          `json:"entity_type"`
		EntityID   string          `json:"entity_id"`
		Payload    json.RawMessage `json:"payload,omitempty"`
		TimeStamp  uint64          `json:"timestamp"`
		Creator    string          `json:"creator,omitempty"`
	}{
		ID:         tx.ID,
		Type:       tx.Type,
		EntityType: tx.EntityType,
		EntityID:   tx.EntityID,
		Payload:    tx.Payload,
		TimeStamp:  tx.TimeStamp,
		Creator:    tx.Creator,
	}
}
