package store

import "context"

// schema defines the two related tables of the persisted layout. Transactions
// foreign-key to their containing block. The DDL sticks to the portable
// subset shared by postgres and sqlite so the test suite can run in process.
const schema = `
CREATE TABLE IF NOT EXISTS blocks (
	number        BIGINT PRIMARY KEY,
	previous_hash TEXT   NOT NULL,
	hash          TEXT   NOT NULL UNIQUE,
	timestamp     BIGINT NOT NULL,
	nonce         BIGINT NOT NULL,
	difficulty    INT    NOT NULL,
	merkle_root   TEXT   NOT NULL,
	tx_count      INT    NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	id           TEXT   PRIMARY KEY,
	block_number BIGINT NOT NULL REFERENCES blocks (number),
	position     INT    NOT NULL,
	hash         TEXT   NOT NULL UNIQUE,
	tx_type      TEXT   NOT NULL,
	entity_type  TEXT   NOT NULL,
	entity_id    TEXT   NOT NULL,
	payload      TEXT,
	timestamp    BIGINT NOT NULL,
	creator      TEXT
);

CREATE INDEX IF NOT EXISTS transactions_entity_idx
	ON transactions (entity_type, entity_id, timestamp);
`

// Migrate creates the blocks and transactions tables when they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	return s.execute(func() error {
		_, err := s.db.ExecContext(ctx, schema)
		return err
	})
}
