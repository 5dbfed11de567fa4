package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/advenue/screen-server/internal/database"
)

// PostgresStore keeps records in the kv_records table.
type PostgresStore struct {
	db database.DBTX
}

func NewPostgresStore(db database.DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	var value []byte
	err := s.db.GetContext(ctx, &value, `
		SELECT value FROM kv_records
		WHERE namespace = $1 AND key = $2
	`, namespace, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *PostgresStore) Put(ctx context.Context, namespace, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_records (namespace, key, value, updated_at)
		VALUES ($1, $2, $3::jsonb, NOW())
		ON CONFLICT (namespace, key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`, namespace, key, string(value))
	return err
}

func (s *PostgresStore) Delete(ctx context.Context, namespace, key string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM kv_records WHERE namespace = $1 AND key = $2
	`, namespace, key)
	return err
}

type kvRow struct {
	Key   string `db:"key"`
	Value []byte `db:"value"`
}

func (s *PostgresStore) List(ctx context.Context, namespace string) (map[string][]byte, error) {
	var rows []kvRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT key, value FROM kv_records WHERE namespace = $1
	`, namespace); err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}
