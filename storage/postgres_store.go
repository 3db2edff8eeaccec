package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"immo-scraper/models"
	"immo-scraper/utils"
)

const insertBatchSize = 50

// PostgresStore persists rows to PostgreSQL. Each row is kept whole as a
// JSONB document next to its id; seq keeps the insertion order.
type PostgresStore struct {
	db *sqlx.DB
}

type storedRow struct {
	ID   string `db:"id"`
	Data []byte `db:"data"`
}

// NewPostgresStore opens a connection, waits for the server to answer and
// runs the schema migration.
func NewPostgresStore(ctx context.Context, dsn string, retry *utils.RetryConfig) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := retry.Do(ctx, "postgres-ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return ps, nil
}

func (ps *PostgresStore) migrate(ctx context.Context) error {
	_, err := ps.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS listing_rows (
			seq        BIGSERIAL,
			id         TEXT        PRIMARY KEY,
			data       JSONB       NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_listing_rows_seq ON listing_rows(seq);
	`)
	return err
}

func (ps *PostgresStore) ReadRows(ctx context.Context) ([]models.Row, error) {
	var stored []storedRow
	if err := ps.db.SelectContext(ctx, &stored, `SELECT id, data FROM listing_rows ORDER BY seq`); err != nil {
		return nil, fmt.Errorf("postgres: read rows: %w", err)
	}

	rows := make([]models.Row, 0, len(stored))
	for _, s := range stored {
		var r models.Row
		if err := json.Unmarshal(s.Data, &r); err != nil {
			return nil, fmt.Errorf("postgres: decode row %q: %w", s.ID, err)
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// WriteRows clears the table and inserts rows in one transaction.
func (ps *PostgresStore) WriteRows(ctx context.Context, rows []models.Row) error {
	tx, err := ps.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM listing_rows`); err != nil {
		return fmt.Errorf("postgres: clear: %w", err)
	}
	if err := insertRows(ctx, tx, rows); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// AppendRows inserts rows; ids already stored are left untouched.
func (ps *PostgresStore) AppendRows(ctx context.Context, rows []models.Row) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := ps.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertRows(ctx, tx, rows); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

func insertRows(ctx context.Context, tx *sqlx.Tx, rows []models.Row) error {
	for i := 0; i < len(rows); i += insertBatchSize {
		end := i + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		query, args, err := buildInsert(rows[i:end])
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("postgres: insert batch: %w", err)
		}
	}
	return nil
}

// buildInsert renders one multi-row INSERT for a batch of rows.
func buildInsert(batch []models.Row) (string, []interface{}, error) {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*2)

	for idx, r := range batch {
		data, err := json.Marshal(r)
		if err != nil {
			return "", nil, fmt.Errorf("postgres: encode row %q: %w", r["id"], err)
		}
		base := idx * 2
		valueStrings = append(valueStrings, fmt.Sprintf("($%d,$%d::jsonb)", base+1, base+2))
		valueArgs = append(valueArgs, r["id"], string(data))
	}

	query := fmt.Sprintf(`
		INSERT INTO listing_rows (id, data)
		VALUES %s
		ON CONFLICT (id) DO NOTHING
	`, strings.Join(valueStrings, ","))
	return query, valueArgs, nil
}
