// Package postgres stores the ledger in PostgreSQL through database/sql and
// the pgx driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"billbook/internal/ledger"
	"billbook/internal/logger"
	"billbook/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS bills (
	seq           BIGSERIAL   NOT NULL UNIQUE,
	id            TEXT        PRIMARY KEY,
	customer_name TEXT        NOT NULL,
	total_amount  NUMERIC     NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	qr_code_path  TEXT        NOT NULL
);
CREATE TABLE IF NOT EXISTS bill_items (
	bill_id    TEXT    NOT NULL REFERENCES bills(id),
	position   INTEGER NOT NULL,
	name       TEXT    NOT NULL,
	unit_price NUMERIC NOT NULL,
	quantity   BIGINT  NOT NULL,
	PRIMARY KEY (bill_id, position)
);`

// Store is a ledger.Store backed by two tables: bills and bill_items.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open connects to dsn with the pgx driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return New(db), nil
}

// New wraps an existing database handle.
func New(db *sql.DB) *Store {
	return &Store{
		db:  db,
		log: logger.WithComponent("postgres"),
	}
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the ledger tables when they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Load returns every bill ordered by admission.
func (s *Store) Load(ctx context.Context) ([]models.Bill, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("postgres store: nil db")
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, customer_name, total_amount::text, created_at, qr_code_path
FROM bills
ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query bills: %w", err)
	}
	defer rows.Close()

	var bills []models.Bill
	index := make(map[string]int)
	for rows.Next() {
		var (
			bill  models.Bill
			total string
		)
		if err := rows.Scan(&bill.ID, &bill.CustomerName, &total, &bill.CreatedAt, &bill.CodeArtifactRef); err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		if bill.TotalAmount, err = decimal.NewFromString(total); err != nil {
			return nil, ledger.Corrupt("bill %q: total_amount %q: %v", bill.ID, total, err)
		}
		bill.CreatedAt = bill.CreatedAt.UTC()
		index[bill.ID] = len(bills)
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bills: %w", err)
	}

	if err := s.loadItems(ctx, bills, index); err != nil {
		return nil, err
	}

	s.log.Debug().Int("bills", len(bills)).Msg("Bills loaded from postgres")
	return bills, nil
}

func (s *Store) loadItems(ctx context.Context, bills []models.Bill, index map[string]int) error {
	rows, err := s.db.QueryContext(ctx, `
SELECT bill_id, name, unit_price::text, quantity
FROM bill_items
ORDER BY bill_id, position`)
	if err != nil {
		return fmt.Errorf("query bill items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			billID, price string
			item          models.Item
		)
		if err := rows.Scan(&billID, &item.Name, &price, &item.Quantity); err != nil {
			return fmt.Errorf("scan bill item: %w", err)
		}
		i, ok := index[billID]
		if !ok {
			return ledger.Corrupt("item references unknown bill %q", billID)
		}
		if item.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return ledger.Corrupt("bill %q: unit_price %q: %v", billID, price, err)
		}
		bills[i].Items = append(bills[i].Items, item)
	}
	return rows.Err()
}

// Save inserts the bills that are not stored yet. Bills are immutable, so
// rows that already exist are left as they are.
func (s *Store) Save(ctx context.Context, bills []models.Bill) error {
	if s == nil || s.db == nil {
		return errors.New("postgres store: nil db")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	inserted := 0
	for _, bill := range bills {
		res, err := tx.ExecContext(ctx, `
INSERT INTO bills (id, customer_name, total_amount, created_at, qr_code_path)
VALUES ($1, $2, $3::numeric, $4, $5)
ON CONFLICT (id) DO NOTHING`,
			bill.ID, bill.CustomerName, bill.TotalAmount.String(), bill.CreatedAt.UTC(), bill.CodeArtifactRef)
		if err != nil {
			return fmt.Errorf("insert bill %q: %w", bill.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			continue
		}

		for pos, item := range bill.Items {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO bill_items (bill_id, position, name, unit_price, quantity)
VALUES ($1, $2, $3, $4::numeric, $5)`,
				bill.ID, pos, item.Name, item.UnitPrice.String(), item.Quantity); err != nil {
				return fmt.Errorf("insert item %d of bill %q: %w", pos, bill.ID, err)
			}
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.log.Debug().Int("inserted", inserted).Msg("Bills saved to postgres")
	return nil
}
