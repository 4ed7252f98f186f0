// Package catalog is the inventory record store backing the vector index.
// It owns all SQLite operations: CRUD, full snapshots for index sync, and
// the warehouse-specific queries (by group, low stock, stock adjustment).
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"

	"github.com/invex-ai/invex/engine/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS inventory (
	item_no     TEXT PRIMARY KEY,
	description TEXT NOT NULL,
	in_stock    TEXT NOT NULL DEFAULT '',
	item_group  TEXT NOT NULL DEFAULT '',
	uom         TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_inventory_group ON inventory(item_group);
`

// Store is a SQLite-backed inventory catalog.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the catalog database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("catalog: sqlite path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("catalog: create dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Put inserts or replaces a catalog record keyed by item number.
func (s *Store) Put(ctx context.Context, item domain.InventoryItem) error {
	if err := domain.ValidateItem(item); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory(item_no, description, in_stock, item_group, uom)
		VALUES(?,?,?,?,?)
		ON CONFLICT(item_no) DO UPDATE SET
			description = excluded.description,
			in_stock    = excluded.in_stock,
			item_group  = excluded.item_group,
			uom         = excluded.uom`,
		item.ItemNo, item.Description, item.InStock, item.Group, item.UnitOfMeasure)
	if err != nil {
		return fmt.Errorf("catalog: put %s: %w", item.ItemNo, err)
	}
	return nil
}

// Get returns the record for one item number.
func (s *Store) Get(ctx context.Context, itemNo string) (domain.InventoryItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT item_no, description, in_stock, item_group, uom FROM inventory WHERE item_no = ?`, itemNo)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.InventoryItem{}, domain.ErrItemNotFound
	}
	if err != nil {
		return domain.InventoryItem{}, fmt.Errorf("catalog: get %s: %w", itemNo, err)
	}
	return item, nil
}

// Delete removes a record. Missing items report domain.ErrItemNotFound.
func (s *Store) Delete(ctx context.Context, itemNo string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM inventory WHERE item_no = ?`, itemNo)
	if err != nil {
		return fmt.Errorf("catalog: delete %s: %w", itemNo, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("catalog: delete %s: %w", itemNo, err)
	}
	if n == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

// FetchAll returns the full catalog snapshot in item-number order. The index
// synchronizer works from this snapshot.
func (s *Store) FetchAll(ctx context.Context) ([]domain.InventoryItem, error) {
	return s.queryItems(ctx,
		`SELECT item_no, description, in_stock, item_group, uom FROM inventory ORDER BY item_no`)
}

// ByGroup returns all records in one item group.
func (s *Store) ByGroup(ctx context.Context, group string) ([]domain.InventoryItem, error) {
	return s.queryItems(ctx,
		`SELECT item_no, description, in_stock, item_group, uom FROM inventory WHERE item_group = ? ORDER BY item_no`, group)
}

// LowStock returns records whose numeric stock level is below threshold.
// Records with a non-numeric stock value are skipped.
func (s *Store) LowStock(ctx context.Context, threshold int) ([]domain.InventoryItem, error) {
	items, err := s.queryItems(ctx,
		`SELECT item_no, description, in_stock, item_group, uom FROM inventory ORDER BY item_no`)
	if err != nil {
		return nil, err
	}
	var out []domain.InventoryItem
	for _, item := range items {
		n, err := strconv.Atoi(item.InStock)
		if err != nil {
			continue
		}
		if n < threshold {
			out = append(out, item)
		}
	}
	return out, nil
}

// AdjustStock applies a signed quantity change to an item's stock level.
// Going below zero reports domain.ErrInsufficientStock.
func (s *Store) AdjustStock(ctx context.Context, itemNo string, delta int) (domain.InventoryItem, error) {
	item, err := s.Get(ctx, itemNo)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	current, err := strconv.Atoi(item.InStock)
	if err != nil {
		return domain.InventoryItem{}, fmt.Errorf("catalog: stock for %s is not numeric (%q)", itemNo, item.InStock)
	}
	next := current + delta
	if next < 0 {
		return domain.InventoryItem{}, domain.ErrInsufficientStock
	}
	item.InStock = strconv.Itoa(next)
	if err := s.Put(ctx, item); err != nil {
		return domain.InventoryItem{}, err
	}
	return item, nil
}

// Count returns the number of catalog records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM inventory`).Scan(&n); err != nil {
		return 0, fmt.Errorf("catalog: count: %w", err)
	}
	return n, nil
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]domain.InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: query: %w", err)
	}
	defer rows.Close()

	var items []domain.InventoryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: rows: %w", err)
	}
	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(r rowScanner) (domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := r.Scan(&item.ItemNo, &item.Description, &item.InStock, &item.Group, &item.UnitOfMeasure)
	return item, err
}
