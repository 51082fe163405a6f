package store

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/umputun/gensvc/pkg/status"
)

// Item is a stock record keyed by SKU. names are unique across items.
type Item struct {
	SKU       string
	Name      string
	Quantity  int
	UpdatedAt time.Time
}

// TableName returns the items table.
func (i *Item) TableName() string { return "items" }

// KeyColumns returns the primary key.
func (i *Item) KeyColumns() []string { return []string{"sku"} }

// Columns lists item columns.
func (i *Item) Columns() []string { return []string{"sku", "name", "quantity", "updated_at"} }

// Values returns column values.
func (i *Item) Values() []any {
	return []any{i.SKU, i.Name, i.Quantity, millis{t: &i.UpdatedAt}}
}

// ScanTargets returns pointers for loading a row.
func (i *Item) ScanTargets() []any {
	return []any{&i.SKU, &i.Name, &i.Quantity, millis{t: &i.UpdatedAt}}
}

// Validate checks required fields and the quantity range.
func (i *Item) Validate() []status.ErrorEntry {
	var res []status.ErrorEntry
	if strings.TrimSpace(i.SKU) == "" {
		res = append(res, status.NewEntry([]string{"sku"}, "sku is required"))
	}
	if strings.TrimSpace(i.Name) == "" {
		res = append(res, status.NewEntry([]string{"name"}, "name of item %q is required", i.SKU))
	}
	if i.Quantity < 0 {
		res = append(res, status.NewEntry([]string{"quantity"}, "quantity of item %q must not be negative", i.SKU))
	}
	return res
}

// Items returns all items ordered by SKU.
func (s *Store) Items(ctx context.Context) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT sku, name, quantity, updated_at FROM items ORDER BY sku`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var res []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(it.ScanTargets()...); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		res = append(res, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return res, nil
}

// millis stores a time as unix milliseconds.
type millis struct {
	t *time.Time
}

// Value implements driver.Valuer.
func (m millis) Value() (driver.Value, error) {
	return toMillis(*m.t), nil
}

// Scan implements sql.Scanner.
func (m millis) Scan(src any) error {
	v, ok := src.(int64)
	if !ok {
		return fmt.Errorf("scan millis: unexpected %T", src)
	}
	*m.t = fromMillis(v)
	return nil
}
