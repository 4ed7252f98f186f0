package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/invex-ai/invex/engine/domain"
)

// exportRow mirrors one entry of the warehouse JSON export. Item numbers and
// stock levels appear as either strings or numbers in real exports, so the
// fields stay untyped until normalization.
type exportRow struct {
	ItemNo      any `json:"Item No."`
	Description any `json:"Item Description"`
	InStock     any `json:"In Stock"`
	Group       any `json:"Item Group"`
	UoM         any `json:"Inventory UoM"`
}

// ImportFile bulk-loads a warehouse JSON export into the catalog and returns
// the number of records stored.
func (s *Store) ImportFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("catalog: open import file: %w", err)
	}
	defer f.Close()
	return s.Import(ctx, f)
}

// Import reads a JSON array of export rows and upserts each as a catalog
// record. An empty stock value is normalized to "0".
func (s *Store) Import(ctx context.Context, r io.Reader) (int, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var rows []exportRow
	if err := dec.Decode(&rows); err != nil {
		return 0, fmt.Errorf("catalog: decode import: %w", err)
	}

	imported := 0
	for i, row := range rows {
		item := domain.InventoryItem{
			ItemNo:        asString(row.ItemNo),
			Description:   asString(row.Description),
			InStock:       asString(row.InStock),
			Group:         asString(row.Group),
			UnitOfMeasure: asString(row.UoM),
		}
		if item.InStock == "" {
			item.InStock = "0"
		}
		if err := s.Put(ctx, item); err != nil {
			return imported, fmt.Errorf("catalog: import row %d: %w", i, err)
		}
		imported++
	}
	return imported, nil
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
