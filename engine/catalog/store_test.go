package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/invex-ai/invex/engine/domain"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func plate(no, desc, stock, group string) domain.InventoryItem {
	return domain.InventoryItem{
		ItemNo:        no,
		Description:   desc,
		InStock:       stock,
		Group:         group,
		UnitOfMeasure: "Ea",
	}
}

func TestPutGet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	item := plate("A1", "10mm steel plate", "12", "Plates")
	if err := s.Put(ctx, item); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.Get(ctx, "A1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != item {
		t.Errorf("got %+v, want %+v", got, item)
	}
}

func TestPut_Replaces(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, plate("A1", "10mm steel plate", "12", "Plates")); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, plate("A1", "10mm steel plate", "7", "Plates")); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, "A1")
	if err != nil {
		t.Fatal(err)
	}
	if got.InStock != "7" {
		t.Errorf("expected replaced stock 7, got %s", got.InStock)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 record, got %d", n)
	}
}

func TestPut_Invalid(t *testing.T) {
	s := testStore(t)
	err := s.Put(context.Background(), domain.InventoryItem{Description: "no item no"})
	if !errors.Is(err, domain.ErrMissingItemNo) {
		t.Errorf("expected ErrMissingItemNo, got %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	s := testStore(t)
	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, domain.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, plate("A1", "plate", "1", "Plates")); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "A1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "A1"); !errors.Is(err, domain.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}

func TestFetchAll_Ordered(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, item := range []domain.InventoryItem{
		plate("B2", "8mm steel plate", "3", "Plates"),
		plate("A1", "10mm steel plate", "12", "Plates"),
		plate("C3", "steel angle 50x50", "", "Angles"),
	} {
		if err := s.Put(ctx, item); err != nil {
			t.Fatal(err)
		}
	}

	items, err := s.FetchAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].ItemNo != "A1" || items[1].ItemNo != "B2" || items[2].ItemNo != "C3" {
		t.Errorf("unexpected order: %+v", items)
	}
}

func TestByGroup(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.Put(ctx, plate("A1", "10mm steel plate", "12", "Plates"))
	s.Put(ctx, plate("C3", "steel angle 50x50", "4", "Angles"))

	items, err := s.ByGroup(ctx, "Plates")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ItemNo != "A1" {
		t.Errorf("unexpected group result: %+v", items)
	}
}

func TestLowStock(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.Put(ctx, plate("A1", "plate", "12", "Plates"))
	s.Put(ctx, plate("B2", "plate", "2", "Plates"))
	s.Put(ctx, plate("C3", "angle", "", "Angles")) // non-numeric, skipped

	items, err := s.LowStock(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ItemNo != "B2" {
		t.Errorf("unexpected low stock result: %+v", items)
	}
}

func TestAdjustStock(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.Put(ctx, plate("A1", "plate", "10", "Plates"))

	item, err := s.AdjustStock(ctx, "A1", -4)
	if err != nil {
		t.Fatal(err)
	}
	if item.InStock != "6" {
		t.Errorf("expected stock 6, got %s", item.InStock)
	}

	if _, err := s.AdjustStock(ctx, "A1", -100); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Errorf("expected ErrInsufficientStock, got %v", err)
	}
	if _, err := s.AdjustStock(ctx, "missing", 1); !errors.Is(err, domain.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}
