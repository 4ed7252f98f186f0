package indexer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/invex-ai/invex/engine/domain"
	"github.com/invex-ai/invex/engine/semantic"
	"github.com/invex-ai/invex/pkg/fn"
)

// --- mocks ---

type mockCatalog struct {
	items []domain.InventoryItem
	err   error
}

func (m *mockCatalog) FetchAll(context.Context) ([]domain.InventoryItem, error) {
	return m.items, m.err
}

// mockEmbedder fails for item texts listed in failFor and otherwise returns
// a vector encoding the text, so tests can verify item-to-vector pairing.
type mockEmbedder struct {
	mu      sync.Mutex
	calls   int
	failFor map[string]bool
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.failFor[text] {
		return nil, errors.New("quota exceeded")
	}
	return []float32{float32(len(text))}, nil
}

type mockUpserter struct {
	mu       sync.Mutex
	attempts int
	failAll  bool
	batches  [][]semantic.ItemVector
}

func (m *mockUpserter) Upsert(_ context.Context, records []semantic.ItemVector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	if m.failAll {
		return errors.New("index unavailable")
	}
	batch := make([]semantic.ItemVector, len(records))
	copy(batch, records)
	m.batches = append(m.batches, batch)
	return nil
}

func catalogOf(n int) []domain.InventoryItem {
	items := make([]domain.InventoryItem, n)
	for i := range items {
		items[i] = domain.InventoryItem{
			ItemNo:        strconv.Itoa(1000 + i),
			Description:   fmt.Sprintf("steel plate %d", i),
			InStock:       "5",
			Group:         "Plates",
			UnitOfMeasure: "Ea",
		}
	}
	return items
}

func zeroDelayOpts() Options {
	return Options{
		BatchSize:    50,
		EmbedWorkers: 4,
		Retry:        fn.RetryOpts{MaxAttempts: 3},
	}
}

// --- tests ---

func TestRun_FullSync(t *testing.T) {
	up := &mockUpserter{}
	svc := New(&mockCatalog{items: catalogOf(120)}, &mockEmbedder{}, up, zeroDelayOpts(), nil)

	sum, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sum.Success {
		t.Error("expected success")
	}
	if sum.Upserted != 120 || sum.Total != 120 {
		t.Errorf("expected 120/120, got %d/%d", sum.Upserted, sum.Total)
	}
	// 120 items at batch size 50 → 3 sequential batches.
	if len(up.batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(up.batches))
	}
	if len(up.batches[0]) != 50 || len(up.batches[2]) != 20 {
		t.Errorf("unexpected batch sizes: %d, %d, %d",
			len(up.batches[0]), len(up.batches[1]), len(up.batches[2]))
	}
}

func TestRun_BatchIsolation(t *testing.T) {
	items := catalogOf(50)
	emb := &mockEmbedder{failFor: map[string]bool{items[7].EmbedText(): true}}
	up := &mockUpserter{}
	svc := New(&mockCatalog{items: items}, emb, up, zeroDelayOpts(), nil)

	sum, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Upserted != 49 {
		t.Errorf("expected 49 upserted, got %d", sum.Upserted)
	}
	if sum.Dropped != 1 {
		t.Errorf("expected 1 dropped, got %d", sum.Dropped)
	}
	if !sum.Success {
		t.Error("a dropped item must not fail the run")
	}
	for _, rec := range up.batches[0] {
		if rec.Item.ItemNo == items[7].ItemNo {
			t.Error("failed item leaked into upsert batch")
		}
	}
}

func TestRun_RetryBoundAndContinue(t *testing.T) {
	up := &mockUpserter{failAll: true}
	svc := New(&mockCatalog{items: catalogOf(100)}, &mockEmbedder{}, up, zeroDelayOpts(), nil)

	sum, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 2 batches, exactly 3 attempts each before abandoning.
	if up.attempts != 6 {
		t.Errorf("expected 6 upsert attempts, got %d", up.attempts)
	}
	if sum.FailedBatches != 2 {
		t.Errorf("expected 2 failed batches, got %d", sum.FailedBatches)
	}
	if sum.Upserted != 0 {
		t.Errorf("expected 0 upserted, got %d", sum.Upserted)
	}
	if !sum.Success {
		t.Error("batch exhaustion must not fail the whole run")
	}
}

func TestRun_CatalogFailureIsFatal(t *testing.T) {
	svc := New(&mockCatalog{err: errors.New("db unreachable")}, &mockEmbedder{}, &mockUpserter{}, zeroDelayOpts(), nil)

	sum, err := svc.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if sum.Success {
		t.Error("expected Success=false on structural failure")
	}
}

func TestRun_MissingDependencies(t *testing.T) {
	svc := &Service{}
	if _, err := svc.Run(context.Background()); err == nil {
		t.Fatal("expected error for unconfigured service")
	}
}

func TestRun_ItemVectorPairing(t *testing.T) {
	items := catalogOf(50)
	up := &mockUpserter{}
	svc := New(&mockCatalog{items: items}, &mockEmbedder{}, up, zeroDelayOpts(), nil)

	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	// The mock embedder encodes text length into the vector; every record
	// must carry the vector of its own item even though embedding ran
	// concurrently.
	for _, rec := range up.batches[0] {
		want := float32(len(rec.Item.EmbedText()))
		if rec.Embedding[0] != want {
			t.Fatalf("item %s paired with wrong vector: got %v, want %v",
				rec.Item.ItemNo, rec.Embedding[0], want)
		}
	}
}

func TestPointID_Deterministic(t *testing.T) {
	a := PointID("A1")
	b := PointID("A1")
	if a != b {
		t.Errorf("expected stable point ID, got %s and %s", a, b)
	}
	if PointID("A2") == a {
		t.Error("distinct items must map to distinct point IDs")
	}
}

func TestRun_EmptyCatalog(t *testing.T) {
	up := &mockUpserter{}
	svc := New(&mockCatalog{}, &mockEmbedder{}, up, zeroDelayOpts(), nil)

	sum, err := svc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !sum.Success || sum.Total != 0 || sum.Upserted != 0 {
		t.Errorf("unexpected summary: %+v", sum)
	}
	if up.attempts != 0 {
		t.Errorf("expected no upserts, got %d", up.attempts)
	}
}
