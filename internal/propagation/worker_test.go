package propagation

import (
	"context"
	"testing"

	"github.com/AshleyKelly/EphemGeolocTracker/internal/tle"
)

func TestWorkerPoolBatch(t *testing.T) {
	pool := NewWorkerPool(4, testLogger())

	broken := tle.TLEEntry{NORADID: 11111, Name: "BROKEN", Line1: "1 11111U", Line2: "2 11111"}
	entries := []tle.TLEEntry{issEntry, broken, hstEntry, noaaEntry}

	vectors, successCount, errorCount := pool.ResolveBatch(context.Background(), entries, huntsville, testTime)
	if successCount != 3 || errorCount != 1 {
		t.Fatalf("success=%d errors=%d, want 3 and 1", successCount, errorCount)
	}

	want := []int{25544, 20580, 33591}
	if len(vectors) != len(want) {
		t.Fatalf("got %d vectors, want %d", len(vectors), len(want))
	}
	for i, id := range want {
		if vectors[i].NORADID != id {
			t.Errorf("vectors[%d].NORADID = %d, want %d", i, vectors[i].NORADID, id)
		}
		single, err := Resolve(entries[indexOf(entries, id)], huntsville, testTime)
		if err != nil {
			t.Fatal(err)
		}
		if vectors[i] != single {
			t.Errorf("NORAD %d: batch result differs from Resolve", id)
		}
	}
}

func indexOf(entries []tle.TLEEntry, id int) int {
	for i, e := range entries {
		if e.NORADID == id {
			return i
		}
	}
	return -1
}

func TestWorkerPoolEmpty(t *testing.T) {
	vectors, s, e := NewWorkerPool(2, testLogger()).ResolveBatch(context.Background(), nil, huntsville, testTime)
	if vectors != nil || s != 0 || e != 0 {
		t.Errorf("empty batch = (%v, %d, %d), want (nil, 0, 0)", vectors, s, e)
	}
}

func TestWorkerPoolMinimumSize(t *testing.T) {
	pool := NewWorkerPool(0, testLogger())
	if pool.workers != 1 {
		t.Fatalf("workers = %d, want 1", pool.workers)
	}
	_, s, _ := pool.ResolveBatch(context.Background(), []tle.TLEEntry{issEntry}, huntsville, testTime)
	if s != 1 {
		t.Errorf("success = %d, want 1", s)
	}
}

func TestWorkerPoolCancellation(t *testing.T) {
	pool := NewWorkerPool(2, testLogger())

	// Many entries so some are still pending when the context is seen.
	entries := make([]tle.TLEEntry, 100)
	for i := range entries {
		entries[i] = issEntry
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	vectors, s, e := pool.ResolveBatch(ctx, entries, huntsville, testTime)
	if len(vectors) >= len(entries) {
		t.Errorf("expected fewer results with cancelled context, got %d/%d", len(vectors), len(entries))
	}
	if s+e > len(entries) {
		t.Errorf("counted %d results for %d entries", s+e, len(entries))
	}
}

func BenchmarkResolveAll1000(b *testing.B) {
	entries := make([]tle.TLEEntry, 1000)
	for i := range entries {
		entries[i] = issEntry
	}

	store := tle.NewStore()
	store.Set(tle.NewDataset("bench", testTime, entries))
	r := NewResolver(store, ResolverConfig{Workers: 4}, testLogger())
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.ResolveAll(ctx, huntsville, testTime); err != nil {
			b.Fatal(err)
		}
	}
}
