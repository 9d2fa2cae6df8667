package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func sampleRecords(base time.Time) []Record {
	return []Record{
		{
			Timestamp:  base,
			CargoID:    "c1",
			AuthorID:   "shipper-1",
			Candidates: []string{"d1", "d2"},
			Scores:     map[string]float64{"d1": 82, "d2": 61},
			Outcome:    "offers_extended",
		},
		{
			Timestamp:      base.Add(time.Minute),
			CargoID:        "c1",
			AuthorID:       "shipper-1",
			AcceptedDriver: "d1",
			Outcome:        "accepted",
		},
		{
			Timestamp:  base.Add(2 * time.Minute),
			CargoID:    "c2",
			AuthorID:   "disp-1",
			Candidates: []string{"d3"},
			Outcome:    "offers_extended",
		},
	}
}

func runStoreTests(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	for _, rec := range sampleRecords(base) {
		if err := s.Append(ctx, rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	all, err := s.Query(ctx, Query{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("all records = %d, want 3", len(all))
	}

	byCargo, err := s.Query(ctx, Query{CargoID: "c1"})
	if err != nil {
		t.Fatalf("Query by cargo: %v", err)
	}
	if len(byCargo) != 2 {
		t.Errorf("records for c1 = %d, want 2", len(byCargo))
	}

	byDriver, err := s.Query(ctx, Query{DriverID: "d2"})
	if err != nil {
		t.Fatalf("Query by driver: %v", err)
	}
	if len(byDriver) != 1 || byDriver[0].CargoID != "c1" {
		t.Errorf("records naming d2 = %+v, want the c1 offer round", byDriver)
	}

	windowed, err := s.Query(ctx, Query{Start: base.Add(30 * time.Second), End: base.Add(90 * time.Second)})
	if err != nil {
		t.Fatalf("Query windowed: %v", err)
	}
	if len(windowed) != 1 || windowed[0].Outcome != "accepted" {
		t.Errorf("windowed = %+v, want only the acceptance", windowed)
	}
}

func TestJSONLStore(t *testing.T) {
	s, err := NewJSONLStore(filepath.Join(t.TempDir(), "history.log"))
	if err != nil {
		t.Fatalf("NewJSONLStore: %v", err)
	}
	defer func() { _ = s.Close() }()
	runStoreTests(t, s)
}

func TestRotatingJSONLStore(t *testing.T) {
	s, err := NewRotatingJSONLStore(filepath.Join(t.TempDir(), "history.log"), 1, 2, 1)
	if err != nil {
		t.Fatalf("NewRotatingJSONLStore: %v", err)
	}
	defer func() { _ = s.Close() }()
	runStoreTests(t, s)
}

func TestRecordScoresSurviveRoundTrip(t *testing.T) {
	s, err := NewJSONLStore(filepath.Join(t.TempDir(), "history.log"))
	if err != nil {
		t.Fatalf("NewJSONLStore: %v", err)
	}
	defer func() { _ = s.Close() }()
	ctx := context.Background()
	if err := s.Append(ctx, Record{
		Timestamp: time.Now().UTC(),
		CargoID:   "c9",
		Scores:    map[string]float64{"d1": 73.5},
		Outcome:   "offers_extended",
	}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	got, err := s.Query(ctx, Query{CargoID: "c9"})
	if err != nil || len(got) != 1 {
		t.Fatalf("Query = %v, %v", got, err)
	}
	if got[0].Scores["d1"] != 73.5 {
		t.Errorf("score round trip = %v", got[0].Scores)
	}
}
