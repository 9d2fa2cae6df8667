package storage

import (
	"testing"

	"github.com/yoldauz/dispatchd/core/model"
)

func TestCargoRepositoryRoundTrip(t *testing.T) {
	r := NewMemoryCargoRepository()
	if _, ok := r.Get("missing"); ok {
		t.Fatal("empty repository returned a cargo")
	}
	r.Put(model.CargoPosting{ID: "c1", Origin: "Tashkent"})
	r.Put(model.CargoPosting{ID: "c2", Origin: "Bukhara"})

	c, ok := r.Get("c1")
	if !ok || c.Origin != "Tashkent" {
		t.Errorf("Get(c1) = %+v, %v", c, ok)
	}
	if got := len(r.List()); got != 2 {
		t.Errorf("List len = %d, want 2", got)
	}
	r.Delete("c1")
	if _, ok := r.Get("c1"); ok {
		t.Error("c1 survived Delete")
	}
}

func TestCargoRepositoryPutOverwrites(t *testing.T) {
	r := NewMemoryCargoRepository()
	r.Put(model.CargoPosting{ID: "c1", Status: model.CargoActive})
	r.Put(model.CargoPosting{ID: "c1", Status: model.CargoCompleted})
	c, _ := r.Get("c1")
	if c.Status != model.CargoCompleted {
		t.Errorf("status = %s, want completed", c.Status)
	}
	if got := len(r.List()); got != 1 {
		t.Errorf("List len = %d, want 1", got)
	}
}

func TestDriverRegistryListAvailable(t *testing.T) {
	r := NewMemoryDriverRegistry()
	r.Put(model.DriverCandidate{ID: "a", Status: model.DriverAvailable})
	r.Put(model.DriverCandidate{ID: "b", Status: model.DriverBusy})
	r.Put(model.DriverCandidate{ID: "c", Status: model.DriverOffline})

	avail := r.ListAvailable()
	if len(avail) != 1 || avail[0].ID != "a" {
		t.Errorf("ListAvailable = %+v, want only a", avail)
	}
	if got := len(r.List()); got != 3 {
		t.Errorf("List len = %d, want 3", got)
	}
}

func TestListOrderStable(t *testing.T) {
	r := NewMemoryDriverRegistry()
	for _, id := range []string{"z", "a", "m"} {
		r.Put(model.DriverCandidate{ID: id})
	}
	got := r.List()
	want := []string{"a", "m", "z"}
	for i := range want {
		if got[i].ID != want[i] {
			t.Fatalf("List order %v, want %v", got, want)
		}
	}
}
