package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yoldauz/dispatchd/core/model"
	"github.com/yoldauz/dispatchd/infra/logger"
)

func TestSnapshotSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	cargos := NewMemoryCargoRepository()
	drivers := NewMemoryDriverRegistry()
	cargos.Put(model.CargoPosting{ID: "c1", Origin: "Tashkent", Status: model.CargoActive})
	drivers.Put(model.DriverCandidate{ID: "d1", Rating: 4.5})

	snap := NewSnapshot(path, cargos, drivers, logger.NopLogger{})
	if err := snap.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	restoredCargos := NewMemoryCargoRepository()
	restoredDrivers := NewMemoryDriverRegistry()
	restored := NewSnapshot(path, restoredCargos, restoredDrivers, logger.NopLogger{})
	if err := restored.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	c, ok := restoredCargos.Get("c1")
	if !ok || c.Origin != "Tashkent" {
		t.Errorf("restored cargo = %+v, %v", c, ok)
	}
	d, ok := restoredDrivers.Get("d1")
	if !ok || d.Rating != 4.5 {
		t.Errorf("restored driver = %+v, %v", d, ok)
	}
}

func TestSnapshotLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.json")
	snap := NewSnapshot(path, NewMemoryCargoRepository(), NewMemoryDriverRegistry(), logger.NopLogger{})
	if err := snap.Load(); err != nil {
		t.Fatalf("missing file should not error, got %v", err)
	}
}

func TestSnapshotCoalescesBursts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	cargos := NewMemoryCargoRepository()
	drivers := NewMemoryDriverRegistry()
	snap := NewSnapshot(path, cargos, drivers, logger.NopLogger{})

	cargos.Put(model.CargoPosting{ID: "c1"})
	// Without the Run loop the interface method only marks a save as
	// pending; a burst of calls must neither block nor write.
	for i := 0; i < 50; i++ {
		if err := snap.Snapshot(); err != nil {
			t.Fatalf("Snapshot: %v", err)
		}
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("state written before the run loop started (stat err %v)", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go snap.Run(ctx, time.Hour)

	deadline := time.After(2 * time.Second)
	for {
		target := NewMemoryCargoRepository()
		reload := NewSnapshot(path, target, NewMemoryDriverRegistry(), logger.NopLogger{})
		if err := reload.Load(); err == nil {
			if _, ok := target.Get("c1"); ok {
				break
			}
		}
		select {
		case <-deadline:
			t.Fatal("pending save never landed")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	snap.Wait()
}

func TestSnapshotRunFlushesOnTrigger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	cargos := NewMemoryCargoRepository()
	drivers := NewMemoryDriverRegistry()
	snap := NewSnapshot(path, cargos, drivers, logger.NopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	go snap.Run(ctx, time.Hour)

	cargos.Put(model.CargoPosting{ID: "c1"})
	snap.Trigger()

	deadline := time.After(2 * time.Second)
	for {
		target := NewMemoryCargoRepository()
		reload := NewSnapshot(path, target, NewMemoryDriverRegistry(), logger.NopLogger{})
		if err := reload.Load(); err == nil {
			if _, ok := target.Get("c1"); ok {
				break
			}
		}
		select {
		case <-deadline:
			t.Fatal("triggered flush never landed")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	snap.Wait()
}
