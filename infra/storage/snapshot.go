package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/yoldauz/dispatchd/core/logger"
	"github.com/yoldauz/dispatchd/core/model"
	infralog "github.com/yoldauz/dispatchd/infra/logger"
)

// snapshotFile is the on-disk layout. A single JSON document keeps
// restore trivial; write volume is small enough that incremental
// formats are not worth the complexity.
type snapshotFile struct {
	SavedAt time.Time              `json:"saved_at"`
	Cargos  []model.CargoPosting   `json:"cargos"`
	Drivers []model.DriverCandidate `json:"drivers"`
}

// Snapshot persists both repositories to a JSON file and restores them
// on startup. It implements registry.Snapshotter.
type Snapshot struct {
	path    string
	cargos  *MemoryCargoRepository
	drivers *MemoryDriverRegistry
	log     logger.Logger
	writeMu sync.Mutex

	kick chan struct{}
	done chan struct{}
}

// NewSnapshot builds a snapshotter writing to path. Pass the same
// repositories the engine uses.
func NewSnapshot(path string, cargos *MemoryCargoRepository, drivers *MemoryDriverRegistry, log logger.Logger) *Snapshot {
	if log == nil {
		log = infralog.NopLogger{}
	}
	return &Snapshot{
		path:    path,
		cargos:  cargos,
		drivers: drivers,
		log:     log,
		kick:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Load restores repositories from the snapshot file. A missing file is
// not an error: the process simply starts empty.
func (s *Snapshot) Load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read snapshot: %w", err)
	}
	var f snapshotFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	s.cargos.load(f.Cargos)
	s.drivers.load(f.Drivers)
	s.log.Infof("snapshot restored: %d cargos, %d drivers (saved %s)",
		len(f.Cargos), len(f.Drivers), f.SavedAt.Format(time.RFC3339))
	return nil
}

// Snapshot requests an asynchronous save; the Run loop performs the
// actual write, so engine-side bursts coalesce into one. It satisfies
// registry.Snapshotter and never fails.
func (s *Snapshot) Snapshot() error {
	s.Trigger()
	return nil
}

// Save writes the current state atomically via a temp file rename.
func (s *Snapshot) Save() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	f := snapshotFile{
		SavedAt: time.Now().UTC(),
		Cargos:  s.cargos.List(),
		Drivers: s.drivers.List(),
	}
	raw, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("snapshot dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// Trigger requests an asynchronous save. Safe to call from hot paths;
// coalesces bursts into a single pending write.
func (s *Snapshot) Trigger() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Run flushes on every trigger and on a steady interval until the
// context ends, then writes a final snapshot.
func (s *Snapshot) Run(ctx context.Context, interval time.Duration) {
	defer close(s.done)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := s.Save(); err != nil {
				s.log.Errorf("final snapshot: %v", err)
			}
			return
		case <-s.kick:
		case <-ticker.C:
		}
		if err := s.Save(); err != nil {
			s.log.Errorf("snapshot: %v", err)
		}
	}
}

// Wait blocks until Run has exited.
func (s *Snapshot) Wait() { <-s.done }
