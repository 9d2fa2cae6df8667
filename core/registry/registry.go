// Package registry defines the storage boundary of the dispatch core.
// The engine depends only on these interfaces; the in-memory
// implementation with periodic disk snapshots lives in infra/storage.
package registry

import "github.com/yoldauz/dispatchd/core/model"

// CargoRepository stores cargo postings.
type CargoRepository interface {
	Get(id string) (model.CargoPosting, bool)
	Put(model.CargoPosting)
	Delete(id string)
	List() []model.CargoPosting
}

// DriverRegistry stores driver candidates.
type DriverRegistry interface {
	Get(id string) (model.DriverCandidate, bool)
	Put(model.DriverCandidate)
	Delete(id string)
	List() []model.DriverCandidate
	// ListAvailable returns drivers whose status admits new offers.
	ListAvailable() []model.DriverCandidate
}

// Snapshotter requests a flush of current state to durable storage.
// Calls are fire-and-forget from the engine's perspective and must not
// block; implementations are expected to coalesce bursts and write
// asynchronously. A failed snapshot is logged, never propagated.
type Snapshotter interface {
	Snapshot() error
}
