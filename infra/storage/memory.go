// Package storage provides the in-memory repositories behind the
// registry interfaces, with a periodic JSON snapshot to disk standing
// in for durable storage.
package storage

import (
	"sort"
	"sync"

	"github.com/yoldauz/dispatchd/core/model"
)

// MemoryCargoRepository stores cargo postings in a map.
type MemoryCargoRepository struct {
	mu   sync.RWMutex
	data map[string]model.CargoPosting
}

// NewMemoryCargoRepository returns an empty repository.
func NewMemoryCargoRepository() *MemoryCargoRepository {
	return &MemoryCargoRepository{data: make(map[string]model.CargoPosting)}
}

func (r *MemoryCargoRepository) Get(id string) (model.CargoPosting, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.data[id]
	return c, ok
}

func (r *MemoryCargoRepository) Put(c model.CargoPosting) {
	r.mu.Lock()
	r.data[c.ID] = c
	r.mu.Unlock()
}

func (r *MemoryCargoRepository) Delete(id string) {
	r.mu.Lock()
	delete(r.data, id)
	r.mu.Unlock()
}

func (r *MemoryCargoRepository) List() []model.CargoPosting {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]model.CargoPosting, 0, len(r.data))
	for _, c := range r.data {
		res = append(res, c)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// load replaces the contents wholesale; used by snapshot restore.
func (r *MemoryCargoRepository) load(items []model.CargoPosting) {
	r.mu.Lock()
	r.data = make(map[string]model.CargoPosting, len(items))
	for _, c := range items {
		r.data[c.ID] = c
	}
	r.mu.Unlock()
}

// MemoryDriverRegistry stores driver candidates in a map.
type MemoryDriverRegistry struct {
	mu   sync.RWMutex
	data map[string]model.DriverCandidate
}

// NewMemoryDriverRegistry returns an empty registry.
func NewMemoryDriverRegistry() *MemoryDriverRegistry {
	return &MemoryDriverRegistry{data: make(map[string]model.DriverCandidate)}
}

func (r *MemoryDriverRegistry) Get(id string) (model.DriverCandidate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.data[id]
	return d, ok
}

func (r *MemoryDriverRegistry) Put(d model.DriverCandidate) {
	r.mu.Lock()
	r.data[d.ID] = d
	r.mu.Unlock()
}

func (r *MemoryDriverRegistry) Delete(id string) {
	r.mu.Lock()
	delete(r.data, id)
	r.mu.Unlock()
}

func (r *MemoryDriverRegistry) List() []model.DriverCandidate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]model.DriverCandidate, 0, len(r.data))
	for _, d := range r.data {
		res = append(res, d)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// ListAvailable returns drivers open for new offers.
func (r *MemoryDriverRegistry) ListAvailable() []model.DriverCandidate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var res []model.DriverCandidate
	for _, d := range r.data {
		if d.Status == model.DriverAvailable {
			res = append(res, d)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

func (r *MemoryDriverRegistry) load(items []model.DriverCandidate) {
	r.mu.Lock()
	r.data = make(map[string]model.DriverCandidate, len(items))
	for _, d := range items {
		r.data[d.ID] = d
	}
	r.mu.Unlock()
}
