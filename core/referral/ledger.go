// Package referral tracks which drivers and customers a dispatcher has
// referred. The dispatch core only reads tier membership to order
// notification phases and credits bonuses on successful contact; link
// generation and payout live outside this module.
package referral

import "sync"

// Tier holds the referred identities of one dispatcher.
type Tier struct {
	DispatcherID string
	Drivers      map[string]struct{}
	Customers    map[string]struct{}
}

// Empty reports whether the tier has no referred parties at all.
func (t Tier) Empty() bool {
	return len(t.Drivers) == 0 && len(t.Customers) == 0
}

// HasDriver reports referred-driver membership.
func (t Tier) HasDriver(id string) bool {
	_, ok := t.Drivers[id]
	return ok
}

// HasCustomer reports referred-customer membership.
func (t Tier) HasCustomer(id string) bool {
	_, ok := t.Customers[id]
	return ok
}

// Ledger is the referral boundary consumed by the dispatch core.
type Ledger interface {
	// TiersFor returns the tier for a dispatcher. A zero tier is
	// returned for unknown dispatchers.
	TiersFor(dispatcherID string) Tier
	// RecordBonus accrues a bonus for the dispatcher who referred the
	// driver. Amount is in UZS.
	RecordBonus(dispatcherID, driverID string, amount int64)
}

// MemoryLedger is an in-memory Ledger.
type MemoryLedger struct {
	mu      sync.RWMutex
	tiers   map[string]Tier
	bonuses map[string]int64 // dispatcherID -> accrued UZS
}

// NewMemoryLedger returns an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{tiers: make(map[string]Tier), bonuses: make(map[string]int64)}
}

// AddDriver registers a referred driver under the dispatcher.
func (l *MemoryLedger) AddDriver(dispatcherID, driverID string) {
	l.mu.Lock()
	t := l.ensure(dispatcherID)
	t.Drivers[driverID] = struct{}{}
	l.mu.Unlock()
}

// AddCustomer registers a referred customer under the dispatcher.
func (l *MemoryLedger) AddCustomer(dispatcherID, customerID string) {
	l.mu.Lock()
	t := l.ensure(dispatcherID)
	t.Customers[customerID] = struct{}{}
	l.mu.Unlock()
}

func (l *MemoryLedger) ensure(dispatcherID string) Tier {
	t, ok := l.tiers[dispatcherID]
	if !ok {
		t = Tier{
			DispatcherID: dispatcherID,
			Drivers:      make(map[string]struct{}),
			Customers:    make(map[string]struct{}),
		}
		l.tiers[dispatcherID] = t
	}
	return t
}

// TiersFor implements Ledger. The returned tier is a copy.
func (l *MemoryLedger) TiersFor(dispatcherID string) Tier {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.tiers[dispatcherID]
	if !ok {
		return Tier{DispatcherID: dispatcherID}
	}
	cp := Tier{
		DispatcherID: dispatcherID,
		Drivers:      make(map[string]struct{}, len(t.Drivers)),
		Customers:    make(map[string]struct{}, len(t.Customers)),
	}
	for id := range t.Drivers {
		cp.Drivers[id] = struct{}{}
	}
	for id := range t.Customers {
		cp.Customers[id] = struct{}{}
	}
	return cp
}

// RecordBonus implements Ledger.
func (l *MemoryLedger) RecordBonus(dispatcherID, driverID string, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tiers[dispatcherID]
	if !ok || !t.HasDriver(driverID) {
		return
	}
	l.bonuses[dispatcherID] += amount
}

// Accrued returns the bonus total accrued by a dispatcher.
func (l *MemoryLedger) Accrued(dispatcherID string) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.bonuses[dispatcherID]
}
