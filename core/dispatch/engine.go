// Package dispatch owns the lifecycle of cargo postings: candidate
// selection, offer fan-out, first-writer-wins acceptance, contact
// escalation, and redistribution. All transitions for one cargo are
// serialized behind a per-cargo lock; different postings proceed fully
// in parallel.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yoldauz/dispatchd/core/events"
	"github.com/yoldauz/dispatchd/core/history"
	"github.com/yoldauz/dispatchd/core/logger"
	"github.com/yoldauz/dispatchd/core/match"
	"github.com/yoldauz/dispatchd/core/metrics"
	"github.com/yoldauz/dispatchd/core/model"
	"github.com/yoldauz/dispatchd/core/monitoring"
	"github.com/yoldauz/dispatchd/core/notify"
	"github.com/yoldauz/dispatchd/core/referral"
	"github.com/yoldauz/dispatchd/core/registry"
	"github.com/yoldauz/dispatchd/internal/eventbus"
)

// timer key prefixes; one live timer per (kind, cargo).
const (
	keyMatch    = "match:"
	keyWarn     = "warn:"
	keyDeadline = "deadline:"
)

// Engine drives cargo postings through their lifecycle.
type Engine struct {
	cfg      Config
	selector match.Selector
	cargos   registry.CargoRepository
	drivers  registry.DriverRegistry
	ledger   referral.Ledger
	fanout   *notify.FanOut
	timers   *TimerOwner
	bus      eventbus.EventBus
	log      logger.Logger
	sink     metrics.Sink
	snap     registry.Snapshotter
	store    history.Store

	mu           sync.Mutex
	locks        map[string]*sync.Mutex
	assignments  map[string]model.AssignmentRecord // by driver id
	escalations  map[string]*model.EscalationState // by cargo id
	notified     map[string]map[string]struct{}    // cargo id -> offered drivers
	cancels      map[string]context.CancelFunc     // cargo id -> fan-out cancel
	ctxs         map[string]context.Context        // cargo id -> fan-out lifetime
	fallbackPool []string
	closed       bool
}

// NewEngine creates an engine. The repository, registry, ledger and
// notifier are required; sink and snapshotter may be nil.
func NewEngine(cfg Config, cargos registry.CargoRepository, drivers registry.DriverRegistry, ledger referral.Ledger, notifier notify.Notifier, bus eventbus.EventBus, log logger.Logger, sink metrics.Sink) (*Engine, error) {
	if cargos == nil || drivers == nil || ledger == nil || notifier == nil || log == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewEngine")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	sel := match.NewSelector()
	sel.TopN = cfg.TopN
	sel.MinProfileScore = cfg.MinProfileScore
	return &Engine{
		cfg:      cfg,
		selector: sel,
		cargos:   cargos,
		drivers:  drivers,
		ledger:   ledger,
		fanout: &notify.FanOut{
			Notifier: notifier,
			Pacer:    notify.NewPacer(cfg.Pacing),
			Bus:      bus,
			Log:      log,
			PhaseDone: func(phase string, elapsed time.Duration) {
				fanoutLatency.WithLabelValues(phase).Observe(elapsed.Seconds())
			},
		},
		timers:      NewTimerOwner(),
		bus:         bus,
		log:         log,
		sink:        sink,
		locks:       make(map[string]*sync.Mutex),
		assignments: make(map[string]model.AssignmentRecord),
		escalations: make(map[string]*model.EscalationState),
		notified:    make(map[string]map[string]struct{}),
		cancels:     make(map[string]context.CancelFunc),
		ctxs:        make(map[string]context.Context),
	}, nil
}

// SetSnapshotter configures the fire-and-forget persistence hook.
func (e *Engine) SetSnapshotter(s registry.Snapshotter) {
	e.mu.Lock()
	e.snap = s
	e.mu.Unlock()
}

// SetHistoryStore configures the dispatch decision audit log.
func (e *Engine) SetHistoryStore(s history.Store) {
	e.mu.Lock()
	e.store = s
	e.mu.Unlock()
}

// recordDecision appends one matching round to the audit log off the
// hot path.
func (e *Engine) recordDecision(rec history.Record) {
	e.mu.Lock()
	store := e.store
	e.mu.Unlock()
	if store == nil {
		return
	}
	rec.Timestamp = time.Now()
	go func() {
		defer monitoring.Recover()
		if err := store.Append(context.Background(), rec); err != nil {
			e.log.Errorf("history append failed: %v", err)
		}
	}()
}

// SetFallbackPool configures the dispatcher identities alerted when the
// match window expires without an acceptance.
func (e *Engine) SetFallbackPool(ids []string) {
	e.mu.Lock()
	e.fallbackPool = append([]string(nil), ids...)
	e.mu.Unlock()
}

// lockFor returns the per-cargo mutex, creating it on first use.
func (e *Engine) lockFor(cargoID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[cargoID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[cargoID] = l
	}
	return l
}

func (e *Engine) publish(ev eventbus.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}

// persist requests a state snapshot. The snapshotter coalesces bursts
// and writes off the hot path; failures are logged and reported, never
// propagated.
func (e *Engine) persist() {
	e.mu.Lock()
	snap := e.snap
	e.mu.Unlock()
	if snap == nil {
		return
	}
	if err := snap.Snapshot(); err != nil {
		e.log.Errorf("snapshot failed: %v", err)
		monitoring.CaptureException(err, map[string]string{"component": "snapshot"})
	}
}

// OnNewCargoPosted registers a posting and starts candidate selection
// and fan-out. A zero ID is assigned. Repeated delivery of the same
// posting is a no-op.
func (e *Engine) OnNewCargoPosted(cargo model.CargoPosting) (model.CargoPosting, error) {
	if cargo.ID == "" {
		cargo.ID = uuid.NewString()
	}
	l := e.lockFor(cargo.ID)
	l.Lock()
	if _, ok := e.cargos.Get(cargo.ID); ok {
		l.Unlock()
		return cargo, nil
	}
	cargo.Status = model.CargoActive
	cargo.AssignedDriverID = ""
	if cargo.CreatedAt.IsZero() {
		cargo.CreatedAt = time.Now()
	}
	e.cargos.Put(cargo)
	activePostings.Inc()
	l.Unlock()

	e.startMatching(cargo)
	e.persist()
	return cargo, nil
}

// startMatching runs selection and launches the fan-out sequence. It
// must not be called with the per-cargo lock held; sends never block
// acceptance processing.
func (e *Engine) startMatching(cargo model.CargoPosting) {
	eligible := e.availableDrivers()
	ranked := e.selector.Select(cargo, eligible)
	e.publish(events.CargoPostedEvent{CargoID: cargo.ID, AuthorID: cargo.AuthorID, Candidates: len(ranked)})

	stats := match.Summarize(ranked)
	e.log.Debugw("candidate selection", map[string]any{
		"cargo_id": cargo.ID,
		"pool":     len(eligible),
		"ranked":   stats.Count,
		"best":     stats.Best,
		"median":   stats.Median,
	})
	if fr, ok := e.sink.(metrics.FleetSizeRecorder); ok {
		if err := fr.RecordCandidatePool(cargo.ID, len(eligible)); err != nil {
			e.log.Errorf("candidate pool metrics error: %v", err)
		}
	}

	ctx := e.newFanoutContext(cargo.ID)
	if len(ranked) == 0 {
		// nobody to offer to, skip straight to the dispatcher pool
		e.log.Warnf("no eligible candidates for cargo %s, falling back", cargo.ID)
		e.mu.Lock()
		pool := append([]string(nil), e.fallbackPool...)
		e.mu.Unlock()
		go func() {
			defer monitoring.Recover()
			e.fanout.Broadcast(ctx, cargo, pool)
		}()
		return
	}

	ids := make([]string, len(ranked))
	scores := make(map[string]float64, len(ranked))
	for i, m := range ranked {
		ids[i] = m.DriverID
		scores[m.DriverID] = m.Score
	}
	e.recordDecision(history.Record{
		CargoID:    cargo.ID,
		AuthorID:   cargo.AuthorID,
		Candidates: ids,
		Scores:     scores,
		Outcome:    "offers_extended",
	})

	tier := referral.Tier{}
	if cargo.AuthorRole == model.RoleDispatcher {
		tier = e.ledger.TiersFor(cargo.AuthorID)
	}
	phases := notify.BuildPhases(cargo, ranked, tier, e.cfg.Staging())

	e.timers.Schedule(keyMatch+cargo.ID, e.cfg.MatchWindow(), func() {
		e.onMatchWindowExpired(cargo.ID)
	})

	go func() {
		defer monitoring.Recover()
		e.fanout.Run(ctx, cargo, phases, e.offerDelivered(cargo.ID))
	}()
}

// offerDelivered records one extended offer for later cargoTaken
// notices and observability.
func (e *Engine) offerDelivered(cargoID string) func(driverID, phase string, score float64) {
	return func(driverID, phase string, score float64) {
		e.mu.Lock()
		set, ok := e.notified[cargoID]
		if !ok {
			set = make(map[string]struct{})
			e.notified[cargoID] = set
		}
		set[driverID] = struct{}{}
		e.mu.Unlock()
		offersExtended.WithLabelValues(phase).Inc()
		if err := e.sink.RecordOfferResults([]metrics.OfferResult{{
			CargoID:   cargoID,
			DriverID:  driverID,
			Score:     score,
			Phase:     phase,
			Delivered: true,
			Time:      time.Now(),
		}}); err != nil {
			e.log.Errorf("offer metrics error: %v", err)
		}
	}
}

// availableDrivers filters out drivers already holding an active
// assignment; they cannot receive new offers.
func (e *Engine) availableDrivers() []model.DriverCandidate {
	all := e.drivers.ListAvailable()
	e.mu.Lock()
	defer e.mu.Unlock()
	out := all[:0]
	for _, d := range all {
		if _, busy := e.assignments[d.ID]; busy {
			continue
		}
		out = append(out, d)
	}
	return out
}

// newFanoutContext replaces any previous fan-out for the cargo with a
// fresh cancellable context. Cancelling it stops every pending phase
// and broadcast for the posting as a unit.
func (e *Engine) newFanoutContext(cargoID string) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	if prev, ok := e.cancels[cargoID]; ok {
		prev()
	}
	e.cancels[cargoID] = cancel
	e.ctxs[cargoID] = ctx
	e.mu.Unlock()
	return ctx
}

// fanoutContext returns the live fan-out lifetime for the cargo, or a
// background context when none is running.
func (e *Engine) fanoutContext(cargoID string) context.Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ctx, ok := e.ctxs[cargoID]; ok {
		return ctx
	}
	return context.Background()
}

// cancelFanout stops any in-flight fan-out for the cargo.
func (e *Engine) cancelFanout(cargoID string) {
	e.mu.Lock()
	cancel, ok := e.cancels[cargoID]
	if ok {
		delete(e.cancels, cargoID)
		delete(e.ctxs, cargoID)
	}
	e.mu.Unlock()
	if ok {
		cancel()
	}
}

// onMatchWindowExpired alerts the dispatcher pool. The posting stays
// open so a late driver acceptance can still win.
func (e *Engine) onMatchWindowExpired(cargoID string) {
	l := e.lockFor(cargoID)
	l.Lock()
	cargo, ok := e.cargos.Get(cargoID)
	open := ok && cargo.Open()
	l.Unlock()
	if !open {
		return
	}
	e.mu.Lock()
	pool := append([]string(nil), e.fallbackPool...)
	e.mu.Unlock()
	e.log.Infof("match window expired for cargo %s, alerting %d dispatchers", cargoID, len(pool))
	ctx := e.fanoutContext(cargoID)
	go func() {
		defer monitoring.Recover()
		e.fanout.Broadcast(ctx, cargo, pool)
	}()
}

// OnDriverAccept applies a driver's acceptance with first-writer-wins
// semantics. Exactly one concurrent acceptance succeeds; losers get
// ErrAlreadyTaken. Repeated delivery of the winning acceptance is a
// no-op.
func (e *Engine) OnDriverAccept(cargoID, driverID string) error {
	l := e.lockFor(cargoID)
	l.Lock()
	defer l.Unlock()

	cargo, ok := e.cargos.Get(cargoID)
	if !ok {
		return fmt.Errorf("cargo %s: %w", cargoID, ErrNotFound)
	}
	if cargo.Status.Terminal() {
		return fmt.Errorf("cargo %s is %s: %w", cargoID, cargo.Status, ErrInvalidTransition)
	}
	if !cargo.Open() {
		if cargo.AssignedDriverID == driverID {
			return nil // retried delivery of the winning acceptance
		}
		acceptRaceLost.Inc()
		return fmt.Errorf("cargo %s: %w", cargoID, ErrAlreadyTaken)
	}

	driver, ok := e.drivers.Get(driverID)
	if !ok {
		return fmt.Errorf("driver %s: %w", driverID, ErrNotFound)
	}
	if err := e.checkEligible(cargo, driver); err != nil {
		return err
	}

	now := time.Now()
	cargo.Status = model.CargoDriverAssigned
	cargo.AssignedDriverID = driverID
	cargo.AcceptedAt = now
	e.cargos.Put(cargo)

	driver.Status = model.DriverBusy
	e.drivers.Put(driver)

	e.mu.Lock()
	e.assignments[driverID] = model.AssignmentRecord{CargoID: cargoID, DriverID: driverID, AssignedAt: now}
	e.escalations[cargoID] = &model.EscalationState{CargoID: cargoID, DriverID: driverID, Phase: model.PhaseAwaitingContact}
	e.mu.Unlock()

	e.timers.Cancel(keyMatch + cargoID)
	e.cancelFanout(cargoID)
	e.startEscalation(cargoID)

	acceptances.Inc()
	if err := e.sink.RecordOfferResults([]metrics.OfferResult{{
		CargoID:  cargoID,
		DriverID: driverID,
		Accepted: true,
		Time:     now,
	}}); err != nil {
		e.log.Errorf("acceptance metrics error: %v", err)
	}
	e.log.Infof("cargo %s assigned to driver %s", cargoID, driverID)
	e.recordDecision(history.Record{
		CargoID:        cargoID,
		AuthorID:       cargo.AuthorID,
		AcceptedDriver: driverID,
		Outcome:        "accepted",
	})

	e.notifyLosers(cargo, driverID)
	e.persist()
	return nil
}

// checkEligible enforces the driver-side acceptance requirements and
// names the failing field.
func (e *Engine) checkEligible(cargo model.CargoPosting, driver model.DriverCandidate) error {
	if driver.Status == model.DriverOffline {
		return &IneligibleError{DriverID: driver.ID, Field: "status"}
	}
	if driver.ProfileScore < e.cfg.MinProfileScore {
		return &IneligibleError{DriverID: driver.ID, Field: "profile_score"}
	}
	e.mu.Lock()
	_, busy := e.assignments[driver.ID]
	e.mu.Unlock()
	if busy {
		return &IneligibleError{DriverID: driver.ID, Field: "active_assignment"}
	}
	if cargo.WeightTons > 0 && driver.HasCapacityData() && !driver.FitsWeight(cargo.WeightTons) {
		return &IneligibleError{DriverID: driver.ID, Field: "capacity"}
	}
	return nil
}

// notifyLosers tells previously offered candidates the cargo is gone so
// they do not attempt a stale acceptance. Sends run off the per-cargo
// lock.
func (e *Engine) notifyLosers(cargo model.CargoPosting, winnerID string) {
	e.mu.Lock()
	set := e.notified[cargo.ID]
	others := make([]string, 0, len(set))
	for id := range set {
		if id != winnerID {
			others = append(others, id)
		}
	}
	e.mu.Unlock()
	e.publish(events.CargoTakenEvent{CargoID: cargo.ID, WinnerDriverID: winnerID, OtherDriverIDs: others})
	if len(others) == 0 {
		return
	}
	go func() {
		defer monitoring.Recover()
		for _, id := range others {
			if err := e.fanout.Notifier.SendNotice(id, notify.Notice{Kind: notify.NoticeTaken, CargoID: cargo.ID}); err != nil {
				deliveryFailures.Inc()
				e.log.Warnf("cargo-taken notice to %s failed: %v", id, err)
			}
		}
	}()
}

// OnDriverContacted acknowledges shipper contact, cancelling the
// escalation sequence atomically. Duplicate deliveries have no further
// effect: timers stay cancelled and no second bonus accrues.
func (e *Engine) OnDriverContacted(cargoID, driverID string) error {
	l := e.lockFor(cargoID)
	l.Lock()
	defer l.Unlock()

	cargo, ok := e.cargos.Get(cargoID)
	if !ok {
		return fmt.Errorf("cargo %s: %w", cargoID, ErrNotFound)
	}
	if cargo.Status == model.CargoInProgress && cargo.AssignedDriverID == driverID {
		return nil // duplicate delivery
	}
	if cargo.Status != model.CargoDriverAssigned || cargo.AssignedDriverID != driverID {
		e.log.Warnf("contact for cargo %s rejected in state %s", cargoID, cargo.Status)
		return fmt.Errorf("cargo %s: %w", cargoID, ErrInvalidTransition)
	}

	e.timers.Cancel(keyWarn + cargoID)
	e.timers.Cancel(keyDeadline + cargoID)
	e.mu.Lock()
	delete(e.escalations, cargoID)
	e.mu.Unlock()

	cargo.Status = model.CargoInProgress
	cargo.ContactedAt = time.Now()
	e.cargos.Put(cargo)
	e.recordLifecycle(cargo, model.CargoDriverAssigned, "driver_contacted")

	if cargo.AuthorRole == model.RoleDispatcher {
		tier := e.ledger.TiersFor(cargo.AuthorID)
		if tier.HasDriver(driverID) {
			e.ledger.RecordBonus(cargo.AuthorID, driverID, e.cfg.ReferralBonusUZS)
			e.publish(events.BonusEvent{
				DispatcherID: cargo.AuthorID,
				DriverID:     driverID,
				CargoID:      cargoID,
				AmountUZS:    e.cfg.ReferralBonusUZS,
			})
		}
	}
	e.persist()
	return nil
}

// OnDriverCompleted marks the job done. Only the assigned driver may
// complete; anything else is a stale or forged action.
func (e *Engine) OnDriverCompleted(cargoID, driverID string) error {
	l := e.lockFor(cargoID)
	l.Lock()
	defer l.Unlock()

	cargo, ok := e.cargos.Get(cargoID)
	if !ok {
		return fmt.Errorf("cargo %s: %w", cargoID, ErrNotFound)
	}
	if cargo.Status == model.CargoCompleted && cargo.AssignedDriverID == driverID {
		return nil // duplicate delivery
	}
	if cargo.Status != model.CargoInProgress || cargo.AssignedDriverID != driverID {
		e.log.Warnf("completion for cargo %s rejected in state %s", cargoID, cargo.Status)
		return fmt.Errorf("cargo %s: %w", cargoID, ErrInvalidTransition)
	}

	now := time.Now()
	cargo.Status = model.CargoCompleted
	cargo.CompletedAt = now
	e.cargos.Put(cargo)
	activePostings.Dec()
	e.recordLifecycle(cargo, model.CargoInProgress, "driver_completed")

	e.mu.Lock()
	delete(e.assignments, driverID)
	e.mu.Unlock()

	if driver, ok := e.drivers.Get(driverID); ok {
		driver.Status = model.DriverAvailable
		driver.CompletedOrders++
		e.drivers.Put(driver)
	}

	commission := int64(float64(cargo.PriceUZS) * e.cfg.CommissionPercent / 100)
	e.publish(events.CommissionEvent{CargoID: cargoID, DriverID: driverID, AmountUZS: commission, At: now})
	e.log.Infof("cargo %s completed by driver %s", cargoID, driverID)
	e.persist()
	return nil
}

// CancelByAuthor cancels an Active or InProgress posting. Terminal
// states reject the action.
func (e *Engine) CancelByAuthor(cargoID string) error {
	return e.cancelTerminal(cargoID, "author")
}

// CancelByDriver releases an assignment without penalty and puts the
// cargo back into circulation immediately.
func (e *Engine) CancelByDriver(cargoID, driverID string) error {
	l := e.lockFor(cargoID)
	l.Lock()

	cargo, ok := e.cargos.Get(cargoID)
	if !ok {
		l.Unlock()
		return fmt.Errorf("cargo %s: %w", cargoID, ErrNotFound)
	}
	if cargo.Status == model.CargoInProgress && cargo.AssignedDriverID == driverID {
		l.Unlock()
		return e.cancelTerminal(cargoID, "driver")
	}
	if cargo.Status != model.CargoDriverAssigned || cargo.AssignedDriverID != driverID {
		l.Unlock()
		return fmt.Errorf("cargo %s: %w", cargoID, ErrInvalidTransition)
	}
	cargo = e.releaseLocked(cargo, driverID, false, "cancelled_by_driver")
	l.Unlock()

	e.startMatching(cargo)
	e.persist()
	return nil
}

// cancelTerminal moves a posting to Cancelled and tears its machinery
// down.
func (e *Engine) cancelTerminal(cargoID, by string) error {
	l := e.lockFor(cargoID)
	l.Lock()
	defer l.Unlock()

	cargo, ok := e.cargos.Get(cargoID)
	if !ok {
		return fmt.Errorf("cargo %s: %w", cargoID, ErrNotFound)
	}
	if cargo.Status.Terminal() {
		if cargo.Status == model.CargoCancelled {
			return nil // duplicate delivery
		}
		return fmt.Errorf("cargo %s is %s: %w", cargoID, cargo.Status, ErrInvalidTransition)
	}

	prev := cargo.Status
	driverID := cargo.AssignedDriverID
	cargo.Status = model.CargoCancelled
	cargo.AssignedDriverID = ""
	e.cargos.Put(cargo)
	activePostings.Dec()
	e.recordLifecycle(cargo, prev, "cancelled_by_"+by)

	e.timers.Cancel(keyMatch + cargoID)
	e.timers.Cancel(keyWarn + cargoID)
	e.timers.Cancel(keyDeadline + cargoID)
	e.cancelFanout(cargoID)

	e.mu.Lock()
	delete(e.escalations, cargoID)
	if driverID != "" {
		delete(e.assignments, driverID)
	}
	e.mu.Unlock()

	if driverID != "" {
		if driver, ok := e.drivers.Get(driverID); ok {
			driver.Status = model.DriverAvailable
			e.drivers.Put(driver)
		}
	}
	e.log.Infof("cargo %s cancelled by %s", cargoID, by)
	e.persist()
	return nil
}

// releaseLocked clears an assignment and returns the cargo to Active.
// Caller holds the per-cargo lock. Penalize is set on escalation
// timeouts only.
func (e *Engine) releaseLocked(cargo model.CargoPosting, driverID string, penalize bool, reason string) model.CargoPosting {
	prev := cargo.Status
	cargo.Status = model.CargoActive
	cargo.AssignedDriverID = ""
	e.cargos.Put(cargo)
	e.recordLifecycle(cargo, prev, reason)

	e.timers.Cancel(keyWarn + cargo.ID)
	e.timers.Cancel(keyDeadline + cargo.ID)

	e.mu.Lock()
	delete(e.escalations, cargo.ID)
	delete(e.assignments, driverID)
	e.mu.Unlock()

	if driver, ok := e.drivers.Get(driverID); ok {
		driver.Status = model.DriverAvailable
		if penalize {
			driver.Penalties++
		}
		e.drivers.Put(driver)
	}
	e.publish(events.CargoRevertedEvent{CargoID: cargo.ID, DriverID: driverID, Reason: reason})
	e.recordDecision(history.Record{
		CargoID:        cargo.ID,
		AuthorID:       cargo.AuthorID,
		AcceptedDriver: driverID,
		Outcome:        reason,
		Reverted:       true,
	})
	return cargo
}

func (e *Engine) recordLifecycle(cargo model.CargoPosting, from model.CargoStatus, cause string) {
	lr, ok := e.sink.(metrics.LifecycleRecorder)
	if !ok {
		return
	}
	if err := lr.RecordLifecycle(metrics.LifecycleEvent{
		CargoID: cargo.ID,
		From:    from,
		To:      cargo.Status,
		Cause:   cause,
		Time:    time.Now(),
	}); err != nil {
		e.log.Errorf("lifecycle metrics error: %v", err)
	}
}

// Close cancels every outstanding timer and fan-out. In-flight
// operations finish; no timer fires afterwards.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	cancels := make([]context.CancelFunc, 0, len(e.cancels))
	for _, c := range e.cancels {
		cancels = append(cancels, c)
	}
	e.cancels = make(map[string]context.CancelFunc)
	e.mu.Unlock()

	for _, c := range cancels {
		c()
	}
	e.timers.Close()
	if e.bus != nil {
		e.bus.Close()
	}
	return nil
}
