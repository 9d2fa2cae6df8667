package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yoldauz/dispatchd/core/events"
	"github.com/yoldauz/dispatchd/core/logger"
	"github.com/yoldauz/dispatchd/core/model"
	"github.com/yoldauz/dispatchd/core/referral"
	"github.com/yoldauz/dispatchd/internal/eventbus"
)

// Phase names as they appear in events and metrics labels.
const (
	PhaseImmediate         = "immediate"
	PhaseReferredDrivers   = "referred_drivers"
	PhaseReferredCustomers = "referred_customers"
	PhaseGeneralPool       = "general_pool"
	PhaseFallback          = "fallback"
)

// Phase is one step of a fan-out sequence. Delay is relative to the end
// of the previous phase.
type Phase struct {
	Name       string
	Delay      time.Duration
	Candidates []model.MatchResult
}

// StagingConfig holds the inter-phase delays of staged mode.
type StagingConfig struct {
	CustomerDelay time.Duration // referred customers after referred drivers
	GeneralDelay  time.Duration // general pool after referred customers
}

// BuildPhases partitions ranked candidates into delivery phases.
// Shipper postings, and dispatcher postings without referred parties,
// produce a single immediate phase. Dispatcher postings with a populated
// tier produce referred drivers, then referred customers, then the
// general pool, so referred parties get exclusive first opportunity.
func BuildPhases(cargo model.CargoPosting, ranked []model.MatchResult, tier referral.Tier, cfg StagingConfig) []Phase {
	if cargo.AuthorRole != model.RoleDispatcher || tier.Empty() {
		return []Phase{{Name: PhaseImmediate, Candidates: ranked}}
	}
	var drivers, customers, general []model.MatchResult
	for _, r := range ranked {
		switch {
		case tier.HasDriver(r.DriverID):
			drivers = append(drivers, r)
		case tier.HasCustomer(r.DriverID):
			customers = append(customers, r)
		default:
			general = append(general, r)
		}
	}
	return []Phase{
		{Name: PhaseReferredDrivers, Candidates: drivers},
		{Name: PhaseReferredCustomers, Delay: cfg.CustomerDelay, Candidates: customers},
		{Name: PhaseGeneralPool, Delay: cfg.GeneralDelay, Candidates: general},
	}
}

// FanOut drives a phase sequence for one cargo posting. The engine runs
// it on its own goroutine with a per-cargo context and cancels the
// context the moment the cargo is accepted; no later phase fires after
// that.
type FanOut struct {
	Notifier Notifier
	Pacer    *Pacer
	Bus      eventbus.EventBus
	Log      logger.Logger

	// PhaseDone, when set, observes each completed phase with the time
	// elapsed since the sequence started. Skipped phases are not
	// reported.
	PhaseDone func(phase string, elapsed time.Duration)
}

func (f *FanOut) phaseDone(phase string, start time.Time) {
	if f.PhaseDone != nil {
		f.PhaseDone(phase, time.Since(start))
	}
}

func (f *FanOut) publish(e eventbus.Event) {
	if f.Bus != nil {
		f.Bus.Publish(e)
	}
}

// Run executes the phases in order, honoring inter-phase delays and the
// pacing budget. Each delivered offer is reported through the delivered
// callback before the next send. Delivery failures are logged and
// counted; a majority failure marks the phase degraded but never aborts
// the sequence.
func (f *FanOut) Run(ctx context.Context, cargo model.CargoPosting, phases []Phase, delivered func(driverID, phase string, score float64)) {
	start := time.Now()
	for _, ph := range phases {
		if len(ph.Candidates) == 0 {
			f.publish(events.PhaseEvent{CargoID: cargo.ID, Phase: ph.Name, Action: "skip"})
			continue
		}
		if ph.Delay > 0 {
			t := time.NewTimer(ph.Delay)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return
			}
			t.Stop()
		}
		if ctx.Err() != nil {
			return
		}
		f.publish(events.PhaseEvent{CargoID: cargo.ID, Phase: ph.Name, Action: "start"})
		failures := 0
		for _, cand := range ph.Candidates {
			if err := f.Pacer.Wait(ctx); err != nil {
				return
			}
			offer := Offer{
				OfferID:     uuid.NewString(),
				CargoID:     cargo.ID,
				DriverID:    cand.DriverID,
				Origin:      cargo.Origin,
				Destination: cargo.Destination,
				CargoType:   cargo.CargoType,
				WeightTons:  cargo.WeightTons,
				PriceUZS:    cargo.PriceUZS,
				Score:       cand.Score,
			}
			if err := f.Notifier.SendOffer(cand.DriverID, offer); err != nil {
				failures++
				f.Log.Warnf("offer delivery to %s failed: %v", cand.DriverID, err)
				f.publish(events.DeliveryFailureEvent{CargoID: cargo.ID, DriverID: cand.DriverID, Err: err})
				continue
			}
			f.Pacer.Record()
			if delivered != nil {
				delivered(cand.DriverID, ph.Name, cand.Score)
			}
			f.publish(events.OfferExtendedEvent{
				CargoID:  cargo.ID,
				DriverID: cand.DriverID,
				OfferID:  offer.OfferID,
				Score:    cand.Score,
				Phase:    ph.Name,
			})
		}
		action := "done"
		if failures*2 > len(ph.Candidates) {
			action = "degraded"
			f.Log.Warnf("phase %s for cargo %s degraded: %d/%d deliveries failed",
				ph.Name, cargo.ID, failures, len(ph.Candidates))
		}
		f.publish(events.PhaseEvent{CargoID: cargo.ID, Phase: ph.Name, Action: action})
		f.phaseDone(ph.Name, start)
		f.Pacer.EndBurst()
	}
}

// Broadcast sends a lower-urgency fallback notice to the dispatcher
// pool. It targets many recipients at once, so the full pacing budget
// applies.
func (f *FanOut) Broadcast(ctx context.Context, cargo model.CargoPosting, pool []string) {
	if len(pool) == 0 {
		return
	}
	start := time.Now()
	f.publish(events.PhaseEvent{CargoID: cargo.ID, Phase: PhaseFallback, Action: "start"})
	failures := 0
	for _, id := range pool {
		if err := f.Pacer.Wait(ctx); err != nil {
			return
		}
		if err := f.Notifier.SendNotice(id, Notice{Kind: NoticeFallback, CargoID: cargo.ID}); err != nil {
			failures++
			f.Log.Warnf("fallback notice to %s failed: %v", id, err)
			f.publish(events.DeliveryFailureEvent{CargoID: cargo.ID, DriverID: id, Err: err})
			continue
		}
		f.Pacer.Record()
	}
	action := "done"
	if failures*2 > len(pool) {
		action = "degraded"
	}
	f.publish(events.PhaseEvent{CargoID: cargo.ID, Phase: PhaseFallback, Action: action})
	f.phaseDone(PhaseFallback, start)
	f.Pacer.EndBurst()
}
