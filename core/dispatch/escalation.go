package dispatch

import (
	"github.com/yoldauz/dispatchd/core/events"
	"github.com/yoldauz/dispatchd/core/model"
	"github.com/yoldauz/dispatchd/core/monitoring"
	"github.com/yoldauz/dispatchd/core/notify"
)

// startEscalation arms the contact deadline and the first warning for a
// freshly assigned cargo. Scheduling through the timer owner replaces
// any stale timers from a previous assignment of the same posting.
func (e *Engine) startEscalation(cargoID string) {
	e.timers.Schedule(keyWarn+cargoID, e.cfg.WarningInterval(), func() {
		e.onContactWarning(cargoID)
	})
	e.timers.Schedule(keyDeadline+cargoID, e.cfg.ContactDeadline(), func() {
		e.onContactDeadline(cargoID)
	})
}

// onContactWarning fires on the warning cadence while contact has not
// been acknowledged. The last warning reverts the assignment; earlier
// ones re-arm the timer. State is re-checked under the per-cargo lock
// so a racing acknowledgment wins cleanly.
func (e *Engine) onContactWarning(cargoID string) {
	l := e.lockFor(cargoID)
	l.Lock()

	cargo, ok := e.cargos.Get(cargoID)
	if !ok || cargo.Status != model.CargoDriverAssigned {
		l.Unlock()
		return
	}
	e.mu.Lock()
	esc := e.escalations[cargoID]
	e.mu.Unlock()
	if esc == nil || esc.DriverID != cargo.AssignedDriverID {
		l.Unlock()
		return
	}

	esc.WarningsIssued++
	count := esc.WarningsIssued
	driverID := esc.DriverID
	contactWarnings.Inc()
	e.publish(events.ContactWarningEvent{CargoID: cargoID, DriverID: driverID, Count: count})
	e.log.Infof("contact warning %d/%d for cargo %s (driver %s)",
		count, e.cfg.MaxWarnings, cargoID, driverID)

	if count >= e.cfg.MaxWarnings {
		e.revertLocked(cargo, driverID, "contact_timeout")
		l.Unlock()
		e.redistribute(cargoID)
		return
	}

	e.timers.Schedule(keyWarn+cargoID, e.cfg.WarningInterval(), func() {
		e.onContactWarning(cargoID)
	})
	l.Unlock()

	go func() {
		defer monitoring.Recover()
		if err := e.fanout.Notifier.SendNotice(driverID, notify.Notice{
			Kind:    notify.NoticeWarning,
			CargoID: cargoID,
			Count:   count,
		}); err != nil {
			deliveryFailures.Inc()
			e.log.Warnf("contact warning to %s failed: %v", driverID, err)
		}
	}()
}

// onContactDeadline is the outer bound on the escalation sequence. With
// the default cadence the third warning fires first and this timer
// finds the cargo already reverted; it only acts when the warning
// schedule was configured longer than the deadline.
func (e *Engine) onContactDeadline(cargoID string) {
	l := e.lockFor(cargoID)
	l.Lock()

	cargo, ok := e.cargos.Get(cargoID)
	if !ok || cargo.Status != model.CargoDriverAssigned {
		l.Unlock()
		return
	}
	e.mu.Lock()
	if esc := e.escalations[cargoID]; esc != nil {
		esc.Phase = model.PhaseEscalated
	}
	e.mu.Unlock()

	e.revertLocked(cargo, cargo.AssignedDriverID, "contact_deadline")
	l.Unlock()
	e.redistribute(cargoID)
}

// revertLocked undoes an assignment after a failed escalation: the
// driver is penalized but not blacklisted, and the posting returns to
// Active. Caller holds the per-cargo lock.
func (e *Engine) revertLocked(cargo model.CargoPosting, driverID, reason string) {
	assignmentRevert.Inc()
	e.releaseLocked(cargo, driverID, true, reason)
	e.log.Warnf("cargo %s reverted from driver %s (%s)", cargo.ID, driverID, reason)

	go func() {
		defer monitoring.Recover()
		if err := e.fanout.Notifier.SendNotice(driverID, notify.Notice{
			Kind:    notify.NoticeReverted,
			CargoID: cargo.ID,
		}); err != nil {
			deliveryFailures.Inc()
			e.log.Warnf("revert notice to %s failed: %v", driverID, err)
		}
	}()
}

// redistribute re-enters candidate selection for a reverted or released
// posting. Must be called without the per-cargo lock held.
func (e *Engine) redistribute(cargoID string) {
	cargo, ok := e.cargos.Get(cargoID)
	if !ok || !cargo.Open() {
		return
	}
	e.log.Infof("redistributing cargo %s", cargoID)
	e.startMatching(cargo)
	e.persist()
}
