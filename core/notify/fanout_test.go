package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yoldauz/dispatchd/core/model"
	"github.com/yoldauz/dispatchd/core/referral"
)

type recordingNotifier struct {
	mu      sync.Mutex
	offers  []Offer
	notices map[string][]Notice
	fail    map[string]bool
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{notices: make(map[string][]Notice), fail: make(map[string]bool)}
}

func (r *recordingNotifier) SendOffer(recipientID string, offer Offer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail[recipientID] {
		return errors.New("publish failed")
	}
	r.offers = append(r.offers, offer)
	return nil
}

func (r *recordingNotifier) SendNotice(recipientID string, notice Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail[recipientID] {
		return errors.New("publish failed")
	}
	r.notices[recipientID] = append(r.notices[recipientID], notice)
	return nil
}

func (r *recordingNotifier) offerRecipients() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, len(r.offers))
	for i, o := range r.offers {
		ids[i] = o.DriverID
	}
	return ids
}

type nopLog struct{}

func (nopLog) Debugf(string, ...any)         {}
func (nopLog) Debugw(string, map[string]any) {}
func (nopLog) Infof(string, ...any)          {}
func (nopLog) Warnf(string, ...any)          {}
func (nopLog) Errorf(string, ...any)         {}

func testFanOut(n Notifier) *FanOut {
	return &FanOut{
		Notifier: n,
		Pacer:    NewPacer(testPacerConfig()),
		Log:      nopLog{},
	}
}

func ranked(ids ...string) []model.MatchResult {
	out := make([]model.MatchResult, len(ids))
	for i, id := range ids {
		out[i] = model.MatchResult{DriverID: id, Score: 70, Recommendation: model.MatchGood}
	}
	return out
}

func TestBuildPhasesShipperSingle(t *testing.T) {
	cargo := model.CargoPosting{ID: "c1", AuthorRole: model.RoleShipper}
	phases := BuildPhases(cargo, ranked("a", "b"), referral.Tier{}, StagingConfig{})
	if len(phases) != 1 || phases[0].Name != PhaseImmediate {
		t.Fatalf("phases = %+v, want single immediate", phases)
	}
	if len(phases[0].Candidates) != 2 {
		t.Errorf("candidates = %d, want 2", len(phases[0].Candidates))
	}
}

func TestBuildPhasesDispatcherStaged(t *testing.T) {
	cargo := model.CargoPosting{ID: "c1", AuthorID: "disp", AuthorRole: model.RoleDispatcher}
	tier := referral.Tier{
		DispatcherID: "disp",
		Drivers:      map[string]struct{}{"ref-driver": {}},
		Customers:    map[string]struct{}{"ref-customer": {}},
	}
	cfg := StagingConfig{CustomerDelay: time.Minute, GeneralDelay: 30 * time.Second}
	phases := BuildPhases(cargo, ranked("stranger", "ref-driver", "ref-customer"), tier, cfg)

	if len(phases) != 3 {
		t.Fatalf("len(phases) = %d, want 3", len(phases))
	}
	if phases[0].Name != PhaseReferredDrivers || len(phases[0].Candidates) != 1 || phases[0].Candidates[0].DriverID != "ref-driver" {
		t.Errorf("phase 0 = %+v", phases[0])
	}
	if phases[1].Name != PhaseReferredCustomers || phases[1].Delay != time.Minute {
		t.Errorf("phase 1 = %+v", phases[1])
	}
	if phases[2].Name != PhaseGeneralPool || phases[2].Delay != 30*time.Second {
		t.Errorf("phase 2 = %+v", phases[2])
	}
}

func TestBuildPhasesDispatcherEmptyTier(t *testing.T) {
	cargo := model.CargoPosting{ID: "c1", AuthorRole: model.RoleDispatcher}
	phases := BuildPhases(cargo, ranked("a"), referral.Tier{}, StagingConfig{})
	if len(phases) != 1 || phases[0].Name != PhaseImmediate {
		t.Fatalf("dispatcher without tier should fan out immediately, got %+v", phases)
	}
}

func TestRunDeliversInPhaseOrder(t *testing.T) {
	n := newRecordingNotifier()
	f := testFanOut(n)
	cargo := model.CargoPosting{ID: "c1"}
	phases := []Phase{
		{Name: PhaseReferredDrivers, Candidates: ranked("first")},
		{Name: PhaseReferredCustomers, Candidates: ranked("second")},
		{Name: PhaseGeneralPool, Candidates: ranked("third", "fourth")},
	}
	var delivered []string
	f.Run(context.Background(), cargo, phases, func(driverID, phase string, score float64) {
		delivered = append(delivered, driverID)
	})
	want := []string{"first", "second", "third", "fourth"}
	got := n.offerRecipients()
	if len(got) != len(want) {
		t.Fatalf("recipients = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] || delivered[i] != want[i] {
			t.Errorf("order mismatch at %d: sent %s, callback %s, want %s", i, got[i], delivered[i], want[i])
		}
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	n := newRecordingNotifier()
	f := testFanOut(n)
	ctx, cancel := context.WithCancel(context.Background())
	cargo := model.CargoPosting{ID: "c1"}
	phases := []Phase{
		{Name: PhaseReferredDrivers, Candidates: ranked("a")},
		{Name: PhaseGeneralPool, Delay: time.Hour, Candidates: ranked("b")},
	}
	done := make(chan struct{})
	go func() {
		f.Run(ctx, cargo, phases, nil)
		close(done)
	}()
	// let the first phase land, then cancel before the delayed one
	deadline := time.After(2 * time.Second)
	for len(n.offerRecipients()) == 0 {
		select {
		case <-deadline:
			t.Fatal("first phase never delivered")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	for _, id := range n.offerRecipients() {
		if id == "b" {
			t.Error("delayed phase delivered after cancel")
		}
	}
}

func TestRunContinuesPastDeliveryFailure(t *testing.T) {
	n := newRecordingNotifier()
	n.fail["flaky"] = true
	f := testFanOut(n)
	cargo := model.CargoPosting{ID: "c1"}
	phases := []Phase{{Name: PhaseImmediate, Candidates: ranked("flaky", "solid")}}
	var delivered []string
	f.Run(context.Background(), cargo, phases, func(driverID, _ string, _ float64) {
		delivered = append(delivered, driverID)
	})
	if len(delivered) != 1 || delivered[0] != "solid" {
		t.Fatalf("delivered = %v, want [solid]", delivered)
	}
}

func TestRunObservesEachPhaseOnce(t *testing.T) {
	n := newRecordingNotifier()
	f := testFanOut(n)
	type obs struct {
		phase   string
		elapsed time.Duration
	}
	var seen []obs
	f.PhaseDone = func(phase string, elapsed time.Duration) {
		seen = append(seen, obs{phase, elapsed})
	}
	cargo := model.CargoPosting{ID: "c1"}
	phases := []Phase{
		{Name: PhaseReferredDrivers, Candidates: ranked("a")},
		{Name: PhaseReferredCustomers}, // empty, skipped
		{Name: PhaseGeneralPool, Delay: 5 * time.Millisecond, Candidates: ranked("b")},
	}
	f.Run(context.Background(), cargo, phases, nil)

	if len(seen) != 2 {
		t.Fatalf("observations = %+v, want 2 (skipped phase not reported)", seen)
	}
	if seen[0].phase != PhaseReferredDrivers || seen[1].phase != PhaseGeneralPool {
		t.Errorf("phases = %s, %s", seen[0].phase, seen[1].phase)
	}
	// Later phases carry the accumulated delay, so elapsed must grow.
	if seen[1].elapsed <= seen[0].elapsed {
		t.Errorf("elapsed not increasing: %v then %v", seen[0].elapsed, seen[1].elapsed)
	}
	if seen[1].elapsed < 5*time.Millisecond {
		t.Errorf("delayed phase observed %v, want >= 5ms", seen[1].elapsed)
	}
}

func TestBroadcastReachesPool(t *testing.T) {
	n := newRecordingNotifier()
	f := testFanOut(n)
	cargo := model.CargoPosting{ID: "c1"}
	f.Broadcast(context.Background(), cargo, []string{"disp1", "disp2"})
	for _, id := range []string{"disp1", "disp2"} {
		notices := n.notices[id]
		if len(notices) != 1 || notices[0].Kind != NoticeFallback {
			t.Errorf("notices for %s = %+v, want one fallback", id, notices)
		}
	}
}
