package referral

import "testing"

func TestTierMembership(t *testing.T) {
	l := NewMemoryLedger()
	l.AddDriver("disp", "drv1")
	l.AddCustomer("disp", "cust1")

	tier := l.TiersFor("disp")
	if !tier.HasDriver("drv1") {
		t.Error("drv1 should be a referred driver")
	}
	if !tier.HasCustomer("cust1") {
		t.Error("cust1 should be a referred customer")
	}
	if tier.HasDriver("cust1") || tier.HasCustomer("drv1") {
		t.Error("driver and customer sets must stay separate")
	}
	if tier.Empty() {
		t.Error("populated tier reported empty")
	}
}

func TestTiersForUnknownDispatcher(t *testing.T) {
	l := NewMemoryLedger()
	tier := l.TiersFor("nobody")
	if !tier.Empty() {
		t.Errorf("tier = %+v, want empty", tier)
	}
}

func TestTiersForReturnsCopy(t *testing.T) {
	l := NewMemoryLedger()
	l.AddDriver("disp", "drv1")
	tier := l.TiersFor("disp")
	tier.Drivers["injected"] = struct{}{}
	if l.TiersFor("disp").HasDriver("injected") {
		t.Error("mutating a returned tier leaked into the ledger")
	}
}

func TestRecordBonusRequiresMembership(t *testing.T) {
	l := NewMemoryLedger()
	l.AddDriver("disp", "drv1")

	l.RecordBonus("disp", "drv1", 10000)
	l.RecordBonus("disp", "drv1", 10000)
	if got := l.Accrued("disp"); got != 20000 {
		t.Errorf("accrued = %d, want 20000", got)
	}

	l.RecordBonus("disp", "stranger", 10000)
	if got := l.Accrued("disp"); got != 20000 {
		t.Errorf("bonus for unreferred driver accrued, total = %d", got)
	}
	if got := l.Accrued("other"); got != 0 {
		t.Errorf("accrued for unrelated dispatcher = %d, want 0", got)
	}
}
