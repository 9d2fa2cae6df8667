package dispatch

import (
	"fmt"
	"time"

	"github.com/yoldauz/dispatchd/core/notify"
)

// Config defines dispatch-related settings. The source system used
// inconsistent hard-coded timings across code paths, so every window is
// a parameter here.
type Config struct {
	// MatchWindowSeconds bounds how long a posting waits for an
	// acceptance before the dispatcher pool is alerted.
	MatchWindowSeconds int `json:"match_window_seconds"`
	// ContactDeadlineMinutes bounds how long an assigned driver has to
	// contact the shipper.
	ContactDeadlineMinutes int `json:"contact_deadline_minutes"`
	// WarningIntervalMinutes is the cadence of contact warnings.
	WarningIntervalMinutes int `json:"warning_interval_minutes"`
	// MaxWarnings is the number of unacknowledged warnings before the
	// assignment is reverted.
	MaxWarnings int `json:"max_warnings"`

	// TopN bounds candidate selection; MinProfileScore is the profile
	// completion eligibility bar.
	TopN            int `json:"top_n"`
	MinProfileScore int `json:"min_profile_score"`

	// Staged-mode inter-phase delays.
	CustomerPhaseDelaySeconds int `json:"customer_phase_delay_seconds"`
	GeneralPhaseDelaySeconds  int `json:"general_phase_delay_seconds"`

	// ReferralBonusUZS is accrued per successful referred-driver contact.
	ReferralBonusUZS int64 `json:"referral_bonus_uzs"`
	// CommissionPercent of the cargo price accrues on completion.
	CommissionPercent float64 `json:"commission_percent"`

	Pacing notify.PacerConfig `json:"pacing"`
}

// SetDefaults fills zero fields with the documented defaults.
func (c *Config) SetDefaults() {
	if c.MatchWindowSeconds <= 0 {
		c.MatchWindowSeconds = 60
	}
	if c.ContactDeadlineMinutes <= 0 {
		c.ContactDeadlineMinutes = 15
	}
	if c.WarningIntervalMinutes <= 0 {
		c.WarningIntervalMinutes = 2
	}
	if c.MaxWarnings <= 0 {
		c.MaxWarnings = 3
	}
	if c.TopN <= 0 {
		c.TopN = 5
	}
	if c.MinProfileScore <= 0 {
		c.MinProfileScore = 60
	}
	if c.CustomerPhaseDelaySeconds <= 0 {
		c.CustomerPhaseDelaySeconds = 60
	}
	if c.GeneralPhaseDelaySeconds <= 0 {
		c.GeneralPhaseDelaySeconds = 30
	}
	if c.ReferralBonusUZS <= 0 {
		c.ReferralBonusUZS = 10000
	}
	if c.CommissionPercent <= 0 {
		c.CommissionPercent = 5
	}
	c.Pacing.SetDefaults()
}

// Validate rejects configurations that cannot drive the lifecycle.
func (c Config) Validate() error {
	if c.WarningIntervalMinutes*c.MaxWarnings > c.ContactDeadlineMinutes*2 {
		return fmt.Errorf("warning cadence %dm x%d exceeds twice the contact deadline %dm",
			c.WarningIntervalMinutes, c.MaxWarnings, c.ContactDeadlineMinutes)
	}
	if c.CommissionPercent >= 100 {
		return fmt.Errorf("commission_percent must be below 100")
	}
	return nil
}

// MatchWindow returns the acceptance window as a duration.
func (c Config) MatchWindow() time.Duration {
	return time.Duration(c.MatchWindowSeconds) * time.Second
}

// ContactDeadline returns the overall contact deadline.
func (c Config) ContactDeadline() time.Duration {
	return time.Duration(c.ContactDeadlineMinutes) * time.Minute
}

// WarningInterval returns the warning cadence.
func (c Config) WarningInterval() time.Duration {
	return time.Duration(c.WarningIntervalMinutes) * time.Minute
}

// Staging returns the staged fan-out delays.
func (c Config) Staging() notify.StagingConfig {
	return notify.StagingConfig{
		CustomerDelay: time.Duration(c.CustomerPhaseDelaySeconds) * time.Second,
		GeneralDelay:  time.Duration(c.GeneralPhaseDelaySeconds) * time.Second,
	}
}
