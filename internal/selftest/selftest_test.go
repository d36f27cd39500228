package selftest

import (
	"testing"

	"github.com/relabs-tech/flight_sensors/internal/imu"
)

func pass() bool { return true }
func fail() bool { return false }

func TestPrimaryRetryShortCircuits(t *testing.T) {
	s := &Sequencer{Attempts: 10, Delay: 0}

	calls := 0
	primary := func() bool {
		calls++
		return calls >= 3
	}

	r := s.Run(primary, pass, pass, imu.Presence{Magnetometer: true, Barometer: true})
	if !r.Primary {
		t.Error("primary should pass on third attempt")
	}
	if calls != 3 {
		t.Errorf("primary called %d times, want 3 (short-circuit on success)", calls)
	}
}

func TestPrimaryRetryBudgetExhausted(t *testing.T) {
	s := &Sequencer{Attempts: 5, Delay: 0}

	calls := 0
	primary := func() bool {
		calls++
		return false
	}

	r := s.Run(primary, pass, pass, imu.Presence{Magnetometer: true, Barometer: true})
	if r.Primary {
		t.Error("primary should have failed")
	}
	if calls != 5 {
		t.Errorf("primary called %d times, want the full budget of 5", calls)
	}
	// Optional sensors still get tested; exhaustion is not fatal.
	if !r.Magnetometer || !r.Barometer {
		t.Errorf("optional sensors skipped after primary failure: %+v", r)
	}
}

func TestAbsentOptionalNotInvoked(t *testing.T) {
	s := &Sequencer{Attempts: 1, Delay: 0}

	magCalled := false
	mag := func() bool {
		magCalled = true
		return true
	}

	r := s.Run(pass, mag, fail, imu.Presence{Magnetometer: false, Barometer: true})
	if magCalled {
		t.Error("absent magnetometer was self-tested")
	}
	if r.Magnetometer {
		t.Error("absent magnetometer recorded as passed")
	}
	if r.Barometer {
		t.Error("failing barometer recorded as passed")
	}
}

func TestAggregatePass(t *testing.T) {
	all := imu.Presence{Magnetometer: true, Barometer: true}

	cases := []struct {
		r    imu.SelfTestResult
		p    imu.Presence
		want bool
	}{
		{imu.SelfTestResult{Primary: true, Magnetometer: true, Barometer: true}, all, true},
		{imu.SelfTestResult{Primary: false, Magnetometer: true, Barometer: true}, all, false},
		{imu.SelfTestResult{Primary: true, Magnetometer: false, Barometer: true}, all, false},
		// Absence counts as failure in the aggregate.
		{imu.SelfTestResult{Primary: true, Barometer: true}, imu.Presence{Barometer: true}, false},
		{imu.SelfTestResult{Primary: true}, imu.Presence{}, false},
	}
	for i, c := range cases {
		if got := c.r.Passed(c.p); got != c.want {
			t.Errorf("case %d: Passed(%+v) with %+v = %v, want %v", i, c.p, c.r, got, c.want)
		}
	}
}
