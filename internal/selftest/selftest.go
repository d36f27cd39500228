// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package selftest runs the one-shot startup self-test across the
// sensor suite. Exhausting the retry budget is recorded, never fatal:
// the acquisition task runs regardless, possibly degraded.
package selftest

import (
	"log"
	"time"

	"github.com/relabs-tech/flight_sensors/internal/imu"
)

// Func is one sensor's self-test, provided by the device layer.
type Func func() bool

// Defaults give the primary sensor up to 3 s to settle after power-on.
const (
	DefaultAttempts = 300
	DefaultDelay    = 10 * time.Millisecond
)

// Sequencer retries the primary sensor's self-test with a fixed delay
// and tests each present optional sensor once.
type Sequencer struct {
	Attempts int
	Delay    time.Duration
}

func NewSequencer() *Sequencer {
	return &Sequencer{Attempts: DefaultAttempts, Delay: DefaultDelay}
}

// Run executes the startup sequence and returns the per-sensor
// outcome. Absent optional sensors are recorded as failed; the
// aggregate is a diagnostic, not a startup gate.
func (s *Sequencer) Run(primary, mag, baro Func, p imu.Presence) imu.SelfTestResult {
	var r imu.SelfTestResult

	for i := 0; i < s.Attempts; i++ {
		if primary() {
			r.Primary = true
			break
		}
		time.Sleep(s.Delay)
	}
	if !r.Primary {
		log.Printf("selftest: primary sensor failed after %d attempts", s.Attempts)
	}

	if p.Magnetometer {
		r.Magnetometer = mag()
		if !r.Magnetometer {
			log.Println("selftest: magnetometer failed")
		}
	}
	if p.Barometer {
		r.Barometer = baro()
		if !r.Barometer {
			log.Println("selftest: barometer failed")
		}
	}
	return r
}
