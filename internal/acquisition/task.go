// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package acquisition drives the per-edge sensor cycle: wait for the
// data-ready signal, burst-read the bus, decode, feed calibration,
// normalize and commit the snapshot.
package acquisition

import (
	"context"
	"log"

	"github.com/relabs-tech/flight_sensors/internal/calibration"
	"github.com/relabs-tech/flight_sensors/internal/frame"
	"github.com/relabs-tech/flight_sensors/internal/imu"
	"github.com/relabs-tech/flight_sensors/internal/snapshot"
	"github.com/relabs-tech/flight_sensors/internal/units"
)

// BusReader performs one contiguous register read spanning the primary
// sensor and any chained slave segments. Implemented by the device
// layer; the device address is bound at construction there.
type BusReader interface {
	ReadBurst(startReg byte, buf []byte) error
}

// Task owns all mutable pipeline state: the decoder's sticky raw
// values, the calibration accumulators and the scratch buffer. Nothing
// outside Run's goroutine may touch them.
type Task struct {
	bus      BusReader
	startReg byte
	ready    *Notifier
	presence imu.Presence
	dec      *frame.Decoder
	cal      *calibration.Engine
	pub      *snapshot.Publisher
}

func New(bus BusReader, startReg byte, ready *Notifier, p imu.Presence, cal *calibration.Engine, pub *snapshot.Publisher) *Task {
	return &Task{
		bus:      bus,
		startReg: startReg,
		ready:    ready,
		presence: p,
		dec:      frame.NewDecoder(p),
		cal:      cal,
		pub:      pub,
	}
}

// Calibrated reports whether bias-corrected output can be trusted yet.
func (t *Task) Calibrated() bool { return t.cal.Converged() }

// Run executes acquisition cycles until the context ends. One pending
// wake triggers exactly one cycle; a failed bus read skips the cycle
// and leaves the published channels untouched.
func (t *Task) Run(ctx context.Context) error {
	buf := make([]byte, frame.Len(t.presence))
	for {
		if !t.ready.Wait(ctx) {
			return ctx.Err()
		}
		if err := t.bus.ReadBurst(t.startReg, buf); err != nil {
			log.Printf("acquisition: burst read: %v", err)
			continue
		}
		raw := t.dec.Decode(buf)
		t.cal.Accumulate(raw.Gyro, raw.Acc)
		sample := units.Convert(raw, t.cal, t.presence)
		t.pub.Commit(sample, t.presence, raw.MagValid)
	}
}
