// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package snapshot publishes the newest calibrated sample set through
// single-slot, overwrite-on-write channels. One mutex spans every
// per-channel overwrite of a cycle, so readers never see this cycle's
// gyro paired with last cycle's accel.
package snapshot

import (
	"sync"

	"github.com/relabs-tech/flight_sensors/internal/imu"
)

// Reading is one channel's latest committed triplet, stamped with the
// acquisition cycle that produced it.
type Reading struct {
	imu.Axis3f
	Cycle uint64 `json:"cycle"`
}

// BaroReading is the barometer channel's latest committed value.
type BaroReading struct {
	imu.Baro
	Cycle uint64 `json:"cycle"`
}

type slot struct {
	value Reading
	fresh bool
}

// Publisher holds the four single-slot channels. The acquisition task
// is the only writer; any number of goroutines may take readings.
type Publisher struct {
	mu    sync.Mutex
	cycle uint64

	gyro slot
	acc  slot
	mag  slot
	baro struct {
		value BaroReading
		fresh bool
	}
}

func NewPublisher() *Publisher {
	return &Publisher{}
}

// Commit overwrites all channels enabled by presence with one cycle's
// sample set. Channels of absent sensors keep their never-populated
// state. The mag channel is additionally skipped until the
// magnetometer has latched a first valid heading.
func (p *Publisher) Commit(s imu.SensorData, pres imu.Presence, magValid bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cycle++
	p.gyro = slot{value: Reading{Axis3f: s.Gyro, Cycle: p.cycle}, fresh: true}
	p.acc = slot{value: Reading{Axis3f: s.Acc, Cycle: p.cycle}, fresh: true}
	if pres.Magnetometer && magValid {
		p.mag = slot{value: Reading{Axis3f: s.Mag, Cycle: p.cycle}, fresh: true}
	}
	if pres.Barometer {
		p.baro.value = BaroReading{Baro: s.Baro, Cycle: p.cycle}
		p.baro.fresh = true
	}
}

// TakeGyro returns the latest gyro reading if a new one has been
// committed since the last successful take. An empty channel is not an
// error, just "nothing new".
func (p *Publisher) TakeGyro() (Reading, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return takeSlot(&p.gyro)
}

// TakeAcc returns the latest accelerometer reading, if any.
func (p *Publisher) TakeAcc() (Reading, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return takeSlot(&p.acc)
}

// TakeMag returns the latest magnetometer reading, if any. Never
// succeeds while the magnetometer is absent.
func (p *Publisher) TakeMag() (Reading, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return takeSlot(&p.mag)
}

// TakeBaro returns the latest barometer reading, if any.
func (p *Publisher) TakeBaro() (BaroReading, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.baro.value, p.baro.fresh
	p.baro.fresh = false
	return v, ok
}

// Set is the result of taking all channels in one critical section.
// Every successful channel carries the same cycle stamp.
type Set struct {
	Gyro, Acc, Mag               Reading
	Baro                         BaroReading
	GyroOK, AccOK, MagOK, BaroOK bool
}

// TakeAll drains all four channels under one lock hold, so a consumer
// pairing quantities (a control loop reading gyro+accel together) gets
// an untorn set.
func (p *Publisher) TakeAll() Set {
	p.mu.Lock()
	defer p.mu.Unlock()

	var s Set
	s.Gyro, s.GyroOK = takeSlot(&p.gyro)
	s.Acc, s.AccOK = takeSlot(&p.acc)
	s.Mag, s.MagOK = takeSlot(&p.mag)
	s.Baro, s.BaroOK = p.baro.value, p.baro.fresh
	p.baro.fresh = false
	return s
}

func takeSlot(s *slot) (Reading, bool) {
	v, ok := s.value, s.fresh
	s.fresh = false
	return v, ok
}
