// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

// Axis3i16 is a raw sensor triplet straight from the wire.
type Axis3i16 struct {
	X int16 `json:"x"`
	Y int16 `json:"y"`
	Z int16 `json:"z"`
}

// Axis3i64 accumulates raw triplets across thousands of samples
// without overflowing.
type Axis3i64 struct {
	X int64 `json:"x"`
	Y int64 `json:"y"`
	Z int64 `json:"z"`
}

// Axis3f is a triplet in physical units (deg/s, g, gauss).
type Axis3f struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add accumulates a raw triplet.
func (a *Axis3i64) Add(v Axis3i16) {
	a.X += int64(v.X)
	a.Y += int64(v.Y)
	a.Z += int64(v.Z)
}

// AddSquares accumulates the squares of a raw triplet.
func (a *Axis3i64) AddSquares(v Axis3i16) {
	a.X += int64(v.X) * int64(v.X)
	a.Y += int64(v.Y) * int64(v.Y)
	a.Z += int64(v.Z) * int64(v.Z)
}

// Baro is a calibrated barometer reading.
type Baro struct {
	Pressure    float64 `json:"pressure_mbar"` // mbar
	Temperature float64 `json:"temp_c"`        // °C
	ASL         float64 `json:"asl_m"`         // altitude above sea level, m
}

// SensorData is one acquisition cycle's calibrated output. Immutable
// once committed to the snapshot publisher.
type SensorData struct {
	Gyro Axis3f `json:"gyro"` // deg/s
	Acc  Axis3f `json:"acc"`  // g
	Mag  Axis3f `json:"mag"`  // gauss
	Baro Baro   `json:"baro"`
}

// Presence records which optional sensors answered at bring-up.
// Written once before the acquisition task starts, read-only after.
type Presence struct {
	Magnetometer bool `json:"magnetometer"`
	Barometer    bool `json:"barometer"`
}

// SelfTestResult is the startup self-test outcome per sensor.
// Written once by the self-test sequencer, read-only diagnostics after.
type SelfTestResult struct {
	Primary      bool `json:"primary"`
	Magnetometer bool `json:"magnetometer"`
	Barometer    bool `json:"barometer"`
}

// Passed reports the aggregate outcome: the primary sensor and every
// present optional sensor must have passed.
func (r SelfTestResult) Passed(p Presence) bool {
	ok := r.Primary
	if p.Magnetometer {
		ok = ok && r.Magnetometer
	} else {
		ok = false
	}
	if p.Barometer {
		ok = ok && r.Barometer
	} else {
		ok = false
	}
	return ok
}
