// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package calibration estimates the gyro bias and the accelerometer
// gravity scale from a fixed warm-up window of stationary samples.
package calibration

import (
	"math"

	"github.com/relabs-tech/flight_sensors/internal/imu"
)

// DefaultWarmupSamples is the reference warm-up window length.
const DefaultWarmupSamples = 1024

// Engine accumulates raw samples until exactly N have been seen, then
// freezes the bias and scale for the remaining process lifetime. It is
// owned by the acquisition task and must not be touched from any other
// goroutine.
type Engine struct {
	n       uint32
	gPerLSB float64
	stddev  bool

	sampleCount uint32
	gyroSum     imu.Axis3i64
	gyroSumSq   imu.Axis3i64
	accMagSum   float64

	converged    bool
	gyroBias     imu.Axis3f
	gyroBiasSDev imu.Axis3f
	accScale     float64
}

// NewEngine configures an engine for n warm-up samples. gPerLSB is the
// uncalibrated accelerometer conversion used while accumulating the
// gravity magnitude. withStdDev additionally tracks the per-axis
// population standard deviation, exposed for diagnostics only.
func NewEngine(n uint32, gPerLSB float64, withStdDev bool) *Engine {
	if n == 0 {
		n = DefaultWarmupSamples
	}
	return &Engine{n: n, gPerLSB: gPerLSB, stddev: withStdDev, accScale: 1}
}

// Accumulate feeds one raw gyro/accel sample pair. After convergence
// it is a single-branch no-op.
func (e *Engine) Accumulate(gyro, acc imu.Axis3i16) {
	if e.converged {
		return
	}

	e.gyroSum.Add(gyro)
	if e.stddev {
		e.gyroSumSq.AddSquares(gyro)
	}
	ax := float64(acc.X) * e.gPerLSB
	ay := float64(acc.Y) * e.gPerLSB
	az := float64(acc.Z) * e.gPerLSB
	e.accMagSum += math.Sqrt(ax*ax + ay*ay + az*az)
	e.sampleCount++

	if e.sampleCount == e.n {
		n := float64(e.n)
		e.gyroBias.X = float64(e.gyroSum.X) / n
		e.gyroBias.Y = float64(e.gyroSum.Y) / n
		e.gyroBias.Z = float64(e.gyroSum.Z) / n
		if e.stddev {
			e.gyroBiasSDev.X = math.Sqrt(float64(e.gyroSumSq.X)/n - e.gyroBias.X*e.gyroBias.X)
			e.gyroBiasSDev.Y = math.Sqrt(float64(e.gyroSumSq.Y)/n - e.gyroBias.Y*e.gyroBias.Y)
			e.gyroBiasSDev.Z = math.Sqrt(float64(e.gyroSumSq.Z)/n - e.gyroBias.Z*e.gyroBias.Z)
		}
		e.accScale = e.accMagSum / n
		e.converged = true
	}
}

// Converged reports whether the warm-up window has completed. Until it
// has, bias-corrected output must not be trusted.
func (e *Engine) Converged() bool { return e.converged }

// GyroBias returns the raw-domain bias mean. Zero until convergence.
func (e *Engine) GyroBias() imu.Axis3f { return e.gyroBias }

// GyroBiasStdDev returns the per-axis population standard deviation of
// the warm-up window. Diagnostic only; it never gates convergence.
func (e *Engine) GyroBiasStdDev() imu.Axis3f { return e.gyroBiasSDev }

// AccScale returns the measured gravity magnitude used to normalize
// accelerometer output to 1 g at rest. 1.0 until convergence.
func (e *Engine) AccScale() float64 { return e.accScale }

// SampleCount returns how many warm-up samples have been accumulated.
func (e *Engine) SampleCount() uint32 { return e.sampleCount }
