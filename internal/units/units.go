// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package units converts decoded raw sensor values into calibrated
// physical units. Conversion is pure: the same raw input and
// calibration state always produce the same sample.
package units

import (
	"math"

	"github.com/relabs-tech/flight_sensors/internal/calibration"
	"github.com/relabs-tech/flight_sensors/internal/frame"
	"github.com/relabs-tech/flight_sensors/internal/imu"
)

// LSB conversion constants for the configured full-scale ranges.
const (
	DegPerLSB   = 2.0 * 2000.0 / 65536.0 // gyro at ±2000 °/s
	GPerLSB     = 2.0 * 8.0 / 65536.0    // accel at ±8 g
	GaussPerLSB = 666.7                  // mag LSB per gauss (divisor)

	PressureLSBPerMbar = 4096.0
	TempLSBPerCelsius  = 480.0
	TempOffset         = 42.5
)

// QNH is the standard-atmosphere sea level reference pressure in mbar.
const QNH = 1013.25

// Convert applies bias subtraction, gravity-scale division, the
// mounting sign correction and LSB conversion to one cycle's raw
// values. Before calibration converges it uses bias 0 and scale 1.
//
// The decoder already swapped the rotated X/Y axis order; the X axis
// additionally changes sign here to complete the mounting correction.
func Convert(raw frame.Raw, cal *calibration.Engine, p imu.Presence) imu.SensorData {
	bias := cal.GyroBias()
	scale := cal.AccScale()

	var s imu.SensorData
	s.Gyro.X = -(float64(raw.Gyro.X) - bias.X) * DegPerLSB
	s.Gyro.Y = (float64(raw.Gyro.Y) - bias.Y) * DegPerLSB
	s.Gyro.Z = (float64(raw.Gyro.Z) - bias.Z) * DegPerLSB

	s.Acc.X = -float64(raw.Acc.X) * GPerLSB / scale
	s.Acc.Y = float64(raw.Acc.Y) * GPerLSB / scale
	s.Acc.Z = float64(raw.Acc.Z) * GPerLSB / scale

	if p.Magnetometer {
		s.Mag.X = float64(raw.Mag.X) / GaussPerLSB
		s.Mag.Y = float64(raw.Mag.Y) / GaussPerLSB
		s.Mag.Z = float64(raw.Mag.Z) / GaussPerLSB
	}

	if p.Barometer {
		s.Baro.Pressure = float64(raw.RawPressure) / PressureLSBPerMbar
		s.Baro.Temperature = TempOffset + float64(raw.RawTemp)/TempLSBPerCelsius
		s.Baro.ASL = PressureToAltitude(s.Baro.Pressure)
	}
	return s
}

// PressureToAltitude converts a pressure in mbar to altitude above sea
// level in meters using the standard atmosphere. Monotonic decreasing
// in pressure; zero for non-positive input.
func PressureToAltitude(pressureMbar float64) float64 {
	if pressureMbar <= 0 {
		return 0
	}
	return (math.Pow(QNH/pressureMbar, 0.1902630958) - 1.0) * (25.0 + 273.15) / 0.0065
}
