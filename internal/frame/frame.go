// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package frame

import (
	"github.com/relabs-tech/flight_sensors/internal/imu"
)

// Segment lengths of one burst read. The primary segment is always
// present; mag and baro segments follow only for sensors that answered
// at bring-up.
const (
	PrimaryLen = 14 // accel XYZ (6) + temp (2) + gyro XYZ (6)
	MagLen     = 8  // ST1 + XYZ (6) + ST2
	BaroLen    = 6  // status + pressure (3) + temp (2)
)

// Mag ST1 data-ready bit, and the baro status bits for independent
// pressure/temperature updates.
const (
	magDRDYBit   = 0x01
	baroNewPress = 0x02
	baroNewTemp  = 0x01
)

// Len returns the burst length for the enabled segments. Callers size
// the bus read with this; Decode assumes the buffer matches.
func Len(p imu.Presence) int {
	n := PrimaryLen
	if p.Magnetometer {
		n += MagLen
	}
	if p.Barometer {
		n += BaroLen
	}
	return n
}

// Raw is one cycle's decoded raw values. Mag and baro fields carry the
// last known value when their segment is absent or flagged stale.
type Raw struct {
	Acc         imu.Axis3i16
	Gyro        imu.Axis3i16
	Mag         imu.Axis3i16
	MagValid    bool // a mag value has been latched at least once
	RawPressure uint32
	RawTemp     int16
}

// Decoder turns burst buffers into raw triplets. It owns the sticky
// last-known mag and baro values, so it is bound to the acquisition
// task's context like the rest of the pipeline state.
type Decoder struct {
	presence imu.Presence
	last     Raw
}

func NewDecoder(p imu.Presence) *Decoder {
	return &Decoder{presence: p}
}

// Decode interprets one burst buffer. The buffer must be Len(presence)
// bytes; shorter buffers are a caller contract violation.
//
// The accelerometer and gyro are wired through a 90° rotated mounting:
// on the wire the body Y axis comes first, then X, then Z. Decode
// swaps them back; the matching X sign flip happens in units.Convert.
func (d *Decoder) Decode(buf []byte) Raw {
	d.last.Acc.Y = be16(buf[0], buf[1])
	d.last.Acc.X = be16(buf[2], buf[3])
	d.last.Acc.Z = be16(buf[4], buf[5])
	// buf[6:8] is the die temperature, unused here
	d.last.Gyro.Y = be16(buf[8], buf[9])
	d.last.Gyro.X = be16(buf[10], buf[11])
	d.last.Gyro.Z = be16(buf[12], buf[13])

	off := PrimaryLen
	if d.presence.Magnetometer {
		d.decodeMag(buf[off : off+MagLen])
		off += MagLen
	}
	if d.presence.Barometer {
		d.decodeBaro(buf[off : off+BaroLen])
	}
	return d.last
}

// decodeMag latches a new heading triplet only when ST1 flags data
// ready; otherwise the previous triplet is retained unchanged.
func (d *Decoder) decodeMag(seg []byte) {
	if seg[0]&magDRDYBit == 0 {
		return
	}
	d.last.Mag.X = le16(seg[1], seg[2])
	d.last.Mag.Y = le16(seg[3], seg[4])
	d.last.Mag.Z = le16(seg[5], seg[6])
	d.last.MagValid = true
}

// decodeBaro updates pressure and temperature independently, each only
// when its status bit is set (sticky last value, never zero-filled).
func (d *Decoder) decodeBaro(seg []byte) {
	if seg[0]&baroNewPress != 0 {
		d.last.RawPressure = uint32(seg[3])<<16 | uint32(seg[2])<<8 | uint32(seg[1])
	}
	if seg[0]&baroNewTemp != 0 {
		d.last.RawTemp = le16(seg[4], seg[5])
	}
}

func be16(hi, lo byte) int16 {
	return int16(uint16(hi)<<8 | uint16(lo))
}

func le16(lo, hi byte) int16 {
	return int16(uint16(hi)<<8 | uint16(lo))
}
