// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors brings up the physical sensor suite over I2C and
// exposes the burst reader and data-ready pin the acquisition task
// consumes.
package sensors

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// Dev wraps one I2C slave with register-level helpers.
type Dev struct {
	d i2c.Dev
}

func newDev(bus i2c.Bus, addr uint16) Dev {
	return Dev{d: i2c.Dev{Bus: bus, Addr: addr}}
}

func (dv Dev) writeReg(reg, val byte) error {
	return dv.d.Tx([]byte{reg, val}, nil)
}

func (dv Dev) readReg(reg byte) (byte, error) {
	var v [1]byte
	if err := dv.d.Tx([]byte{reg}, v[:]); err != nil {
		return 0, err
	}
	return v[0], nil
}

// ReadBurst fills buf with one contiguous register read starting at
// startReg. This is the acquisition.BusReader implementation.
func (dv Dev) ReadBurst(startReg byte, buf []byte) error {
	return dv.d.Tx([]byte{startReg}, buf)
}

// OpenBus initializes the periph host and opens the named I2C bus at
// 400 kHz. An empty name selects the platform default.
func OpenBus(name string) (i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("i2c open %q: %w", name, err)
	}
	if err := bus.SetSpeed(400 * physic.KiloHertz); err != nil {
		// Some adapters reject speed changes; not fatal.
		log.Printf("sensors: i2c speed not set: %v", err)
	}
	return bus, nil
}
