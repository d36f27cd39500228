// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
)

// MPU9250 is the primary inertial sensor. It also acts as the I2C
// master for the chained magnetometer and barometer, so one burst read
// starting at ACCEL_XOUT_H returns every enabled segment.
type MPU9250 struct {
	dev Dev
}

func NewMPU9250(bus i2c.Bus) *MPU9250 {
	return &MPU9250{dev: newDev(bus, mpuAddr)}
}

// TestConnection probes WHO_AM_I. Both the MPU9250 and the mag-less
// MPU6500 variant are accepted.
func (m *MPU9250) TestConnection() bool {
	id, err := m.dev.readReg(regWhoAmI)
	if err != nil {
		return false
	}
	return id == mpuWhoAmIMPU9250 || id == mpuWhoAmIMPU6500
}

// Init resets the device and configures clocking, full-scale ranges
// and the output rate, leaving the auxiliary bus in bypass mode so the
// optional sensors can be probed directly.
func (m *MPU9250) Init(smplrtDiv, dlpf byte) error {
	if err := m.dev.writeReg(regPwrMgmt1, bitHReset); err != nil {
		return fmt.Errorf("mpu9250 reset: %w", err)
	}
	time.Sleep(100 * time.Millisecond)
	// Wake and switch to the X gyro PLL clock once it is stable.
	if err := m.dev.writeReg(regPwrMgmt1, 0x00); err != nil {
		return fmt.Errorf("mpu9250 wake: %w", err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := m.dev.writeReg(regPwrMgmt1, bitClockPLLX); err != nil {
		return fmt.Errorf("mpu9250 clock source: %w", err)
	}
	time.Sleep(200 * time.Millisecond)

	steps := []struct {
		reg, val byte
		what     string
	}{
		{regIntEnable, 0x00, "disable interrupts"},
		{regIntPinCfg, bitI2CBypass, "aux bus bypass"},
		{regGyroConfig, gyroFS2000, "gyro full scale"},
		{regAccelConfig, accelFS8, "accel full scale"},
		{regSmplrtDiv, smplrtDiv, "sample rate divider"},
		{regConfig, dlpf, "gyro dlpf"},
		{regAccelConfig2, dlpf, "accel dlpf"},
	}
	for _, s := range steps {
		if err := m.dev.writeReg(s.reg, s.val); err != nil {
			return fmt.Errorf("mpu9250 %s: %w", s.what, err)
		}
	}
	return nil
}

// SetupSlaveRead switches the auxiliary bus from bypass to master mode
// and chains the present optional sensors as slaves, so their segments
// land in EXT_SENS_DATA right behind the gyro registers. It finishes
// by enabling the latched data-ready interrupt.
func (m *MPU9250) SetupSlaveRead(magPresent, baroPresent bool) error {
	steps := []struct {
		reg, val byte
		what     string
	}{
		{regIntPinCfg, bitLatchIntEn | bitIntAnyRdClr, "int pin latch"},
		{regI2CSlv4Ctrl, sampleRateDiv, "slave master delay"},
		{regI2CMstCtrl, i2cMstClk400kHz, "aux bus clock"},
		{regUserCtrl, bitI2CMstEn, "aux bus master mode"},
	}
	for _, s := range steps {
		if err := m.dev.writeReg(s.reg, s.val); err != nil {
			return fmt.Errorf("mpu9250 %s: %w", s.what, err)
		}
	}

	if magPresent {
		if err := m.setupSlave(0, akAddr, akRegST1, 8); err != nil {
			return fmt.Errorf("mpu9250 mag slave: %w", err)
		}
	}
	if baroPresent {
		if err := m.setupSlave(1, lpsAddr, lpsRegStatus|lpsAddrAutoInc, 6); err != nil {
			return fmt.Errorf("mpu9250 baro slave: %w", err)
		}
	}
	if err := m.dev.writeReg(regI2CMstDelay, bitSlvDelayEn); err != nil {
		return fmt.Errorf("mpu9250 slave delay: %w", err)
	}
	if err := m.dev.writeReg(regIntEnable, bitRawRdyEn); err != nil {
		return fmt.Errorf("mpu9250 data ready int: %w", err)
	}
	return nil
}

func (m *MPU9250) setupSlave(n int, addr, reg, length byte) error {
	base := byte(regI2CSlv0Addr + 3*n)
	if err := m.dev.writeReg(base, bitSlvRead|addr); err != nil {
		return err
	}
	if err := m.dev.writeReg(base+1, reg); err != nil {
		return err
	}
	return m.dev.writeReg(base+2, bitSlvEnable|length)
}

// SelfTest checks that the device still answers and that the data path
// produces a fresh sample within one output period. The full factory
// trim comparison stays inside the silicon vendor's procedure.
func (m *MPU9250) SelfTest() bool {
	if !m.TestConnection() {
		return false
	}
	status, err := m.dev.readReg(regIntStatus)
	if err != nil {
		return false
	}
	if status&bitRawRdyEn != 0 {
		return true
	}
	time.Sleep(5 * time.Millisecond)
	status, err = m.dev.readReg(regIntStatus)
	return err == nil && status&bitRawRdyEn != 0
}

// Reader exposes the burst reader for the acquisition task.
func (m *MPU9250) Reader() Dev { return m.dev }

// StartReg is the first register of the burst frame.
func (m *MPU9250) StartReg() byte { return regAccelXoutH }
