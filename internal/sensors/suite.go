// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/i2c"

	"github.com/relabs-tech/flight_sensors/internal/imu"
)

// Suite is the brought-up sensor stack: the primary IMU plus whichever
// optional sensors answered their connectivity check.
type Suite struct {
	IMU      *MPU9250
	Mag      *AK8963
	Baro     *LPS25H
	Presence imu.Presence
}

// Bringup initializes the whole suite. An optional sensor failing its
// connectivity check is logged, its presence flag stays false and its
// segment/channel is disabled for the process lifetime; only a primary
// sensor failure is an error.
func Bringup(bus i2c.Bus, smplrtDiv, dlpf byte) (*Suite, error) {
	s := &Suite{
		IMU:  NewMPU9250(bus),
		Mag:  NewAK8963(bus),
		Baro: NewLPS25H(bus),
	}

	if !s.IMU.TestConnection() {
		return nil, fmt.Errorf("mpu9250 not responding")
	}
	log.Println("sensors: MPU9250 connection [OK]")

	if err := s.IMU.Init(smplrtDiv, dlpf); err != nil {
		return nil, err
	}
	// Bypass mode is active now; probe the optional sensors directly.
	time.Sleep(10 * time.Millisecond)

	if s.Mag.TestConnection() {
		if err := s.Mag.Init(); err != nil {
			log.Printf("sensors: AK8963 init failed: %v", err)
		} else {
			s.Presence.Magnetometer = true
			log.Println("sensors: AK8963 connection [OK]")
		}
	} else {
		log.Println("sensors: AK8963 connection [FAIL]")
	}

	if s.Baro.TestConnection() {
		if err := s.Baro.Init(); err != nil {
			log.Printf("sensors: LPS25H init failed: %v", err)
		} else {
			s.Presence.Barometer = true
			log.Println("sensors: LPS25H connection [OK]")
		}
	} else {
		log.Println("sensors: LPS25H connection [FAIL]")
	}

	if err := s.IMU.SetupSlaveRead(s.Presence.Magnetometer, s.Presence.Barometer); err != nil {
		return nil, err
	}
	return s, nil
}
