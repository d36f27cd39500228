// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/flight_sensors/internal/acquisition"
	"github.com/relabs-tech/flight_sensors/internal/calibration"
	"github.com/relabs-tech/flight_sensors/internal/config"
	"github.com/relabs-tech/flight_sensors/internal/imu"
	"github.com/relabs-tech/flight_sensors/internal/selftest"
	"github.com/relabs-tech/flight_sensors/internal/sensors"
	"github.com/relabs-tech/flight_sensors/internal/snapshot"
	"github.com/relabs-tech/flight_sensors/internal/units"
)

// statusPayload is the retained diagnostics message: presence flags,
// self-test outcome and calibration readiness. All fields are written
// only by this daemon; consumers treat them as read-only.
type statusPayload struct {
	MagPresent     bool   `json:"mag_present"`
	BaroPresent    bool   `json:"baro_present"`
	PrimaryTestOK  bool   `json:"primary_test_ok"`
	MagTestOK      bool   `json:"mag_test_ok"`
	BaroTestOK     bool   `json:"baro_test_ok"`
	SelfTestPassed bool   `json:"selftest_passed"`
	Calibrated     bool   `json:"calibrated"`
	Time           string `json:"time"`
}

// RunAcquisition brings up the sensor suite, runs the startup
// self-test, starts the interrupt-driven acquisition task and streams
// the published snapshots out over MQTT.
func RunAcquisition(ctx context.Context) error {
	log.Println("starting flight-sensors acquisition daemon")

	cfg := config.Get()

	// --- device bring-up ---
	bus, err := sensors.OpenBus(cfg.I2CBus)
	if err != nil {
		return err
	}
	defer bus.Close()

	suite, err := sensors.Bringup(bus, cfg.IMUSampleRateDiv, cfg.IMUDLPFConfig)
	if err != nil {
		return err
	}
	log.Printf("bring-up done: mag present=%v baro present=%v",
		suite.Presence.Magnetometer, suite.Presence.Barometer)

	// --- startup self-test (diagnostic, never blocks startup) ---
	seq := selftest.NewSequencer()
	seq.Attempts = cfg.SelfTestAttempts
	seq.Delay = time.Duration(cfg.SelfTestDelayMS) * time.Millisecond
	testResult := seq.Run(suite.IMU.SelfTest, suite.Mag.SelfTest, suite.Baro.SelfTest, suite.Presence)
	log.Printf("self-test: primary=%v mag=%v baro=%v aggregate=%v",
		testResult.Primary, testResult.Magnetometer, testResult.Barometer,
		testResult.Passed(suite.Presence))

	// --- interrupt-to-task handoff ---
	ready := acquisition.NewNotifier()
	edge, err := sensors.OpenEdgePin(cfg.IMUIntPin)
	if err != nil {
		return err
	}
	go edge.Watch(ctx, ready)

	// --- acquisition pipeline ---
	cal := calibration.NewEngine(uint32(cfg.WarmupSamples), units.GPerLSB, cfg.GyroStdDev)
	pub := snapshot.NewPublisher()
	task := acquisition.New(suite.IMU.Reader(), suite.IMU.StartReg(), ready, suite.Presence, cal, pub)

	taskErr := make(chan error, 1)
	go func() { taskErr <- task.Run(ctx) }()

	// --- connect to MQTT ---
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDAcq)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)

	log.Println("connected to MQTT, starting telemetry loop")

	ticker := time.NewTicker(time.Duration(cfg.TelemetryInterval) * time.Millisecond)
	defer ticker.Stop()
	statusTicker := time.NewTicker(time.Second)
	defer statusTicker.Stop()

	wasCalibrated := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-taskErr:
			return err

		case <-statusTicker.C:
			publishStatus(client, cfg, suite, testResult, task.Calibrated())

		case t := <-ticker.C:
			set := pub.TakeAll()
			if set.GyroOK {
				publishJSON(client, cfg.TopicGyro, set.Gyro)
			}
			if set.AccOK {
				publishJSON(client, cfg.TopicAccel, set.Acc)
			}
			if set.MagOK {
				publishJSON(client, cfg.TopicMag, set.Mag)
			}
			if set.BaroOK {
				publishJSON(client, cfg.TopicBaro, set.Baro)
			}

			if !wasCalibrated && task.Calibrated() {
				wasCalibrated = true
				bias := cal.GyroBias()
				sdev := cal.GyroBiasStdDev()
				log.Printf("%s calibration converged: bias=(%.2f %.2f %.2f) stddev=(%.2f %.2f %.2f) accel scale=%.4f",
					t.Format(time.RFC3339),
					bias.X, bias.Y, bias.Z, sdev.X, sdev.Y, sdev.Z, cal.AccScale())
				publishStatus(client, cfg, suite, testResult, true)
			}
		}
	}
}

func publishJSON(client mqtt.Client, topic string, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("json marshal error (%s): %v", topic, err)
		return
	}
	if token := client.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
		log.Printf("MQTT publish error (%s): %v", topic, token.Error())
	}
}

func publishStatus(client mqtt.Client, cfg *config.Config, suite *sensors.Suite, r imu.SelfTestResult, calibrated bool) {
	publishJSON(client, cfg.TopicStatus, statusPayload{
		MagPresent:     suite.Presence.Magnetometer,
		BaroPresent:    suite.Presence.Barometer,
		PrimaryTestOK:  r.Primary,
		MagTestOK:      r.Magnetometer,
		BaroTestOK:     r.Barometer,
		SelfTestPassed: r.Passed(suite.Presence),
		Calibrated:     calibrated,
		Time:           time.Now().Format(time.RFC3339),
	})
}
