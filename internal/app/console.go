package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/flight_sensors/internal/config"
	"github.com/relabs-tech/flight_sensors/internal/snapshot"
)

// RunConsole subscribes to the sensor topics and prints each committed
// reading, one line per quantity.
func RunConsole() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	subscribeTriplet := func(topic, tag string) error {
		token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			var r snapshot.Reading
			if err := json.Unmarshal(msg.Payload(), &r); err != nil {
				log.Printf("console: %s unmarshal error: %v", topic, err)
				return
			}
			fmt.Printf("[%s] X=%8.3f  Y=%8.3f  Z=%8.3f  (cycle %d)\n", tag, r.X, r.Y, r.Z, r.Cycle)
		})
		token.Wait()
		return token.Error()
	}

	if err := subscribeTriplet(cfg.TopicGyro, "GYRO"); err != nil {
		return err
	}
	if err := subscribeTriplet(cfg.TopicAccel, "ACC "); err != nil {
		return err
	}
	if err := subscribeTriplet(cfg.TopicMag, "MAG "); err != nil {
		return err
	}

	baroToken := client.Subscribe(cfg.TopicBaro, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var b snapshot.BaroReading
		if err := json.Unmarshal(msg.Payload(), &b); err != nil {
			log.Printf("console: baro unmarshal error: %v", err)
			return
		}
		fmt.Printf("[BARO] P=%8.2f mbar  T=%6.2f C  ASL=%8.1f m  (cycle %d)\n",
			b.Pressure, b.Temperature, b.ASL, b.Cycle)
	})
	baroToken.Wait()
	if baroToken.Error() != nil {
		return baroToken.Error()
	}

	statusToken := client.Subscribe(cfg.TopicStatus, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s statusPayload
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("console: status unmarshal error: %v", err)
			return
		}
		fmt.Printf("[STAT] mag=%v baro=%v selftest=%v calibrated=%v\n",
			s.MagPresent, s.BaroPresent, s.SelfTestPassed, s.Calibrated)
	})
	statusToken.Wait()
	if statusToken.Error() != nil {
		return statusToken.Error()
	}

	log.Println("console: subscribed, waiting for data (Ctrl-C to quit)")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	client.Disconnect(250)
	return nil
}
