package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/flight_sensors/internal/config"
	"github.com/relabs-tech/flight_sensors/internal/snapshot"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// latestState mirrors the last message seen on every topic.
type latestState struct {
	mu sync.RWMutex

	gyro, acc, mag             snapshot.Reading
	haveGyro, haveAcc, haveMag bool

	baro     snapshot.BaroReading
	haveBaro bool

	status     statusPayload
	haveStatus bool
}

type webPayload struct {
	Gyro   *snapshot.Reading     `json:"gyro,omitempty"`
	Acc    *snapshot.Reading     `json:"acc,omitempty"`
	Mag    *snapshot.Reading     `json:"mag,omitempty"`
	Baro   *snapshot.BaroReading `json:"baro,omitempty"`
	Status *statusPayload        `json:"status,omitempty"`
}

func (s *latestState) payload() webPayload {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p webPayload
	if s.haveGyro {
		g := s.gyro
		p.Gyro = &g
	}
	if s.haveAcc {
		a := s.acc
		p.Acc = &a
	}
	if s.haveMag {
		m := s.mag
		p.Mag = &m
	}
	if s.haveBaro {
		b := s.baro
		p.Baro = &b
	}
	if s.haveStatus {
		st := s.status
		p.Status = &st
	}
	return p
}

// RunWeb subscribes to the sensor topics and serves the latest sample
// set as a JSON API plus a websocket push stream.
func RunWeb() error {
	cfg := config.Get()
	state := &latestState{}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	subTriplet := func(topic string, dst *snapshot.Reading, have *bool) error {
		token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			var r snapshot.Reading
			if err := json.Unmarshal(msg.Payload(), &r); err != nil {
				log.Printf("web: %s unmarshal error: %v", topic, err)
				return
			}
			state.mu.Lock()
			*dst = r
			*have = true
			state.mu.Unlock()
		})
		token.Wait()
		return token.Error()
	}

	if err := subTriplet(cfg.TopicGyro, &state.gyro, &state.haveGyro); err != nil {
		return err
	}
	if err := subTriplet(cfg.TopicAccel, &state.acc, &state.haveAcc); err != nil {
		return err
	}
	if err := subTriplet(cfg.TopicMag, &state.mag, &state.haveMag); err != nil {
		return err
	}

	baroToken := client.Subscribe(cfg.TopicBaro, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var b snapshot.BaroReading
		if err := json.Unmarshal(msg.Payload(), &b); err != nil {
			log.Printf("web: baro unmarshal error: %v", err)
			return
		}
		state.mu.Lock()
		state.baro = b
		state.haveBaro = true
		state.mu.Unlock()
	})
	baroToken.Wait()
	if baroToken.Error() != nil {
		return baroToken.Error()
	}

	statusToken := client.Subscribe(cfg.TopicStatus, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s statusPayload
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("web: status unmarshal error: %v", err)
			return
		}
		state.mu.Lock()
		state.status = s
		state.haveStatus = true
		state.mu.Unlock()
	})
	statusToken.Wait()
	if statusToken.Error() != nil {
		return statusToken.Error()
	}

	// JSON API endpoint: latest sample set
	http.HandleFunc("/api/sensors", func(w http.ResponseWriter, r *http.Request) {
		p := state.payload()
		if p.Gyro == nil && p.Status == nil {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(p); err != nil {
			log.Printf("web: json encode error: %v", err)
		}
	})

	// Websocket push stream of the latest sample set
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("web: websocket upgrade error: %v", err)
			return
		}
		defer conn.Close()

		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		for range ticker.C {
			if err := conn.WriteJSON(state.payload()); err != nil {
				log.Printf("web: websocket write error: %v", err)
				return
			}
		}
	})

	// Static files from ./web as the root
	fs := http.FileServer(http.Dir("web"))
	http.Handle("/", fs)

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web server listening on %s", addr)
	return http.ListenAndServe(addr, nil)
}
