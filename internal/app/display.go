package app

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/flight_sensors/internal/config"
	"github.com/relabs-tech/flight_sensors/internal/snapshot"
)

// displayData holds the latest readings shown on the OLED.
type displayData struct {
	mu sync.RWMutex

	gyro     snapshot.Reading
	haveGyro bool
	acc      snapshot.Reading
	haveAcc  bool
	baro     snapshot.BaroReading
	haveBaro bool
	status   statusPayload
}

// RunDisplay shows the latest calibrated readings and the calibration
// state on an SSD1306 OLED.
func RunDisplay() error {
	cfg := config.Get()

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	disp, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Println("display: initialized")

	data := &displayData{}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDDisplay)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	subs := []struct {
		topic   string
		handler mqtt.MessageHandler
	}{
		{cfg.TopicGyro, func(_ mqtt.Client, msg mqtt.Message) {
			var r snapshot.Reading
			if json.Unmarshal(msg.Payload(), &r) == nil {
				data.mu.Lock()
				data.gyro, data.haveGyro = r, true
				data.mu.Unlock()
			}
		}},
		{cfg.TopicAccel, func(_ mqtt.Client, msg mqtt.Message) {
			var r snapshot.Reading
			if json.Unmarshal(msg.Payload(), &r) == nil {
				data.mu.Lock()
				data.acc, data.haveAcc = r, true
				data.mu.Unlock()
			}
		}},
		{cfg.TopicBaro, func(_ mqtt.Client, msg mqtt.Message) {
			var b snapshot.BaroReading
			if json.Unmarshal(msg.Payload(), &b) == nil {
				data.mu.Lock()
				data.baro, data.haveBaro = b, true
				data.mu.Unlock()
			}
		}},
		{cfg.TopicStatus, func(_ mqtt.Client, msg mqtt.Message) {
			var s statusPayload
			if json.Unmarshal(msg.Payload(), &s) == nil {
				data.mu.Lock()
				data.status = s
				data.mu.Unlock()
			}
		}},
	}
	for _, s := range subs {
		token := client.Subscribe(s.topic, 0, s.handler)
		token.Wait()
		if token.Error() != nil {
			return fmt.Errorf("subscribe %s: %w", s.topic, token.Error())
		}
	}

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for range ticker.C {
		data.mu.RLock()
		lines := renderLines(data)
		data.mu.RUnlock()

		if err := drawLines(disp, lines); err != nil {
			log.Printf("display: draw error: %v", err)
		}
	}
	return nil
}

func renderLines(d *displayData) []string {
	cal := "WARMUP"
	if d.status.Calibrated {
		cal = "CAL OK"
	}
	lines := []string{
		fmt.Sprintf("flight-sensors %s", cal),
	}
	if d.haveGyro {
		lines = append(lines, fmt.Sprintf("G %6.1f %6.1f %6.1f", d.gyro.X, d.gyro.Y, d.gyro.Z))
	}
	if d.haveAcc {
		lines = append(lines, fmt.Sprintf("A %6.2f %6.2f %6.2f", d.acc.X, d.acc.Y, d.acc.Z))
	}
	if d.haveBaro {
		lines = append(lines, fmt.Sprintf("P %7.1f mb", d.baro.Pressure))
		lines = append(lines, fmt.Sprintf("H %7.1f m", d.baro.ASL))
	}
	return lines
}

func drawLines(disp *ssd1306.Dev, lines []string) error {
	img := image1bit.NewVerticalLSB(disp.Bounds())
	drawer := font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{C: image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		drawer.Dot = fixed.P(0, 12*(i+1))
		drawer.DrawString(line)
	}
	return disp.Draw(disp.Bounds(), img, image.Point{})
}
