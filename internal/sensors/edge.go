package sensors

import (
	"context"
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"github.com/relabs-tech/flight_sensors/internal/acquisition"
)

// EdgePin is the data-ready interrupt line from the MPU9250.
type EdgePin struct {
	pin gpio.PinIn
}

// OpenEdgePin configures the named GPIO for rising-edge detection.
func OpenEdgePin(name string) (*EdgePin, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("gpio pin %q not found", name)
	}
	if err := pin.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		return nil, fmt.Errorf("gpio pin %q edge setup: %w", name, err)
	}
	return &EdgePin{pin: pin}, nil
}

// Watch forwards every detected edge into the notifier until the
// context ends. It is the hardware-side half of the interrupt-to-task
// handoff; excess edges coalesce in the notifier's single slot.
func (e *EdgePin) Watch(ctx context.Context, n *acquisition.Notifier) {
	for ctx.Err() == nil {
		// Bounded wait so cancellation is noticed between edges.
		if e.pin.WaitForEdge(time.Second) {
			n.Signal()
		}
	}
	if err := e.pin.Halt(); err != nil {
		log.Printf("sensors: edge pin halt: %v", err)
	}
}
