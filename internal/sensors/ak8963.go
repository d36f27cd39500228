package sensors

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
)

// AK8963 is the optional magnetometer, probed over the MPU9250's
// bypass bus at bring-up and read through slave chaining afterwards.
type AK8963 struct {
	dev Dev
}

func NewAK8963(bus i2c.Bus) *AK8963 {
	return &AK8963{dev: newDev(bus, akAddr)}
}

func (a *AK8963) TestConnection() bool {
	id, err := a.dev.readReg(akRegWIA)
	return err == nil && id == akWhoAmI
}

// Init puts the device into 16-bit continuous measurement mode.
func (a *AK8963) Init() error {
	if err := a.dev.writeReg(akRegCNTL1, akMode16BitCont2); err != nil {
		return fmt.Errorf("ak8963 mode: %w", err)
	}
	return nil
}

// SelfTest re-checks the device identity. The built-in field generator
// sequence is the vendor's procedure and stays out of scope here.
func (a *AK8963) SelfTest() bool {
	return a.TestConnection()
}
