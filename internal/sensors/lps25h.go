package sensors

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
)

// LPS25H is the optional barometer, chained as the second auxiliary
// slave behind the MPU9250.
type LPS25H struct {
	dev Dev
}

func NewLPS25H(bus i2c.Bus) *LPS25H {
	return &LPS25H{dev: newDev(bus, lpsAddr)}
}

func (l *LPS25H) TestConnection() bool {
	id, err := l.dev.readReg(lpsRegWhoAmI)
	return err == nil && id == lpsWhoAmI
}

// Init powers the device up with continuous pressure and temperature
// output.
func (l *LPS25H) Init() error {
	if err := l.dev.writeReg(lpsRegCtrl1, lpsCtrl1Active); err != nil {
		return fmt.Errorf("lps25h enable: %w", err)
	}
	return nil
}

// SelfTest verifies the device identity and that it reports a status
// register at all.
func (l *LPS25H) SelfTest() bool {
	if !l.TestConnection() {
		return false
	}
	_, err := l.dev.readReg(lpsRegStatus)
	return err == nil
}
