// input/platform/pins_rp2.go
//go:build rp2040 || rp2350

package platform

import (
	"machine"

	"inputcode-go/errcode"
	"inputcode-go/input/inputcore"

	"tinygo.org/x/drivers"
)

type rp2PinFactory struct{}

type rp2Pin struct {
	p machine.Pin
	n int
}

// NewPinFactory returns the native GPIO bank of the RP2 family.
func NewPinFactory() inputcore.PinFactory { return rp2PinFactory{} }

func (rp2PinFactory) Input(n int, pull inputcore.Pull) (inputcore.InputPin, error) {
	if n < 0 || n > 28 {
		return nil, errcode.UnknownPin
	}
	p := machine.Pin(n)
	var mode machine.PinMode
	switch pull {
	case inputcore.PullUp:
		mode = machine.PinInputPullup
	case inputcore.PullDown:
		mode = machine.PinInputPulldown
	default:
		mode = machine.PinInput
	}
	p.Configure(machine.PinConfig{Mode: mode})
	return &rp2Pin{p: p, n: n}, nil
}

func (r *rp2Pin) Read() (bool, error) { return r.p.Get(), nil }
func (r *rp2Pin) Number() int         { return r.n }

// DefaultI2C configures i2c0 at 400 kHz on the board-default pins, for the
// MCP23017 expander bank.
func DefaultI2C() drivers.I2C {
	b := machine.I2C0
	_ = b.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       machine.I2C0_SDA_PIN,
		SCL:       machine.I2C0_SCL_PIN,
	})
	return b
}
