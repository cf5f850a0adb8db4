// Package expander exposes an MCP23017 I2C port expander as an input pin
// bank. All 16 lines are sampled in one bus transaction per tick via
// Refresh; individual Reads serve from that snapshot, so adding expander
// buttons does not multiply I2C traffic.
package expander

import (
	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/mcp23017"

	"inputcode-go/errcode"
	"inputcode-go/input/inputcore"
)

type Factory struct {
	dev   *mcp23017.Device
	snap  mcp23017.Pins
	valid bool
}

// New opens the expander at addr (0x20..0x27 per the address pins).
func New(bus drivers.I2C, addr uint8) (*Factory, error) {
	dev, err := mcp23017.NewI2C(bus, addr)
	if err != nil {
		return nil, &errcode.E{C: errcode.NotReady, Op: "expander.New", Err: err}
	}
	return &Factory{dev: dev}, nil
}

func (f *Factory) Input(n int, pull inputcore.Pull) (inputcore.InputPin, error) {
	if n < 0 || n > 15 {
		return nil, errcode.UnknownPin
	}
	mode := mcp23017.Input
	switch pull {
	case inputcore.PullUp:
		mode |= mcp23017.Pullup
	case inputcore.PullDown:
		// The chip only has pull-ups.
		return nil, errcode.Unsupported
	}
	if err := f.dev.Pin(n).SetMode(mode); err != nil {
		return nil, err
	}
	return &xpin{f: f, n: n}, nil
}

// Refresh reads both ports in one transaction. Until the first successful
// refresh, pin reads report not_ready.
func (f *Factory) Refresh() error {
	pins, err := f.dev.GetPins()
	if err != nil {
		f.valid = false
		return &errcode.E{C: errcode.MapDriverErr(err), Op: "expander.Refresh", Err: err}
	}
	f.snap = pins
	f.valid = true
	return nil
}

type xpin struct {
	f *Factory
	n int
}

func (p *xpin) Read() (bool, error) {
	if !p.f.valid {
		return false, errcode.NotReady
	}
	return p.f.snap.Get(p.n), nil
}

func (p *xpin) Number() int { return p.n }
