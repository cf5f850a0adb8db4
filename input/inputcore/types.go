// input/inputcore/types.go
package inputcore

import (
	"inputcode-go/errcode"
	"inputcode-go/types"
)

// ---- GPIO abstractions ----

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// InputPin is one readable line, already configured as an input.
type InputPin interface {
	// Read returns the electrical level. Errors are transient (bus glitch,
	// expander NAK); callers count them and keep sampling.
	Read() (bool, error)
	Number() int
}

// PinFactory supplies configured input pins for one bank.
type PinFactory interface {
	Input(n int, pull Pull) (InputPin, error)
}

// Refresher is implemented by factories that sample all their lines in one
// transaction (I2C expanders). Call once per tick, before reading pins.
type Refresher interface {
	Refresh() error
}

// ---- Bank mux ----

// Mux routes pin requests to per-bank factories, so native MCU pins and
// expander pins mix freely in one definition table.
type Mux struct {
	banks map[types.PinBank]PinFactory
}

func NewMux() *Mux {
	return &Mux{banks: make(map[types.PinBank]PinFactory)}
}

// Register installs the factory for a bank, replacing any previous one.
func (m *Mux) Register(bank types.PinBank, f PinFactory) {
	m.banks[bank] = f
}

// Input resolves a pin descriptor against the registered banks.
func (m *Mux) Input(p types.GpioPin, pull Pull) (InputPin, error) {
	f, ok := m.banks[p.Bank]
	if !ok {
		return nil, errcode.UnknownPin
	}
	return f.Input(int(p.Pin), pull)
}

// Refreshers returns the registered factories that need a per-tick refresh.
func (m *Mux) Refreshers() []Refresher {
	var out []Refresher
	for _, f := range m.banks {
		if r, ok := f.(Refresher); ok {
			out = append(out, r)
		}
	}
	return out
}
