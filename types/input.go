package types

import "inputcode-go/errcode"

// ------------------------
// IDs and pins
// ------------------------

// ButtonID and EncoderID are caller-assigned identities, unique within their
// own ID space. Applications typically declare them as consts.
type ButtonID uint16
type EncoderID uint16

// PinBank selects the source of a GPIO line.
type PinBank uint8

const (
	BankNative   PinBank = 0 // MCU / SoC pins
	BankExpander PinBank = 1 // I2C expander pins (MCP23017)
)

// GpioPin is an immutable pin descriptor: a pin number plus the bank it
// lives on.
type GpioPin struct {
	Pin  uint8   `json:"pin"`
	Bank PinBank `json:"bank,omitempty"`
}

// ------------------------
// Hardware definitions
// ------------------------

// ButtonDef describes one push-button input.
type ButtonDef struct {
	ID        ButtonID `json:"id"`
	Pin       GpioPin  `json:"pin"`
	ActiveLow bool     `json:"active_low"` // true: pressed reads electrically low
}

// NewButtonDef returns a ButtonDef with the usual pull-up wiring (active low).
func NewButtonDef(id ButtonID, pin GpioPin) ButtonDef {
	return ButtonDef{ID: id, Pin: pin, ActiveLow: true}
}

// EncoderDef describes one incremental rotary encoder read on two pins.
// TicksPerEvent groups raw quadrature ticks into detents: a standard detented
// encoder produces 4 ticks per detent.
type EncoderDef struct {
	ID              EncoderID `json:"id"`
	PinA            uint8     `json:"pin_a"`
	PinB            uint8     `json:"pin_b"`
	PPR             uint16    `json:"ppr,omitempty"`             // pulses per revolution
	RangeAngle      uint16    `json:"range_angle,omitempty"`     // usable sweep, degrees
	TicksPerEvent   uint8     `json:"ticks_per_event,omitempty"` // ticks per emitted step
	InvertDirection bool      `json:"invert_direction,omitempty"`
}

const (
	DefaultPPR           uint16 = 24
	DefaultRangeAngle    uint16 = 270
	DefaultTicksPerEvent uint8  = 4
)

// NewEncoderDef returns an EncoderDef with defaults for a common 24 PPR
// detented encoder.
func NewEncoderDef(id EncoderID, pinA, pinB uint8) EncoderDef {
	return EncoderDef{
		ID:            id,
		PinA:          pinA,
		PinB:          pinB,
		PPR:           DefaultPPR,
		RangeAngle:    DefaultRangeAngle,
		TicksPerEvent: DefaultTicksPerEvent,
	}
}

// WithDefaults fills zero-valued fields. Configs decoded from JSON may omit
// them and still mean "the usual encoder".
func (d EncoderDef) WithDefaults() EncoderDef {
	if d.PPR == 0 {
		d.PPR = DefaultPPR
	}
	if d.RangeAngle == 0 {
		d.RangeAngle = DefaultRangeAngle
	}
	if d.TicksPerEvent == 0 {
		d.TicksPerEvent = DefaultTicksPerEvent
	}
	return d
}

// Validate checks the structural invariants of a single definition.
func (d EncoderDef) Validate() error {
	if d.PPR == 0 || d.TicksPerEvent == 0 {
		return errcode.InvalidParams
	}
	if d.PinA == d.PinB {
		return errcode.InvalidParams
	}
	return nil
}
