package types

// ------------------------
// Input events
// ------------------------

type EventKind uint8

const (
	ButtonPressed EventKind = iota + 1
	ButtonReleased
	EncoderTurned
)

func (k EventKind) String() string {
	switch k {
	case ButtonPressed:
		return "button_pressed"
	case ButtonReleased:
		return "button_released"
	case EncoderTurned:
		return "encoder_turned"
	default:
		return "unknown"
	}
}

// Direction of encoder rotation.
type Direction int8

const (
	CW  Direction = 1
	CCW Direction = -1
)

func (d Direction) String() string {
	if d == CCW {
		return "ccw"
	}
	return "cw"
}

// InputEvent is one debounced button edge or one encoder detent group.
// Kind selects which fields are meaningful: Button for the button kinds,
// Encoder/Dir/Steps for EncoderTurned. Value type so queue slots don't
// allocate.
type InputEvent struct {
	Kind    EventKind
	Button  ButtonID
	Encoder EncoderID
	Dir     Direction
	Steps   uint16 // detents in this event, >= 1
	AtMs    int64  // sample timestamp, milliseconds
}

// ------------------------
// Bus payloads
// ------------------------

type ButtonEventPayload struct {
	ID      ButtonID `json:"id"`
	Pressed bool     `json:"pressed"`
	AtMs    int64    `json:"at_ms"`
}

type EncoderEventPayload struct {
	ID    EncoderID `json:"id"`
	Dir   string    `json:"dir"` // "cw" or "ccw"
	Steps uint16    `json:"steps"`
	AtMs  int64     `json:"at_ms"`
}

type ButtonValue struct {
	Pressed bool `json:"pressed"`
}

type EncoderValue struct {
	Ticks    int32   `json:"ticks"`     // accumulated raw ticks since start
	AngleDeg float32 `json:"angle_deg"` // advisory, derived from PPR/RangeAngle
}
