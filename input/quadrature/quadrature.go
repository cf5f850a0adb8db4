// Package quadrature decodes incremental rotary encoders from sampled A/B
// pin levels. Decoding is table-driven over the 2-bit Gray code: each valid
// single-bit transition contributes one raw tick, invalid double-bit jumps
// are treated as noise and ignored. Raw ticks are grouped into detents via
// TicksPerEvent before an event is emitted.
package quadrature

import (
	"sync/atomic"

	"inputcode-go/errcode"
	"inputcode-go/types"
	"inputcode-go/x/mathx"
)

// transitions is indexed by last<<2|cur, where each state is A<<1|B.
// +1 for a clockwise step, -1 counter-clockwise, 0 for no change or an
// invalid jump.
var transitions = [16]int8{
	0, +1, -1, 0,
	-1, 0, 0, +1,
	+1, 0, 0, -1,
	0, -1, +1, 0,
}

type encState struct {
	def    types.EncoderDef
	last   uint8 // previous A<<1|B
	primed bool
	acc    int16        // ticks toward the next event, remainder carried
	total  atomic.Int32 // lifetime raw ticks, signed
}

// Decoder tracks a fixed set of encoders. Sample mutates decode state and
// must stay on the sampling goroutine; Ticks and Def only touch the atomic
// tick counter and the immutable definition, so consumers on other
// goroutines may call them freely.
type Decoder struct {
	states map[types.EncoderID]*encState
}

// New builds a decoder. Each definition must pass Validate after defaults
// are applied; duplicate IDs are a configuration error.
func New(defs []types.EncoderDef) (*Decoder, error) {
	d := &Decoder{states: make(map[types.EncoderID]*encState, len(defs))}
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if _, dup := d.states[def.ID]; dup {
			return nil, errcode.DuplicateID
		}
		d.states[def.ID] = &encState{def: def}
	}
	return d, nil
}

// Sample feeds one pair of raw A/B levels. The first sample only primes the
// state so power-on pin levels never produce a phantom tick. Returns the
// event and true when enough ticks accumulated for at least one detent.
// O(1), no allocation.
func (d *Decoder) Sample(id types.EncoderID, levelA, levelB bool, nowMs int64) (types.InputEvent, bool, error) {
	s, ok := d.states[id]
	if !ok {
		return types.InputEvent{}, false, errcode.UnknownID
	}

	var cur uint8
	if levelA {
		cur |= 2
	}
	if levelB {
		cur |= 1
	}

	if !s.primed {
		s.last = cur
		s.primed = true
		return types.InputEvent{}, false, nil
	}

	tick := transitions[s.last<<2|cur]
	s.last = cur
	if tick == 0 {
		return types.InputEvent{}, false, nil
	}
	if s.def.InvertDirection {
		tick = -tick
	}
	s.total.Add(int32(tick))
	s.acc += int16(tick)

	tpe := int16(s.def.TicksPerEvent)
	if mathx.Abs(s.acc) < tpe {
		return types.InputEvent{}, false, nil
	}

	steps := mathx.Abs(s.acc) / tpe
	dir := types.CW
	if s.acc < 0 {
		dir = types.CCW
	}
	s.acc -= steps * tpe * int16(dir)

	return types.InputEvent{
		Kind:    types.EncoderTurned,
		Encoder: id,
		Dir:     dir,
		Steps:   uint16(steps),
		AtMs:    nowMs,
	}, true, nil
}

// Ticks reports the lifetime signed raw tick count of an encoder.
func (d *Decoder) Ticks(id types.EncoderID) (int32, error) {
	s, ok := d.states[id]
	if !ok {
		return 0, errcode.UnknownID
	}
	return s.total.Load(), nil
}

// Def returns the definition an encoder was configured with.
func (d *Decoder) Def(id types.EncoderID) (types.EncoderDef, error) {
	s, ok := d.states[id]
	if !ok {
		return types.EncoderDef{}, errcode.UnknownID
	}
	return s.def, nil
}

// Angle converts accumulated raw ticks to degrees of shaft travel using the
// definition's PPR (4 raw ticks per pulse), clamped to [0, RangeAngle].
func Angle(def types.EncoderDef, ticks int32) float32 {
	def = def.WithDefaults()
	deg := float32(ticks) * float32(def.RangeAngle) / float32(uint32(def.PPR)*4)
	return mathx.Clamp(deg, 0, float32(def.RangeAngle))
}
