// Package debounce turns raw button pin samples into clean press/release
// events using a two-sample confirmation filter: a level change is reported
// only once the new level has been observed twice, at least one debounce
// window apart.
package debounce

import (
	"sync/atomic"
	"time"

	"inputcode-go/errcode"
	"inputcode-go/types"
)

// DefaultWindow suits tactile switches with a few ms of contact bounce.
const DefaultWindow = 5 * time.Millisecond

type state struct {
	def       types.ButtonDef
	stable    atomic.Bool // confirmed electrical level
	candidate bool
	candAtMs  int64
	hasCand   bool
}

// Engine debounces a fixed set of buttons. Sample mutates per-button state
// and must stay on the sampling goroutine; Pressed only loads the
// atomically published stable level, so consumers on other goroutines may
// call it freely.
type Engine struct {
	window time.Duration
	states map[types.ButtonID]*state
}

// New builds an engine for the given definitions. window <= 0 selects
// DefaultWindow. Duplicate IDs are a configuration error.
func New(defs []types.ButtonDef, window time.Duration) (*Engine, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	e := &Engine{
		window: window,
		states: make(map[types.ButtonID]*state, len(defs)),
	}
	for _, d := range defs {
		if _, dup := e.states[d.ID]; dup {
			return nil, errcode.DuplicateID
		}
		st := &state{def: d}
		st.stable.Store(d.ActiveLow) // released level
		e.states[d.ID] = st
	}
	return e, nil
}

// Window reports the configured debounce window.
func (e *Engine) Window() time.Duration { return e.window }

// Sample feeds one raw electrical level for a button. nowMs must be
// monotonically non-decreasing. Returns the event and true when a debounced
// edge is confirmed. O(1), no allocation.
func (e *Engine) Sample(id types.ButtonID, raw bool, nowMs int64) (types.InputEvent, bool, error) {
	s, ok := e.states[id]
	if !ok {
		return types.InputEvent{}, false, errcode.UnknownID
	}

	if raw == s.stable.Load() {
		// Back at the confirmed level; any pending candidate was bounce.
		s.hasCand = false
		return types.InputEvent{}, false, nil
	}

	if !s.hasCand || raw != s.candidate {
		s.candidate = raw
		s.candAtMs = nowMs
		s.hasCand = true
		return types.InputEvent{}, false, nil
	}

	if time.Duration(nowMs-s.candAtMs)*time.Millisecond < e.window {
		return types.InputEvent{}, false, nil
	}

	// Confirmed edge.
	s.stable.Store(raw)
	s.hasCand = false

	pressed := raw != s.def.ActiveLow
	kind := types.ButtonReleased
	if pressed {
		kind = types.ButtonPressed
	}
	return types.InputEvent{
		Kind:   kind,
		Button: id,
		AtMs:   nowMs,
	}, true, nil
}

// Pressed reports the debounced logical state of a button.
func (e *Engine) Pressed(id types.ButtonID) (bool, error) {
	s, ok := e.states[id]
	if !ok {
		return false, errcode.UnknownID
	}
	return s.stable.Load() != s.def.ActiveLow, nil
}
