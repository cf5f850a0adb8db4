// debounce/debounce_test.go
package debounce

import (
	"testing"
	"time"

	"inputcode-go/errcode"
	"inputcode-go/types"
)

const btnID types.ButtonID = 10

func newTestEngine(t *testing.T, window time.Duration) *Engine {
	t.Helper()
	e, err := New([]types.ButtonDef{
		types.NewButtonDef(btnID, types.GpioPin{Pin: 5}),
	}, window)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

// feed runs a sample sequence at 1 ms intervals and returns emitted events.
func feed(t *testing.T, e *Engine, levels []bool) []types.InputEvent {
	t.Helper()
	var out []types.InputEvent
	for i, lv := range levels {
		ev, ok, err := e.Sample(btnID, lv, int64(i))
		if err != nil {
			t.Fatalf("Sample(%d): %v", i, err)
		}
		if ok {
			out = append(out, ev)
		}
	}
	return out
}

const (
	hi = true
	lo = false
)

func TestPressConfirmedAfterWindow(t *testing.T) {
	e := newTestEngine(t, 2*time.Millisecond)

	// Active-low button held down from the third sample.
	events := feed(t, e, []bool{hi, hi, lo, lo, lo})

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d: %v", len(events), events)
	}
	ev := events[0]
	if ev.Kind != types.ButtonPressed || ev.Button != btnID {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.AtMs != 4 {
		t.Fatalf("expected confirmation at t=4, got t=%d", ev.AtMs)
	}
	pressed, err := e.Pressed(btnID)
	if err != nil || !pressed {
		t.Fatalf("Pressed = %v, %v; want true, nil", pressed, err)
	}
}

func TestBounceRejected(t *testing.T) {
	e := newTestEngine(t, 2*time.Millisecond)

	// Glitches shorter than the window never surface.
	events := feed(t, e, []bool{hi, lo, hi, lo, hi, hi, hi})

	if len(events) != 0 {
		t.Fatalf("expected no events for bounce, got %v", events)
	}
	pressed, _ := e.Pressed(btnID)
	if pressed {
		t.Fatal("button reported pressed after rejected bounce")
	}
}

func TestPressThenRelease(t *testing.T) {
	e := newTestEngine(t, 2*time.Millisecond)

	events := feed(t, e, []bool{hi, lo, lo, lo, lo, hi, hi, hi, hi})

	if len(events) != 2 {
		t.Fatalf("expected press+release, got %v", events)
	}
	if events[0].Kind != types.ButtonPressed || events[1].Kind != types.ButtonReleased {
		t.Fatalf("unexpected event kinds: %v", events)
	}
}

func TestActiveHighPolarity(t *testing.T) {
	def := types.NewButtonDef(7, types.GpioPin{Pin: 3})
	def.ActiveLow = false
	e, err := New([]types.ButtonDef{def}, 2*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var events []types.InputEvent
	for i, lv := range []bool{lo, hi, hi, hi} {
		ev, ok, err := e.Sample(7, lv, int64(i))
		if err != nil {
			t.Fatalf("Sample: %v", err)
		}
		if ok {
			events = append(events, ev)
		}
	}
	if len(events) != 1 || events[0].Kind != types.ButtonPressed {
		t.Fatalf("active-high press not detected: %v", events)
	}
}

func TestStartupLevelIsBaseline(t *testing.T) {
	e := newTestEngine(t, 2*time.Millisecond)

	// Released level at startup produces nothing.
	events := feed(t, e, []bool{hi, hi, hi, hi})
	if len(events) != 0 {
		t.Fatalf("expected silence at released startup level, got %v", events)
	}
}

func TestUnknownID(t *testing.T) {
	e := newTestEngine(t, 0)

	_, _, err := e.Sample(999, hi, 0)
	if errcode.Of(err) != errcode.UnknownID {
		t.Fatalf("expected unknown_id, got %v", err)
	}
	if _, err := e.Pressed(999); errcode.Of(err) != errcode.UnknownID {
		t.Fatalf("expected unknown_id from Pressed, got %v", err)
	}
}

func TestDuplicateIDRejected(t *testing.T) {
	defs := []types.ButtonDef{
		types.NewButtonDef(1, types.GpioPin{Pin: 2}),
		types.NewButtonDef(1, types.GpioPin{Pin: 3}),
	}
	if _, err := New(defs, 0); errcode.Of(err) != errcode.DuplicateID {
		t.Fatalf("expected duplicate_id, got %v", err)
	}
}

func TestDefaultWindow(t *testing.T) {
	e := newTestEngine(t, 0)
	if e.Window() != DefaultWindow {
		t.Fatalf("default window = %v, want %v", e.Window(), DefaultWindow)
	}
}
