// Package sampler drives the input pipeline: once per tick it reads every
// configured pin, feeds the debounce and quadrature engines, and publishes
// resulting events to the bounded queue. The tick never blocks and never
// returns an error; failures are counted and sampling continues.
package sampler

import (
	"context"
	"sync/atomic"
	"time"

	"inputcode-go/input/debounce"
	"inputcode-go/input/evqueue"
	"inputcode-go/input/inputcore"
	"inputcode-go/input/quadrature"
	"inputcode-go/types"
	"inputcode-go/x/timex"
)

// DefaultPeriod gives a 5 ms debounce window five confirmation chances.
const DefaultPeriod = time.Millisecond

type Config struct {
	Buttons  []types.ButtonDef
	Encoders []types.EncoderDef

	Window        time.Duration // debounce window; 0 = debounce.DefaultWindow
	Period        time.Duration // tick period; 0 = DefaultPeriod
	QueueCapacity int           // 0 = evqueue.DefaultCapacity
}

// FromInputConfig converts the bus-facing config document.
func FromInputConfig(ic types.InputConfig) Config {
	encs := make([]types.EncoderDef, len(ic.Encoders))
	for i, e := range ic.Encoders {
		encs[i] = e.WithDefaults()
	}
	return Config{
		Buttons:       ic.Buttons,
		Encoders:      encs,
		Window:        timex.PeriodFromUs(ic.DebounceWindowUs),
		Period:        timex.PeriodFromUs(ic.SamplePeriodUs),
		QueueCapacity: int(ic.QueueCapacity),
	}
}

type buttonLine struct {
	id  types.ButtonID
	pin inputcore.InputPin
}

type encoderLine struct {
	id   types.EncoderID
	a, b inputcore.InputPin
}

type Sampler struct {
	buttons    []buttonLine
	encoders   []encoderLine
	refreshers []inputcore.Refresher

	btns  *debounce.Engine
	encs  *quadrature.Decoder
	queue *evqueue.Queue

	period time.Duration

	ticks    atomic.Uint32
	events   atomic.Uint32
	readErrs atomic.Uint32
	unknown  atomic.Uint32
}

// New resolves every configured pin against the mux and builds the engines.
// Configuration errors (bad defs, unknown banks, pin setup failures) are
// fatal here so the hot path stays error-free.
func New(cfg Config, pins *inputcore.Mux) (*Sampler, error) {
	if cfg.Window <= time.Microsecond {
		cfg.Window = debounce.DefaultWindow
	}
	if cfg.Period <= time.Microsecond {
		cfg.Period = DefaultPeriod
	}

	btns, err := debounce.New(cfg.Buttons, cfg.Window)
	if err != nil {
		return nil, err
	}
	encs, err := quadrature.New(cfg.Encoders)
	if err != nil {
		return nil, err
	}

	s := &Sampler{
		btns:       btns,
		encs:       encs,
		queue:      evqueue.New(cfg.QueueCapacity),
		period:     cfg.Period,
		refreshers: pins.Refreshers(),
	}

	for _, d := range cfg.Buttons {
		pull := inputcore.PullDown
		if d.ActiveLow {
			pull = inputcore.PullUp
		}
		pin, err := pins.Input(d.Pin, pull)
		if err != nil {
			return nil, err
		}
		s.buttons = append(s.buttons, buttonLine{id: d.ID, pin: pin})
	}
	for _, d := range cfg.Encoders {
		a, err := pins.Input(types.GpioPin{Pin: d.PinA}, inputcore.PullUp)
		if err != nil {
			return nil, err
		}
		b, err := pins.Input(types.GpioPin{Pin: d.PinB}, inputcore.PullUp)
		if err != nil {
			return nil, err
		}
		s.encoders = append(s.encoders, encoderLine{id: d.ID, a: a, b: b})
	}
	return s, nil
}

// Queue exposes the event queue for the consumer side.
func (s *Sampler) Queue() *evqueue.Queue { return s.queue }

// Period reports the configured tick period.
func (s *Sampler) Period() time.Duration { return s.period }

// Tick samples every pin once. Never blocks, never fails.
func (s *Sampler) Tick(nowMs int64) {
	s.ticks.Add(1)

	for _, r := range s.refreshers {
		if err := r.Refresh(); err != nil {
			s.readErrs.Add(1)
		}
	}

	for _, bl := range s.buttons {
		raw, err := bl.pin.Read()
		if err != nil {
			s.readErrs.Add(1)
			continue
		}
		ev, ok, err := s.btns.Sample(bl.id, raw, nowMs)
		if err != nil {
			s.unknown.Add(1)
			continue
		}
		if ok {
			s.queue.Publish(ev)
			s.events.Add(1)
		}
	}

	for _, el := range s.encoders {
		a, errA := el.a.Read()
		b, errB := el.b.Read()
		if errA != nil || errB != nil {
			s.readErrs.Add(1)
			continue
		}
		ev, ok, err := s.encs.Sample(el.id, a, b, nowMs)
		if err != nil {
			s.unknown.Add(1)
			continue
		}
		if ok {
			s.queue.Publish(ev)
			s.events.Add(1)
		}
	}
}

// Run ticks at the configured period until ctx is cancelled.
func (s *Sampler) Run(ctx context.Context) {
	t := time.NewTicker(s.period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Tick(timex.NowMs())
		}
	}
}

// Stats snapshots the diagnostic counters.
func (s *Sampler) Stats() types.InputStats {
	return types.InputStats{
		Ticks:       s.ticks.Load(),
		Events:      s.events.Load(),
		Overflows:   s.queue.Overflows(),
		ReadErrors:  s.readErrs.Load(),
		UnknownIDs:  s.unknown.Load(),
		QueueLength: s.queue.Len(),
	}
}

// ButtonValue reports the debounced state of one button.
func (s *Sampler) ButtonValue(id types.ButtonID) (types.ButtonValue, error) {
	pressed, err := s.btns.Pressed(id)
	if err != nil {
		return types.ButtonValue{}, err
	}
	return types.ButtonValue{Pressed: pressed}, nil
}

// EncoderValue reports the accumulated position of one encoder.
func (s *Sampler) EncoderValue(id types.EncoderID) (types.EncoderValue, error) {
	ticks, err := s.encs.Ticks(id)
	if err != nil {
		return types.EncoderValue{}, err
	}
	def, err := s.encs.Def(id)
	if err != nil {
		return types.EncoderValue{}, err
	}
	return types.EncoderValue{Ticks: ticks, AngleDeg: quadrature.Angle(def, ticks)}, nil
}

// Snapshot captures the current debounced button states and encoder
// positions, for the read_now control verb.
type Snapshot struct {
	Buttons  map[types.ButtonID]types.ButtonValue   `json:"buttons"`
	Encoders map[types.EncoderID]types.EncoderValue `json:"encoders"`
}

func (s *Sampler) Snapshot() Snapshot {
	snap := Snapshot{
		Buttons:  make(map[types.ButtonID]types.ButtonValue, len(s.buttons)),
		Encoders: make(map[types.EncoderID]types.EncoderValue, len(s.encoders)),
	}
	for _, bl := range s.buttons {
		pressed, err := s.btns.Pressed(bl.id)
		if err != nil {
			continue
		}
		snap.Buttons[bl.id] = types.ButtonValue{Pressed: pressed}
	}
	for _, el := range s.encoders {
		ticks, err := s.encs.Ticks(el.id)
		if err != nil {
			continue
		}
		def, _ := s.encs.Def(el.id)
		snap.Encoders[el.id] = types.EncoderValue{
			Ticks:    ticks,
			AngleDeg: quadrature.Angle(def, ticks),
		}
	}
	return snap
}
