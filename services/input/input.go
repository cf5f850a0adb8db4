// services/input/input.go
package input

import (
	"context"
	"encoding/json"
	"time"

	"inputcode-go/bus"
	"inputcode-go/input/inputcore"
	"inputcode-go/input/sampler"
	"inputcode-go/types"
)

// -----------------------------------------------------------------------------
// Entry point
// -----------------------------------------------------------------------------

// Run owns the input pipeline: it waits for "config/input", builds the
// sampler against the supplied pin mux, streams debounced events onto the
// bus and answers control verbs. Blocks until ctx is cancelled.
func Run(ctx context.Context, conn *bus.Connection, pins *inputcore.Mux) {
	s := &service{
		conn: conn,
		pins: pins,
	}
	s.loop(ctx)
}

type service struct {
	conn *bus.Connection
	pins *inputcore.Mux

	smp        *sampler.Sampler
	stopSample func()
}

// -----------------------------------------------------------------------------
// Main loop
// -----------------------------------------------------------------------------

func (s *service) loop(ctx context.Context) {
	cfgSub := s.conn.Subscribe(bus.Topic{"config", "input"})
	ctrlSub := s.conn.Subscribe(bus.Topic{"input", "control", "+"})
	defer s.conn.Unsubscribe(cfgSub)
	defer s.conn.Unsubscribe(ctrlSub)

	s.publishState("idle", "awaiting_config", nil)

	for {
		select {
		case <-ctx.Done():
			s.stop()
			s.publishState("stopped", "context_cancelled", nil)
			return

		case msg := <-cfgSub.Channel():
			var cfg types.InputConfig
			if err := decodeJSON(msg.Payload, &cfg); err != nil {
				s.publishState("error", "config_decode_failed", err)
				continue
			}
			if err := s.applyConfig(ctx, cfg); err != nil {
				s.publishState("error", "apply_config_failed", err)
				continue
			}
			s.publishState("ready", "configured", nil)

		case msg := <-ctrlSub.Channel():
			// input/control/<verb>
			if len(msg.Topic) < 3 {
				continue
			}
			verb, _ := msg.Topic[2].(string)
			s.handleControl(msg, verb)

		case <-s.readable():
			s.pumpEvents()
		}
	}
}

// readable returns the queue wakeup channel, or nil (blocks forever) before
// the first config arrives.
func (s *service) readable() <-chan struct{} {
	if s.smp == nil {
		return nil
	}
	return s.smp.Queue().Readable()
}

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

func (s *service) applyConfig(ctx context.Context, cfg types.InputConfig) error {
	smp, err := sampler.New(sampler.FromInputConfig(cfg), s.pins)
	if err != nil {
		return err
	}

	// Replace any previous pipeline wholesale.
	s.stop()
	s.smp = smp

	sctx, cancel := context.WithCancel(ctx)
	s.stopSample = cancel
	go smp.Run(sctx)

	// Seed retained values so late subscribers see a position immediately.
	for _, d := range cfg.Buttons {
		if v, err := smp.ButtonValue(d.ID); err == nil {
			s.pubRet(bus.Topic{"input", "value", "button", int(d.ID)}, v)
		}
	}
	for _, d := range cfg.Encoders {
		if v, err := smp.EncoderValue(d.ID); err == nil {
			s.pubRet(bus.Topic{"input", "value", "encoder", int(d.ID)}, v)
		}
	}
	return nil
}

func (s *service) stop() {
	if s.stopSample != nil {
		s.stopSample()
		s.stopSample = nil
	}
}

// -----------------------------------------------------------------------------
// Event pump
// -----------------------------------------------------------------------------

func (s *service) pumpEvents() {
	for {
		ev, ok := s.smp.Queue().Poll()
		if !ok {
			return
		}
		switch ev.Kind {
		case types.ButtonPressed, types.ButtonReleased:
			id := int(ev.Button)
			s.conn.Publish(s.conn.NewMessage(
				bus.Topic{"input", "event", "button", id},
				types.ButtonEventPayload{
					ID:      ev.Button,
					Pressed: ev.Kind == types.ButtonPressed,
					AtMs:    ev.AtMs,
				},
				false,
			))
			s.pubRet(bus.Topic{"input", "value", "button", id},
				types.ButtonValue{Pressed: ev.Kind == types.ButtonPressed})

		case types.EncoderTurned:
			id := int(ev.Encoder)
			s.conn.Publish(s.conn.NewMessage(
				bus.Topic{"input", "event", "encoder", id},
				types.EncoderEventPayload{
					ID:    ev.Encoder,
					Dir:   ev.Dir.String(),
					Steps: ev.Steps,
					AtMs:  ev.AtMs,
				},
				false,
			))
			if v, err := s.smp.EncoderValue(ev.Encoder); err == nil {
				s.pubRet(bus.Topic{"input", "value", "encoder", id}, v)
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Control verbs
// -----------------------------------------------------------------------------

func (s *service) handleControl(msg *bus.Message, verb string) {
	if s.smp == nil {
		s.replyErr(msg, "not configured")
		return
	}
	switch verb {
	case "stats":
		st := s.smp.Stats()
		s.replyOK(msg, map[string]any{"stats": st})
	case "read_now":
		snap := s.smp.Snapshot()
		s.replyOK(msg, map[string]any{"snapshot": snap})
	default:
		s.replyErr(msg, "unsupported verb")
	}
}

// ---- helpers ----

func (s *service) publishState(level, status string, err error) {
	payload := map[string]any{"level": level, "status": status, "ts_ms": time.Now().UnixMilli()}
	if err != nil {
		payload["error"] = err.Error()
	}
	s.conn.Publish(s.conn.NewMessage(bus.Topic{"input", "state"}, payload, true))
}

func (s *service) replyOK(req *bus.Message, extra map[string]any) {
	if len(req.ReplyTo) == 0 {
		return
	}
	m := map[string]any{"ok": true}
	for k, v := range extra {
		m[k] = v
	}
	s.conn.Reply(req, m, false)
}

func (s *service) replyErr(req *bus.Message, e string) {
	if len(req.ReplyTo) == 0 {
		return
	}
	s.conn.Reply(req, map[string]any{"ok": false, "error": e}, false)
}

func (s *service) pubRet(t bus.Topic, p any) {
	s.conn.Publish(s.conn.NewMessage(t, p, true))
}

func decodeJSON[T any](src any, dst *T) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		// Accept maps, structs, numbers… by marshaling then decoding to T.
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}
