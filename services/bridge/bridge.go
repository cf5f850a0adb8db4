// bridge/bridge.go
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"inputcode-go/bus"
)

// -----------------------------------------------------------------------------
// Public entry point
// -----------------------------------------------------------------------------

// Start runs the bridge service: it forwards local input events over a
// serial link to a host. Blocks until ctx is cancelled. Configuration
// arrives as JSON on topic {"config","bridge"}; each config replaces the
// active link.
func Start(ctx context.Context, conn *bus.Connection) {
	s := &Service{
		conn:       conn,
		stateTopic: bus.Topic{"bridge", "state"},
	}
	s.run(ctx)
}

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Config is the JSON-encoded configuration expected on "config/bridge".
type Config struct {
	// "uart0"/"uart1" (built in) or a name registered via RegisterTransport.
	Transport string `json:"transport"`
	Baud      int    `json:"baud,omitempty"`
	TxPin     int    `json:"tx_pin,omitempty"`
	RxPin     int    `json:"rx_pin,omitempty"`
}

// -----------------------------------------------------------------------------
// Service
// -----------------------------------------------------------------------------

type Service struct {
	conn       *bus.Connection
	stateTopic bus.Topic

	mu     sync.Mutex
	curRun context.CancelFunc
}

func (s *Service) run(ctx context.Context) {
	cfgSub := s.conn.Subscribe(bus.Topic{"config", "bridge"})
	defer s.conn.Unsubscribe(cfgSub)

	s.publishState("idle", "awaiting_config", nil)

	for {
		select {
		case <-ctx.Done():
			s.stopCurrent()
			return
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				s.publishState("error", "config_subscription_closed", nil)
				return
			}
			cfg, err := decodeConfig(msg.Payload)
			if err != nil {
				s.publishState("error", "config_decode_failed", err)
				continue
			}
			s.reconfigure(ctx, cfg)
		}
	}
}

func (s *Service) stopCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.curRun != nil {
		s.curRun()
		s.curRun = nil
	}
}

func (s *Service) reconfigure(parent context.Context, cfg Config) {
	s.mu.Lock()
	if s.curRun != nil {
		s.curRun()
		s.curRun = nil
	}
	ctx, cancel := context.WithCancel(parent)
	s.curRun = cancel
	s.mu.Unlock()

	go s.runLink(ctx, cfg)
}

// -----------------------------------------------------------------------------
// Link supervision and I/O
// -----------------------------------------------------------------------------

func (s *Service) runLink(ctx context.Context, cfg Config) {
	tr, err := newTransport(cfg)
	if err != nil {
		s.publishState("error", "transport_init_failed", err)
		return
	}

	backoff := backoffSeq(250*time.Millisecond, 5*time.Second)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		rwc, err := tr.Open(ctx)
		if err != nil {
			delay := backoff()
			s.publishState("degraded", "dial_failed_retrying", fmt.Errorf("%v (retry in %s)", err, delay))
			if !sleep(ctx, delay) {
				return
			}
			continue
		}

		s.publishState("up", "link_established", nil)
		if err := s.handleLink(ctx, rwc); err != nil {
			_ = rwc.Close()
			delay := backoff()
			s.publishState("degraded", "link_lost_retrying", fmt.Errorf("%v (retry in %s)", err, delay))
			if !sleep(ctx, delay) {
				return
			}
			continue
		}
		// Clean close: restart only on new config.
		_ = rwc.Close()
		return
	}
}

// handleLink owns the active link lifetime: local input events go out as
// event frames, pings keep the link observable from the host side.
func (s *Service) handleLink(ctx context.Context, rwc io.ReadWriteCloser) error {
	rd := NewFramedReader(rwc)
	wr := NewFramedWriter(rwc)

	evSub := s.conn.Subscribe(bus.Topic{"input", "event", "#"})
	defer s.conn.Unsubscribe(evSub)

	// Reader: surface inbound frames and link errors.
	frames := make(chan Frame, 4)
	errCh := make(chan error, 1)
	go func() {
		for {
			f, err := rd.ReadFrame()
			if err != nil {
				errCh <- err
				return
			}
			select {
			case frames <- f:
			case <-ctx.Done():
				return
			}
		}
	}()

	tick := time.NewTicker(5 * time.Second)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			// Best-effort close.
			_ = wr.WriteFrame(Frame{Type: FrameClose})
			return nil

		case err := <-errCh:
			return err

		case f := <-frames:
			switch f.Type {
			case FramePing:
				if err := wr.WriteFrame(Frame{Type: FramePong}); err != nil {
					return err
				}
			case FrameClose:
				return nil
			default:
				// Host-to-device traffic is not part of this protocol yet.
			}

		case msg, ok := <-evSub.Channel():
			if !ok {
				return errors.New("event subscription closed")
			}
			payload, ok := EncodeEvent(msg.Payload)
			if !ok {
				continue
			}
			if err := wr.WriteFrame(Frame{Type: FrameEvent, Payload: payload}); err != nil {
				return err
			}

		case <-tick.C:
			if err := wr.WriteFrame(Frame{Type: FramePing}); err != nil {
				return err
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Transport registry
// -----------------------------------------------------------------------------

// Transport is a pluggable link dialler/owner.
type Transport interface {
	Open(ctx context.Context) (io.ReadWriteCloser, error)
	String() string
}

type transportFactory func(Config) (Transport, error)

var (
	regMu     sync.RWMutex
	registry  = map[string]transportFactory{}
	errNoDial = errors.New("UARTDial not implemented")
)

// RegisterTransport allows external packages to add transports (eg. a pipe
// for tests, or TCP on hosted builds).
func RegisterTransport(name string, f transportFactory) {
	regMu.Lock()
	defer regMu.Unlock()
	registry[name] = f
}

func newTransport(cfg Config) (Transport, error) {
	regMu.RLock()
	f, ok := registry[cfg.Transport]
	regMu.RUnlock()
	if ok {
		return f(cfg)
	}
	switch cfg.Transport {
	case "uart0", "uart1":
		return &uartTransport{cfg: cfg}, nil
	default:
		return nil, fmt.Errorf("unknown transport type: %q", cfg.Transport)
	}
}

// UARTDial is injected by platform code (see uart_rp2.go). It must open and
// return an io.ReadWriteCloser over the configured UART.
var UARTDial func(ctx context.Context, cfg Config) (io.ReadWriteCloser, error)

type uartTransport struct {
	cfg Config
}

func (u *uartTransport) Open(ctx context.Context) (io.ReadWriteCloser, error) {
	if UARTDial == nil {
		return nil, errNoDial
	}
	return UARTDial(ctx, u.cfg)
}

func (u *uartTransport) String() string { return u.cfg.Transport }

// -----------------------------------------------------------------------------
// Utilities
// -----------------------------------------------------------------------------

func decodeConfig(p any) (Config, error) {
	var cfg Config
	switch v := p.(type) {
	case []byte:
		if err := json.Unmarshal(v, &cfg); err != nil {
			return cfg, err
		}
	case string:
		if err := json.Unmarshal([]byte(v), &cfg); err != nil {
			return cfg, err
		}
	case map[string]any:
		// Already a decoded object (e.g. from the config service); re-marshal
		// for simplicity.
		b, err := json.Marshal(v)
		if err != nil {
			return cfg, err
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config payload type: %T", p)
	}
	return cfg, nil
}

func (s *Service) publishState(level, status string, err error) {
	payload := map[string]any{
		"level":  level,  // "up", "degraded", "error", "idle"
		"status": status, // short machine string
		"ts_ms":  time.Now().UnixMilli(),
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	msg := s.conn.NewMessage(s.stateTopic, payload, true)
	s.conn.Publish(msg)
}

func backoffSeq(min, max time.Duration) func() time.Duration {
	if min <= 0 {
		min = 100 * time.Millisecond
	}
	if max < min {
		max = min
	}
	var cur = min
	return func() time.Duration {
		d := cur
		cur *= 2
		if cur > max {
			cur = max
		}
		return d
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
