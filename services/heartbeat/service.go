package heartbeat

import (
	"context"
	"time"

	"inputcode-go/bus"
)

var (
	topicConfigHeartbeat = bus.Topic{"config", "heartbeat"}
	topicState           = bus.Topic{"heartbeat", "state"}
)

type Service struct{}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)

	tick := time.NewTicker(1 * time.Second)
	defer tick.Stop()

	var beats uint32

	// loop until context is cancelled, respond to tick and config changes
	for {
		select {
		case <-ctx.Done():
			println("Info: heartbeat service stopping")
			return
		case <-tick.C:
			beats++
			conn.Publish(conn.NewMessage(topicState, map[string]any{
				"beats": beats,
				"ts_ms": time.Now().UnixMilli(),
			}, true))
		case msg := <-cfgSub.Channel():
			// Change tick interval if needed
			if m, ok := msg.Payload.(map[string]any); ok {
				if iv, ok := m["interval"]; ok {
					if interval, ok := iv.(float64); ok && interval > 0 {
						tick.Reset(time.Duration(interval) * time.Second)
						println("Info:", "Heartbeat interval set to", int(interval), "seconds")
					}
				}
			}
		}
	}
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
