package main

import (
	"context"
	"time"

	"inputcode-go/bus"
	"inputcode-go/services/bridge"
	"inputcode-go/services/config"
	"inputcode-go/services/heartbeat"
	"inputcode-go/services/input"
)

func printTopicWith(prefix string, t bus.Topic) {
	print(prefix)
	print(" ")
	for i := 0; i < t.Len(); i++ {
		if i > 0 {
			print("/")
		}
		switch v := t.At(i).(type) {
		case string:
			print(v)
		case int:
			print(v)
		case int32:
			print(int(v))
		case int64:
			print(int(v))
		default:
			print("?")
		}
	}
	println()
}

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(3 * time.Second)
	ctx := context.Background()

	println("[main] bootstrapping bus …")
	b := bus.NewBus(8)
	inputConn := b.NewConnection("input")
	bridgeConn := b.NewConnection("bridge")
	cfgConn := b.NewConnection("config")
	hbConn := b.NewConnection("heartbeat")
	uiConn := b.NewConnection("ui")

	println("[main] subscribing to input/# for diagnostics …")
	mon := uiConn.Subscribe(bus.T("input", "#"))
	go func() {
		for m := range mon.Channel() {
			printTopicWith("[monitor] <-", m.Topic)
		}
	}()

	println("[main] starting services …")
	go input.Run(ctx, inputConn, newMux())
	go bridge.Start(ctx, bridgeConn)

	hb := &heartbeat.Service{}
	_ = hb.Start(ctx, hbConn)

	// Embedded config for this board; publishes retained config/<section>.
	cfgCtx := context.WithValue(ctx, config.CtxDeviceKey, "pico")
	config.NewConfigService().Start(cfgCtx, cfgConn)

	// Periodic pipeline stats on the console.
	statsTopic := bus.T("input", "control", "stats")
	for {
		time.Sleep(5 * time.Second)
		rctx, cancel := context.WithTimeout(ctx, time.Second)
		reply, err := uiConn.RequestWait(rctx, uiConn.NewMessage(statsTopic, nil, false))
		cancel()
		if err != nil {
			println("[main] stats error:", err.Error())
			continue
		}
		printTopicWith("[main] stats reply on", reply.Topic)
	}
}
