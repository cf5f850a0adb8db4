// input-monitor attaches to the board's bridge UART from a host machine and
// prints decoded input events.
//
//	input-monitor -port /dev/ttyUSB0 -baud 115200
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/tarm/serial"

	"inputcode-go/services/bridge"
	"inputcode-go/types"
)

func main() {
	portName := flag.String("port", "/dev/ttyUSB0", "serial device")
	baud := flag.Int("baud", 115200, "baud rate")
	ping := flag.Duration("ping", 10*time.Second, "link ping interval (0 disables)")
	flag.Parse()

	port, err := serial.OpenPort(&serial.Config{
		Name: *portName,
		Baud: *baud,
	})
	if err != nil {
		log.Fatalf("open %s: %v", *portName, err)
	}
	defer port.Close()

	if *ping > 0 {
		go pinger(port, *ping)
	}

	log.Printf("listening on %s @ %d", *portName, *baud)
	if err := monitor(port, os.Stdout); err != nil {
		log.Fatalf("link error: %v", err)
	}
}

func pinger(w io.Writer, every time.Duration) {
	wr := bridge.NewFramedWriter(w)
	tick := time.NewTicker(every)
	defer tick.Stop()
	for range tick.C {
		if err := wr.WriteFrame(bridge.Frame{Type: bridge.FramePing}); err != nil {
			return
		}
	}
}

func monitor(r io.Reader, out io.Writer) error {
	rd := bridge.NewFramedReader(r)
	for {
		f, err := rd.ReadFrame()
		if err != nil {
			return err
		}
		switch f.Type {
		case bridge.FrameEvent:
			ev, err := bridge.DecodeEvent(f.Payload)
			if err != nil {
				fmt.Fprintf(out, "?? bad event frame: %v\n", err)
				continue
			}
			printEvent(out, ev)
		case bridge.FramePing, bridge.FramePong:
			// Liveness only.
		case bridge.FrameClose:
			fmt.Fprintln(out, "-- link closed by device")
			return nil
		default:
			fmt.Fprintf(out, "?? unknown frame 0x%02x (%d bytes)\n", f.Type, len(f.Payload))
		}
	}
}

func printEvent(out io.Writer, ev bridge.WireEvent) {
	switch ev.Kind {
	case types.ButtonPressed:
		fmt.Fprintf(out, "%8dms button %d pressed\n", ev.AtMs, ev.ID)
	case types.ButtonReleased:
		fmt.Fprintf(out, "%8dms button %d released\n", ev.AtMs, ev.ID)
	case types.EncoderTurned:
		fmt.Fprintf(out, "%8dms encoder %d %s x%d\n", ev.AtMs, ev.ID, ev.Dir, ev.Steps)
	default:
		fmt.Fprintf(out, "%8dms unknown kind %d (id %d)\n", ev.AtMs, ev.Kind, ev.ID)
	}
}
