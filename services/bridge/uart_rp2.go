// bridge/uart_rp2.go
//go:build rp2040 || rp2350

package bridge

import (
	"context"
	"io"
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
)

// On RP2 boards the dialler opens one of the hardware UARTs via uartx,
// which gives us context-aware reads instead of busy polling.

func init() {
	UARTDial = dialUART
}

func dialUART(ctx context.Context, cfg Config) (io.ReadWriteCloser, error) {
	var hw *uartx.UART
	switch cfg.Transport {
	case "uart1":
		hw = uartx.UART1
	default:
		hw = uartx.UART0
	}
	// Defaults inside uartx apply for zero pins/baud.
	if err := hw.Configure(uartx.UARTConfig{
		BaudRate: uint32(cfg.Baud),
		TX:       machine.Pin(cfg.TxPin),
		RX:       machine.Pin(cfg.RxPin),
	}); err != nil {
		return nil, err
	}
	return &uartLink{ctx: ctx, u: hw}, nil
}

type uartLink struct {
	ctx context.Context
	u   *uartx.UART
}

func (l *uartLink) Write(p []byte) (int, error) { return l.u.Write(p) }

func (l *uartLink) Read(p []byte) (int, error) {
	return l.u.RecvSomeContext(l.ctx, p)
}

// Close is a no-op: hardware UARTs stay configured for the next dial.
func (l *uartLink) Close() error { return nil }
