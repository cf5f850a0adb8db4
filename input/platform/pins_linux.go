// input/platform/pins_linux.go
//go:build linux && arm64 && !(rp2040 || rp2350)

package platform

import (
	"github.com/warthog618/go-gpiocdev"

	"inputcode-go/errcode"
	"inputcode-go/input/inputcore"
)

// gpiochip-backed bank for Pi-class Linux boards.

type cdevPinFactory struct {
	chipName string
}

type cdevPin struct {
	line *gpiocdev.Line
	n    int
}

// NewPinFactory opens pins on gpiochip0.
func NewPinFactory() inputcore.PinFactory {
	return &cdevPinFactory{chipName: "gpiochip0"}
}

func (f *cdevPinFactory) Input(n int, pull inputcore.Pull) (inputcore.InputPin, error) {
	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput}
	switch pull {
	case inputcore.PullUp:
		opts = append(opts, gpiocdev.WithPullUp)
	case inputcore.PullDown:
		opts = append(opts, gpiocdev.WithPullDown)
	}
	line, err := gpiocdev.RequestLine(f.chipName, n, opts...)
	if err != nil {
		return nil, &errcode.E{C: errcode.UnknownPin, Op: "platform.Input", Err: err}
	}
	return &cdevPin{line: line, n: n}, nil
}

func (p *cdevPin) Read() (bool, error) {
	v, err := p.line.Value()
	if err != nil {
		return false, errcode.MapDriverErr(err)
	}
	return v != 0, nil
}

func (p *cdevPin) Number() int { return p.n }
