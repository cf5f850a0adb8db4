// input/platform/pins_none.go
//go:build !(rp2040 || rp2350) && !(linux && arm64)

package platform

import (
	"inputcode-go/errcode"
	"inputcode-go/input/inputcore"
)

// Host builds have no real pins; tests register fakes on the mux instead.

type nonePinFactory struct{}

func NewPinFactory() inputcore.PinFactory { return nonePinFactory{} }

func (nonePinFactory) Input(n int, pull inputcore.Pull) (inputcore.InputPin, error) {
	return nil, errcode.Unsupported
}
