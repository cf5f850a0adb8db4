//go:build rp2040 || rp2350

package main

import (
	"inputcode-go/input/expander"
	"inputcode-go/input/inputcore"
	"inputcode-go/input/platform"
	"inputcode-go/types"
)

// newMux wires the native RP2 pins and, when present, the MCP23017 expander
// at the default address.
func newMux() *inputcore.Mux {
	m := inputcore.NewMux()
	m.Register(types.BankNative, platform.NewPinFactory())

	if xp, err := expander.New(platform.DefaultI2C(), 0x20); err == nil {
		m.Register(types.BankExpander, xp)
	} else {
		println("[main] no expander at 0x20:", err.Error())
	}
	return m
}
