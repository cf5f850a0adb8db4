//go:build !rp2040 && !rp2350

package main

import (
	"inputcode-go/input/inputcore"
	"inputcode-go/input/platform"
	"inputcode-go/types"
)

func newMux() *inputcore.Mux {
	m := inputcore.NewMux()
	m.Register(types.BankNative, platform.NewPinFactory())
	return m
}
