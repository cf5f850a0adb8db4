// bridge/frame.go
package bridge

import (
	"encoding/binary"
	"fmt"
	"io"

	"inputcode-go/errcode"
	"inputcode-go/types"
)

// Wire protocol: length-prefixed frames, 3-byte header (type, len16 BE).
// Event payloads are fixed 14 bytes so the host side decodes without any
// allocation-heavy parsing.

const (
	FramePing  byte = 0x01
	FramePong  byte = 0x02
	FrameEvent byte = 0x10
	FrameClose byte = 0x7f
)

type Frame struct {
	Type    byte
	Payload []byte
}

const eventWireLen = 14

// WireEvent is the decoded form of a FrameEvent payload.
type WireEvent struct {
	Kind  types.EventKind
	ID    uint16
	Dir   types.Direction
	Steps uint16
	AtMs  int64
}

// EncodeEvent serialises a bus event payload. Returns false for payload
// types the bridge does not forward.
func EncodeEvent(p any) ([]byte, bool) {
	var ev WireEvent
	switch v := p.(type) {
	case types.ButtonEventPayload:
		ev.Kind = types.ButtonReleased
		if v.Pressed {
			ev.Kind = types.ButtonPressed
		}
		ev.ID = uint16(v.ID)
		ev.AtMs = v.AtMs
	case types.EncoderEventPayload:
		ev.Kind = types.EncoderTurned
		ev.ID = uint16(v.ID)
		ev.Dir = types.CW
		if v.Dir == "ccw" {
			ev.Dir = types.CCW
		}
		ev.Steps = v.Steps
		ev.AtMs = v.AtMs
	default:
		return nil, false
	}

	buf := make([]byte, eventWireLen)
	buf[0] = byte(ev.Kind)
	binary.BigEndian.PutUint16(buf[1:3], ev.ID)
	buf[3] = byte(ev.Dir)
	binary.BigEndian.PutUint16(buf[4:6], ev.Steps)
	binary.BigEndian.PutUint64(buf[6:14], uint64(ev.AtMs))
	return buf, true
}

// DecodeEvent parses a FrameEvent payload.
func DecodeEvent(p []byte) (WireEvent, error) {
	if len(p) != eventWireLen {
		return WireEvent{}, errcode.InvalidPayload
	}
	return WireEvent{
		Kind:  types.EventKind(p[0]),
		ID:    binary.BigEndian.Uint16(p[1:3]),
		Dir:   types.Direction(int8(p[3])),
		Steps: binary.BigEndian.Uint16(p[4:6]),
		AtMs:  int64(binary.BigEndian.Uint64(p[6:14])),
	}, nil
}

type FramedReader struct{ r io.Reader }
type FramedWriter struct{ w io.Writer }

func NewFramedReader(r io.Reader) *FramedReader { return &FramedReader{r: r} }
func NewFramedWriter(w io.Writer) *FramedWriter { return &FramedWriter{w: w} }

func (fr *FramedReader) ReadFrame() (Frame, error) {
	var hdr [3]byte
	if _, err := io.ReadFull(fr.r, hdr[:]); err != nil {
		return Frame{}, err
	}
	typ := hdr[0]
	n := int(hdr[1])<<8 | int(hdr[2])
	var buf []byte
	if n > 0 {
		buf = make([]byte, n)
		if _, err := io.ReadFull(fr.r, buf); err != nil {
			return Frame{}, err
		}
	}
	return Frame{Type: typ, Payload: buf}, nil
}

func (fw *FramedWriter) WriteFrame(f Frame) error {
	if len(f.Payload) > 0xFFFF {
		return fmt.Errorf("frame too large: %d", len(f.Payload))
	}
	hdr := []byte{f.Type, byte(len(f.Payload) >> 8), byte(len(f.Payload) & 0xFF)}
	if _, err := fw.w.Write(hdr); err != nil {
		return err
	}
	if len(f.Payload) > 0 {
		_, err := fw.w.Write(f.Payload)
		return err
	}
	return nil
}
