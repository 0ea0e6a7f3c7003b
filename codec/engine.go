// engine.go defines the decode engine capability interface and the data
// flowing through it.

// Package codec contains the decode engine used by the component: the
// capability interface the component drives, and its libav implementation.
package codec

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/avsoftdec/types"
)

// Engine is an opaque "decode one compressed unit, maybe produce one
// picture" machine.
type Engine interface {
	fmt.Stringer
	types.Closer
	types.Flusher

	// Open resolves the codec by its name, applies the tuning and the
	// extradata and opens the engine. It is called at most once between Close-s.
	Open(ctx context.Context, params OpenParams) error

	// Decode consumes one unit. An empty unit (see Unit.IsFlush) asks to
	// return pictures buffered inside the engine. A nil picture with a nil
	// error means that no picture was produced.
	//
	// The returned picture is valid until the next call of Decode, Flush or Close.
	Decode(ctx context.Context, unit Unit) (*Picture, error)

	// HasDelay reports if the engine may hold decoded-but-not-yet-returned
	// pictures (and thus needs flush-mode Decode calls at the end of stream).
	// It is meaningful only after Open.
	HasDelay() bool

	// Resolution returns the current coded dimensions of the stream.
	Resolution() types.Resolution
}

type OpenParams struct {
	CodecName  Name
	Resolution types.Resolution
	ExtraData  []byte
	Tuning     Tuning
}

// Unit is a compressed unit to be decoded.
type Unit struct {
	Data []byte
	PTS  types.Timestamp
	DTS  types.Timestamp
}

// FlushUnit is the empty unit asking the engine to drain its buffers.
func FlushUnit() Unit {
	return Unit{PTS: types.NoTimestamp, DTS: types.NoTimestamp}
}

func (u Unit) IsFlush() bool {
	return u.Data == nil
}

func (u Unit) String() string {
	if u.IsFlush() {
		return "Unit(flush)"
	}
	return fmt.Sprintf("Unit(size:%d, pts:%s, dts:%s)", len(u.Data), u.PTS, u.DTS)
}

type Plane struct {
	Data     []byte
	Linesize int
}

// Picture is a decoded picture in the engine's native pixel format.
type Picture struct {
	Width       int
	Height      int
	PixelFormat types.PixelFormat
	KeyFrame    bool

	BestEffortTimestamp types.Timestamp
	PktDTS              types.Timestamp
	PktPTS              types.Timestamp

	// Planes is filled by engines producing Go-memory pictures.
	Planes []Plane

	// Native is the engine-specific representation of the picture (for
	// example *astiav.Frame), it is handed to the scaler as is.
	Native any
}

func (p *Picture) Resolution() types.Resolution {
	return types.Resolution{Width: uint32(p.Width), Height: uint32(p.Height)}
}

func (p *Picture) String() string {
	return fmt.Sprintf("Picture(%dx%d %s, key:%t, ts:%s/%s/%s)", p.Width, p.Height, p.PixelFormat, p.KeyFrame, p.BestEffortTimestamp, p.PktDTS, p.PktPTS)
}
