// Package scaler converts decoded pictures into the pixel format and
// resolution of the output buffers.
package scaler

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/avsoftdec/codec"
	"github.com/xaionaro-go/avsoftdec/types"
)

// Key identifies a conversion; a Scaler is valid for exactly one Key.
type Key struct {
	Source            types.Resolution
	SourceFormat      types.PixelFormat
	Destination       types.Resolution
	DestinationFormat types.PixelFormat
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s -> %s:%s", k.Source, k.SourceFormat, k.Destination, k.DestinationFormat)
}

type Scaler interface {
	fmt.Stringer
	types.Closer
	Key() Key

	// Scale writes the converted picture into dst as a contiguous image
	// with byte-aligned lines (the luma stride equals the width).
	Scale(ctx context.Context, src *codec.Picture, dst []byte) error
}

type Factory interface {
	NewScaler(ctx context.Context, key Key) (Scaler, error)
}
