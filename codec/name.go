package codec

import (
	"context"

	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/avsoftdec/logger"
)

// Name is the name of a libav decoder ("h264", "hevc", "vp9", ...).
type Name string

const NameNone = Name("")

func (n Name) String() string {
	if n == NameNone {
		return "<none>"
	}
	return string(n)
}

// Codec finds the libav decoder by its name.
func (n Name) Codec(ctx context.Context) (_ret *astiav.Codec) {
	logger.Tracef(ctx, "Codec(ctx, '%s')", n)
	defer func() { logger.Tracef(ctx, "/Codec(ctx, '%s'): %v", n, _ret) }()
	if n == NameNone {
		return nil
	}
	return astiav.FindDecoderByName(string(n))
}
