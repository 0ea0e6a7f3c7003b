package main

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/avsoftdec/codec"
	"github.com/xaionaro-go/avsoftdec/types"
)

type compressedUnit struct {
	Data      []byte
	Timestamp types.Timestamp
}

// source is a demuxed video elementary stream.
type source interface {
	fmt.Stringer
	CodecName() codec.Name
	Resolution() types.Resolution

	// ConfigUnits are to be sent as codec-config buffers before the first unit.
	ConfigUnits() [][]byte

	// ReadUnit returns io.EOF at the end of the stream.
	ReadUnit(ctx context.Context) (*compressedUnit, error)
	Close() error
}

type demuxer string

const (
	demuxerLibAV = demuxer("libav")
	demuxerMP4   = demuxer("mp4")
)

func (d *demuxer) String() string {
	return string(*d)
}

func (d *demuxer) Set(s string) error {
	switch demuxer(s) {
	case demuxerLibAV, demuxerMP4:
		*d = demuxer(s)
		return nil
	}
	return fmt.Errorf("unknown demuxer '%s', expected '%s' or '%s'", s, demuxerLibAV, demuxerMP4)
}

func (d *demuxer) Type() string {
	return "demuxer"
}

func openSource(ctx context.Context, d demuxer, path string) (source, error) {
	switch d {
	case demuxerMP4:
		return openMP4Source(ctx, path)
	default:
		return openLibAVSource(ctx, path)
	}
}
