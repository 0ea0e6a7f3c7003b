package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
	"github.com/xaionaro-go/avsoftdec/codec"
	"github.com/xaionaro-go/avsoftdec/logger"
	"github.com/xaionaro-go/avsoftdec/types"
)

var microseconds = astiav.NewRational(1, 1000000)

// libavSource demuxes any container libavformat understands.
type libavSource struct {
	path          string
	formatContext *astiav.FormatContext
	stream        *astiav.Stream
	packet        *astiav.Packet
	closer        *astikit.Closer
}

var _ source = (*libavSource)(nil)

func openLibAVSource(ctx context.Context, path string) (_ret *libavSource, _err error) {
	logger.Tracef(ctx, "openLibAVSource(ctx, '%s')", path)
	defer func() { logger.Tracef(ctx, "/openLibAVSource(ctx, '%s'): %v", path, _err) }()

	closer := astikit.NewCloser()
	defer func() {
		if _err != nil {
			closer.Close()
		}
	}()

	formatContext := astiav.AllocFormatContext()
	if formatContext == nil {
		return nil, fmt.Errorf("unable to allocate a format context")
	}
	closer.Add(formatContext.Free)

	if err := formatContext.OpenInput(path, nil, nil); err != nil {
		return nil, fmt.Errorf("unable to open '%s': %w", path, err)
	}
	closer.Add(formatContext.CloseInput)

	if err := formatContext.FindStreamInfo(nil); err != nil {
		return nil, fmt.Errorf("unable to find stream info: %w", err)
	}

	var stream *astiav.Stream
	for _, s := range formatContext.Streams() {
		if s.CodecParameters().MediaType() == astiav.MediaTypeVideo {
			stream = s
			break
		}
	}
	if stream == nil {
		return nil, fmt.Errorf("no video stream in '%s'", path)
	}

	packet := astiav.AllocPacket()
	closer.Add(packet.Free)

	return &libavSource{
		path:          path,
		formatContext: formatContext,
		stream:        stream,
		packet:        packet,
		closer:        closer,
	}, nil
}

func (s *libavSource) String() string {
	return fmt.Sprintf("libav:%s", s.path)
}

func (s *libavSource) CodecName() codec.Name {
	c := astiav.FindDecoder(s.stream.CodecParameters().CodecID())
	if c == nil {
		return codec.NameNone
	}
	return codec.Name(c.Name())
}

func (s *libavSource) Resolution() types.Resolution {
	params := s.stream.CodecParameters()
	return types.Resolution{
		Width:  uint32(params.Width()),
		Height: uint32(params.Height()),
	}
}

func (s *libavSource) ConfigUnits() [][]byte {
	extraData := s.stream.CodecParameters().ExtraData()
	if len(extraData) == 0 {
		return nil
	}
	return [][]byte{append([]byte{}, extraData...)}
}

func (s *libavSource) ReadUnit(ctx context.Context) (*compressedUnit, error) {
	for {
		if err := s.formatContext.ReadFrame(s.packet); err != nil {
			if errors.Is(err, astiav.ErrEof) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("unable to read a packet: %w", err)
		}
		if s.packet.StreamIndex() != s.stream.Index() {
			s.packet.Unref()
			continue
		}
		s.packet.RescaleTs(s.stream.TimeBase(), microseconds)
		ts := types.NoTimestamp
		if pts := s.packet.Pts(); pts != astiav.NoPtsValue {
			ts = types.Timestamp(pts)
		}
		unit := &compressedUnit{
			Data:      append([]byte{}, s.packet.Data()...),
			Timestamp: ts,
		}
		s.packet.Unref()
		return unit, nil
	}
}

func (s *libavSource) Close() error {
	return s.closer.Close()
}
