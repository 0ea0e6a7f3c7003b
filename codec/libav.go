package codec

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
	"github.com/facebookincubator/go-belt"
	"github.com/xaionaro-go/avsoftdec/logger"
	"github.com/xaionaro-go/avsoftdec/types"
)

// decoderContext is the part of *astiav.CodecContext used for the
// send/receive exchange.
type decoderContext interface {
	SendPacket(*astiav.Packet) error
	ReceiveFrame(*astiav.Frame) error
}

// LibAV is the Engine implemented on top of libavcodec.
//
// It is not safe for concurrent use; the component serializes the calls.
type LibAV struct {
	// ExportPlanes makes the pictures carry a Go-memory copy of their
	// planes (see Picture.Planes), as required by scaler.GoFactory.
	ExportPlanes bool

	codec        *astiav.Codec
	codecContext *astiav.CodecContext
	decoder      decoderContext
	packet       *astiav.Packet
	closer       *astikit.Closer

	// ready are the frames received while making room for a packet,
	// oldest first; they are returned before asking the decoder again.
	ready   []*astiav.Frame
	current *astiav.Frame
	spare   []*astiav.Frame

	// draining is set once the "end of stream" (empty) packet was sent.
	draining     bool
	ptsCorrector ptsCorrector
	picture      Picture
}

var _ Engine = (*LibAV)(nil)

func NewLibAV() *LibAV {
	return &LibAV{}
}

func (e *LibAV) String() string {
	if e.codec == nil {
		return "LibAV(<not opened>)"
	}
	return fmt.Sprintf("LibAV(%s)", e.codec.Name())
}

func (e *LibAV) Open(
	ctx context.Context,
	params OpenParams,
) (_err error) {
	ctx = belt.WithField(ctx, "codec_name", params.CodecName)
	logger.Tracef(ctx, "Open(ctx, %#+v)", params)
	defer func() { logger.Tracef(ctx, "/Open(ctx, %#+v): %v", params, _err) }()

	if e.codecContext != nil {
		return ErrAlreadyOpened{}
	}

	codec := params.CodecName.Codec(ctx)
	if codec == nil {
		return ErrCodecNotFound{CodecName: params.CodecName}
	}

	closer := astikit.NewCloser()
	defer func() {
		if _err != nil {
			if err := closer.Close(); err != nil {
				logger.Errorf(ctx, "unable to free the partially initialized decoder: %v", err)
			}
		}
	}()
	wrapErr := func(err error) error {
		return ErrOpenFailed{CodecName: params.CodecName, Err: err}
	}

	codecContext := astiav.AllocCodecContext(codec)
	if codecContext == nil {
		return wrapErr(fmt.Errorf("unable to allocate codec context"))
	}
	closer.Add(codecContext.Free)

	if params.Resolution.Width != 0 && params.Resolution.Height != 0 {
		codecContext.SetWidth(int(params.Resolution.Width))
		codecContext.SetHeight(int(params.Resolution.Height))
	}
	if len(params.ExtraData) > 0 {
		if err := codecContext.SetExtraData(params.ExtraData); err != nil {
			return wrapErr(fmt.Errorf("unable to set extradata: %w", err))
		}
	}

	options := astiav.NewDictionary()
	defer options.Free()
	for _, opt := range params.Tuning.Options() {
		if err := options.Set(opt[0], opt[1], 0); err != nil {
			logger.Warnf(ctx, "unable to set option '%s' to '%s': %v", opt[0], opt[1], err)
		}
	}

	logger.Debugf(ctx, "begin to open the decoder '%s' (%s)", codec.Name(), codec.ID())
	if err := codecContext.Open(codec, options); err != nil {
		return wrapErr(err)
	}
	logger.Debugf(ctx, "opened the decoder '%s'; threads: %d; delay: %t",
		codec.Name(), codecContext.ThreadCount(),
		hasDelay(codec.Capabilities(), codecContext.ThreadType(), codecContext.ThreadCount()),
	)

	packet := astiav.AllocPacket()
	closer.Add(packet.Free)

	e.codec = codec
	e.codecContext = codecContext
	e.decoder = codecContext
	e.packet = packet
	e.closer = closer
	e.draining = false
	e.ptsCorrector.Reset()
	return nil
}

// HasDelay also accounts frame threading: a frame-threaded decoder keeps
// up to thread_count pictures in flight even without AV_CODEC_CAP_DELAY.
func (e *LibAV) HasDelay() bool {
	if e.codec == nil || e.codecContext == nil {
		return false
	}
	return hasDelay(e.codec.Capabilities(), e.codecContext.ThreadType(), e.codecContext.ThreadCount())
}

func hasDelay(
	caps astiav.CodecCapabilities,
	threadType astiav.ThreadType,
	threadCount int,
) bool {
	if caps.Has(astiav.CodecCapabilityDelay) {
		return true
	}
	return caps.Has(astiav.CodecCapabilityFrameThreads) &&
		threadType&astiav.ThreadTypeFrame != 0 &&
		threadCount > 1
}

func (e *LibAV) Resolution() types.Resolution {
	if e.codecContext == nil {
		return types.Resolution{}
	}
	return types.Resolution{
		Width:  uint32(e.codecContext.Width()),
		Height: uint32(e.codecContext.Height()),
	}
}

func (e *LibAV) Decode(
	ctx context.Context,
	unit Unit,
) (_ret *Picture, _err error) {
	logger.Tracef(ctx, "Decode(ctx, %s)", unit)
	defer func() { logger.Tracef(ctx, "/Decode(ctx, %s): %v %v", unit, _ret, _err) }()

	if e.decoder == nil {
		return nil, ErrNotOpened{}
	}
	e.releaseCurrent()

	if unit.IsFlush() {
		if !e.draining {
			if err := e.sendEndOfStream(ctx); err != nil {
				return nil, err
			}
		}
		return e.next(ctx)
	}

	if e.draining {
		logger.Debugf(ctx, "got data after the end of stream; restarting the decoder")
		e.flush(ctx)
	}

	if len(unit.Data) == 0 {
		// an empty packet ends the stream for libav
		if err := e.sendEndOfStream(ctx); err != nil {
			return nil, err
		}
		return e.next(ctx)
	}

	e.packet.Unref()
	defer e.packet.Unref()
	if err := e.packet.FromData(unit.Data); err != nil {
		return nil, ErrDecodeFailed{Err: fmt.Errorf("unable to fill the packet: %w", err)}
	}
	e.packet.SetPts(int64(unit.PTS))
	e.packet.SetDts(int64(unit.DTS))

	if err := e.send(ctx); err != nil {
		return nil, ErrDecodeFailed{Err: fmt.Errorf("unable to send the packet: %w", err)}
	}
	return e.next(ctx)
}

// send sends e.packet; while the decoder refuses it, the pending pictures
// are moved to e.ready to make room.
func (e *LibAV) send(ctx context.Context) error {
	for {
		err := e.decoder.SendPacket(e.packet)
		if !errors.Is(err, astiav.ErrEagain) {
			return err
		}
		logger.Tracef(ctx, "the decoder has pending pictures, receiving one before sending the packet")
		f, err := e.receiveFrame(ctx)
		if err != nil {
			return err
		}
		if f == nil {
			return fmt.Errorf("the decoder accepts neither input nor output")
		}
		e.ready = append(e.ready, f)
	}
}

func (e *LibAV) sendEndOfStream(ctx context.Context) error {
	e.packet.Unref()
	err := e.send(ctx)
	switch {
	case err == nil:
	case errors.Is(err, astiav.ErrEof):
		logger.Debugf(ctx, "the decoder is already in the draining mode")
	default:
		return ErrDecodeFailed{Err: fmt.Errorf("unable to send the end-of-stream packet: %w", err)}
	}
	e.draining = true
	return nil
}

// receiveFrame returns nil without an error if the decoder has nothing
// to output (EAGAIN or EOF).
func (e *LibAV) receiveFrame(ctx context.Context) (*astiav.Frame, error) {
	f := e.allocFrame()
	err := e.decoder.ReceiveFrame(f)
	if err == nil {
		return f, nil
	}
	f.Unref()
	e.spare = append(e.spare, f)

	isEOF := errors.Is(err, astiav.ErrEof)
	isEAgain := errors.Is(err, astiav.ErrEagain)
	logger.Tracef(ctx, "ReceiveFrame(): %v (isEOF:%t, isEAgain:%t)", err, isEOF, isEAgain)
	if isEOF || isEAgain {
		return nil, nil
	}
	return nil, err
}

func (e *LibAV) next(ctx context.Context) (*Picture, error) {
	var f *astiav.Frame
	if len(e.ready) > 0 {
		f = e.ready[0]
		e.ready[0] = nil
		e.ready = e.ready[1:]
	} else {
		var err error
		f, err = e.receiveFrame(ctx)
		if err != nil {
			return nil, ErrDecodeFailed{Err: fmt.Errorf("unable to receive a frame: %w", err)}
		}
		if f == nil {
			return nil, nil
		}
	}
	e.current = f

	pts := timestampFromAstiav(f.Pts())
	dts := timestampFromAstiav(f.PktDts())
	e.picture = Picture{
		Width:               f.Width(),
		Height:              f.Height(),
		PixelFormat:         types.PixelFormat(f.PixelFormat().String()),
		KeyFrame:            f.Flags().Has(astiav.FrameFlagKey),
		BestEffortTimestamp: e.ptsCorrector.Guess(pts, dts),
		PktDTS:              dts,
		PktPTS:              pts,
		Native:              f,
	}
	if e.ExportPlanes {
		planes, err := exportPlanes(f)
		if err != nil {
			logger.Warnf(ctx, "unable to export the planes of %s: %v", &e.picture, err)
		}
		e.picture.Planes = planes
	}
	return &e.picture, nil
}

func exportPlanes(f *astiav.Frame) ([]Plane, error) {
	img, err := f.Data().GuessImageFormat()
	if err != nil {
		return nil, fmt.Errorf("unable to guess the image format: %w", err)
	}
	if err := f.Data().ToImage(img); err != nil {
		return nil, fmt.Errorf("unable to copy the picture into Go memory: %w", err)
	}
	ycbcr, ok := img.(*image.YCbCr)
	if !ok {
		return nil, fmt.Errorf("pixel format '%s' is not planar YCbCr (got %T)", f.PixelFormat(), img)
	}
	return []Plane{
		{Data: ycbcr.Y, Linesize: ycbcr.YStride},
		{Data: ycbcr.Cb, Linesize: ycbcr.CStride},
		{Data: ycbcr.Cr, Linesize: ycbcr.CStride},
	}, nil
}

func (e *LibAV) allocFrame() *astiav.Frame {
	if n := len(e.spare); n > 0 {
		f := e.spare[n-1]
		e.spare = e.spare[:n-1]
		return f
	}
	return astiav.AllocFrame()
}

func (e *LibAV) releaseCurrent() {
	if e.current == nil {
		return
	}
	e.current.Unref()
	e.spare = append(e.spare, e.current)
	e.current = nil
}

func (e *LibAV) dropFrames() {
	e.releaseCurrent()
	for _, f := range e.ready {
		f.Unref()
		e.spare = append(e.spare, f)
	}
	e.ready = nil
}

func (e *LibAV) freeFrames() {
	e.dropFrames()
	for _, f := range e.spare {
		f.Free()
	}
	e.spare = nil
}

func (e *LibAV) Flush(ctx context.Context) {
	logger.Debugf(ctx, "Flush")
	if e.decoder == nil {
		return
	}
	e.flush(ctx)
}

func (e *LibAV) flush(ctx context.Context) {
	if e.codecContext != nil {
		e.codecContext.FlushBuffers()
	}
	e.dropFrames()
	e.draining = false
	e.ptsCorrector.Reset()
}

func (e *LibAV) Close(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "Close")
	defer func() { logger.Debugf(ctx, "/Close: %v", _err) }()
	e.freeFrames()
	if e.closer == nil {
		return nil
	}
	e.codecContext.FlushBuffers()
	err := e.closer.Close()
	e.codec = nil
	e.codecContext = nil
	e.decoder = nil
	e.packet = nil
	e.closer = nil
	e.picture = Picture{}
	return err
}

func timestampFromAstiav(v int64) types.Timestamp {
	if v == astiav.NoPtsValue {
		return types.NoTimestamp
	}
	return types.Timestamp(v)
}
