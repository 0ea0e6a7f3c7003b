package scaler

import (
	"context"
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/avsoftdec/codec"
	"github.com/xaionaro-go/avsoftdec/internal"
	"github.com/xaionaro-go/avsoftdec/logger"
)

// SoftwareFactory builds libswscale-based scalers.
type SoftwareFactory struct {
	// Flags defaults to bicubic interpolation.
	Flags []astiav.SoftwareScaleContextFlag
}

var _ Factory = (*SoftwareFactory)(nil)

func (f *SoftwareFactory) NewScaler(ctx context.Context, key Key) (Scaler, error) {
	flags := f.Flags
	if len(flags) == 0 {
		flags = []astiav.SoftwareScaleContextFlag{astiav.SoftwareScaleContextFlagBicubic}
	}
	return NewSoftware(ctx, key, flags...)
}

type Software struct {
	*astiav.SoftwareScaleContext
	key      Key
	dstFrame *astiav.Frame
}

var _ Scaler = (*Software)(nil)

func pixelFormatToAstiav(pf fmt.Stringer) (astiav.PixelFormat, error) {
	r := astiav.FindPixelFormatByName(pf.String())
	if r == astiav.PixelFormatNone {
		return r, fmt.Errorf("unknown pixel format '%s'", pf)
	}
	return r, nil
}

func NewSoftware(
	ctx context.Context,
	key Key,
	opts ...astiav.SoftwareScaleContextFlag,
) (_ret *Software, _err error) {
	logger.Tracef(ctx, "NewSoftware(ctx, %s)", key)
	defer func() { logger.Tracef(ctx, "/NewSoftware(ctx, %s): %v", key, _err) }()

	srcPixFmt, err := pixelFormatToAstiav(key.SourceFormat)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	dstPixFmt, err := pixelFormatToAstiav(key.DestinationFormat)
	if err != nil {
		return nil, fmt.Errorf("destination: %w", err)
	}

	swSCtx, err := astiav.CreateSoftwareScaleContext(
		int(key.Source.Width),
		int(key.Source.Height),
		srcPixFmt,
		int(key.Destination.Width),
		int(key.Destination.Height),
		dstPixFmt,
		astiav.NewSoftwareScaleContextFlags(opts...),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to create a software scale context: %w", err)
	}

	dstFrame := astiav.AllocFrame()
	dstFrame.SetWidth(int(key.Destination.Width))
	dstFrame.SetHeight(int(key.Destination.Height))
	dstFrame.SetPixelFormat(dstPixFmt)
	if err := dstFrame.AllocBuffer(0); err != nil {
		dstFrame.Free()
		swSCtx.Free()
		return nil, fmt.Errorf("unable to allocate the destination frame: %w", err)
	}

	internal.SetFinalizerFree(ctx, swSCtx)
	internal.SetFinalizerFree(ctx, dstFrame)
	return &Software{
		SoftwareScaleContext: swSCtx,
		key:                  key,
		dstFrame:             dstFrame,
	}, nil
}

func (s *Software) String() string {
	return fmt.Sprintf("SoftwareScaler(%s)", s.key)
}

func (s *Software) Key() Key {
	return s.key
}

func (s *Software) Close(ctx context.Context) error {
	logger.Tracef(ctx, "Close")
	defer logger.Tracef(ctx, "/Close")
	if s.SoftwareScaleContext == nil {
		return nil
	}
	internal.ClearFinalizer(s.SoftwareScaleContext)
	s.SoftwareScaleContext.Free()
	s.SoftwareScaleContext = nil
	internal.ClearFinalizer(s.dstFrame)
	s.dstFrame.Free()
	s.dstFrame = nil
	return nil
}

func (s *Software) Scale(
	ctx context.Context,
	src *codec.Picture,
	dst []byte,
) (_err error) {
	logger.Tracef(ctx, "Scale")
	defer func() { logger.Tracef(ctx, "/Scale: %v", _err) }()
	if s.SoftwareScaleContext == nil {
		return fmt.Errorf("scaler is closed")
	}
	srcFrame, ok := src.Native.(*astiav.Frame)
	if !ok {
		return fmt.Errorf("the picture is not a libav frame, but %T", src.Native)
	}
	if err := s.SoftwareScaleContext.ScaleFrame(srcFrame, s.dstFrame); err != nil {
		return fmt.Errorf("unable to scale a frame: %w", err)
	}
	size, err := s.dstFrame.ImageBufferSize(1)
	if err != nil {
		return fmt.Errorf("unable to get the image size: %w", err)
	}
	if size > len(dst) {
		return fmt.Errorf("the destination buffer is too small: %d < %d", len(dst), size)
	}
	if _, err := s.dstFrame.ImageCopyToBuffer(dst[:size], 1); err != nil {
		return fmt.Errorf("unable to copy the image: %w", err)
	}
	return nil
}
