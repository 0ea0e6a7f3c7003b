package avsoftdec

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/avsoftdec/buffer"
	"github.com/xaionaro-go/avsoftdec/logger"
	"github.com/xaionaro-go/avsoftdec/scaler"
	"github.com/xaionaro-go/avsoftdec/types"
)

// getScaler returns the cached scaler, rebuilding it if the conversion changed.
func (c *Component) getScaler(
	ctx context.Context,
	key scaler.Key,
) (scaler.Scaler, error) {
	if c.scaler != nil {
		if c.scaler.Key() == key {
			return c.scaler, nil
		}
		logger.Debugf(ctx, "the conversion changed: %s -> %s", c.scaler.Key(), key)
		if err := c.scaler.Close(ctx); err != nil {
			logger.Errorf(ctx, "unable to close the scaler %s: %v", c.scaler, err)
		}
		c.scaler = nil
	}

	s, err := c.ScalerFactory.NewScaler(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize the conversion context %s: %w", key, err)
	}
	c.scaler = s
	return s, nil
}

// drainOne converts the current picture into the front output buffer. The
// buffer is handed back to the host even if the conversion fails.
func (c *Component) drainOne(ctx context.Context) (_err error) {
	logger.Tracef(ctx, "drainOne")
	defer func() { logger.Tracef(ctx, "/drainOne: %v", _err) }()

	lease := c.outputQueue.Take(ctx)
	if lease == nil {
		return fmt.Errorf("internal error: no output buffer to drain into")
	}
	defer lease.Return(ctx)

	hdr := lease.Header()
	hdr.Offset = 0
	hdr.FilledLen = 0
	hdr.Flags = 0

	picture := c.picture
	if picture == nil {
		return fmt.Errorf("internal error: no picture to drain")
	}
	hdr.Timestamp = c.timestampSource.Select(picture)
	if picture.KeyFrame {
		hdr.Flags |= buffer.FlagSyncFrame
	}

	res := c.outputResolution
	if required := res.I420BufferSize(); uint64(len(hdr.Data)) < required {
		return ErrConversionFailed{Err: ErrBufferTooSmall{Size: uint64(len(hdr.Data)), Required: required}}
	}

	s, err := c.getScaler(ctx, scaler.Key{
		Source:            picture.Resolution(),
		SourceFormat:      picture.PixelFormat,
		Destination:       res,
		DestinationFormat: types.PixelFormatYUV420P,
	})
	if err != nil {
		return ErrConversionFailed{Err: err}
	}
	if err := s.Scale(ctx, picture, hdr.Data); err != nil {
		return ErrConversionFailed{Err: err}
	}

	hdr.FilledLen = uint32(res.I420Size())
	c.statistics.OutputFrames.Inc()
	c.statistics.OutputBytes.Add(uint64(hdr.FilledLen))
	logger.Tracef(ctx, "drained %s", hdr)
	return nil
}

// drainEOS hands the front output buffer back as the empty end-of-stream buffer.
func (c *Component) drainEOS(ctx context.Context) {
	lease := c.outputQueue.Take(ctx)
	if lease == nil {
		logger.Warnf(ctx, "no output buffer for the end-of-stream mark, postponing")
		return
	}
	defer lease.Return(ctx)

	logger.Debugf(ctx, "filling the end-of-stream output buffer")
	hdr := lease.Header()
	hdr.Offset = 0
	hdr.FilledLen = 0
	hdr.Timestamp = 0
	hdr.Flags = buffer.FlagEOS
	c.eosStatus = EOSStatusOutputFlushed
	c.statistics.EOSBuffers.Inc()
}

// drainAllOutputs pulls the pictures buffered inside the engine after the
// end of the input stream, and ends the output stream.
func (c *Component) drainAllOutputs(ctx context.Context) (_err error) {
	logger.Tracef(ctx, "drainAllOutputs")
	defer func() { logger.Tracef(ctx, "/drainAllOutputs: %v", _err) }()

	if c.eosStatus == EOSStatusOutputFlushed {
		return nil
	}
	if !c.opened || !c.Engine.HasDelay() {
		c.drainEOS(ctx)
		return nil
	}

	for !c.outputQueue.IsEmpty(ctx) {
		outcome, err := c.decodeOne(ctx, nil)
		switch outcome {
		case DecodeOutcomeFailed:
			return err
		case DecodeOutcomeEngineFlushed, DecodeOutcomeNoFrame:
			c.drainEOS(ctx)
			return nil
		}
		if err := c.drainOne(ctx); err != nil {
			return err
		}
	}
	return nil
}
