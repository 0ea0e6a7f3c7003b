package avsoftdec

import (
	"context"
	"errors"
	"fmt"

	"github.com/xaionaro-go/avsoftdec/buffer"
	"github.com/xaionaro-go/avsoftdec/codec"
	"github.com/xaionaro-go/avsoftdec/logger"
)

// DecodeOutcome classifies the result of feeding one unit to the engine.
type DecodeOutcome int

const (
	DecodeOutcomeProduced = DecodeOutcome(iota)
	DecodeOutcomeNoFrame
	// DecodeOutcomeEngineFlushed means that the engine has no more buffered
	// pictures; it is reported only in the flush mode.
	DecodeOutcomeEngineFlushed
	DecodeOutcomeFailed
)

func (o DecodeOutcome) String() string {
	switch o {
	case DecodeOutcomeProduced:
		return "produced"
	case DecodeOutcomeNoFrame:
		return "no_frame"
	case DecodeOutcomeEngineFlushed:
		return "engine_flushed"
	case DecodeOutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown_decode_outcome_%d", int(o))
	}
}

// openDecoderLocked opens the engine on the first use. The extradata
// collected so far is frozen by that.
func (c *Component) openDecoderLocked(ctx context.Context) (_err error) {
	if c.opened {
		return nil
	}
	logger.Tracef(ctx, "openDecoderLocked")
	defer func() { logger.Tracef(ctx, "/openDecoderLocked: %v", _err) }()

	params := codec.OpenParams{
		CodecName:  c.codecName,
		Resolution: c.inputResolution,
		ExtraData:  c.extraData.MarkReady(ctx),
		Tuning:     c.tuning,
	}
	logger.Debugf(ctx, "begin to open the decoder '%s'", c.codecName)
	if err := c.Engine.Open(ctx, params); err != nil {
		return err
	}
	c.opened = true
	logger.Debugf(ctx, "opened the decoder '%s' (%s); has delay: %t", c.codecName, c.Engine, c.Engine.HasDelay())
	return nil
}

// decodeOne feeds the engine with the leased input buffer, or with the
// flush unit if the lease is nil. The lease is returned to the host
// before decodeOne returns, whatever the outcome is.
func (c *Component) decodeOne(
	ctx context.Context,
	lease *buffer.Lease,
) (_ret DecodeOutcome, _err error) {
	logger.Tracef(ctx, "decodeOne")
	defer func() { logger.Tracef(ctx, "/decodeOne: %s %v", _ret, _err) }()

	isFlush := lease == nil
	var unit codec.Unit
	if isFlush {
		unit = codec.FlushUnit()
	} else {
		defer lease.Return(ctx)
		hdr := lease.Header()
		data := hdr.Payload()
		if data == nil {
			data = []byte{}
		}
		unit = codec.Unit{
			Data: data,
			PTS:  hdr.Timestamp,
			DTS:  hdr.Timestamp,
		}
		c.statistics.InputBuffers.Inc()
		c.statistics.InputBytes.Add(uint64(len(data)))
	}

	c.picture = nil
	picture, err := c.Engine.Decode(ctx, unit)
	switch {
	case err != nil:
		if !errors.As(err, &codec.ErrDecodeFailed{}) {
			err = codec.ErrDecodeFailed{Err: err}
		}
		return DecodeOutcomeFailed, err
	case picture == nil:
		c.statistics.NoFrameResults.Inc()
		if isFlush && c.Engine.HasDelay() {
			logger.Debugf(ctx, "the engine is flushed")
			return DecodeOutcomeEngineFlushed, nil
		}
		logger.Debugf(ctx, "the engine did not produce a picture for %s", unit)
		return DecodeOutcomeNoFrame, nil
	default:
		c.statistics.DecodedFrames.Inc()
		c.picture = picture
		return DecodeOutcomeProduced, nil
	}
}
