package avsoftdec

import (
	"context"

	"github.com/xaionaro-go/avsoftdec/buffer"
	"github.com/xaionaro-go/avsoftdec/logger"
)

// OnQueueFilled processes the queued buffers until either port runs out of
// them, a fatal error happens, or the output port has to be reconfigured.
func (c *Component) OnQueueFilled(ctx context.Context) {
	logger.Tracef(ctx, "OnQueueFilled")
	defer func() { logger.Tracef(ctx, "/OnQueueFilled") }()
	c.locker.Do(ctx, func() {
		c.onQueueFilledLocked(ctx)
	})
}

func (c *Component) onQueueFilledLocked(ctx context.Context) {
	switch {
	case c.signalledError != nil:
		logger.Tracef(ctx, "an error was signalled, doing nothing")
		return
	case c.portSettingsChange != PortSettingsChangeNone:
		logger.Tracef(ctx, "waiting for the output port reconfiguration: %s", c.portSettingsChange)
		return
	case c.eosStatus == EOSStatusOutputFlushed:
		logger.Tracef(ctx, "the output is flushed, doing nothing")
		return
	}

	for (c.eosStatus != EOSStatusInputAvailable || !c.inputQueue.IsEmpty(ctx)) && !c.outputQueue.IsEmpty(ctx) {
		if c.eosStatus == EOSStatusInputEOSSeen {
			if err := c.drainAllOutputs(ctx); err != nil {
				c.signalError(ctx, err)
			}
			return
		}

		lease := c.inputQueue.Take(ctx)
		if lease == nil {
			return
		}
		hdr := lease.Header()

		if hdr.Flags.Has(buffer.FlagCodecConfig) {
			if err := c.handleExtradata(ctx, lease); err != nil {
				c.signalError(ctx, err)
				return
			}
			continue
		}

		if hdr.Flags.Has(buffer.FlagEOS) {
			logger.Debugf(ctx, "got the end of stream")
			c.eosStatus = EOSStatusInputEOSSeen
		}

		if err := c.openDecoderLocked(ctx); err != nil {
			lease.Return(ctx)
			c.signalError(ctx, err)
			return
		}

		outcome, err := c.decodeOne(ctx, lease)
		switch outcome {
		case DecodeOutcomeFailed:
			c.signalError(ctx, err)
			return
		case DecodeOutcomeEngineFlushed:
			c.drainEOS(ctx)
			return
		case DecodeOutcomeNoFrame:
			continue
		}

		if c.handlePortSettingsChange(ctx, c.Engine.Resolution()) {
			return
		}

		if err := c.drainOne(ctx); err != nil {
			c.signalError(ctx, err)
			return
		}
	}
}

// handleExtradata appends the configuration buffer to the extradata and
// returns the buffer to the host.
func (c *Component) handleExtradata(
	ctx context.Context,
	lease *buffer.Lease,
) error {
	defer lease.Return(ctx)
	c.statistics.ConfigBuffers.Inc()
	if err := c.extraData.Append(ctx, lease.Header().Payload()); err != nil {
		return ErrExtradata{Err: err}
	}
	return nil
}
