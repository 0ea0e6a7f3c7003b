package avsoftdec

import (
	"context"

	"github.com/xaionaro-go/avsoftdec/codec"
	"github.com/xaionaro-go/avsoftdec/logger"
	"github.com/xaionaro-go/avsoftdec/types"
	"github.com/xaionaro-go/xsync"
)

// SetCodecName changes the codec to be opened. Once the decoder is opened
// the change is rejected until Reset.
func (c *Component) SetCodecName(
	ctx context.Context,
	name codec.Name,
) error {
	return xsync.DoR1(ctx, &c.locker, func() error {
		if c.opened {
			return ErrParameterAfterOpen
		}
		logger.Debugf(ctx, "codec name: %s -> %s", c.codecName, name)
		c.codecName = name
		return nil
	})
}

func (c *Component) CodecName(ctx context.Context) codec.Name {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &c.locker, func() codec.Name {
		return c.codecName
	})
}

// SetInputResolution sets the coded size hint passed to the engine on open.
func (c *Component) SetInputResolution(
	ctx context.Context,
	res types.Resolution,
) error {
	return xsync.DoR1(ctx, &c.locker, func() error {
		if c.opened {
			return ErrParameterAfterOpen
		}
		c.inputResolution = res
		return nil
	})
}

// SetOutputResolution sets the expected size of the output pictures (and
// thus OutputBufferSize). Once the decoder reports a different coded size,
// the output resolution follows it and the host is asked to reconfigure
// the output port.
func (c *Component) SetOutputResolution(
	ctx context.Context,
	res types.Resolution,
) {
	c.locker.Do(ctx, func() {
		c.setOutputResolutionLocked(ctx, res)
	})
}

func (c *Component) OutputResolution(ctx context.Context) types.Resolution {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &c.locker, func() types.Resolution {
		return c.outputResolution
	})
}

func (c *Component) setOutputResolutionLocked(ctx context.Context, res types.Resolution) {
	logger.Debugf(ctx, "output resolution: %s -> %s", c.outputResolution, res)
	c.outputResolution = res
	c.outputBufferSize.Store(res.I420BufferSize())
}

// OutputBufferSize is the minimal size of the buffers accepted by
// FillThisBuffer. It does not lock the component, so it may be used from
// the Host callbacks.
func (c *Component) OutputBufferSize(context.Context) uint64 {
	return c.outputBufferSize.Load()
}

func (c *Component) SetIgnoreExtradata(ctx context.Context, ignore bool) {
	c.locker.Do(ctx, func() {
		c.extraData.Ignore = ignore
	})
}

func (c *Component) SetTimestampSource(ctx context.Context, src TimestampSource) {
	c.locker.Do(ctx, func() {
		c.timestampSource = src
	})
}

func (c *Component) EOSStatus(ctx context.Context) EOSStatus {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &c.locker, func() EOSStatus {
		return c.eosStatus
	})
}

func (c *Component) IsOpened(ctx context.Context) bool {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &c.locker, func() bool {
		return c.opened
	})
}

// SignalledError returns the latched fatal error, if any.
func (c *Component) SignalledError(ctx context.Context) error {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &c.locker, func() error {
		return c.signalledError
	})
}

func (c *Component) PortSettingsChange(ctx context.Context) PortSettingsChange {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &c.locker, func() PortSettingsChange {
		return c.portSettingsChange
	})
}
