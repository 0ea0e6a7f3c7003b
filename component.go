// Package avsoftdec implements the buffering and draining logic of a
// software video decoder component: compressed buffers come to the input
// port, decoded I420 pictures leave through the output port.
package avsoftdec

import (
	"context"
	"errors"
	"fmt"

	"github.com/facebookincubator/go-belt"
	"github.com/xaionaro-go/avsoftdec/buffer"
	"github.com/xaionaro-go/avsoftdec/codec"
	"github.com/xaionaro-go/avsoftdec/extradata"
	"github.com/xaionaro-go/avsoftdec/logger"
	"github.com/xaionaro-go/avsoftdec/scaler"
	"github.com/xaionaro-go/avsoftdec/types"
	"github.com/xaionaro-go/xsync"
	"go.uber.org/atomic"
)

// Component is a single decoder instance. All the methods are serialized;
// a callback of Host must not call back the methods besides EmptyThisBuffer
// and FillThisBuffer.
type Component struct {
	locker xsync.Mutex

	Engine        codec.Engine
	ScalerFactory scaler.Factory
	Host          Host

	inputQueue  *buffer.Queue
	outputQueue *buffer.Queue

	codecName        codec.Name
	inputResolution  types.Resolution
	outputResolution types.Resolution
	tuning           codec.Tuning
	timestampSource  TimestampSource
	extraData        extradata.Assembler

	opened             bool
	eosStatus          EOSStatus
	signalledError     error
	portSettingsChange PortSettingsChange
	picture            *codec.Picture
	scaler             scaler.Scaler

	outputBufferSize atomic.Uint64
	statistics       statistics
}

func New(
	ctx context.Context,
	engine codec.Engine,
	scalerFactory scaler.Factory,
	host Host,
	cfg Config,
) (*Component, error) {
	if engine == nil {
		return nil, fmt.Errorf("the decode engine is not set")
	}
	if scalerFactory == nil {
		return nil, fmt.Errorf("the scaler factory is not set")
	}
	if host == nil {
		host = &HostFuncs{}
	}
	if cfg.OutputResolution.IsZero() {
		cfg.OutputResolution = DefaultOutputResolution
	}

	c := &Component{
		Engine:          engine,
		ScalerFactory:   scalerFactory,
		Host:            host,
		codecName:       cfg.CodecName,
		inputResolution: cfg.InputResolution,
		tuning:          cfg.Tuning,
		timestampSource: cfg.TimestampSource,
		eosStatus:       EOSStatusInputAvailable,
	}
	c.extraData.Ignore = cfg.IgnoreExtradata
	c.setOutputResolutionLocked(ctx, cfg.OutputResolution)
	c.inputQueue = buffer.NewQueue(types.PortIndexInput, func(ctx context.Context, hdr *buffer.Header) {
		c.Host.EmptyBufferDone(ctx, hdr)
	})
	c.outputQueue = buffer.NewQueue(types.PortIndexOutput, func(ctx context.Context, hdr *buffer.Header) {
		c.Host.FillBufferDone(ctx, hdr)
	})
	logger.Debugf(ctx, "initialized %s", c)
	return c, nil
}

func (c *Component) String() string {
	return fmt.Sprintf("SoftDecoder(%s, %s)", c.codecName, c.Engine)
}

func (c *Component) queue(port types.PortIndex) (*buffer.Queue, error) {
	switch port {
	case types.PortIndexInput:
		return c.inputQueue, nil
	case types.PortIndexOutput:
		return c.outputQueue, nil
	default:
		return nil, ErrPortIndex{Port: port}
	}
}

// EmptyThisBuffer queues a compressed buffer; it does not start the
// processing (see OnQueueFilled).
func (c *Component) EmptyThisBuffer(
	ctx context.Context,
	hdr *buffer.Header,
) error {
	if hdr == nil {
		return fmt.Errorf("nil buffer")
	}
	logger.Tracef(ctx, "EmptyThisBuffer(ctx, %s)", hdr)
	c.inputQueue.Push(ctx, hdr)
	return nil
}

// FillThisBuffer queues a buffer to receive a decoded picture; it does not
// start the processing (see OnQueueFilled).
func (c *Component) FillThisBuffer(
	ctx context.Context,
	hdr *buffer.Header,
) error {
	if hdr == nil {
		return fmt.Errorf("nil buffer")
	}
	logger.Tracef(ctx, "FillThisBuffer(ctx, %s)", hdr)
	required := c.OutputBufferSize(ctx)
	if uint64(len(hdr.Data)) < required {
		return ErrBufferTooSmall{Size: uint64(len(hdr.Data)), Required: required}
	}
	c.outputQueue.Push(ctx, hdr)
	return nil
}

// OnPortFlushCompleted returns all the buffers queued on the port to the
// host. Flushing the input port also drops the pictures buffered inside
// the engine and starts a new end-of-stream episode.
func (c *Component) OnPortFlushCompleted(
	ctx context.Context,
	port types.PortIndex,
) (_err error) {
	ctx = belt.WithField(ctx, "port", port)
	logger.Tracef(ctx, "OnPortFlushCompleted(ctx, %s)", port)
	defer func() { logger.Tracef(ctx, "/OnPortFlushCompleted(ctx, %s): %v", port, _err) }()
	return xsync.DoA2R1(ctx, &c.locker, c.onPortFlushCompletedLocked, ctx, port)
}

func (c *Component) onPortFlushCompletedLocked(
	ctx context.Context,
	port types.PortIndex,
) error {
	q, err := c.queue(port)
	if err != nil {
		return err
	}
	if port == types.PortIndexInput {
		if c.opened {
			c.Engine.Flush(ctx)
		}
		c.picture = nil
		c.eosStatus = EOSStatusInputAvailable
	}
	if n := q.ReturnAll(ctx); n > 0 {
		logger.Debugf(ctx, "returned %d buffers", n)
	}
	return nil
}

// Reset brings the component to the freshly created state, keeping the
// parameters: the engine is closed (to be reopened lazily), the extradata
// is dropped, the error latch is cleared, and all the queued buffers are
// returned to the host.
func (c *Component) Reset(ctx context.Context) (_err error) {
	logger.Tracef(ctx, "Reset")
	defer func() { logger.Tracef(ctx, "/Reset: %v", _err) }()
	return xsync.DoA1R1(ctx, &c.locker, c.resetLocked, ctx)
}

func (c *Component) resetLocked(ctx context.Context) error {
	var result []error
	if c.opened {
		if err := c.Engine.Close(ctx); err != nil {
			result = append(result, fmt.Errorf("unable to close the engine %s: %w", c.Engine, err))
		}
	}
	if c.scaler != nil {
		if err := c.scaler.Close(ctx); err != nil {
			result = append(result, fmt.Errorf("unable to close the scaler %s: %w", c.scaler, err))
		}
		c.scaler = nil
	}
	c.opened = false
	c.picture = nil
	c.extraData.Reset()
	c.signalledError = nil
	c.eosStatus = EOSStatusInputAvailable
	c.portSettingsChange = PortSettingsChangeNone
	c.inputQueue.ReturnAll(ctx)
	c.outputQueue.ReturnAll(ctx)
	return errors.Join(result...)
}

// Close releases all the resources and returns the queued buffers to the host.
func (c *Component) Close(ctx context.Context) (_err error) {
	logger.Tracef(ctx, "Close")
	defer func() { logger.Tracef(ctx, "/Close: %v", _err) }()
	return xsync.DoA1R1(ctx, &c.locker, c.resetLocked, ctx)
}

// signalError latches the first fatal error and reports it to the host.
func (c *Component) signalError(ctx context.Context, err error) {
	if c.signalledError != nil {
		logger.Debugf(ctx, "an error was already signalled (%v), skipping: %v", c.signalledError, err)
		return
	}
	logger.Errorf(ctx, "fatal error: %v", err)
	c.signalledError = err
	c.Host.OnError(ctx, err)
}
