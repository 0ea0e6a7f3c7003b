package main

import (
	"context"
	"fmt"
	"io"

	"github.com/xaionaro-go/avsoftdec"
	"github.com/xaionaro-go/avsoftdec/buffer"
	"github.com/xaionaro-go/avsoftdec/logger"
	"github.com/xaionaro-go/avsoftdec/types"
)

// fileHost writes the decoded pictures into a raw I420 file and gives the
// output buffers back to the component.
type fileHost struct {
	component     *avsoftdec.Component
	writer        io.Writer
	inputPool     *buffer.Pool
	bufferCount   int
	reconfiguring bool
	eos           bool
	err           error

	framesWritten uint64
	bytesWritten  uint64
}

var _ avsoftdec.Host = (*fileHost)(nil)

func (h *fileHost) EmptyBufferDone(ctx context.Context, hdr *buffer.Header) {
	logger.Tracef(ctx, "EmptyBufferDone: %s", hdr)
	h.inputPool.Put(hdr)
}

// inputBuffer copies the data into a pooled input buffer.
func (h *fileHost) inputBuffer(data []byte, flags buffer.Flags, ts types.Timestamp) *buffer.Header {
	hdr := h.inputPool.Get(len(data))
	copy(hdr.Data, data)
	hdr.FilledLen = uint32(len(data))
	hdr.Flags = flags
	hdr.Timestamp = ts
	return hdr
}

func (h *fileHost) FillBufferDone(ctx context.Context, hdr *buffer.Header) {
	logger.Tracef(ctx, "FillBufferDone: %s", hdr)
	if hdr.FilledLen > 0 && h.err == nil {
		n, err := h.writer.Write(hdr.Payload())
		h.bytesWritten += uint64(n)
		if err != nil {
			h.err = fmt.Errorf("unable to write a picture: %w", err)
			return
		}
		h.framesWritten++
	}
	if hdr.Flags.Has(buffer.FlagEOS) {
		h.eos = true
		return
	}
	if h.reconfiguring {
		return
	}
	hdr.FilledLen = 0
	if err := h.component.FillThisBuffer(ctx, hdr); err != nil {
		logger.Errorf(ctx, "unable to requeue an output buffer: %v", err)
	}
}

func (h *fileHost) OnError(ctx context.Context, err error) {
	h.err = err
}

func (h *fileHost) OnPortSettingsChanged(ctx context.Context, port types.PortIndex, res types.Resolution) {
	logger.Infof(ctx, "the %s port is reconfigured to %s", port, res)
	h.reconfiguring = true
}

func (h *fileHost) allocateOutputBuffers(ctx context.Context) error {
	size := h.component.OutputBufferSize(ctx)
	for i := 0; i < h.bufferCount; i++ {
		if err := h.component.FillThisBuffer(ctx, &buffer.Header{Data: make([]byte, size)}); err != nil {
			return err
		}
	}
	return nil
}

// reconfigure performs the output port disable/enable handshake the
// component asked for.
func (h *fileHost) reconfigure(ctx context.Context) error {
	for h.reconfiguring {
		c := h.component
		if err := c.OnPortFlushCompleted(ctx, types.PortIndexOutput); err != nil {
			return err
		}
		if err := c.OnPortEnableCompleted(ctx, types.PortIndexOutput, false); err != nil {
			return err
		}
		h.reconfiguring = false
		if err := h.allocateOutputBuffers(ctx); err != nil {
			return err
		}
		if err := c.OnPortEnableCompleted(ctx, types.PortIndexOutput, true); err != nil {
			return err
		}
	}
	return nil
}

// process lets the component consume the queued buffers.
func (h *fileHost) process(ctx context.Context) error {
	h.component.OnQueueFilled(ctx)
	if err := h.reconfigure(ctx); err != nil {
		return err
	}
	return h.err
}
