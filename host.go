package avsoftdec

import (
	"context"

	"github.com/xaionaro-go/avsoftdec/buffer"
	"github.com/xaionaro-go/avsoftdec/types"
)

// Host is the framework owning the ports; the component hands the buffers
// back and reports the events through it.
//
// The callbacks are invoked while the component is busy, so they must not
// call OnQueueFilled or other synchronous entry points; EmptyThisBuffer and
// FillThisBuffer are fine.
type Host interface {
	EmptyBufferDone(ctx context.Context, hdr *buffer.Header)
	FillBufferDone(ctx context.Context, hdr *buffer.Header)

	// OnError is called at most once until Reset.
	OnError(ctx context.Context, err error)

	OnPortSettingsChanged(ctx context.Context, port types.PortIndex, res types.Resolution)
}

// HostFuncs implements Host with optional callbacks.
type HostFuncs struct {
	EmptyBufferDoneFunc       func(ctx context.Context, hdr *buffer.Header)
	FillBufferDoneFunc        func(ctx context.Context, hdr *buffer.Header)
	OnErrorFunc               func(ctx context.Context, err error)
	OnPortSettingsChangedFunc func(ctx context.Context, port types.PortIndex, res types.Resolution)
}

var _ Host = (*HostFuncs)(nil)

func (h *HostFuncs) EmptyBufferDone(ctx context.Context, hdr *buffer.Header) {
	if h.EmptyBufferDoneFunc != nil {
		h.EmptyBufferDoneFunc(ctx, hdr)
	}
}

func (h *HostFuncs) FillBufferDone(ctx context.Context, hdr *buffer.Header) {
	if h.FillBufferDoneFunc != nil {
		h.FillBufferDoneFunc(ctx, hdr)
	}
}

func (h *HostFuncs) OnError(ctx context.Context, err error) {
	if h.OnErrorFunc != nil {
		h.OnErrorFunc(ctx, err)
	}
}

func (h *HostFuncs) OnPortSettingsChanged(ctx context.Context, port types.PortIndex, res types.Resolution) {
	if h.OnPortSettingsChangedFunc != nil {
		h.OnPortSettingsChangedFunc(ctx, port, res)
	}
}
