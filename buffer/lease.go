package buffer

import (
	"context"

	"github.com/xaionaro-go/avsoftdec/internal"
)

// Lease is a dequeued buffer that still has to be handed back to the host.
type Lease struct {
	queue    *Queue
	info     *Info
	returned bool
}

func (l *Lease) Header() *Header {
	return l.info.Header
}

// Return hands the buffer back to the host. Only the first call has an effect.
func (l *Lease) Return(ctx context.Context) {
	if l == nil || l.returned {
		return
	}
	l.returned = true
	internal.Assert(ctx, l.info.OwnedByUs, "returning a buffer that is not owned by us", l.info.Header)
	l.info.OwnedByUs = false
	if l.queue.returnFn != nil {
		l.queue.returnFn(ctx, l.info.Header)
	}
}

func (l *Lease) IsReturned() bool {
	return l.returned
}
