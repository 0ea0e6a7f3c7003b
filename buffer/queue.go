package buffer

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/avsoftdec/logger"
	"github.com/xaionaro-go/avsoftdec/types"
	"github.com/xaionaro-go/xsync"
)

// ReturnFunc hands a buffer back to the host (EmptyBufferDone for the
// input port, FillBufferDone for the output port).
type ReturnFunc func(ctx context.Context, hdr *Header)

// Info tracks the ownership of a queued header.
type Info struct {
	Header    *Header
	OwnedByUs bool
}

// Queue is the ordered sequence of buffers the host gave to one port.
//
// Its locker is independent of the component's one, so the host may
// push buffers from inside its own callbacks.
type Queue struct {
	Port     types.PortIndex
	locker   xsync.Mutex
	items    []*Info
	returnFn ReturnFunc
}

func NewQueue(port types.PortIndex, returnFn ReturnFunc) *Queue {
	return &Queue{
		Port:     port,
		returnFn: returnFn,
	}
}

func (q *Queue) String() string {
	return fmt.Sprintf("Queue(%s)", q.Port)
}

// Push appends a buffer received from the host; from now on it is owned by us.
func (q *Queue) Push(ctx context.Context, hdr *Header) {
	q.locker.Do(xsync.WithNoLogging(ctx, true), func() {
		q.items = append(q.items, &Info{Header: hdr, OwnedByUs: true})
	})
}

func (q *Queue) Len(ctx context.Context) int {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &q.locker, func() int {
		return len(q.items)
	})
}

func (q *Queue) IsEmpty(ctx context.Context) bool {
	return q.Len(ctx) == 0
}

// Front returns the first buffer without dequeuing it, or nil.
func (q *Queue) Front(ctx context.Context) *Header {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &q.locker, func() *Header {
		if len(q.items) == 0 {
			return nil
		}
		return q.items[0].Header
	})
}

// Take dequeues the first buffer. The returned Lease must be returned
// exactly once; `defer lease.Return(ctx)` right after Take is the
// expected usage. Returns nil if the queue is empty.
func (q *Queue) Take(ctx context.Context) *Lease {
	info := xsync.DoR1(xsync.WithNoLogging(ctx, true), &q.locker, func() *Info {
		if len(q.items) == 0 {
			return nil
		}
		info := q.items[0]
		q.items[0] = nil
		q.items = q.items[1:]
		return info
	})
	if info == nil {
		return nil
	}
	return &Lease{
		queue: q,
		info:  info,
	}
}

// ReturnAll hands every queued buffer back to the host, preserving the order.
func (q *Queue) ReturnAll(ctx context.Context) int {
	count := 0
	for {
		lease := q.Take(ctx)
		if lease == nil {
			return count
		}
		logger.Debugf(ctx, "returning %s from %s", lease.Header(), q)
		lease.Return(ctx)
		count++
	}
}
