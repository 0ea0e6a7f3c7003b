package buffer

import (
	"sync"
)

// Pool recycles buffer headers together with their memory. It is meant
// for hosts: a header handed back by the component may be Put and later
// reused for another buffer.
type Pool struct {
	sync.Pool
}

func NewPool() *Pool {
	return &Pool{
		Pool: sync.Pool{
			New: func() any {
				return &Header{}
			},
		},
	}
}

// Get returns a reset header with at least size bytes of Data.
func (p *Pool) Get(size int) *Header {
	hdr := p.Pool.Get().(*Header)
	if cap(hdr.Data) < size {
		hdr.Data = make([]byte, size)
	}
	hdr.Data = hdr.Data[:size]
	return hdr
}

func (p *Pool) Put(items ...*Header) {
	for _, hdr := range items {
		hdr.Offset = 0
		hdr.FilledLen = 0
		hdr.Flags = 0
		hdr.AppData = nil
		p.Pool.Put(hdr)
	}
}
