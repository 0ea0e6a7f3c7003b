// Package buffer describes the host-owned buffers exchanged through the
// component ports and the per-port queues holding them while the component
// owns them.
package buffer

import (
	"fmt"

	"github.com/xaionaro-go/avsoftdec/types"
)

type Flags uint32

const (
	FlagEOS         = Flags(0x00000001)
	FlagSyncFrame   = Flags(0x00000020)
	FlagCodecConfig = Flags(0x00000080)
)

func (f Flags) Has(v Flags) bool {
	return f&v == v
}

func (f Flags) String() string {
	s := ""
	add := func(name string) {
		if s != "" {
			s += "|"
		}
		s += name
	}
	if f.Has(FlagEOS) {
		add("EOS")
	}
	if f.Has(FlagSyncFrame) {
		add("SYNCFRAME")
	}
	if f.Has(FlagCodecConfig) {
		add("CODECCONFIG")
	}
	if rest := f &^ (FlagEOS | FlagSyncFrame | FlagCodecConfig); rest != 0 {
		add(fmt.Sprintf("0x%X", uint32(rest)))
	}
	if s == "" {
		return "0"
	}
	return s
}

// Header is the descriptor of a host buffer. The valid payload is
// Data[Offset:Offset+FilledLen].
type Header struct {
	Data      []byte
	Offset    uint32
	FilledLen uint32
	Flags     Flags
	Timestamp types.Timestamp

	// AppData is never touched by the component.
	AppData any
}

// Payload returns the valid bytes of the buffer.
func (h *Header) Payload() []byte {
	end := uint64(h.Offset) + uint64(h.FilledLen)
	if end > uint64(len(h.Data)) {
		end = uint64(len(h.Data))
	}
	if uint64(h.Offset) >= end {
		return nil
	}
	return h.Data[h.Offset:end]
}

func (h *Header) String() string {
	return fmt.Sprintf("buffer(len:%d, off:%d, cap:%d, flags:%s, ts:%s)", h.FilledLen, h.Offset, len(h.Data), h.Flags, h.Timestamp)
}
