package avsoftdec

import (
	"fmt"
)

// EOSStatus tracks the end of stream on the way from the input port to the output port.
type EOSStatus int

const (
	EOSStatusInputAvailable = EOSStatus(iota)
	EOSStatusInputEOSSeen
	// EOSStatusOutputFlushed is sticky until the input port is flushed.
	EOSStatusOutputFlushed
)

func (s EOSStatus) String() string {
	switch s {
	case EOSStatusInputAvailable:
		return "input_available"
	case EOSStatusInputEOSSeen:
		return "input_eos_seen"
	case EOSStatusOutputFlushed:
		return "output_flushed"
	default:
		return fmt.Sprintf("unknown_eos_status_%d", int(s))
	}
}
