package types

import (
	"fmt"
)

type PortIndex uint32

const (
	PortIndexInput  PortIndex = 0
	PortIndexOutput PortIndex = 1
)

func (p PortIndex) String() string {
	switch p {
	case PortIndexInput:
		return "input"
	case PortIndexOutput:
		return "output"
	default:
		return fmt.Sprintf("port#%d", uint32(p))
	}
}
