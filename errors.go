package avsoftdec

import (
	"errors"
	"fmt"

	"github.com/xaionaro-go/avsoftdec/types"
)

var ErrParameterAfterOpen = errors.New("the decoder is already opened, the parameter is applied only after a reset")

type ErrPortIndex struct {
	Port types.PortIndex
}

func (e ErrPortIndex) Error() string {
	return fmt.Sprintf("invalid port index: %d", uint32(e.Port))
}

type ErrBufferTooSmall struct {
	Size     uint64
	Required uint64
}

func (e ErrBufferTooSmall) Error() string {
	return fmt.Sprintf("the output buffer is too small: %d < %d", e.Size, e.Required)
}

type ErrConversionFailed struct {
	Err error
}

func (e ErrConversionFailed) Error() string {
	return fmt.Sprintf("unable to convert the picture: %v", e.Err)
}

func (e ErrConversionFailed) Unwrap() error {
	return e.Err
}

type ErrExtradata struct {
	Err error
}

func (e ErrExtradata) Error() string {
	return fmt.Sprintf("unable to handle extradata: %v", e.Err)
}

func (e ErrExtradata) Unwrap() error {
	return e.Err
}
