package codec

import (
	"fmt"
)

type ErrCodecNotFound struct {
	CodecName Name
}

func (e ErrCodecNotFound) Error() string {
	return fmt.Sprintf("unable to find a decoder using name '%s'", e.CodecName)
}

type ErrOpenFailed struct {
	CodecName Name
	Err       error
}

func (e ErrOpenFailed) Error() string {
	return fmt.Sprintf("unable to open decoder '%s': %v", e.CodecName, e.Err)
}

func (e ErrOpenFailed) Unwrap() error {
	return e.Err
}

type ErrDecodeFailed struct {
	Err error
}

func (e ErrDecodeFailed) Error() string {
	return fmt.Sprintf("unable to decode: %v", e.Err)
}

func (e ErrDecodeFailed) Unwrap() error {
	return e.Err
}

type ErrNotOpened struct{}

func (ErrNotOpened) Error() string {
	return "the engine is not opened"
}

type ErrAlreadyOpened struct{}

func (ErrAlreadyOpened) Error() string {
	return "the engine is already opened"
}
