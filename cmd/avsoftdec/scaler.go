package main

import (
	"fmt"

	"github.com/xaionaro-go/avsoftdec/codec"
	"github.com/xaionaro-go/avsoftdec/scaler"
)

type scalerKind string

const (
	scalerKindLibAV = scalerKind("libav")
	scalerKindGo    = scalerKind("go")
)

func (k *scalerKind) String() string {
	return string(*k)
}

func (k *scalerKind) Set(s string) error {
	switch scalerKind(s) {
	case scalerKindLibAV, scalerKindGo:
		*k = scalerKind(s)
		return nil
	}
	return fmt.Errorf("unknown scaler '%s', expected '%s' or '%s'", s, scalerKindLibAV, scalerKindGo)
}

func (k *scalerKind) Type() string {
	return "scaler"
}

// newBackend returns the decode engine with the converter factory it
// has to be paired with.
func newBackend(k scalerKind) (*codec.LibAV, scaler.Factory) {
	engine := codec.NewLibAV()
	switch k {
	case scalerKindGo:
		engine.ExportPlanes = true
		return engine, scaler.GoFactory{}
	default:
		return engine, &scaler.SoftwareFactory{}
	}
}
