package types

import (
	"fmt"
)

type Resolution struct {
	Width  uint32 `yaml:"width"`
	Height uint32 `yaml:"height"`
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

func (r *Resolution) Parse(s string) error {
	_, err := fmt.Sscanf(s, "%dx%d", &r.Width, &r.Height)
	if err != nil {
		return fmt.Errorf("unable to parse resolution '%s': %w", s, err)
	}
	return nil
}

func (r Resolution) IsZero() bool {
	return r.Width == 0 && r.Height == 0
}

// I420Size returns the amount of bytes a planar 4:2:0 picture of this
// resolution occupies, with the luma stride equal to the width.
func (r Resolution) I420Size() uint64 {
	return uint64(r.Width) * uint64(r.Height) * 3 / 2
}

// I420BufferSize is I420Size rounded up for odd dimensions, the way libav
// lays out chroma planes of such pictures.
func (r Resolution) I420BufferSize() uint64 {
	cw := (uint64(r.Width) + 1) / 2
	ch := (uint64(r.Height) + 1) / 2
	return uint64(r.Width)*uint64(r.Height) + 2*cw*ch
}

func (r Resolution) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Resolution) UnmarshalText(b []byte) error {
	return r.Parse(string(b))
}
