package codec

import (
	"fmt"
	"strconv"
)

// Discard mirrors libav's AVDiscard option values.
type Discard string

const (
	DiscardNone    = Discard("none")
	DiscardDefault = Discard("default")
	DiscardNonRef  = Discard("noref")
	DiscardBidir   = Discard("bidir")
	DiscardNonKey  = Discard("nokey")
	DiscardAll     = Discard("all")
)

// Tuning is the set of decoder knobs applied right before opening.
type Tuning struct {
	WorkaroundBugs   bool              `yaml:"workaround_bugs"`
	Lowres           int               `yaml:"lowres"`
	IDCTAuto         bool              `yaml:"idct_auto"`
	SkipFrame        Discard           `yaml:"skip_frame"`
	SkipIDCT         Discard           `yaml:"skip_idct"`
	SkipLoopFilter   Discard           `yaml:"skip_loop_filter"`
	GuessMVs         bool              `yaml:"guess_mvs"`
	Deblock          bool              `yaml:"deblock"`
	ThreadCount      int               `yaml:"thread_count"` // 0 means "auto"
	Fast             bool              `yaml:"fast"`
	CustomParameters map[string]string `yaml:"custom_parameters"`
}

// DefaultTuning favors speed over exactness: the loop filter is skipped
// and the "fast" shortcuts are allowed.
func DefaultTuning() Tuning {
	return Tuning{
		WorkaroundBugs: true,
		Lowres:         0,
		IDCTAuto:       true,
		SkipFrame:      DiscardDefault,
		SkipIDCT:       DiscardDefault,
		SkipLoopFilter: DiscardAll,
		GuessMVs:       true,
		Deblock:        true,
		ThreadCount:    0,
		Fast:           true,
	}
}

// Options renders the tuning as libav AVOptions of AVCodecContext.
func (t Tuning) Options() [][2]string {
	var opts [][2]string
	add := func(k, v string) {
		opts = append(opts, [2]string{k, v})
	}
	if t.WorkaroundBugs {
		add("bug", "autodetect")
	}
	add("lowres", strconv.Itoa(t.Lowres))
	if t.IDCTAuto {
		add("idct", "auto")
	}
	if t.SkipFrame != "" {
		add("skip_frame", string(t.SkipFrame))
	}
	if t.SkipIDCT != "" {
		add("skip_idct", string(t.SkipIDCT))
	}
	if t.SkipLoopFilter != "" {
		add("skip_loop_filter", string(t.SkipLoopFilter))
	}
	switch {
	case t.GuessMVs && t.Deblock:
		add("ec", "guess_mvs+deblock")
	case t.GuessMVs:
		add("ec", "guess_mvs")
	case t.Deblock:
		add("ec", "deblock")
	}
	if t.ThreadCount <= 0 {
		add("threads", "auto")
	} else {
		add("threads", strconv.Itoa(t.ThreadCount))
	}
	if t.Fast {
		add("flags2", "+fast")
	}
	for k, v := range t.CustomParameters {
		add(k, v)
	}
	return opts
}

func (t Tuning) String() string {
	return fmt.Sprintf("%v", t.Options())
}
