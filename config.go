package avsoftdec

import (
	"fmt"
	"io"

	"github.com/xaionaro-go/avsoftdec/codec"
	"github.com/xaionaro-go/avsoftdec/types"
	"gopkg.in/yaml.v3"
)

// TimestampSource selects which timestamp of a decoded picture is put into
// the output buffer.
type TimestampSource int

const (
	// TimestampSourceBestEffort is the timestamp guessed by the engine from
	// both the presentation and the decode timestamps.
	TimestampSourceBestEffort = TimestampSource(iota)
	TimestampSourceDecodeOrder
	TimestampSourcePresentationOrder
)

func (s TimestampSource) String() string {
	switch s {
	case TimestampSourceBestEffort:
		return "best_effort"
	case TimestampSourceDecodeOrder:
		return "decode_order"
	case TimestampSourcePresentationOrder:
		return "presentation_order"
	default:
		return fmt.Sprintf("unknown_timestamp_source_%d", int(s))
	}
}

func (s TimestampSource) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *TimestampSource) UnmarshalText(b []byte) error {
	for candidate := TimestampSourceBestEffort; candidate <= TimestampSourcePresentationOrder; candidate++ {
		if candidate.String() == string(b) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown timestamp source '%s'", b)
}

// Select returns the chosen timestamp of the picture, zero if it is absent.
func (s TimestampSource) Select(p *codec.Picture) types.Timestamp {
	var ts types.Timestamp
	switch s {
	case TimestampSourceDecodeOrder:
		ts = p.PktDTS
	case TimestampSourcePresentationOrder:
		ts = p.PktPTS
	default:
		ts = p.BestEffortTimestamp
	}
	return ts.OrZero()
}

var DefaultOutputResolution = types.Resolution{Width: 320, Height: 240}

type Config struct {
	CodecName        codec.Name       `yaml:"codec_name"`
	InputResolution  types.Resolution `yaml:"input_resolution"`
	OutputResolution types.Resolution `yaml:"output_resolution"`
	TimestampSource  TimestampSource  `yaml:"timestamp_source"`
	IgnoreExtradata  bool             `yaml:"ignore_extradata"`
	Tuning           codec.Tuning     `yaml:"tuning"`
}

func DefaultConfig() Config {
	return Config{
		OutputResolution: DefaultOutputResolution,
		TimestampSource:  TimestampSourceBestEffort,
		Tuning:           codec.DefaultTuning(),
	}
}

// LoadConfig reads a YAML config; the fields absent in the document keep
// their DefaultConfig values.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	err := yaml.NewDecoder(r).Decode(&cfg)
	switch {
	case err == nil:
	case err == io.EOF:
		return cfg, nil
	default:
		return Config{}, fmt.Errorf("unable to parse the config: %w", err)
	}
	if cfg.OutputResolution.Width == 0 || cfg.OutputResolution.Height == 0 {
		return Config{}, fmt.Errorf("invalid output resolution: %s", cfg.OutputResolution)
	}
	return cfg, nil
}
