package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"strings"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/dustin/go-humanize"
	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/avsoftdec"
	"github.com/xaionaro-go/avsoftdec/buffer"
	"github.com/xaionaro-go/avsoftdec/codec"
	"github.com/xaionaro-go/avsoftdec/types"
	"github.com/xaionaro-go/observability"
)

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "syntax: %s [options] <input-file> <output.yuv>\n", os.Args[0])
		pflag.PrintDefaults()
	}

	loggerLevel := logger.LevelWarning
	pflag.Var(&loggerLevel, "log-level", "Log level")
	netPprofAddr := pflag.String("net-pprof-listen-addr", "", "an address to listen for incoming net/pprof connections")
	configPath := pflag.String("config", "", "path to a YAML config of the decoder")
	codecName := pflag.String("codec", "", "decoder name to use instead of the one detected from the input")
	outputResolution := pflag.String("output-resolution", "", "initial output buffer resolution, e.g. 1280x720; it is replaced by the decoded size once the stream reports a different one (by default: the resolution of the stream)")
	timestampSource := pflag.String("timestamp-source", "", "best_effort, decode_order or presentation_order")
	ignoreExtradata := pflag.Bool("ignore-extradata", false, "do not pass the codec-config data to the decoder")
	outputBuffers := pflag.Int("output-buffers", 4, "amount of output buffers")
	inputDemuxer := demuxerLibAV
	pflag.Var(&inputDemuxer, "demuxer", "libav or mp4 (H.264 in progressive MP4 without libavformat)")
	scalerType := scalerKindLibAV
	pflag.Var(&scalerType, "scaler", "libav (libswscale) or go (pure-Go converter for planar YUV input)")
	pflag.Parse()
	if len(pflag.Args()) != 2 {
		pflag.Usage()
		os.Exit(1)
	}

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	if *netPprofAddr != "" {
		observability.Go(ctx, func() { l.Error(http.ListenAndServe(*netPprofAddr, nil)) })
	}

	astiav.SetLogLevel(codec.LogLevelToAstiav(l.Level()))
	astiav.SetLogCallback(func(c astiav.Classer, level astiav.LogLevel, fmt, msg string) {
		var cs string
		if c != nil {
			if cl := c.Class(); cl != nil {
				cs = " - class: " + cl.String()
			}
		}
		l.Logf(
			codec.LogLevelFromAstiav(level),
			"%s%s",
			strings.TrimSpace(msg), cs,
		)
	})

	cfg := avsoftdec.DefaultConfig()
	cfg.OutputResolution = types.Resolution{}
	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			l.Fatal(err)
		}
		cfg, err = avsoftdec.LoadConfig(f)
		f.Close()
		if err != nil {
			l.Fatal(err)
		}
	}
	if *codecName != "" {
		cfg.CodecName = codec.Name(*codecName)
	}
	if *outputResolution != "" {
		if err := cfg.OutputResolution.Parse(*outputResolution); err != nil {
			l.Fatal(err)
		}
	}
	if *timestampSource != "" {
		if err := cfg.TimestampSource.UnmarshalText([]byte(*timestampSource)); err != nil {
			l.Fatal(err)
		}
	}
	if *ignoreExtradata {
		cfg.IgnoreExtradata = true
	}

	inputPath, outputPath := pflag.Arg(0), pflag.Arg(1)
	l.Debugf("opening '%s' as the input...", inputPath)
	src, err := openSource(ctx, inputDemuxer, inputPath)
	if err != nil {
		l.Fatal(err)
	}
	defer src.Close()

	if cfg.CodecName == "" {
		cfg.CodecName = src.CodecName()
	}
	if cfg.InputResolution.IsZero() {
		cfg.InputResolution = src.Resolution()
	}
	if cfg.OutputResolution.IsZero() {
		cfg.OutputResolution = src.Resolution()
	}

	out, err := os.Create(outputPath)
	if err != nil {
		l.Fatal(err)
	}
	writer := bufio.NewWriterSize(out, 1<<20)

	host := &fileHost{
		writer:      writer,
		inputPool:   buffer.NewPool(),
		bufferCount: *outputBuffers,
	}
	engine, scalerFactory := newBackend(scalerType)
	component, err := avsoftdec.New(ctx, engine, scalerFactory, host, cfg)
	if err != nil {
		l.Fatal(err)
	}
	host.component = component

	startedAt := time.Now()
	if err := run(ctx, component, host, src); err != nil {
		l.Error(err)
	}
	if err := component.Close(ctx); err != nil {
		l.Error(err)
	}
	if err := writer.Flush(); err != nil {
		l.Error(err)
	}
	if err := out.Close(); err != nil {
		l.Error(err)
	}

	stats := component.GetStats()
	fmt.Printf(
		"%s -> %s: %d units (%s) -> %d pictures (%s) %s in %v\n",
		src, outputPath,
		stats.InputBuffers, humanize.Bytes(stats.InputBytes),
		host.framesWritten, humanize.Bytes(host.bytesWritten),
		component.OutputResolution(ctx),
		time.Since(startedAt).Round(time.Millisecond),
	)
}

func run(
	ctx context.Context,
	c *avsoftdec.Component,
	host *fileHost,
	src source,
) error {
	if err := host.allocateOutputBuffers(ctx); err != nil {
		return fmt.Errorf("unable to allocate output buffers: %w", err)
	}

	for _, data := range src.ConfigUnits() {
		if err := c.EmptyThisBuffer(ctx, host.inputBuffer(data, buffer.FlagCodecConfig, types.NoTimestamp)); err != nil {
			return err
		}
	}

	for {
		unit, err := src.ReadUnit(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if err := c.EmptyThisBuffer(ctx, host.inputBuffer(unit.Data, 0, unit.Timestamp)); err != nil {
			return err
		}
		if err := host.process(ctx); err != nil {
			return err
		}
	}

	if err := c.EmptyThisBuffer(ctx, host.inputBuffer(nil, buffer.FlagEOS, types.NoTimestamp)); err != nil {
		return err
	}
	for !host.eos {
		framesBefore := host.framesWritten
		if err := host.process(ctx); err != nil {
			return err
		}
		if !host.eos && host.framesWritten == framesBefore {
			return fmt.Errorf("the decoder stopped before the end of stream (status: %s)", c.EOSStatus(ctx))
		}
	}
	return nil
}
