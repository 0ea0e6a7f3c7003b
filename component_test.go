package avsoftdec

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/avsoftdec/buffer"
	"github.com/xaionaro-go/avsoftdec/codec"
	"github.com/xaionaro-go/avsoftdec/extradata"
	"github.com/xaionaro-go/avsoftdec/scaler"
	"github.com/xaionaro-go/avsoftdec/types"
)

var testResolution = types.Resolution{Width: 16, Height: 16}

type decodeStep struct {
	Picture *codec.Picture
	Err     error
}

func produced(pic *codec.Picture) decodeStep {
	return decodeStep{Picture: pic}
}

func noFrame() decodeStep {
	return decodeStep{}
}

type fakeEngine struct {
	HasDelayValue bool
	ResolutionVal types.Resolution
	Steps         []decodeStep
	OpenErr       error

	Units      []codec.Unit
	OpenParams []codec.OpenParams
	FlushCount int
	CloseCount int
	opened     bool
}

var _ codec.Engine = (*fakeEngine)(nil)

func (e *fakeEngine) String() string { return "fakeEngine" }

func (e *fakeEngine) Open(ctx context.Context, params codec.OpenParams) error {
	e.OpenParams = append(e.OpenParams, params)
	if e.OpenErr != nil {
		return e.OpenErr
	}
	if e.opened {
		return codec.ErrAlreadyOpened{}
	}
	e.opened = true
	return nil
}

func (e *fakeEngine) Decode(ctx context.Context, unit codec.Unit) (*codec.Picture, error) {
	if !e.opened {
		return nil, codec.ErrNotOpened{}
	}
	if unit.Data != nil {
		unit.Data = append([]byte{}, unit.Data...)
	}
	e.Units = append(e.Units, unit)
	if len(e.Steps) == 0 {
		return nil, nil
	}
	step := e.Steps[0]
	e.Steps = e.Steps[1:]
	return step.Picture, step.Err
}

func (e *fakeEngine) HasDelay() bool { return e.HasDelayValue }

func (e *fakeEngine) Resolution() types.Resolution { return e.ResolutionVal }

func (e *fakeEngine) Flush(ctx context.Context) { e.FlushCount++ }

func (e *fakeEngine) Close(ctx context.Context) error {
	e.CloseCount++
	e.opened = false
	return nil
}

type fakeScaler struct {
	key     scaler.Key
	factory *fakeScalerFactory
	closed  bool
}

func (s *fakeScaler) String() string  { return fmt.Sprintf("fakeScaler(%s)", s.key) }
func (s *fakeScaler) Key() scaler.Key { return s.key }
func (s *fakeScaler) Close(context.Context) error {
	s.closed = true
	s.factory.Closed++
	return nil
}

func (s *fakeScaler) Scale(ctx context.Context, src *codec.Picture, dst []byte) error {
	if s.factory.ScaleErr != nil {
		return s.factory.ScaleErr
	}
	s.factory.Scaled++
	dst[0] = 0xAB
	return nil
}

type fakeScalerFactory struct {
	NewErr   error
	ScaleErr error

	Keys   []scaler.Key
	Closed int
	Scaled int
}

func (f *fakeScalerFactory) NewScaler(ctx context.Context, key scaler.Key) (scaler.Scaler, error) {
	if f.NewErr != nil {
		return nil, f.NewErr
	}
	f.Keys = append(f.Keys, key)
	return &fakeScaler{key: key, factory: f}, nil
}

type filledRecord struct {
	Header    *buffer.Header
	FilledLen uint32
	Flags     buffer.Flags
	Timestamp types.Timestamp
}

type recordingHost struct {
	Component *Component

	// Recycle makes the host give the filled buffers back to the component
	// right away (except the end-of-stream one).
	Recycle bool

	Emptied  []*buffer.Header
	Filled   []filledRecord
	Errors   []error
	Settings []types.Resolution
}

var _ Host = (*recordingHost)(nil)

func (h *recordingHost) EmptyBufferDone(ctx context.Context, hdr *buffer.Header) {
	h.Emptied = append(h.Emptied, hdr)
}

func (h *recordingHost) FillBufferDone(ctx context.Context, hdr *buffer.Header) {
	h.Filled = append(h.Filled, filledRecord{
		Header:    hdr,
		FilledLen: hdr.FilledLen,
		Flags:     hdr.Flags,
		Timestamp: hdr.Timestamp,
	})
	if h.Recycle && !hdr.Flags.Has(buffer.FlagEOS) {
		if err := h.Component.FillThisBuffer(ctx, hdr); err != nil {
			panic(err)
		}
	}
}

func (h *recordingHost) OnError(ctx context.Context, err error) {
	h.Errors = append(h.Errors, err)
}

func (h *recordingHost) OnPortSettingsChanged(ctx context.Context, port types.PortIndex, res types.Resolution) {
	h.Settings = append(h.Settings, res)
}

// frames returns the filled records excluding the end-of-stream ones.
func (h *recordingHost) frames() []filledRecord {
	var result []filledRecord
	for _, r := range h.Filled {
		if !r.Flags.Has(buffer.FlagEOS) {
			result = append(result, r)
		}
	}
	return result
}

func (h *recordingHost) eosCount() int {
	count := 0
	for _, r := range h.Filled {
		if r.Flags.Has(buffer.FlagEOS) {
			count++
		}
	}
	return count
}

type testEnv struct {
	Component *Component
	Engine    *fakeEngine
	Scalers   *fakeScalerFactory
	Host      *recordingHost
}

func newTestEnv(t *testing.T, engine *fakeEngine, cfg Config) *testEnv {
	ctx := context.Background()
	if engine.ResolutionVal.IsZero() {
		engine.ResolutionVal = testResolution
	}
	if cfg.OutputResolution.IsZero() || cfg.OutputResolution == DefaultOutputResolution {
		cfg.OutputResolution = testResolution
	}
	host := &recordingHost{}
	scalers := &fakeScalerFactory{}
	c, err := New(ctx, engine, scalers, host, cfg)
	require.NoError(t, err)
	host.Component = c
	return &testEnv{
		Component: c,
		Engine:    engine,
		Scalers:   scalers,
		Host:      host,
	}
}

func (env *testEnv) input(t *testing.T, data []byte, flags buffer.Flags, ts types.Timestamp) *buffer.Header {
	hdr := &buffer.Header{
		Data:      data,
		FilledLen: uint32(len(data)),
		Flags:     flags,
		Timestamp: ts,
	}
	require.NoError(t, env.Component.EmptyThisBuffer(context.Background(), hdr))
	return hdr
}

func (env *testEnv) output(t *testing.T) *buffer.Header {
	hdr := &buffer.Header{
		Data: make([]byte, env.Component.OutputBufferSize(context.Background())),
	}
	require.NoError(t, env.Component.FillThisBuffer(context.Background(), hdr))
	return hdr
}

func testPicture(key bool, ts types.Timestamp) *codec.Picture {
	return &codec.Picture{
		Width:               int(testResolution.Width),
		Height:              int(testResolution.Height),
		PixelFormat:         types.PixelFormatYUV420P,
		KeyFrame:            key,
		BestEffortTimestamp: ts,
		PktDTS:              ts,
		PktPTS:              ts,
	}
}

// requireReturnedOnce checks that every given header was returned exactly once.
func requireReturnedOnce(t *testing.T, returned []*buffer.Header, hdrs ...*buffer.Header) {
	t.Helper()
	count := map[*buffer.Header]int{}
	for _, hdr := range returned {
		count[hdr]++
	}
	for idx, hdr := range hdrs {
		require.Equal(t, 1, count[hdr], "buffer #%d (%s)", idx, hdr)
	}
}

func TestScenarioConfigThenFramesThenEOS(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &fakeEngine{
		Steps: []decodeStep{
			produced(testPicture(true, 100)),
			noFrame(),
			produced(testPicture(false, 200)),
			noFrame(),
		},
	}, DefaultConfig())
	env.Host.Recycle = true

	extraData := []byte{0, 0, 0, 1, 0x67, 1, 2, 3, 4, 5}
	inputs := []*buffer.Header{
		env.input(t, extraData, buffer.FlagCodecConfig, types.NoTimestamp),
		env.input(t, []byte{1}, 0, 100),
		env.input(t, []byte{2}, 0, 200),
		env.input(t, []byte{3}, 0, 300),
		env.input(t, []byte{}, buffer.FlagEOS, 400),
	}
	env.output(t)
	env.output(t)

	env.Component.OnQueueFilled(ctx)

	frames := env.Host.frames()
	require.Len(t, frames, 2)
	for idx, f := range frames {
		require.Equal(t, uint32(testResolution.Width*testResolution.Height*3/2), f.FilledLen, idx)
	}
	require.Equal(t, buffer.FlagSyncFrame, frames[0].Flags)
	require.Equal(t, buffer.Flags(0), frames[1].Flags)
	require.Equal(t, types.Timestamp(100), frames[0].Timestamp)
	require.Equal(t, types.Timestamp(200), frames[1].Timestamp)

	require.Len(t, env.Host.Filled, 3)
	eos := env.Host.Filled[2]
	require.Equal(t, buffer.FlagEOS, eos.Flags)
	require.Zero(t, eos.FilledLen)
	require.Zero(t, eos.Timestamp)

	requireReturnedOnce(t, env.Host.Emptied, inputs...)
	require.Len(t, env.Host.Emptied, len(inputs))
	require.Empty(t, env.Host.Errors)
	require.Empty(t, env.Host.Settings)
	require.Equal(t, EOSStatusOutputFlushed, env.Component.EOSStatus(ctx))

	require.Len(t, env.Engine.OpenParams, 1)
	require.Equal(t, extraData, env.Engine.OpenParams[0].ExtraData)
	require.Len(t, env.Engine.Units, 4, "the config buffer must not be decoded")
	require.False(t, env.Engine.Units[3].IsFlush(), "the EOS buffer is decoded normally")

	stats := env.Component.GetStats()
	require.Equal(t, uint64(4), stats.InputBuffers)
	require.Equal(t, uint64(1), stats.ConfigBuffers)
	require.Equal(t, uint64(2), stats.OutputFrames)
	require.Equal(t, uint64(1), stats.EOSBuffers)

	// the output flushed state is sticky
	filledBefore := len(env.Host.Filled)
	env.input(t, []byte{4}, 0, 500)
	env.output(t)
	env.Component.OnQueueFilled(ctx)
	require.Len(t, env.Host.Filled, filledBefore)
	require.Len(t, env.Engine.Units, 4)
}

func TestScenarioDecodeFailure(t *testing.T) {
	ctx := context.Background()
	decodeErr := errors.New("corrupted slice")
	env := newTestEnv(t, &fakeEngine{
		Steps: []decodeStep{
			produced(testPicture(true, 1)),
			{Err: decodeErr},
			produced(testPicture(false, 3)),
		},
	}, DefaultConfig())

	in1 := env.input(t, []byte{1}, 0, 1)
	in2 := env.input(t, []byte{2}, 0, 2)
	in3 := env.input(t, []byte{3}, 0, 3)
	out := []*buffer.Header{env.output(t), env.output(t), env.output(t)}

	env.Component.OnQueueFilled(ctx)

	require.Len(t, env.Host.Errors, 1)
	require.ErrorIs(t, env.Host.Errors[0], decodeErr)
	require.ErrorAs(t, env.Component.SignalledError(ctx), &codec.ErrDecodeFailed{})
	requireReturnedOnce(t, env.Host.Emptied, in1, in2)
	require.Len(t, env.Host.Emptied, 2, "the processing must stop at the failure")
	require.Len(t, env.Host.Filled, 1)

	env.Component.OnQueueFilled(ctx)
	require.Len(t, env.Host.Errors, 1)
	require.Len(t, env.Engine.Units, 2)

	// a reset hands everything back and re-arms the component
	require.NoError(t, env.Component.Reset(ctx))
	require.NoError(t, env.Component.SignalledError(ctx))
	require.False(t, env.Component.IsOpened(ctx))
	requireReturnedOnce(t, env.Host.Emptied, in1, in2, in3)
	fills := make([]*buffer.Header, 0, len(env.Host.Filled))
	for _, r := range env.Host.Filled {
		fills = append(fills, r.Header)
	}
	requireReturnedOnce(t, fills, out...)
	require.Equal(t, 1, env.Engine.CloseCount)
}

func TestScenarioDelayedEngineDrain(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &fakeEngine{
		HasDelayValue: true,
		Steps: []decodeStep{
			noFrame(),
			noFrame(),
			produced(testPicture(true, 10)),
			produced(testPicture(false, 20)),
			noFrame(),
		},
	}, DefaultConfig())

	in := []*buffer.Header{
		env.input(t, []byte{1}, 0, 10),
		env.input(t, []byte{2}, buffer.FlagEOS, 20),
	}
	for i := 0; i < 4; i++ {
		env.output(t)
	}

	env.Component.OnQueueFilled(ctx)

	require.Empty(t, env.Host.Errors)
	requireReturnedOnce(t, env.Host.Emptied, in...)
	require.Len(t, env.Host.frames(), 2)
	require.Equal(t, 1, env.Host.eosCount())
	require.Len(t, env.Host.Filled, 3)
	require.True(t, env.Host.Filled[2].Flags.Has(buffer.FlagEOS))

	require.Len(t, env.Engine.Units, 5)
	for idx, unit := range env.Engine.Units {
		require.Equal(t, idx >= 2, unit.IsFlush(), idx)
	}
	require.Equal(t, EOSStatusOutputFlushed, env.Component.EOSStatus(ctx))

	env.output(t)
	env.Component.OnQueueFilled(ctx)
	require.Len(t, env.Host.Filled, 3)
	require.Len(t, env.Engine.Units, 5)
}

func TestEOSOnlyStreamDrainsEngine(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &fakeEngine{HasDelayValue: true}, DefaultConfig())

	cfgBuf := env.input(t, []byte{1, 2, 3}, buffer.FlagCodecConfig, types.NoTimestamp)
	env.output(t)
	env.Component.OnQueueFilled(ctx)
	requireReturnedOnce(t, env.Host.Emptied, cfgBuf)
	require.Empty(t, env.Host.Filled)
	require.False(t, env.Component.IsOpened(ctx))

	// an EOS buffer opens the decoder and is decoded; then the engine is drained
	env.input(t, nil, buffer.FlagEOS, 0)
	env.Component.OnQueueFilled(ctx)
	require.Equal(t, 1, env.Host.eosCount())
	require.Len(t, env.Engine.Units, 2)
	require.True(t, env.Engine.Units[1].IsFlush())
}

func TestDrainAllOutputsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &fakeEngine{}, DefaultConfig())
	env.output(t)
	env.output(t)

	c := env.Component
	c.eosStatus = EOSStatusInputEOSSeen
	require.NoError(t, c.drainAllOutputs(ctx))
	require.Equal(t, EOSStatusOutputFlushed, c.eosStatus)
	require.Len(t, env.Host.Filled, 1)

	require.NoError(t, c.drainAllOutputs(ctx))
	require.Len(t, env.Host.Filled, 1)
	require.Equal(t, 1, c.outputQueue.Len(ctx))
	require.Empty(t, env.Host.Errors)
}

func TestDimensionChange(t *testing.T) {
	ctx := context.Background()
	newRes := types.Resolution{Width: 32, Height: 32}
	bigPicture := testPicture(true, 1)
	bigPicture.Width, bigPicture.Height = 32, 32
	env := newTestEnv(t, &fakeEngine{
		ResolutionVal: newRes,
		Steps: []decodeStep{
			produced(bigPicture),
			produced(bigPicture),
		},
	}, DefaultConfig())

	env.input(t, []byte{1}, 0, 1)
	env.input(t, []byte{2}, 0, 2)
	oldOut := env.output(t)

	env.Component.OnQueueFilled(ctx)
	require.Equal(t, []types.Resolution{newRes}, env.Host.Settings)
	require.Empty(t, env.Host.Filled, "nothing is drained before the reconfiguration")
	require.Equal(t, PortSettingsChangeAwaitingDisabled, env.Component.PortSettingsChange(ctx))
	require.Equal(t, newRes, env.Component.OutputResolution(ctx))
	require.Equal(t, newRes.I420BufferSize(), env.Component.OutputBufferSize(ctx))

	env.Component.OnQueueFilled(ctx)
	require.Len(t, env.Engine.Units, 1, "nothing is processed while waiting for the reconfiguration")

	// the host disables the output port, getting its buffers back
	require.NoError(t, env.Component.OnPortFlushCompleted(ctx, types.PortIndexOutput))
	require.Len(t, env.Host.Filled, 1)
	require.Equal(t, oldOut, env.Host.Filled[0].Header)
	require.NoError(t, env.Component.OnPortEnableCompleted(ctx, types.PortIndexOutput, false))
	require.Equal(t, PortSettingsChangeAwaitingEnabled, env.Component.PortSettingsChange(ctx))

	err := env.Component.FillThisBuffer(ctx, oldOut)
	require.ErrorAs(t, err, &ErrBufferTooSmall{})
	env.output(t)

	require.NoError(t, env.Component.OnPortEnableCompleted(ctx, types.PortIndexOutput, true))
	require.Equal(t, PortSettingsChangeNone, env.Component.PortSettingsChange(ctx))
	frames := env.Host.frames()
	require.Len(t, frames, 2)
	require.Equal(t, uint32(32*32*3/2), frames[1].FilledLen)
	require.Len(t, env.Host.Settings, 1)
	require.Equal(t, newRes, env.Scalers.Keys[0].Destination)
}

func TestInputFlushResetsEOS(t *testing.T) {
	ctx := context.Background()
	engine := &fakeEngine{
		Steps: []decodeStep{
			produced(testPicture(true, 1)),
		},
	}
	env := newTestEnv(t, engine, DefaultConfig())
	env.input(t, []byte{1}, buffer.FlagEOS, 1)
	env.output(t)
	env.output(t)
	env.Component.OnQueueFilled(ctx)
	require.Equal(t, EOSStatusOutputFlushed, env.Component.EOSStatus(ctx))
	require.Len(t, env.Host.frames(), 1)
	require.Equal(t, 1, env.Host.eosCount())

	for _, port := range []types.PortIndex{types.PortIndexInput, types.PortIndexOutput} {
		require.NoError(t, env.Component.OnPortFlushCompleted(ctx, port))
	}
	require.Equal(t, EOSStatusInputAvailable, env.Component.EOSStatus(ctx))
	require.Equal(t, 1, engine.FlushCount)
	filledBefore := len(env.Host.Filled)

	engine.Steps = []decodeStep{produced(testPicture(false, 5)), noFrame()}
	env.input(t, []byte{5}, 0, 5)
	env.input(t, []byte{6}, buffer.FlagEOS, 6)
	env.output(t)
	env.output(t)
	env.Component.OnQueueFilled(ctx)
	require.Len(t, env.Host.Filled, filledBefore+2)
	require.Equal(t, types.Timestamp(5), env.Host.Filled[filledBefore].Timestamp)
	require.True(t, env.Host.Filled[filledBefore+1].Flags.Has(buffer.FlagEOS))
	require.Len(t, engine.OpenParams, 1, "a flush does not reopen the engine")
}

func TestTimestampSelection(t *testing.T) {
	pic := &codec.Picture{
		BestEffortTimestamp: 1,
		PktDTS:              2,
		PktPTS:              3,
	}
	assert.Equal(t, types.Timestamp(1), TimestampSourceBestEffort.Select(pic))
	assert.Equal(t, types.Timestamp(2), TimestampSourceDecodeOrder.Select(pic))
	assert.Equal(t, types.Timestamp(3), TimestampSourcePresentationOrder.Select(pic))

	empty := &codec.Picture{
		BestEffortTimestamp: types.NoTimestamp,
		PktDTS:              types.NoTimestamp,
		PktPTS:              types.NoTimestamp,
	}
	for _, src := range []TimestampSource{TimestampSourceBestEffort, TimestampSourceDecodeOrder, TimestampSourcePresentationOrder} {
		assert.Equal(t, types.Timestamp(0), src.Select(empty), src.String())
	}

	ctx := context.Background()
	env := newTestEnv(t, &fakeEngine{Steps: []decodeStep{produced(pic)}}, DefaultConfig())
	pic.Width, pic.Height = int(testResolution.Width), int(testResolution.Height)
	env.Component.SetTimestampSource(ctx, TimestampSourceDecodeOrder)
	env.input(t, []byte{1}, 0, 1)
	env.output(t)
	env.Component.OnQueueFilled(ctx)
	require.Len(t, env.Host.Filled, 1)
	require.Equal(t, types.Timestamp(2), env.Host.Filled[0].Timestamp)
}

func TestScalerCache(t *testing.T) {
	ctx := context.Background()
	yuv444 := testPicture(false, 3)
	yuv444.PixelFormat = types.PixelFormatYUV444P
	env := newTestEnv(t, &fakeEngine{
		Steps: []decodeStep{
			produced(testPicture(true, 1)),
			produced(testPicture(false, 2)),
			produced(yuv444),
		},
	}, DefaultConfig())
	env.Host.Recycle = true
	for i := 0; i < 3; i++ {
		env.input(t, []byte{byte(i)}, 0, types.Timestamp(i))
	}
	out := env.output(t)
	env.Component.OnQueueFilled(ctx)

	require.Len(t, env.Host.frames(), 3)
	require.Equal(t, 3, env.Scalers.Scaled)
	require.Len(t, env.Scalers.Keys, 2)
	require.Equal(t, 1, env.Scalers.Closed)
	require.Equal(t, types.PixelFormatYUV420P, env.Scalers.Keys[0].SourceFormat)
	require.Equal(t, types.PixelFormatYUV444P, env.Scalers.Keys[1].SourceFormat)
	require.Equal(t, types.PixelFormatYUV420P, env.Scalers.Keys[1].DestinationFormat)
	require.Equal(t, byte(0xAB), out.Data[0])

	env.Host.Recycle = false
	require.NoError(t, env.Component.Close(ctx))
	require.Equal(t, 2, env.Scalers.Closed)
}

func TestConversionFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &fakeEngine{
		Steps: []decodeStep{produced(testPicture(true, 1))},
	}, DefaultConfig())
	env.Scalers.NewErr = errors.New("unsupported")

	in := env.input(t, []byte{1}, 0, 1)
	out := env.output(t)
	env.Component.OnQueueFilled(ctx)

	require.Len(t, env.Host.Errors, 1)
	require.ErrorAs(t, env.Host.Errors[0], &ErrConversionFailed{})
	requireReturnedOnce(t, env.Host.Emptied, in)
	require.Len(t, env.Host.Filled, 1)
	require.Equal(t, out, env.Host.Filled[0].Header)
	require.Zero(t, env.Host.Filled[0].FilledLen)
}

func TestOpenFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &fakeEngine{
		OpenErr: codec.ErrCodecNotFound{CodecName: "nonexistent"},
	}, DefaultConfig())
	in := env.input(t, []byte{1}, 0, 1)
	env.input(t, []byte{2}, 0, 2)
	env.output(t)
	env.Component.OnQueueFilled(ctx)
	env.Component.OnQueueFilled(ctx)

	require.Len(t, env.Host.Errors, 1)
	require.ErrorAs(t, env.Host.Errors[0], &codec.ErrCodecNotFound{})
	require.Len(t, env.Engine.OpenParams, 1, "the open is never retried implicitly")
	requireReturnedOnce(t, env.Host.Emptied, in)
	require.Len(t, env.Host.Emptied, 1)
	require.False(t, env.Component.IsOpened(ctx))
}

func TestExtradataHandling(t *testing.T) {
	ctx := context.Background()
	t.Run("concatenated", func(t *testing.T) {
		env := newTestEnv(t, &fakeEngine{}, DefaultConfig())
		env.input(t, []byte{0, 0, 0, 1, 0x67, 0xAA}, buffer.FlagCodecConfig, types.NoTimestamp)
		env.input(t, []byte{0, 0, 0, 1, 0x68, 0xBB}, buffer.FlagCodecConfig, types.NoTimestamp)
		env.input(t, []byte{1}, 0, 1)
		env.input(t, []byte{0, 0, 0, 1, 0x67, 0xCC}, buffer.FlagCodecConfig, types.NoTimestamp)
		env.input(t, []byte{2}, 0, 2)
		env.output(t)
		env.Component.OnQueueFilled(ctx)

		require.Len(t, env.Host.Emptied, 5)
		require.Equal(t, []byte{0, 0, 0, 1, 0x67, 0xAA, 0, 0, 0, 1, 0x68, 0xBB}, env.Engine.OpenParams[0].ExtraData)
		require.Equal(t, 12, env.Component.extraData.Blob.Len(), "the blob is frozen after the open")
		require.Len(t, env.Engine.Units, 2)
	})
	t.Run("ignored", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.IgnoreExtradata = true
		env := newTestEnv(t, &fakeEngine{}, cfg)
		env.input(t, []byte{1, 2, 3}, buffer.FlagCodecConfig, types.NoTimestamp)
		env.input(t, []byte{1}, 0, 1)
		env.output(t)
		env.Component.OnQueueFilled(ctx)

		require.Len(t, env.Host.Emptied, 2)
		require.Empty(t, env.Engine.OpenParams[0].ExtraData)
	})
	t.Run("reset re-arms", func(t *testing.T) {
		env := newTestEnv(t, &fakeEngine{}, DefaultConfig())
		env.input(t, []byte{1}, buffer.FlagCodecConfig, types.NoTimestamp)
		env.input(t, []byte{2}, 0, 1)
		env.output(t)
		env.Component.OnQueueFilled(ctx)
		require.NoError(t, env.Component.Reset(ctx))

		env.input(t, []byte{3}, buffer.FlagCodecConfig, types.NoTimestamp)
		env.input(t, []byte{4}, 0, 1)
		env.output(t)
		env.Component.OnQueueFilled(ctx)
		require.Len(t, env.Engine.OpenParams, 2)
		require.Equal(t, []byte{3}, env.Engine.OpenParams[1].ExtraData)
	})
}

func TestOutputResolutionFollowsCodedSize(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &fakeEngine{
		Steps: []decodeStep{produced(testPicture(true, 1))},
	}, DefaultConfig())
	requested := types.Resolution{Width: 64, Height: 48}
	env.Component.SetOutputResolution(ctx, requested)
	require.Equal(t, requested.I420BufferSize(), env.Component.OutputBufferSize(ctx))

	env.input(t, []byte{1}, 0, 1)
	env.output(t)
	env.Component.OnQueueFilled(ctx)

	require.Equal(t, []types.Resolution{testResolution}, env.Host.Settings)
	require.Equal(t, testResolution, env.Component.OutputResolution(ctx))
	require.Empty(t, env.Scalers.Keys, "pictures are not rescaled to the requested size")
}

func TestExtradataOutOfMemory(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &fakeEngine{}, DefaultConfig())
	env.Component.extraData.Blob.MaxSize = 4

	sps := env.input(t, []byte{1, 2, 3}, buffer.FlagCodecConfig, types.NoTimestamp)
	pps := env.input(t, []byte{4, 5}, buffer.FlagCodecConfig, types.NoTimestamp)
	frame := env.input(t, []byte{6}, 0, 1)
	env.output(t)

	env.Component.OnQueueFilled(ctx)
	env.Component.OnQueueFilled(ctx)

	require.Len(t, env.Host.Errors, 1)
	var errExtradata ErrExtradata
	require.ErrorAs(t, env.Host.Errors[0], &errExtradata)
	require.ErrorIs(t, env.Host.Errors[0], extradata.ErrOutOfMemory)
	require.Equal(t, env.Host.Errors[0], env.Component.SignalledError(ctx))

	requireReturnedOnce(t, env.Host.Emptied, sps, pps)
	require.NotContains(t, env.Host.Emptied, frame)
	require.Empty(t, env.Engine.OpenParams)
	require.Empty(t, env.Engine.Units)
	require.Empty(t, env.Host.Filled)
}

func TestParameterAfterOpen(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.CodecName = "h264"
	env := newTestEnv(t, &fakeEngine{}, cfg)

	require.NoError(t, env.Component.SetCodecName(ctx, "hevc"))
	require.NoError(t, env.Component.SetInputResolution(ctx, types.Resolution{Width: 64, Height: 48}))

	env.input(t, []byte{1}, 0, 1)
	env.output(t)
	env.Component.OnQueueFilled(ctx)
	require.True(t, env.Component.IsOpened(ctx))
	require.Equal(t, codec.Name("hevc"), env.Engine.OpenParams[0].CodecName)
	require.Equal(t, types.Resolution{Width: 64, Height: 48}, env.Engine.OpenParams[0].Resolution)
	require.Equal(t, codec.DefaultTuning(), env.Engine.OpenParams[0].Tuning)

	require.ErrorIs(t, env.Component.SetCodecName(ctx, "vp9"), ErrParameterAfterOpen)
	require.Equal(t, codec.Name("hevc"), env.Component.CodecName(ctx))

	newRes := types.Resolution{Width: 64, Height: 64}
	env.Component.SetOutputResolution(ctx, newRes)
	require.Equal(t, newRes, env.Component.OutputResolution(ctx))
	require.Equal(t, newRes.I420BufferSize(), env.Component.OutputBufferSize(ctx))

	require.NoError(t, env.Component.Reset(ctx))
	require.NoError(t, env.Component.SetCodecName(ctx, "vp9"))
}

func TestFillThisBufferTooSmall(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &fakeEngine{}, DefaultConfig())
	err := env.Component.FillThisBuffer(ctx, &buffer.Header{Data: make([]byte, 10)})
	require.ErrorAs(t, err, &ErrBufferTooSmall{})
	require.Error(t, env.Component.OnPortFlushCompleted(ctx, types.PortIndex(7)))
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(`
codec_name: h264
output_resolution: 640x480
timestamp_source: presentation_order
ignore_extradata: true
tuning:
  thread_count: 2
`))
	require.NoError(t, err)
	require.Equal(t, codec.Name("h264"), cfg.CodecName)
	require.Equal(t, types.Resolution{Width: 640, Height: 480}, cfg.OutputResolution)
	require.Equal(t, TimestampSourcePresentationOrder, cfg.TimestampSource)
	require.True(t, cfg.IgnoreExtradata)
	require.Equal(t, 2, cfg.Tuning.ThreadCount)
	require.Equal(t, codec.DiscardAll, cfg.Tuning.SkipLoopFilter, "defaults are kept")

	cfg, err = LoadConfig(strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)

	_, err = LoadConfig(strings.NewReader("timestamp_source: whatever\n"))
	require.Error(t, err)
}
