package alert

import (
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/m-mizutani/goerr/v2"
	"go.uber.org/zap"
)

// oto allows a single context per process.
var (
	globalAudioCtx     *oto.Context
	globalAudioCtxErr  error
	globalAudioCtxOnce sync.Once
)

func initAudioContext(format wavFormat) (*oto.Context, error) {
	globalAudioCtxOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   format.SampleRate,
			ChannelCount: format.Channels,
			Format:       oto.FormatSignedInt16LE,
		}

		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			globalAudioCtxErr = goerr.Wrap(err, "failed to initialize audio context",
				goerr.V("sample_rate", format.SampleRate), goerr.V("channels", format.Channels))
			return
		}
		// Wait for the hardware audio devices to be ready
		<-ready
		globalAudioCtx = ctx
	})
	return globalAudioCtx, globalAudioCtxErr
}

// OtoPlayer loops PCM audio through oto.
type OtoPlayer struct {
	format wavFormat
	pcm    []byte
	log    *zap.Logger

	mu     sync.Mutex
	player *oto.Player
}

var _ Player = (*OtoPlayer)(nil)

// NewOtoPlayer loops the given WAV file, or the built-in alarm tone when wav
// is empty. The audio device is opened on the first Play.
func NewOtoPlayer(wav []byte, log *zap.Logger) (*OtoPlayer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	p := &OtoPlayer{log: log.Named("player")}

	if len(wav) == 0 {
		p.format, p.pcm = alarmTone()
		return p, nil
	}

	format, pcm, err := parseWAV(wav)
	if err != nil {
		return nil, err
	}
	p.format, p.pcm = *format, pcm
	return p, nil
}

func (p *OtoPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, err := initAudioContext(p.format)
	if err != nil {
		return err
	}
	if p.player == nil {
		p.player = ctx.NewPlayer(&loopReader{data: p.pcm})
	}
	p.player.Play()
	if err := p.player.Err(); err != nil {
		return goerr.Wrap(err, "audio player failed")
	}
	return nil
}

func (p *OtoPlayer) Rewind() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.player == nil {
		return
	}
	p.player.Pause()
	if err := p.player.Close(); err != nil {
		p.log.Warn("failed to close audio player", zap.Error(err))
	}
	p.player = nil
}

// loopReader yields data endlessly.
type loopReader struct {
	data []byte
	pos  int
}

func (r *loopReader) Read(b []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, goerr.New("empty audio data")
	}
	n := 0
	for n < len(b) {
		c := copy(b[n:], r.data[r.pos:])
		n += c
		r.pos = (r.pos + c) % len(r.data)
	}
	return n, nil
}
