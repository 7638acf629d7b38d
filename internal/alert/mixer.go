package alert

import (
	"math"
	"sync"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
	"github.com/m-mizutani/goerr/v2"
)

// PulseMixer exposes the PulseAudio default sink as steps discrete levels.
type PulseMixer struct {
	client *pulse.Client
	sink   string
	steps  int

	mu       sync.Mutex
	channels int
}

var _ Mixer = (*PulseMixer)(nil)

func NewPulseMixer(appName string, steps int) (*PulseMixer, error) {
	if steps <= 0 {
		return nil, goerr.New("volume steps must be positive", goerr.V("steps", steps))
	}
	c, err := pulse.NewClient(pulse.ClientApplicationName(appName))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to connect to pulseaudio")
	}
	sink, err := c.DefaultSink()
	if err != nil {
		c.Close()
		return nil, goerr.Wrap(err, "failed to find default sink")
	}
	m := &PulseMixer{client: c, sink: sink.ID(), steps: steps}
	// Learn the channel count.
	if _, err := m.Volume(); err != nil {
		c.Close()
		return nil, err
	}
	return m, nil
}

func (m *PulseMixer) MaxVolume() int {
	return m.steps
}

func (m *PulseMixer) Volume() (int, error) {
	var reply proto.GetSinkInfoReply
	if err := m.client.RawRequest(&proto.GetSinkInfo{SinkIndex: proto.Undefined, SinkName: m.sink}, &reply); err != nil {
		return 0, goerr.Wrap(err, "failed to read sink volume", goerr.V("sink", m.sink))
	}
	if len(reply.ChannelVolumes) == 0 {
		return 0, nil
	}

	m.mu.Lock()
	m.channels = len(reply.ChannelVolumes)
	m.mu.Unlock()

	var sum float64
	for _, v := range reply.ChannelVolumes {
		sum += float64(v)
	}
	avg := sum / float64(len(reply.ChannelVolumes))
	return int(math.Round(avg * float64(m.steps) / float64(proto.VolumeNorm))), nil
}

func (m *PulseMixer) SetVolume(level int) error {
	level = min(max(level, 0), m.steps)
	vol := uint32(uint64(level) * uint64(proto.VolumeNorm) / uint64(m.steps))

	m.mu.Lock()
	n := max(m.channels, 1)
	m.mu.Unlock()

	volumes := make(proto.ChannelVolumes, n)
	for i := range volumes {
		volumes[i] = vol
	}
	if err := m.client.RawRequest(&proto.SetSinkVolume{
		SinkIndex:      proto.Undefined,
		SinkName:       m.sink,
		ChannelVolumes: volumes,
	}, nil); err != nil {
		return goerr.Wrap(err, "failed to set sink volume", goerr.V("sink", m.sink), goerr.V("level", level))
	}
	return nil
}

func (m *PulseMixer) Close() {
	m.client.Close()
}
