//go:build linux

package audio

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

type pulseContext struct {
	client *pulse.Client
}

func NewContext() (Context, error) {
	c, err := pulse.NewClient()
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	return &pulseContext{client: c}, nil
}

func (p *pulseContext) Devices() ([]DeviceInfo, error) {
	sources, err := p.client.ListSources()
	if err != nil {
		return nil, fmt.Errorf("pulse list sources: %w", err)
	}
	var devices []DeviceInfo
	for _, s := range sources {
		devices = append(devices, DeviceInfo{
			ID:   s.ID(),
			Name: s.Name(),
		})
	}
	return devices, nil
}

func (p *pulseContext) NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	return &pulseCapture{
		client: p.client,
		device: device,
		config: config,
	}, nil
}

func (p *pulseContext) NewPlayback(config PlaybackConfig, samples []int16) (PlaybackDevice, error) {
	switch config.Channels {
	case 1:
		// the sink is stereo; duplicating here avoids a server-side remap
		samples = toStereo(samples)
	case 2:
	default:
		return nil, fmt.Errorf("pulse playback: %d channels not supported", config.Channels)
	}
	return &pulsePlayback{
		client:  p.client,
		config:  config,
		samples: samples,
	}, nil
}

func (p *pulseContext) Close() {
	p.client.Close()
}

type pulseCapture struct {
	client   *pulse.Client
	device   *DeviceInfo
	config   CaptureConfig
	callback atomic.Pointer[DataCallback]
	onStop   atomic.Pointer[StopCallback]

	stream *pulse.RecordStream
	mu     sync.Mutex
	stop   chan struct{}
	done   chan struct{}
}

func (c *pulseCapture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	writer := pulse.Int16Writer(func(buf []int16) (int, error) {
		if len(buf) == 0 {
			return 0, nil
		}
		cb := c.callback.Load()
		if cb == nil {
			return len(buf), nil
		}
		data := make([]byte, len(buf)*2)
		for i, s := range buf {
			binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
		}
		(*cb)(data, uint32(len(buf)))
		return len(buf), nil
	})

	opts := []pulse.RecordOption{
		pulse.RecordMono,
		pulse.RecordSampleRate(int(c.config.SampleRate)),
		pulse.RecordLatency(0.05),
		pulse.RecordRawOption(func(r *proto.CreateRecordStream) {
			r.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm)}
		}),
	}
	if c.device != nil {
		source, err := c.client.SourceByID(c.device.ID)
		if err == nil && source != nil {
			opts = append(opts, pulse.RecordSource(source))
		}
	}

	stream, err := c.client.NewRecord(writer, opts...)
	if err != nil {
		return fmt.Errorf("pulse record: %w", err)
	}

	c.stream = stream
	c.stop = make(chan struct{})
	c.done = make(chan struct{})

	stop, done := c.stop, c.done
	go func() {
		stream.Start()
		failure := watchStream(stream, stop, healthInterval)
		stream.Stop()
		stream.Close()
		// the stop callback may Close this device
		close(done)
		if failure == nil {
			return
		}
		if cb := c.onStop.Load(); cb != nil {
			(*cb)()
		}
	}()

	return nil
}

func (c *pulseCapture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		select {
		case <-c.stop:
		default:
			close(c.stop)
		}
		<-c.done
	}
}

func (c *pulseCapture) Close() {
	c.Stop()
}

func (c *pulseCapture) SetCallback(cb DataCallback) {
	c.callback.Store(&cb)
}

func (c *pulseCapture) ClearCallback() {
	c.callback.Store(nil)
}

// SetStopCallback registers cb for a record stream the server closes or
// fails underneath us.
func (c *pulseCapture) SetStopCallback(cb StopCallback) {
	c.onStop.Store(&cb)
}

func (c *pulseCapture) DeviceName() string {
	if c.device != nil {
		return c.device.Name
	}
	return "system default"
}

type pulsePlayback struct {
	client  *pulse.Client
	config  PlaybackConfig
	samples []int16
	pos     int

	stopped    atomic.Bool
	completion atomic.Pointer[CompletionCallback]

	mu      sync.Mutex
	started bool
}

func (p *pulsePlayback) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}

	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if p.stopped.Load() || p.pos >= len(p.samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, p.samples[p.pos:])
		p.pos += n
		return n, nil
	})
	stream, err := p.client.NewPlayback(reader,
		pulse.PlaybackStereo,
		pulse.PlaybackSampleRate(int(p.config.SampleRate)),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(cp *proto.CreatePlaybackStream) {
			cp.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm), uint32(proto.VolumeNorm)}
		}),
	)
	if err != nil {
		return fmt.Errorf("pulse playback: %w", err)
	}

	p.started = true
	go func() {
		stream.Start()
		stream.Drain()
		// checked before our own Close, which also marks the stream closed
		failure := streamFailure(stream)
		stream.Stop()
		stream.Close()
		if p.stopped.Load() {
			return
		}
		if cb := p.completion.Load(); cb != nil {
			(*cb)(failure)
		}
	}()
	return nil
}

// Stop cuts the reader off; the stream drains what the server already holds
// and shuts down in the background.
func (p *pulsePlayback) Stop() {
	p.stopped.Store(true)
}

// Close does not wait for the drain: the stream goroutine releases itself
// and, once stopped, never calls the completion handler.
func (p *pulsePlayback) Close() {
	p.Stop()
}

func (p *pulsePlayback) SetCompletion(cb CompletionCallback) {
	p.completion.Store(&cb)
}
