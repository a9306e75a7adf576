//go:build !linux

package audio

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

type malgoContext struct {
	ctx *malgo.AllocatedContext
}

func NewContext() (Context, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, err
	}
	return &malgoContext{ctx: ctx}, nil
}

func (m *malgoContext) Devices() ([]DeviceInfo, error) {
	devices, err := m.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("malgo devices: %w", err)
	}
	var result []DeviceInfo
	for _, d := range devices {
		result = append(result, DeviceInfo{
			ID:   hex.EncodeToString(d.ID.Pointer()[:]),
			Name: d.Name(),
		})
	}
	return result, nil
}

func (m *malgoContext) NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = config.Channels
	deviceConfig.SampleRate = config.SampleRate

	name := "system default"
	if device != nil {
		idBytes, err := hex.DecodeString(device.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid device ID: %w", err)
		}
		var devID malgo.DeviceID
		copy(devID[:], idBytes)
		deviceConfig.Capture.DeviceID = devID.Pointer()
		name = device.Name
	}

	c := &malgoCapture{name: name}
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, data []byte, frameCount uint32) {
			if cb := c.callback.Load(); cb != nil {
				(*cb)(data, frameCount)
			}
		},
		Stop: func() {
			if c.stopping.Load() {
				return
			}
			if cb := c.onStop.Load(); cb != nil {
				(*cb)()
			}
		},
	}

	dev, err := malgo.InitDevice(m.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, err
	}
	c.device = dev
	return c, nil
}

func (m *malgoContext) NewPlayback(config PlaybackConfig, samples []int16) (PlaybackDevice, error) {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = config.Channels
	deviceConfig.SampleRate = config.SampleRate

	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	p := &malgoPlayback{samples: buf}

	callbacks := malgo.DeviceCallbacks{
		Data: p.fill,
		Stop: func() {
			if p.stopping.Load() || p.finished.Load() {
				return
			}
			go p.complete(ErrDeviceStopped)
		},
	}
	dev, err := malgo.InitDevice(m.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("malgo playback: %w", err)
	}
	p.device = dev
	return p, nil
}

func (m *malgoContext) Close() {
	m.ctx.Uninit()
	m.ctx.Free()
}

type malgoCapture struct {
	device   *malgo.Device
	name     string
	callback atomic.Pointer[DataCallback]
	onStop   atomic.Pointer[StopCallback]
	stopping atomic.Bool
}

func (c *malgoCapture) Start() error {
	c.stopping.Store(false)
	return c.device.Start()
}

func (c *malgoCapture) Stop() {
	c.stopping.Store(true)
	c.device.Stop()
}

func (c *malgoCapture) Close() {
	c.stopping.Store(true)
	c.device.Uninit()
}

func (c *malgoCapture) SetCallback(cb DataCallback) {
	c.callback.Store(&cb)
}

func (c *malgoCapture) ClearCallback() {
	c.callback.Store(nil)
}

func (c *malgoCapture) SetStopCallback(cb StopCallback) {
	c.onStop.Store(&cb)
}

func (c *malgoCapture) DeviceName() string { return c.name }

type malgoPlayback struct {
	device  *malgo.Device
	samples []byte
	pos     atomic.Uint32

	completion atomic.Pointer[CompletionCallback]
	stopping   atomic.Bool
	finished   atomic.Bool

	closeOnce sync.Once
}

func (p *malgoPlayback) fill(pOutput, _ []byte, frameCount uint32) {
	pos := p.pos.Load()
	total := uint32(len(p.samples))
	if pos >= total || p.stopping.Load() {
		clear(pOutput)
		if pos >= total && p.finished.CompareAndSwap(false, true) {
			// the device must not be stopped from inside its own callback
			go p.complete(nil)
		}
		return
	}

	n := min(uint32(len(pOutput)), total-pos)
	copy(pOutput[:n], p.samples[pos:pos+n])
	clear(pOutput[n:])
	p.pos.Store(pos + n)
}

func (p *malgoPlayback) complete(err error) {
	if p.stopping.Load() {
		return
	}
	if cb := p.completion.Load(); cb != nil {
		(*cb)(err)
	}
}

func (p *malgoPlayback) Start() error {
	return p.device.Start()
}

func (p *malgoPlayback) Stop() {
	p.stopping.Store(true)
	p.device.Stop()
}

func (p *malgoPlayback) Close() {
	p.stopping.Store(true)
	p.closeOnce.Do(func() {
		p.device.Uninit()
	})
}

func (p *malgoPlayback) SetCompletion(cb CompletionCallback) {
	p.completion.Store(&cb)
}
