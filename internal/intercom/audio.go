package intercom

import (
	"sync"
	"time"
)

// Audio format: 16 kHz, mono, 16-bit little-endian PCM.
const (
	SampleRate     = 16000
	BytesPerSample = 2
)

// AudioDevice is a full-duplex audio endpoint.
type AudioDevice interface {
	// ReadFrame fills buf with captured audio and returns the byte count.
	ReadFrame(buf []byte) (int, error)

	// WriteFrame plays frame.
	WriteFrame(frame []byte) error

	// Close releases the device. Blocked reads return ErrAudioClosed.
	Close() error
}

// AudioOpener opens the audio device for one session.
type AudioOpener func() (AudioDevice, error)

// frameDuration is the playback time of size bytes.
func frameDuration(size int) time.Duration {
	samples := size / BytesPerSample
	return time.Duration(samples) * time.Second / SampleRate
}

// SilentDevice captures silence at the real-time rate and discards
// playback. It stands in for a sound card on hosts without one.
type SilentDevice struct {
	closeOnce sync.Once
	closed    chan struct{}

	mu     sync.Mutex
	played int
}

// NewSilentDevice creates a SilentDevice.
func NewSilentDevice() *SilentDevice {
	return &SilentDevice{closed: make(chan struct{})}
}

// OpenSilent is an AudioOpener for SilentDevice.
func OpenSilent() (AudioDevice, error) {
	return NewSilentDevice(), nil
}

// ReadFrame waits one frame period and returns zeros.
func (d *SilentDevice) ReadFrame(buf []byte) (int, error) {
	t := time.NewTimer(frameDuration(len(buf)))
	defer t.Stop()
	select {
	case <-d.closed:
		return 0, ErrAudioClosed
	case <-t.C:
	}
	clear(buf)
	return len(buf), nil
}

// WriteFrame discards frame.
func (d *SilentDevice) WriteFrame(frame []byte) error {
	select {
	case <-d.closed:
		return ErrAudioClosed
	default:
	}
	d.mu.Lock()
	d.played += len(frame)
	d.mu.Unlock()
	return nil
}

// Played returns the number of bytes written so far.
func (d *SilentDevice) Played() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.played
}

// Close implements AudioDevice.
func (d *SilentDevice) Close() error {
	d.closeOnce.Do(func() { close(d.closed) })
	return nil
}
