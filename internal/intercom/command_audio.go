package intercom

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/nerrad567/smartlock-core/internal/infrastructure/config"
	"github.com/nerrad567/smartlock-core/internal/process"
)

// CommandDevice streams audio through two helper programs: capture writes
// PCM to its stdout and playback reads PCM from its stdin.
type CommandDevice struct {
	capture  *process.Pipe
	playback *process.Pipe

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
}

// OpenCommand starts the capture and playback programs. Each command is the
// binary followed by its arguments.
func OpenCommand(capture, playback []string, logger Logger) (*CommandDevice, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	if len(capture) == 0 || len(playback) == 0 {
		return nil, fmt.Errorf("capture and playback commands are required")
	}

	rec, err := process.Start(process.Config{
		Name:   "audio-capture",
		Binary: capture[0],
		Args:   capture[1:],
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("starting capture: %w", err)
	}
	play, err := process.Start(process.Config{
		Name:   "audio-playback",
		Binary: playback[0],
		Args:   playback[1:],
	}, logger)
	if err != nil {
		rec.Stop() //nolint:errcheck // Already failing
		return nil, fmt.Errorf("starting playback: %w", err)
	}
	return &CommandDevice{capture: rec, playback: play, closed: make(chan struct{})}, nil
}

// NewOpener returns the AudioOpener selected by cfg.Audio.
func NewOpener(cfg config.IntercomConfig, logger Logger) AudioOpener {
	if cfg.Audio != config.AudioCommand {
		return OpenSilent
	}
	return func() (AudioDevice, error) {
		return OpenCommand(cfg.CaptureCommand, cfg.PlaybackCommand, logger)
	}
}

// ReadFrame fills buf from the capture program.
func (d *CommandDevice) ReadFrame(buf []byte) (int, error) {
	n, err := io.ReadFull(d.capture, buf)
	if err != nil {
		if d.isClosed() {
			return n, ErrAudioClosed
		}
		return n, fmt.Errorf("capture: %w", err)
	}
	return n, nil
}

// WriteFrame sends frame to the playback program.
func (d *CommandDevice) WriteFrame(frame []byte) error {
	if d.isClosed() {
		return ErrAudioClosed
	}
	if _, err := d.playback.Write(frame); err != nil {
		if d.isClosed() {
			return ErrAudioClosed
		}
		return fmt.Errorf("playback: %w", err)
	}
	return nil
}

// Close stops both programs.
func (d *CommandDevice) Close() error {
	d.closeOnce.Do(func() {
		close(d.closed)
		d.closeErr = errors.Join(d.capture.Stop(), d.playback.Stop())
	})
	return d.closeErr
}

func (d *CommandDevice) isClosed() bool {
	select {
	case <-d.closed:
		return true
	default:
		return false
	}
}
