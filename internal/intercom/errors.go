package intercom

import "errors"

var (
	// ErrAlreadyStreaming is returned by Start while a session is active.
	ErrAlreadyStreaming = errors.New("intercom already streaming")

	// ErrInvalidRole is returned for a role other than admin or door.
	ErrInvalidRole = errors.New("invalid intercom role")

	// ErrInvalidPeer is returned when the peer address cannot be resolved.
	ErrInvalidPeer = errors.New("invalid intercom peer")

	// ErrAudioClosed is returned by a closed audio device.
	ErrAudioClosed = errors.New("audio device closed")
)
