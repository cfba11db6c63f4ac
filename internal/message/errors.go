package message

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedMessage is returned for undecodable payloads or missing keys.
	ErrMalformedMessage = errors.New("message: malformed payload")

	// ErrUnknownCommand is returned for a control command outside the known set.
	// It wraps ErrMalformedMessage.
	ErrUnknownCommand = fmt.Errorf("%w: unknown command", ErrMalformedMessage)

	// ErrIgnored marks a well-formed payload that is not meant for the receiver.
	ErrIgnored = errors.New("message: ignored")
)
