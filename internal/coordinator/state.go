package coordinator

import (
	"time"

	"github.com/nerrad567/smartlock-core/internal/message"
)

// Mode is the derived name of a lock state.
type Mode string

const (
	ModeLocked                Mode = "LOCKED"
	ModeUnlocked              Mode = "UNLOCKED"
	ModeUnlockedPendingRelock Mode = "UNLOCKED_PENDING_RELOCK"
	ModeEmergency             Mode = "EMERGENCY"
)

// State is a point-in-time copy of the coordinator state.
type State struct {
	Locked        bool
	Emergency     bool
	RelockPending bool
	LastCommand   message.Command
	UpdatedAt     time.Time
}

// Mode returns the derived state name.
func (s State) Mode() Mode {
	switch {
	case s.Emergency:
		return ModeEmergency
	case s.Locked:
		return ModeLocked
	case s.RelockPending:
		return ModeUnlockedPendingRelock
	default:
		return ModeUnlocked
	}
}

// Message converts s to its bus representation.
func (s State) Message() message.State {
	return message.State{
		Locked:        s.Locked,
		Emergency:     s.Emergency,
		RelockPending: s.RelockPending,
		LastCommand:   s.LastCommand,
		Timestamp:     s.UpdatedAt.Format(message.ISOLayout),
	}
}
