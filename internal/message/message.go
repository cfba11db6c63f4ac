package message

import (
	"encoding/json"
	"time"
)

// Timestamp layouts used on the bus.
const (
	// ClockLayout is used for coordinator notices and log lines.
	ClockLayout = "2006-01-02 15:04:05"

	// ISOLayout is used for device-originated messages.
	ISOLayout = time.RFC3339
)

// UnknownUser is the identity reported for unrecognised faces.
const UnknownUser = "Unknown"

// Command is a lock control command.
type Command string

const (
	CommandUnlock     Command = "unlock"
	CommandLockdown   Command = "lockdown"
	CommandAutoRelock Command = "auto_relock"
)

// Valid reports whether c is one of the known commands.
func (c Command) Valid() bool {
	switch c {
	case CommandUnlock, CommandLockdown, CommandAutoRelock:
		return true
	}
	return false
}

// Source identifies who issued a control command.
type Source string

const (
	SourceAdmin  Source = "admin"
	SourceSystem Source = "system"
)

// Status is the outcome carried by an Event.
type Status string

const (
	StatusGranted Status = "granted"
	StatusDenied  Status = "denied"
)

// AdminDecision is the action carried by an AdminAction.
type AdminDecision string

const (
	DecisionAllowed AdminDecision = "allowed"
	DecisionDenied  AdminDecision = "denied"
)

// VoiceAction is the action carried by a VoiceCommand.
type VoiceAction string

const (
	VoiceStart VoiceAction = "start_voice_comm"
	VoiceStop  VoiceAction = "stop_voice_comm"
)

// Access is a recognition result. Topic: smartlock/access.
//
// Duplicates for one physical visit are normal; the camera publishes on
// every classified frame.
type Access struct {
	Type       string `json:"type"` // always "access"
	Authorized bool   `json:"authorized"`
	User       string `json:"user"`
	Timestamp  string `json:"timestamp"`
}

// Control is a lock command. Topic: smartlock/control.
type Control struct {
	Command   Command `json:"command"`
	Source    Source  `json:"source"`
	Timestamp string  `json:"timestamp"`
}

// AdminAction acknowledges an admin override. Topic: smartlock/admin_action.
type AdminAction struct {
	Action    AdminDecision `json:"action"`
	Message   string        `json:"message"`
	Timestamp string        `json:"timestamp"`
}

// Event is a granted/denied notice for displays. Topic: smartlock/events.
type Event struct {
	Name      string `json:"name"`
	Status    Status `json:"status"`
	Timestamp string `json:"timestamp"`
}

// SystemLog is a free-form log entry from any device. Topic: smartlock/system.
type SystemLog struct {
	Type    string `json:"type"` // always "log"
	Message string `json:"message"`
}

// DeviceInfo is the door node's one-shot announcement. Topic: smartlock/device_info.
type DeviceInfo struct {
	Type      string `json:"type"` // always "door"
	IP        string `json:"ip"`
	Timestamp string `json:"timestamp"`
}

// VoiceCommand starts or stops the intercom. Topic: smartlock/voice_comm.
//
// IP is the door address (used by the admin end); AdminIP is the admin
// address (used by the door end).
type VoiceCommand struct {
	Action  VoiceAction `json:"action"`
	IP      string      `json:"ip,omitempty"`
	AdminIP string      `json:"admin_ip,omitempty"`
}

// State is the coordinator's retained snapshot. Topic: smartlock/state.
type State struct {
	Locked        bool    `json:"locked"`
	Emergency     bool    `json:"emergency"`
	RelockPending bool    `json:"relock_pending"`
	LastCommand   Command `json:"last_command,omitempty"`
	Timestamp     string  `json:"timestamp"`
}

// Fixed admin notice texts shown on the door display.
const (
	AllowedByAdmin = "Allowed by admin."
	DeniedByAdmin  = "Denied by admin. Contacting emergency services."
)

// Event names used for admin overrides.
const (
	NameAdminOverride = "Unknown (Admin Override)"
	NameAdminDenied   = "Unknown (Admin Denied)"
)

// NewAccess builds an access event for the given classification.
func NewAccess(user string, authorized bool, at time.Time) Access {
	if !authorized {
		user = UnknownUser
	}
	return Access{
		Type:       "access",
		Authorized: authorized,
		User:       user,
		Timestamp:  at.Format(ISOLayout),
	}
}

// NewControl builds a control command.
func NewControl(cmd Command, src Source, at time.Time) Control {
	return Control{Command: cmd, Source: src, Timestamp: at.Format(ISOLayout)}
}

// NewEvent builds an events notice.
func NewEvent(name string, status Status, at time.Time) Event {
	return Event{Name: name, Status: status, Timestamp: at.Format(ClockLayout)}
}

// NewAdminAction builds the admin_action notice for decision.
func NewAdminAction(decision AdminDecision, at time.Time) AdminAction {
	text := AllowedByAdmin
	if decision == DecisionDenied {
		text = DeniedByAdmin
	}
	return AdminAction{Action: decision, Message: text, Timestamp: at.Format(ClockLayout)}
}

// NewDeviceInfo builds the door announcement.
func NewDeviceInfo(ip string, at time.Time) DeviceInfo {
	return DeviceInfo{Type: "door", IP: ip, Timestamp: at.Format(ISOLayout)}
}

// NewSystemLog builds a system log entry.
func NewSystemLog(text string) SystemLog {
	return SystemLog{Type: "log", Message: text}
}

// Encode marshals v. The payload types here contain only strings and
// bools, so the error is only non-nil for caller-supplied values.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}
