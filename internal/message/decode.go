package message

import (
	"encoding/json"
	"fmt"
)

// Wire shapes with pointer fields, so a missing key can be told apart from
// a zero value.
type (
	accessWire struct {
		Type       *string `json:"type"`
		Authorized *bool   `json:"authorized"`
		User       *string `json:"user"`
		Timestamp  string  `json:"timestamp"`
	}
	controlWire struct {
		Command   *Command `json:"command"`
		Source    Source   `json:"source"`
		Timestamp string   `json:"timestamp"`
	}
	systemWire struct {
		Type    *string `json:"type"`
		Message *string `json:"message"`
	}
	deviceInfoWire struct {
		Type      *string `json:"type"`
		IP        *string `json:"ip"`
		Timestamp string  `json:"timestamp"`
	}
	voiceWire struct {
		Action  *VoiceAction `json:"action"`
		IP      string       `json:"ip"`
		AdminIP string       `json:"admin_ip"`
	}
)

func unmarshal(payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	return nil
}

func missing(key string) error {
	return fmt.Errorf("%w: missing %q", ErrMalformedMessage, key)
}

// DecodeAccess decodes an access event.
//
// A payload whose type is not "access" is ErrIgnored. An unauthorized
// event without a user is reported as UnknownUser.
func DecodeAccess(payload []byte) (Access, error) {
	var w accessWire
	if err := unmarshal(payload, &w); err != nil {
		return Access{}, err
	}
	if w.Type == nil {
		return Access{}, missing("type")
	}
	if *w.Type != "access" {
		return Access{}, ErrIgnored
	}
	if w.Authorized == nil {
		return Access{}, missing("authorized")
	}

	a := Access{Type: *w.Type, Authorized: *w.Authorized, Timestamp: w.Timestamp}
	switch {
	case w.User != nil && *w.User != "":
		a.User = *w.User
	case a.Authorized:
		return Access{}, missing("user")
	default:
		a.User = UnknownUser
	}
	return a, nil
}

// DecodeControl decodes a control command. Unknown commands yield
// ErrUnknownCommand.
func DecodeControl(payload []byte) (Control, error) {
	var w controlWire
	if err := unmarshal(payload, &w); err != nil {
		return Control{}, err
	}
	if w.Command == nil {
		return Control{}, missing("command")
	}
	if !w.Command.Valid() {
		return Control{}, fmt.Errorf("%w: %q", ErrUnknownCommand, *w.Command)
	}
	return Control{Command: *w.Command, Source: w.Source, Timestamp: w.Timestamp}, nil
}

// DecodeSystemLog decodes a system log entry. Entries whose type is not
// "log" are ErrIgnored.
func DecodeSystemLog(payload []byte) (SystemLog, error) {
	var w systemWire
	if err := unmarshal(payload, &w); err != nil {
		return SystemLog{}, err
	}
	if w.Type == nil || *w.Type != "log" {
		return SystemLog{}, ErrIgnored
	}
	if w.Message == nil {
		return SystemLog{}, missing("message")
	}
	return SystemLog{Type: "log", Message: *w.Message}, nil
}

// DecodeDeviceInfo decodes a device announcement. Only "door" announcements
// are accepted; other device types are ErrIgnored.
func DecodeDeviceInfo(payload []byte) (DeviceInfo, error) {
	var w deviceInfoWire
	if err := unmarshal(payload, &w); err != nil {
		return DeviceInfo{}, err
	}
	if w.Type == nil {
		return DeviceInfo{}, missing("type")
	}
	if *w.Type != "door" {
		return DeviceInfo{}, ErrIgnored
	}
	if w.IP == nil || *w.IP == "" {
		return DeviceInfo{}, missing("ip")
	}
	return DeviceInfo{Type: "door", IP: *w.IP, Timestamp: w.Timestamp}, nil
}

// DecodeVoiceCommand decodes an intercom command. Actions other than
// start/stop are ErrIgnored.
func DecodeVoiceCommand(payload []byte) (VoiceCommand, error) {
	var w voiceWire
	if err := unmarshal(payload, &w); err != nil {
		return VoiceCommand{}, err
	}
	if w.Action == nil {
		return VoiceCommand{}, missing("action")
	}
	switch *w.Action {
	case VoiceStart, VoiceStop:
	default:
		return VoiceCommand{}, ErrIgnored
	}
	return VoiceCommand{Action: *w.Action, IP: w.IP, AdminIP: w.AdminIP}, nil
}

// DecodeEvent decodes an events notice. Used by consumers such as the
// admin console.
func DecodeEvent(payload []byte) (Event, error) {
	var e Event
	if err := unmarshal(payload, &e); err != nil {
		return Event{}, err
	}
	if e.Name == "" {
		return Event{}, missing("name")
	}
	return e, nil
}

// DecodeAdminAction decodes an admin override notice.
func DecodeAdminAction(payload []byte) (AdminAction, error) {
	var a AdminAction
	if err := unmarshal(payload, &a); err != nil {
		return AdminAction{}, err
	}
	switch a.Action {
	case DecisionAllowed, DecisionDenied:
	case "":
		return AdminAction{}, missing("action")
	default:
		return AdminAction{}, fmt.Errorf("%w: unknown action %q", ErrMalformedMessage, a.Action)
	}
	return a, nil
}
