package mqtt

// TopicPrefix is the root of every Smart Lock topic.
//
// All devices attached to one access point share a single flat namespace:
// smartlock/{channel}. There is no per-device addressing; the bus is the
// integration point and every subscriber sees every message on a channel.
const TopicPrefix = "smartlock"

// Topics provides builders for Smart Lock MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	client.Subscribe(topics.Access(), mqtt.QoSExactlyOnce, handler)
type Topics struct{}

// Access carries recognition results from the camera node.
//
// Example: smartlock/access
func (Topics) Access() string {
	return TopicPrefix + "/access"
}

// Control carries lock commands (unlock, lockdown, auto_relock).
//
// Example: smartlock/control
func (Topics) Control() string {
	return TopicPrefix + "/control"
}

// Events carries granted/denied notices for displays and consoles.
func (Topics) Events() string {
	return TopicPrefix + "/events"
}

// AdminAction carries acknowledgements of admin overrides.
func (Topics) AdminAction() string {
	return TopicPrefix + "/admin_action"
}

// System carries free-form log entries from any device.
func (Topics) System() string {
	return TopicPrefix + "/system"
}

// Camera carries base64-encoded JPEG frames. Best effort only.
func (Topics) Camera() string {
	return TopicPrefix + "/camera"
}

// DeviceInfo carries the door node's network announcement.
func (Topics) DeviceInfo() string {
	return TopicPrefix + "/device_info"
}

// VoiceComm carries intercom start/stop commands.
func (Topics) VoiceComm() string {
	return TopicPrefix + "/voice_comm"
}

// State carries the coordinator's retained state snapshot.
func (Topics) State() string {
	return TopicPrefix + "/state"
}

// Status carries client online/offline presence, including the LWT.
func (Topics) Status() string {
	return TopicPrefix + "/status"
}

// All matches every Smart Lock topic. Used by the admin console's watch mode.
func (Topics) All() string {
	return TopicPrefix + "/#"
}
