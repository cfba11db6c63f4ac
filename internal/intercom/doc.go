// Package intercom relays raw PCM audio between the door and the admin
// console over UDP.
//
// A Session is either IDLE or STREAMING. Start opens one UDP socket bound
// to the local receive port and runs two loops: the send loop reads frames
// from the audio device and sends them to the peer, the receive loop plays
// every datagram it gets. There is no retry, jitter buffer or encryption;
// a lost datagram is a lost frame.
//
// Port convention:
//
//	admin: sends to door:12345, listens on 12346
//	door:  sends to admin:12346, listens on 12345
//
// Controller connects a Session to the bus: it starts and stops it on
// smartlock/voice_comm and remembers the door address announced on
// smartlock/device_info.
package intercom
