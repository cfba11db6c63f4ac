// Package message defines the JSON payloads exchanged on the smartlock/*
// topics and decodes inbound ones.
//
// Publishers on the bus are untrusted and independently written, so every
// Decode function checks the keys it relies on. A payload that cannot be
// parsed, or lacks a required key, yields ErrMalformedMessage. A payload
// that parses but is addressed to someone else (for example a "status"
// entry on the system topic) yields ErrIgnored and should be dropped
// silently.
package message
