// Package actuator drives the door hardware: the lock LED and the buzzer.
//
// The coordinator talks to an Actuator; it never touches pins directly.
// Implementations:
//
//   - Noop: substituted when no hardware is available.
//   - Door: an LED and a Buzzer on two Pins.
//
// A Pin is a single digital output. LogPin is the simulated pin used on
// development machines; it records its level and logs every change.
//
// Actuator calls never block the caller. The alarm pattern runs on its own
// goroutine and a second SoundAlarm while one is active is ignored.
package actuator
