// Package coordinator implements the lock state machine.
//
// A Coordinator consumes access, control and system messages from the bus,
// drives the door actuators, and fans out events and admin notices. Its
// state is {locked, emergency, relock timer} and starts as locked with no
// emergency and no timer.
//
// Every state change happens on one goroutine (Run). Bus callbacks decode
// the payload and enqueue an event; the relock timer enqueues its fire the
// same way. Arrival order on the queue is the order commands are applied,
// so the lock state is always the result of the last command applied.
//
// Typical lifecycle:
//
//	c, err := coordinator.New(deps)
//	c.Subscribe(bus)
//	go c.Run(ctx)
//
// Transition table:
//
//	any                     authorized access   -> UNLOCKED, relock armed
//	any                     unauthorized access -> unchanged (actuator locked)
//	any                     admin unlock        -> UNLOCKED, relock armed
//	any                     admin lockdown      -> EMERGENCY, alarm sounding
//	UNLOCKED_PENDING_RELOCK relock fires        -> LOCKED, auto_relock published
package coordinator
