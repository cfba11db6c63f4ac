package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/smartlock-core/internal/audit"
	"github.com/nerrad567/smartlock-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/smartlock-core/internal/message"
	"github.com/nerrad567/smartlock-core/internal/ratelimit"
)

func (c *Coordinator) onAccess(ctx context.Context, a message.Access) {
	now := c.now()
	ts := now.Format(message.ClockLayout)

	if !a.Authorized {
		c.logLine(ratelimit.CategoryUnknownUser,
			"Unknown user trying to access. Contacting admin. "+ts, now)
		// A denial locks the door immediately; any pending relock is moot.
		wasUnlocked := !c.state.Locked
		c.cancelRelock()
		c.actuator.SetLocked()
		c.state.Locked = true

		c.publish(topics.Events(), message.NewEvent(message.UnknownUser, message.StatusDenied, now), mqtt.QoSAtMostOnce)
		c.record(ctx, audit.ActionAccessDenied, a.User, audit.SourceRecognition, now)
		c.telemetry.WriteAccessDecision(a.User, false, now)
		if !wasUnlocked {
			c.metrics.ObserveTransition(audit.ActionAccessDenied)
			return
		}
		c.logger.Info("door locked after denied access")
		c.transitioned(audit.ActionAccessDenied, audit.SourceRecognition, now)
		return
	}

	c.logLine(ratelimit.CategoryAuthorizedUser,
		fmt.Sprintf("%s unlocked door at %s", a.User, ts), now)

	wasEmergency := c.state.Emergency
	c.unlock()
	c.state.LastCommand = message.CommandUnlock
	if b, ok := c.actuator.(Beeper); ok {
		b.Beep(beepDuration)
	}

	c.publish(topics.Events(), message.NewEvent(a.User, message.StatusGranted, now), mqtt.QoSExactlyOnce)
	if !wasEmergency {
		c.markAttendance(ctx, a.User, now)
	}
	c.record(ctx, audit.ActionAccessGranted, a.User, audit.SourceRecognition, now)
	c.telemetry.WriteAccessDecision(a.User, true, now)

	c.logger.Info("door unlocked", "user", a.User)
	c.transitioned(audit.ActionAccessGranted, audit.SourceRecognition, now)
}

func (c *Coordinator) onControl(ctx context.Context, ctl message.Control) {
	now := c.now()
	ts := now.Format(message.ClockLayout)

	switch ctl.Command {
	case message.CommandUnlock:
		c.logLine(ratelimit.CategoryAdminAllow, "Unknown user allowed by admin at "+ts, now)

		c.unlock()
		c.state.LastCommand = message.CommandUnlock

		c.publish(topics.AdminAction(), message.NewAdminAction(message.DecisionAllowed, now), mqtt.QoSAtMostOnce)
		c.publish(topics.Events(), message.NewEvent(message.NameAdminOverride, message.StatusGranted, now), mqtt.QoSAtMostOnce)
		c.record(ctx, audit.ActionUnlock, "", audit.SourceAdmin, now)

		c.logger.Info("door unlocked by admin")
		c.transitioned(audit.ActionUnlock, audit.SourceAdmin, now)

	case message.CommandLockdown:
		c.logLine(ratelimit.CategoryAdminDeny, "Unknown user denied by admin at "+ts, now)

		c.cancelRelock()
		c.actuator.SetLocked()
		c.actuator.SoundAlarm(c.cfg.AlarmDuration)
		c.state.Locked = true
		c.state.Emergency = true
		c.state.LastCommand = message.CommandLockdown

		c.publish(topics.AdminAction(), message.NewAdminAction(message.DecisionDenied, now), mqtt.QoSAtMostOnce)
		c.publish(topics.Events(), message.NewEvent(message.NameAdminDenied, message.StatusDenied, now), mqtt.QoSAtMostOnce)
		c.record(ctx, audit.ActionLockdown, "", audit.SourceAdmin, now)

		c.logger.Warn("lockdown by admin", "alarm_duration", c.cfg.AlarmDuration)
		c.transitioned(audit.ActionLockdown, audit.SourceAdmin, now)

	case message.CommandAutoRelock:
		// Our own relock comes back from the bus. It is applied like any
		// other command: the last command observed wins.
		c.state.LastCommand = message.CommandAutoRelock
		if c.state.Locked && !c.state.RelockPending {
			c.storeSnapshot()
			return
		}
		c.cancelRelock()
		c.actuator.SetLocked()
		c.state.Locked = true

		source := string(ctl.Source)
		if source == "" {
			source = audit.SourceSystem
		}
		c.record(ctx, audit.ActionAutoRelock, "", source, now)
		c.logger.Info("door relocked by bus command", "source", source)
		c.transitioned(audit.ActionAutoRelock, source, now)
	}
}

func (c *Coordinator) onSystem(s message.SystemLog) {
	c.logSystem(s.Message, c.now())
}

// unlock drives the door open, clears any emergency and (re)arms the relock.
func (c *Coordinator) unlock() {
	c.actuator.SetUnlocked()
	c.state.Locked = false
	c.state.Emergency = false
	c.armRelock()
}

// armRelock replaces any pending relock with a new one.
func (c *Coordinator) armRelock() {
	c.stopRelockTimer()
	c.relockGen++
	gen := c.relockGen
	c.relockTimer = time.AfterFunc(c.cfg.RelockDelay, func() {
		// Errors only mean the loop has stopped.
		_ = c.enqueue(event{kind: kindRelock, gen: gen}) //nolint:errcheck // see above
	})
	c.state.RelockPending = true
}

// cancelRelock drops the pending relock. A fire already queued becomes stale.
func (c *Coordinator) cancelRelock() {
	c.stopRelockTimer()
	c.relockGen++
	c.state.RelockPending = false
}

func (c *Coordinator) stopRelockTimer() {
	if c.relockTimer != nil {
		c.relockTimer.Stop()
		c.relockTimer = nil
	}
}

func (c *Coordinator) onRelockFired(ctx context.Context, gen uint64) {
	if gen != c.relockGen || !c.state.RelockPending {
		c.logger.Debug("stale relock ignored", "generation", gen)
		return
	}
	now := c.now()

	c.relockTimer = nil
	c.state.RelockPending = false
	c.actuator.SetLocked()
	c.state.Locked = true
	c.state.LastCommand = message.CommandAutoRelock

	c.publish(topics.Control(), message.NewControl(message.CommandAutoRelock, message.SourceSystem, now), mqtt.QoSAtMostOnce)
	c.metrics.ObserveRelock()
	c.record(ctx, audit.ActionAutoRelock, "", audit.SourceSystem, now)

	c.logger.Info("door relocked", "delay", c.cfg.RelockDelay)
	c.transitioned(audit.ActionAutoRelock, audit.SourceSystem, now)
}

// transitioned publishes the consequences of an applied state change.
func (c *Coordinator) transitioned(kind, source string, now time.Time) {
	c.state.UpdatedAt = now
	c.metrics.ObserveTransition(kind)
	c.metrics.SetLockState(c.state.Locked, c.state.Emergency)
	c.telemetry.WriteLockEvent(kind, source, c.state.Locked, c.state.Emergency, now)
	c.storeSnapshot()
	c.announce()
}

func (c *Coordinator) storeSnapshot() {
	c.snapMu.Lock()
	c.snap = c.state
	c.snapMu.Unlock()
}

// announce publishes the retained state snapshot when enabled.
func (c *Coordinator) announce() {
	if c.cfg.StateInterval <= 0 {
		return
	}
	state := c.state
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = c.now()
	}
	c.send(topics.State(), state.Message(), mqtt.QoSAtLeastOnce, true)
}

func (c *Coordinator) publish(topic string, v any, qos byte) {
	c.send(topic, v, qos, false)
}

func (c *Coordinator) send(topic string, v any, qos byte, retained bool) {
	payload, err := message.Encode(v)
	if err != nil {
		c.logger.Error("encoding message", "topic", topic, "error", err)
		return
	}
	if err := c.pub.Publish(topic, payload, qos, retained); err != nil {
		if errors.Is(err, mqtt.ErrNotConnected) {
			c.logger.Debug("publish skipped, bus not connected", "topic", topic)
			return
		}
		c.logger.Warn("publish failed", "topic", topic, "error", err)
	}
}

func (c *Coordinator) logLine(category, line string, now time.Time) {
	written, err := c.emitter.Log(category, line, now)
	c.afterLog(category, written, err)
}

func (c *Coordinator) logSystem(line string, now time.Time) {
	written, err := c.emitter.LogSystem(line, now)
	c.afterLog(ratelimit.CategorySystemLog, written, err)
}

func (c *Coordinator) afterLog(category string, written bool, err error) {
	if err != nil {
		c.logger.Error("writing access log", "category", category, "error", err)
		return
	}
	if !written {
		c.logger.Debug("access log line suppressed", "category", category)
	}
}

func (c *Coordinator) markAttendance(ctx context.Context, name string, at time.Time) {
	if c.attendance == nil {
		return
	}
	marked, err := c.attendance.Mark(ctx, name, at)
	if err != nil {
		c.logger.Error("marking attendance", "user", name, "error", err)
		return
	}
	if marked {
		c.metrics.ObserveAttendance()
		c.logger.Info("attendance marked", "user", name)
	}
}

func (c *Coordinator) record(ctx context.Context, action, subject, source string, at time.Time) {
	if c.audit == nil {
		return
	}
	entry := &audit.Entry{
		Action:  action,
		Subject: subject,
		Source:  source,
		Details: map[string]any{
			"locked":    c.state.Locked,
			"emergency": c.state.Emergency,
		},
		CreatedAt: at,
	}
	if err := c.audit.Create(ctx, entry); err != nil {
		c.logger.Error("writing audit entry", "action", action, "error", err)
	}
}
