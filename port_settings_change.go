package avsoftdec

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt"
	"github.com/xaionaro-go/avsoftdec/logger"
	"github.com/xaionaro-go/avsoftdec/types"
	"github.com/xaionaro-go/xsync"
)

// PortSettingsChange is the state of the output port reconfiguration
// handshake: after the decoded dimensions changed the host has to disable
// and then re-enable the output port with buffers of the new size.
type PortSettingsChange int

const (
	PortSettingsChangeNone = PortSettingsChange(iota)
	PortSettingsChangeAwaitingDisabled
	PortSettingsChangeAwaitingEnabled
)

func (s PortSettingsChange) String() string {
	switch s {
	case PortSettingsChangeNone:
		return "none"
	case PortSettingsChangeAwaitingDisabled:
		return "awaiting_disabled"
	case PortSettingsChangeAwaitingEnabled:
		return "awaiting_enabled"
	default:
		return fmt.Sprintf("unknown_port_settings_change_%d", int(s))
	}
}

// handlePortSettingsChange returns true if the output port has to be
// reconfigured before any picture could be drained.
func (c *Component) handlePortSettingsChange(
	ctx context.Context,
	res types.Resolution,
) bool {
	if res.IsZero() || res == c.outputResolution {
		return false
	}
	logger.Infof(ctx, "the resolution changed: %s -> %s", c.outputResolution, res)
	c.setOutputResolutionLocked(ctx, res)
	c.portSettingsChange = PortSettingsChangeAwaitingDisabled
	c.Host.OnPortSettingsChanged(ctx, types.PortIndexOutput, res)
	return true
}

// OnPortEnableCompleted advances the reconfiguration handshake and resumes
// the processing once it is finished.
func (c *Component) OnPortEnableCompleted(
	ctx context.Context,
	port types.PortIndex,
	enabled bool,
) (_err error) {
	ctx = belt.WithField(ctx, "port", port)
	logger.Tracef(ctx, "OnPortEnableCompleted(ctx, %s, %t)", port, enabled)
	defer func() { logger.Tracef(ctx, "/OnPortEnableCompleted(ctx, %s, %t): %v", port, enabled, _err) }()
	return xsync.DoA3R1(ctx, &c.locker, c.onPortEnableCompletedLocked, ctx, port, enabled)
}

func (c *Component) onPortEnableCompletedLocked(
	ctx context.Context,
	port types.PortIndex,
	enabled bool,
) error {
	switch port {
	case types.PortIndexInput:
		return nil
	case types.PortIndexOutput:
	default:
		return ErrPortIndex{Port: port}
	}

	switch c.portSettingsChange {
	case PortSettingsChangeNone:
	case PortSettingsChangeAwaitingDisabled:
		if enabled {
			logger.Warnf(ctx, "the output port is enabled, while it was expected to be disabled")
			return nil
		}
		c.portSettingsChange = PortSettingsChangeAwaitingEnabled
	case PortSettingsChangeAwaitingEnabled:
		if !enabled {
			logger.Warnf(ctx, "the output port is disabled, while it was expected to be enabled")
			return nil
		}
		c.portSettingsChange = PortSettingsChangeNone
	}
	logger.Debugf(ctx, "port settings change: %s", c.portSettingsChange)

	if enabled {
		c.onQueueFilledLocked(ctx)
	}
	return nil
}
