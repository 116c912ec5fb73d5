package device

import (
	"context"
	"sync"

	"github.com/devicemesh-io/devicecore/blueprint"
	"github.com/devicemesh-io/devicecore/core"
)

// ChildOps is the narrow surface ChildSupervisor needs to drive a
// child device's own lifecycle, satisfied by *Device (kept as an
// interface to avoid a dependency cycle between a device and its own
// child bookkeeping).
type ChildOps interface {
	TriggerStart(ctx context.Context) error
	TriggerStop(ctx context.Context) error
	Name() string
}

// childEntry tracks one declared local child and the supervision
// config that governs it (§4.2).
type childEntry struct {
	localName     string
	ops           ChildOps
	lifecycleMode blueprint.LifecycleMode
	errorHandler  blueprint.ChildDeviceErrorHandler
}

// ChildSupervisor cascades a parent's Start/Stop to LINKED local
// children (attach children before parent reaches Running; stop
// children before parent reaches Stopped, §4.2) and applies a child's
// ChildDeviceErrorHandler on child failure.
type ChildSupervisor struct {
	mu       sync.Mutex
	children []*childEntry
	logger   core.Logger

	// onStopParent is invoked when a LINKED child's error handler is
	// STOP_PARENT; onPropagate when it is PROPAGATE. Device wires these
	// to its own Fail/Stop triggers.
	onStopParent func(ctx context.Context)
	onPropagate  func(ctx context.Context, childName string)
}

// NewChildSupervisor builds an empty supervisor.
func NewChildSupervisor(logger core.Logger, onStopParent func(ctx context.Context), onPropagate func(ctx context.Context, childName string)) *ChildSupervisor {
	if logger == nil {
		logger = core.NopLogger()
	}
	return &ChildSupervisor{
		logger:       logger.Named("device.children"),
		onStopParent: onStopParent,
		onPropagate:  onPropagate,
	}
}

// AddChild registers a local child under supervision.
func (s *ChildSupervisor) AddChild(localName string, ops ChildOps, cfg blueprint.LocalChildConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children = append(s.children, &childEntry{
		localName:     localName,
		ops:           ops,
		lifecycleMode: cfg.LifecycleMode,
		errorHandler:  cfg.ErrorHandler,
	})
}

// StartLinkedChildren starts every LINKED child, in registration
// order, before the parent itself completes into Running (§4.2). The
// first failing child aborts and returns its error.
func (s *ChildSupervisor) StartLinkedChildren(ctx context.Context) error {
	s.mu.Lock()
	entries := append([]*childEntry(nil), s.children...)
	s.mu.Unlock()

	for _, e := range entries {
		if e.lifecycleMode != blueprint.LifecycleModeLinked {
			continue
		}
		if err := e.ops.TriggerStart(ctx); err != nil {
			return err
		}
	}
	return nil
}

// StopLinkedChildren stops every LINKED child, in reverse registration
// order, before the parent itself completes into Stopped (§4.2).
// Errors are collected but do not stop the sweep, matching the "stop
// children before parent" ordering guarantee without letting one
// unresponsive child block the others from being asked to stop.
func (s *ChildSupervisor) StopLinkedChildren(ctx context.Context) []error {
	s.mu.Lock()
	entries := append([]*childEntry(nil), s.children...)
	s.mu.Unlock()

	var errs []error
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.lifecycleMode != blueprint.LifecycleModeLinked {
			continue
		}
		if err := e.ops.TriggerStop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// HandleChildFailure applies childName's ChildDeviceErrorHandler
// (§4.2). INDEPENDENT children are not tracked for cascading but may
// still report failures through this path if the caller chooses to;
// IGNORE is the default no-op.
func (s *ChildSupervisor) HandleChildFailure(ctx context.Context, childName string) {
	s.mu.Lock()
	var entry *childEntry
	for _, e := range s.children {
		if e.localName == childName {
			entry = e
			break
		}
	}
	s.mu.Unlock()
	if entry == nil {
		return
	}

	switch entry.errorHandler {
	case blueprint.ChildErrorIgnore, "":
		s.logger.Debug("ignoring child failure", core.StringLogField("child", childName))
	case blueprint.ChildErrorRestart:
		s.logger.Info("restarting failed child", core.StringLogField("child", childName))
		// Restart is driven by the child's own RestartSupervisor; the
		// parent only needs to ensure the child attempts Start again.
		_ = entry.ops.TriggerStart(ctx)
	case blueprint.ChildErrorStopParent:
		s.logger.Warn("child failure stopping parent", core.StringLogField("child", childName))
		if s.onStopParent != nil {
			s.onStopParent(ctx)
		}
	case blueprint.ChildErrorPropagate:
		s.logger.Warn("propagating child failure to parent", core.StringLogField("child", childName))
		if s.onPropagate != nil {
			s.onPropagate(ctx, childName)
		}
	}
}
