package device

import (
	"context"
	"sync"

	"github.com/devicemesh-io/devicecore/address"
	"github.com/devicemesh-io/devicecore/blueprint"
	"github.com/devicemesh-io/devicecore/core"
	"github.com/devicemesh-io/devicecore/stateful"
)

// PlanRunner executes a blueprint's lifecycle plan (onAttach/onStart/
// onStop/onDetach) for the transient state being entered. Device takes
// this as a constructor argument so the device package itself never
// imports the transaction coordinator or a concrete hub — the caller
// (normally the hub) supplies the closure that drives
// transaction.Coordinator.Execute against the blueprint's
// LifecyclePlans (§4.2).
type PlanRunner func(ctx context.Context, bp *blueprint.DeviceBlueprint, state LifecycleState) error

// Device is a running instance of a DeviceBlueprint (§3). It owns its
// lifecycle FSM, message bus, resolved meta overlay, restart
// supervisor, child supervisor and timer service.
type Device struct {
	name      address.Address
	blueprint *blueprint.DeviceBlueprint

	FSM     *LifecycleFSM
	Bus     *MessageBus
	Meta    *MetaObservable
	Timers  *TimerService
	Restart *RestartSupervisor
	Children *ChildSupervisor
	State   *stateful.DeviceState

	planRunner PlanRunner

	mu               sync.Mutex
	consecutiveFails int
}

// Config bundles the construction-time dependencies for a Device.
type Config struct {
	Name          address.Address
	Blueprint     *blueprint.DeviceBlueprint
	BlueprintMeta Meta
	RestartPolicy RestartPolicy
	Clock         core.Clock
	Logger        core.Logger
	PlanRunner    PlanRunner
}

// New constructs a Device in the Detached state (§3).
func New(cfg Config) *Device {
	bus := NewMessageBus()
	logger := cfg.Logger
	if logger == nil {
		logger = core.NopLogger()
	}

	d := &Device{
		name:       cfg.Name,
		blueprint:  cfg.Blueprint,
		FSM:        NewLifecycleFSM(cfg.Name.String(), bus, logger),
		Bus:        bus,
		Meta:       NewMetaObservable(cfg.BlueprintMeta),
		Timers:     NewTimerService(cfg.Clock),
		Restart:    NewRestartSupervisor(cfg.RestartPolicy),
		State:      stateful.NewDeviceState(),
		planRunner: cfg.PlanRunner,
	}
	d.Children = NewChildSupervisor(logger,
		func(ctx context.Context) { _ = d.TriggerStop(ctx) },
		func(ctx context.Context, childName string) { _ = d.Fail(ctx) },
	)

	d.FSM.SetHook(StateAttaching, func(ctx context.Context) error { return nil })
	d.FSM.SetHook(StateStarting, func(ctx context.Context) error {
		return d.Children.StartLinkedChildren(ctx)
	})
	d.FSM.SetHook(StateStopping, func(ctx context.Context) error {
		if errs := d.Children.StopLinkedChildren(ctx); len(errs) > 0 {
			return errs[0]
		}
		return nil
	})
	d.FSM.SetHook(StateDetaching, func(ctx context.Context) error {
		d.Timers.Stop()
		d.Bus.Close()
		return nil
	})

	return d
}

// Name returns the device's address.
func (d *Device) Name() string {
	return d.name.String()
}

// Address returns the device's full address.
func (d *Device) Address() address.Address {
	return d.name
}

// Blueprint returns the resolved blueprint this device was
// instantiated from.
func (d *Device) Blueprint() *blueprint.DeviceBlueprint {
	return d.blueprint
}

func (d *Device) runPlan(ctx context.Context, state LifecycleState) error {
	if d.planRunner == nil {
		return nil
	}
	return d.planRunner(ctx, d.blueprint, state)
}

// TriggerAttach drives Detached -> Attaching -> Stopped (§4.2).
func (d *Device) TriggerAttach(ctx context.Context) error {
	return d.FSM.Trigger(ctx, EventAttach, d.runPlan)
}

// TriggerStart drives Stopped -> Starting -> Running (§4.2).
func (d *Device) TriggerStart(ctx context.Context) error {
	err := d.FSM.Trigger(ctx, EventStart, d.runPlan)
	d.mu.Lock()
	if err != nil {
		d.consecutiveFails++
	} else {
		d.consecutiveFails = 0
		d.Restart.NotifyRunning()
	}
	d.mu.Unlock()
	return err
}

// TriggerStop drives Running -> Stopping -> Stopped (§4.2).
func (d *Device) TriggerStop(ctx context.Context) error {
	return d.FSM.Trigger(ctx, EventStop, d.runPlan)
}

// TriggerDetach drives Stopped|Failed -> Detaching -> Detached,
// terminal for this instance (§4.2).
func (d *Device) TriggerDetach(ctx context.Context) error {
	return d.FSM.Trigger(ctx, EventDetach, d.runPlan)
}

// TriggerReset drives Failed -> Stopped (§4.2).
func (d *Device) TriggerReset(ctx context.Context) error {
	return d.FSM.Trigger(ctx, EventReset, d.runPlan)
}

// Fail forces a transition to Failed from any non-terminal state
// (§4.2).
func (d *Device) Fail(ctx context.Context) error {
	d.mu.Lock()
	d.consecutiveFails++
	d.mu.Unlock()
	return d.FSM.Trigger(ctx, EventFail, nil)
}

// Snapshot captures the device's current stateful properties (§4.4).
func (d *Device) Snapshot(blobs map[string][]byte) stateful.Snapshot {
	return stateful.TakeSnapshot(d.State, uint32(d.blueprint.SchemaVersion), blobs)
}

// RestoreSnapshot applies snap to the device's stateful properties.
// Valid only while the device is Stopped or Attaching; snap must
// already be at the blueprint's current schema version (migrate it
// first via a stateful.MigratorRegistry keyed on d.blueprint.StateMigratorID
// if it is not).
func (d *Device) RestoreSnapshot(snap stateful.Snapshot) error {
	return stateful.Restore(d.State, snap, uint32(d.blueprint.SchemaVersion), d.FSM.State(), StateStopped, StateAttaching)
}

// HealthStatus summarizes a device's current health, derived from
// lifecycle state and consecutive-failure count (§12 supplemented
// feature). Observational only: reading it never changes FSM state.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "HEALTHY"
	HealthDegraded HealthStatus = "DEGRADED"
	HealthUnhealthy HealthStatus = "UNHEALTHY"
)

// HealthReport is the result of Device.Health().
type HealthReport struct {
	Status           HealthStatus
	LifecycleState   LifecycleState
	ConsecutiveFails int
	RestartAttempts  int
}

// Health reports a derived health summary: Running with no recent
// failures is HEALTHY; Failed, or a non-Failed state reached after at
// least one failure, is DEGRADED; Failed with restarts exhausted is
// UNHEALTHY.
func (d *Device) Health() HealthReport {
	state := d.FSM.State()
	d.mu.Lock()
	fails := d.consecutiveFails
	d.mu.Unlock()

	report := HealthReport{
		LifecycleState:   state,
		ConsecutiveFails: fails,
		RestartAttempts:  d.Restart.Attempts(),
	}

	switch {
	case state == StateFailed && !d.Restart.policy.Unbounded() && d.Restart.Attempts() >= d.Restart.policy.MaxAttempts:
		report.Status = HealthUnhealthy
	case state == StateFailed || fails > 0:
		report.Status = HealthDegraded
	default:
		report.Status = HealthHealthy
	}
	return report
}
