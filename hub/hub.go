// Package hub implements the DeviceHub & Message Router (§4.5): the
// single entry point clients and the transaction coordinator use to
// read/write properties, execute actions, and publish/subscribe to the
// message bus, with pluggable result caching and topic-pattern routing.
package hub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/devicemesh-io/devicecore/address"
	"github.com/devicemesh-io/devicecore/blueprint"
	"github.com/devicemesh-io/devicecore/core"
	"github.com/devicemesh-io/devicecore/device"
	"github.com/devicemesh-io/devicecore/fault"
	"github.com/devicemesh-io/devicecore/message"
	"github.com/devicemesh-io/devicecore/transaction"
)

// ActionHandler carries out one device action. Returning
// ExecutionImmediate completes synchronously; returning
// ExecutionDeferred hands back a job id the caller tracks via the
// hub's job tracker (the handler is itself responsible for calling
// Hub.UpdateJob as the work progresses).
type ActionHandler func(ctx context.Context, ectx ExecutionContext, addr address.Address, input any) (ExecutionResult, error)

// Hub is the process-local implementation of the DeviceHub API (§6)
// and of transaction.LeafExecutor (§4.3), so it can drive a device's
// own lifecycle plans as well as serve external clients.
type Hub struct {
	mu      sync.RWMutex
	devices map[string]*device.Device

	registry *blueprint.Registry
	router   *Router
	cache    *ActionCache
	invalidator *Invalidator
	jobs     *JobTracker

	actionHandlers *core.TypeRegistry[ActionHandler]

	coordinator *transaction.Coordinator
	clock       core.Clock
	logger      core.Logger
}

// NewHub constructs a Hub bound to a blueprint registry.
func NewHub(registry *blueprint.Registry, clock core.Clock, logger core.Logger) *Hub {
	if clock == nil {
		clock = core.NewRealClock()
	}
	if logger == nil {
		logger = core.NopLogger()
	}
	cache := NewActionCache()
	h := &Hub{
		devices:        map[string]*device.Device{},
		registry:       registry,
		router:         NewRouter(),
		cache:          cache,
		invalidator:    NewInvalidator(cache),
		jobs:           NewJobTracker(),
		actionHandlers: core.NewTypeRegistry[ActionHandler](),
		clock:          clock,
		logger:         logger.Named("hub"),
	}
	h.coordinator = transaction.NewCoordinator(h, nil, clock, logger)
	return h
}

// RegisterActionHandler binds handler to the named action of a
// blueprint, the dispatch table Execute consults.
func (h *Hub) RegisterActionHandler(blueprintID address.BlueprintId, actionName string, handler ActionHandler) {
	h.actionHandlers.Register(actionHandlerKey(blueprintID, actionName), handler)
}

func actionHandlerKey(blueprintID address.BlueprintId, actionName string) string {
	return blueprintID.String() + "#" + actionName
}

// Close releases background resources (cache eviction goroutine).
func (h *Hub) Close() {
	h.cache.Close()
}

func (h *Hub) device(addr address.Address) (*device.Device, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	d, ok := h.devices[addr.String()]
	return d, ok
}

// --- transaction.LeafExecutor ---

// Attach instantiates addr from blueprintID and drives it through
// Detached -> Attaching -> Stopped (§4.2), wiring its PlanRunner to
// this hub's coordinator so its own onAttach/onStart/onStop/onDetach
// plans run against the same LeafExecutor.
func (h *Hub) Attach(ctx context.Context, addr address.Address, blueprintID address.BlueprintId, config map[string]any) error {
	bp, err := h.registry.Resolve(blueprintID.ID, blueprintID.Version)
	if err != nil {
		return err
	}

	meta := device.Meta{}
	if m, ok := config["meta"].(map[string]any); ok {
		for k, v := range m {
			meta[k] = v
		}
	}

	d := device.New(device.Config{
		Name:          addr,
		Blueprint:     bp,
		BlueprintMeta: meta,
		RestartPolicy: restartPolicyFromBlueprint(bp),
		Clock:         h.clock,
		Logger:        h.logger,
		PlanRunner:    h.runPlan,
	})

	h.mu.Lock()
	h.devices[addr.String()] = d
	h.mu.Unlock()

	h.forwardMessages(d)

	if err := d.TriggerAttach(ctx); err != nil {
		h.mu.Lock()
		delete(h.devices, addr.String())
		h.mu.Unlock()
		return err
	}

	attached := message.DeviceAttached(addr.String())
	h.router.Publish(topicFor(attached), attached)
	return nil
}

// Detach drives addr through Stopped|Failed -> Detaching -> Detached
// and removes it from the hub.
func (h *Hub) Detach(ctx context.Context, addr address.Address) error {
	d, ok := h.device(addr)
	if !ok {
		return fault.NotFound("device", addr.String())
	}
	if err := d.TriggerDetach(ctx); err != nil {
		return err
	}
	h.mu.Lock()
	delete(h.devices, addr.String())
	h.mu.Unlock()
	detached := message.DeviceDetached(addr.String())
	h.router.Publish(topicFor(detached), detached)
	return nil
}

// Start drives addr through Stopped -> Starting -> Running.
func (h *Hub) Start(ctx context.Context, addr address.Address) error {
	d, ok := h.device(addr)
	if !ok {
		return fault.NotFound("device", addr.String())
	}
	return d.TriggerStart(ctx)
}

// Stop drives addr through Running -> Stopping -> Stopped.
func (h *Hub) Stop(ctx context.Context, addr address.Address) error {
	d, ok := h.device(addr)
	if !ok {
		return fault.NotFound("device", addr.String())
	}
	return d.TriggerStop(ctx)
}

func (h *Hub) runPlan(ctx context.Context, bp *blueprint.DeviceBlueprint, state device.LifecycleState) error {
	if bp.LifecyclePlans == nil {
		return nil
	}
	var plan *transaction.TransactionPlan
	switch state {
	case device.StateAttaching:
		plan = bp.LifecyclePlans.OnAttach
	case device.StateStarting:
		plan = bp.LifecyclePlans.OnStart
	case device.StateStopping:
		plan = bp.LifecyclePlans.OnStop
	case device.StateDetaching:
		plan = bp.LifecyclePlans.OnDetach
	}
	if plan == nil {
		return nil
	}
	result := h.coordinator.Execute(ctx, *plan)
	if result.Outcome == transaction.OutcomeFailure {
		return result.Err
	}
	return nil
}

// --- Public DeviceHub API (§6) ---

// ReadProperty round-trips to the owning device's current value.
func (h *Hub) ReadProperty(ctx context.Context, ectx ExecutionContext, addr address.Address, name string) (any, error) {
	d, ok := h.device(addr)
	if !ok {
		return nil, fault.NotFound("device", addr.String())
	}
	bp := d.Blueprint()
	if _, ok := bp.FindProperty(name); !ok {
		return nil, fault.NotFound("property", name)
	}
	v, _ := d.State.Get(name)
	return v, nil
}

// WriteProperty validates mutability and writes a new value, emitting
// a property.changed message and triggering any matching cache
// invalidation. Satisfies transaction.LeafExecutor, and is also the
// implementation behind the external writeProperty operation in §6 —
// spec.md's ExecutionContext envelope matters for readProperty and
// execute (deadline, principal-scoped caching) but carries no
// additional rule for a plain property write, so one method serves
// both callers.
func (h *Hub) WriteProperty(ctx context.Context, addr address.Address, name string, value any) error {
	d, ok := h.device(addr)
	if !ok {
		return fault.NotFound("device", addr.String())
	}
	bp := d.Blueprint()
	prop, ok := bp.FindProperty(name)
	if !ok {
		return fault.NotFound("property", name)
	}
	if !prop.Mutable {
		return fault.ValidationError(fmt.Sprintf("property %q is not mutable", name), nil)
	}

	d.State.Set(name, value)
	msg := message.PropertyChanged(addr.String(), name, value)
	topic := topicFor(msg)
	h.router.Publish(topic, msg)
	h.invalidator.OnMessage(topic)
	return nil
}

// Execute dispatches actionName against addr, serving a cached
// Immediate result when the action's CachePolicy allows it.
func (h *Hub) Execute(ctx context.Context, ectx ExecutionContext, addr address.Address, actionName string, input any) (ExecutionResult, error) {
	d, ok := h.device(addr)
	if !ok {
		return ExecutionResult{}, fault.NotFound("device", addr.String())
	}
	bp := d.Blueprint()
	action, ok := bp.FindAction(actionName)
	if !ok {
		return ExecutionResult{}, fault.NotFound("action", actionName)
	}

	var cacheKey string
	if action.CachePolicy != nil {
		cacheKey = Key(*action.CachePolicy, addr, actionName, input, ectx.Principal)
		if cached, ok := h.cache.Get(cacheKey); ok {
			return cached, nil
		}
	}

	handler, ok := h.actionHandlers.Get(actionHandlerKey(bp.ID, actionName))
	if !ok {
		return ExecutionResult{}, fault.NotFound("action handler", actionName)
	}
	result, err := handler(ctx, ectx, addr, input)
	if err != nil {
		return ExecutionResult{}, err
	}

	if action.CachePolicy != nil && result.Kind == ExecutionImmediate {
		ttl := time.Duration(action.CachePolicy.TTLSeconds) * time.Second
		h.cache.Put(cacheKey, result, ttl)
		h.invalidator.Track(cacheKey, action.CachePolicy.InvalidationEvents)
	}
	return result, nil
}

// Subscribe registers interest in every topic matching pattern (§6).
func (h *Hub) Subscribe(pattern string) (<-chan BrokerEvent, func()) {
	return h.router.Subscribe(pattern)
}

// Publish emits msg under topic to every matching subscriber and
// evaluates it against tracked cache invalidation patterns (§6).
func (h *Hub) Publish(topic string, msg message.Message) {
	h.router.Publish(topic, msg)
	h.invalidator.OnMessage(topic)
}

// forwardMessages relays every message a device publishes on its own
// bus into the hub-wide router, so subscribe()/invalidation can see
// per-device lifecycle and property events without every device
// needing to know about the hub.
func (h *Hub) forwardMessages(d *device.Device) {
	ch, _ := d.Bus.Subscribe()
	go func() {
		for msg := range ch {
			topic := topicFor(msg)
			h.router.Publish(topic, msg)
			h.invalidator.OnMessage(topic)
		}
	}()
}

// topicFor derives the routable topic for a message: its type plus its
// source device's hierarchical name, with the property name appended
// for property.changed events so invalidation/subscription patterns
// can target a single property.
func topicFor(msg message.Message) string {
	topic := string(msg.Type) + "." + msg.SourceDevice
	if msg.Type == message.TypePropertyChanged {
		if name, ok := msg.Payload["propertyName"].(string); ok {
			topic += "." + name
		}
	}
	return topic
}

// restartPolicyFromBlueprint reads restart-policy fields out of a
// blueprint's lifecycle feature config, if declared, falling back to a
// conservative bounded-linear default otherwise.
func restartPolicyFromBlueprint(bp *blueprint.DeviceBlueprint) device.RestartPolicy {
	policy := device.RestartPolicy{MaxAttempts: 5, Strategy: device.RestartLinear, Base: time.Second}
	for _, f := range bp.Features {
		if f.Kind != blueprint.FeatureLifecycle {
			continue
		}
		if v, ok := f.Config["maxAttempts"].(int); ok {
			policy.MaxAttempts = v
		}
		if v, ok := f.Config["strategy"].(string); ok {
			policy.Strategy = device.RestartStrategy(v)
		}
		if v, ok := f.Config["baseMillis"].(int); ok {
			policy.Base = time.Duration(v) * time.Millisecond
		}
		if v, ok := f.Config["resetOnSuccess"].(bool); ok {
			policy.ResetOnSuccess = v
		}
	}
	return policy
}
