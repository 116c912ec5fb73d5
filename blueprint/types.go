// Package blueprint implements the Data Model & Blueprint Registry
// component (§4.1): immutable declarative device descriptions, their
// inheritance resolution and feature validation.
package blueprint

import (
	"github.com/devicemesh-io/devicecore/address"
	"github.com/devicemesh-io/devicecore/core"
	"github.com/devicemesh-io/devicecore/transaction"
)

// ValueType names the wire/storage type of a property or action
// payload. The concrete encoding of values is left to callers (§1:
// "serialization format of configuration metadata" is out of scope);
// this is only the declarative type tag used for validation.
type ValueType string

const (
	ValueTypeString  ValueType = "string"
	ValueTypeInteger ValueType = "integer"
	ValueTypeFloat   ValueType = "float"
	ValueTypeBool    ValueType = "bool"
	ValueTypeObject  ValueType = "object"
	ValueTypeArray   ValueType = "array"
	ValueTypeBinary  ValueType = "binary"
)

// ValidationRule is a single named constraint evaluated against a
// property value, e.g. {Name: "range", Args: {"min": 0, "max": 100}}.
type ValidationRule struct {
	Name string
	Args map[string]any
}

// PropertyDescriptor declares a single property of a device blueprint
// (§3). Invariant: Persistent implies !Transient; this is enforced at
// registration time.
type PropertyDescriptor struct {
	Name            string
	ValueType       ValueType
	Readable        bool
	Mutable         bool
	Persistent      bool
	Transient       bool
	Permissions     []string
	MetricsConfig   map[string]any
	ValidationRules []ValidationRule
}

// OperationalEventTypes names the message topics emitted around an
// action's dispatch and completion, when the blueprint author wants
// those lifecycle moments observable on the message bus.
type OperationalEventTypes struct {
	OnDispatch string
	OnSuccess  string
	OnFailure  string
}

// CachePolicy declares how the hub should cache an action's result
// (§4.5).
type CachePolicy struct {
	TTLSeconds        int
	Scope             CacheScope
	InvalidationEvents []string
}

// CacheScope controls which axis a cached result is keyed/salted on.
type CacheScope string

const (
	CacheScopePerHub       CacheScope = "PerHub"
	CacheScopePerPrincipal CacheScope = "PerPrincipal"
	CacheScopeGlobal       CacheScope = "Global"
)

// ActionDescriptor declares a single action exposed by a device
// blueprint (§3).
type ActionDescriptor struct {
	Name                  string
	InputType             ValueType
	OutputType            ValueType
	Permissions           []string
	OperationalEventTypes *OperationalEventTypes
	CachePolicy           *CachePolicy
	RequiredLocks         []core.ResourceLockSpec
}

// StreamDescriptor declares a data stream a device exposes.
type StreamDescriptor struct {
	Name      string
	ValueType ValueType
}

// AlarmDescriptor declares an alarm bound to a predicate property
// (§3).
type AlarmDescriptor struct {
	Name              string
	PredicateProperty string
	RetainTimeSeconds int
}

// FeatureKind names a typed capability a blueprint may advertise.
type FeatureKind string

const (
	FeatureLifecycle      FeatureKind = "lifecycle"
	FeatureStateful       FeatureKind = "stateful"
	FeatureReconfigurable FeatureKind = "reconfigurable"
	FeatureOperationalFSM FeatureKind = "operationalFsm"
	FeaturePlanExecutor   FeatureKind = "planExecutor"
	FeatureBinaryData     FeatureKind = "binaryData"
	FeatureAlarms         FeatureKind = "alarms"
)

// Feature is a typed capability descriptor carried by a blueprint
// (§3). Config is schema-specific and validated by the
// FeatureValidator registered for Kind (§4.1, §9).
type Feature struct {
	Kind   FeatureKind
	Config map[string]any
}

// LifecycleMode controls whether a local child's lifecycle is
// cascaded from its parent (§4.2).
type LifecycleMode string

const (
	LifecycleModeLinked      LifecycleMode = "LINKED"
	LifecycleModeIndependent LifecycleMode = "INDEPENDENT"
)

// ChildDeviceErrorHandler names the policy applied when a LINKED
// child fails (§4.2).
type ChildDeviceErrorHandler string

const (
	ChildErrorIgnore      ChildDeviceErrorHandler = "IGNORE"
	ChildErrorRestart     ChildDeviceErrorHandler = "RESTART"
	ChildErrorStopParent  ChildDeviceErrorHandler = "STOP_PARENT"
	ChildErrorPropagate   ChildDeviceErrorHandler = "PROPAGATE"
)

// LocalChildConfig configures a child device instantiated and owned
// directly by the parent's hub (§3).
type LocalChildConfig struct {
	BlueprintID   address.BlueprintId
	LifecycleMode LifecycleMode
	ErrorHandler  ChildDeviceErrorHandler
	MetaConfig    map[string]any
	Bindings      map[string]PropertyBinding
}

// RemoteChildConfig configures a child device hosted by a peer hub
// (§3).
type RemoteChildConfig struct {
	PeerName         string
	RemoteDeviceName string
	BlueprintID      address.BlueprintId
}

// ChildComponentConfig is the Local/Remote sum type for a blueprint's
// declared children (§3). Exactly one of Local or Remote is set.
type ChildComponentConfig struct {
	Local  *LocalChildConfig
	Remote *RemoteChildConfig
}

// IsRemote reports whether this child is hosted on a peer hub.
func (c ChildComponentConfig) IsRemote() bool {
	return c.Remote != nil
}

// AddressSourceKind discriminates the AddressSource sum type.
type AddressSourceKind string

const (
	AddressSourceStatic     AddressSourceKind = "Static"
	AddressSourceDiscovered AddressSourceKind = "Discovered"
)

// AddressSource describes how a PeerBlueprint's transport address(es)
// are obtained (§3).
type AddressSource struct {
	Kind      AddressSourceKind
	Addresses []string // for Static
	ServiceID string    // for Discovered
}

func StaticAddressSource(addresses ...string) AddressSource {
	return AddressSource{Kind: AddressSourceStatic, Addresses: addresses}
}

func DiscoveredAddressSource(serviceID string) AddressSource {
	return AddressSource{Kind: AddressSourceDiscovered, ServiceID: serviceID}
}

// PeerBlueprint configures a named peer connection a blueprint
// depends on (§3).
type PeerBlueprint struct {
	DriverID      string
	AddressSource AddressSource
}

// LifecyclePlans names the transaction plans run on entry to each
// transient lifecycle state (§3, §4.2).
type LifecyclePlans struct {
	OnAttach *transaction.TransactionPlan
	OnStart  *transaction.TransactionPlan
	OnStop   *transaction.TransactionPlan
	OnDetach *transaction.TransactionPlan
}

// DeviceBlueprint is the immutable declarative description of a
// device type (§3). Blueprints are registered once and never mutated;
// Registry.Resolve returns the fully inheritance-merged view.
type DeviceBlueprint struct {
	ID              address.BlueprintId
	SchemaVersion   int
	InheritsFrom    *address.BlueprintId
	StateMigratorID string
	Features        []Feature
	Properties      []PropertyDescriptor
	Actions         []ActionDescriptor
	Streams         []StreamDescriptor
	Alarms          []AlarmDescriptor
	Children        map[string]ChildComponentConfig
	PeerConnections map[string]PeerBlueprint
	LifecyclePlans  *LifecyclePlans
}

// FindProperty returns the descriptor named name, if declared.
func (bp *DeviceBlueprint) FindProperty(name string) (PropertyDescriptor, bool) {
	for _, p := range bp.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return PropertyDescriptor{}, false
}

// FindAction returns the descriptor named name, if declared.
func (bp *DeviceBlueprint) FindAction(name string) (ActionDescriptor, bool) {
	for _, a := range bp.Actions {
		if a.Name == name {
			return a, true
		}
	}
	return ActionDescriptor{}, false
}

// PropertyBindingKind discriminates the PropertyBinding sum type.
type PropertyBindingKind string

const (
	BindingConst       PropertyBindingKind = "Const"
	BindingSource      PropertyBindingKind = "Source"
	BindingTransformed PropertyBindingKind = "Transformed"
)

// TransformerDescriptor names a registered value transformer and its
// static arguments, e.g. {Name: "linear", Args: {"scale":2,"offset":1}}
// or {Name: "toString"}.
type TransformerDescriptor struct {
	Name string
	Args map[string]any
}

// PropertyBinding is the declarative rule wiring a parent's value
// into a child's property (§3).
type PropertyBinding struct {
	Kind            PropertyBindingKind
	ConstValue      any
	SourceRef       string
	Transformer     *TransformerDescriptor
}

func Const(value any) PropertyBinding {
	return PropertyBinding{Kind: BindingConst, ConstValue: value}
}

func Source(sourceRef string) PropertyBinding {
	return PropertyBinding{Kind: BindingSource, SourceRef: sourceRef}
}

func Transformed(sourceRef string, transformer TransformerDescriptor) PropertyBinding {
	return PropertyBinding{Kind: BindingTransformed, SourceRef: sourceRef, Transformer: &transformer}
}
