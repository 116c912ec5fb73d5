package blueprint

import (
	"sync"

	"github.com/devicemesh-io/devicecore/core"
)

// Registry stores, validates and resolves DeviceBlueprint records by
// BlueprintId (§4.1). It is the process-wide singleton named in §9:
// populated at bootstrap, then read frequently and concurrently.
type Registry struct {
	mu                sync.RWMutex
	blueprints        map[string]map[string]*DeviceBlueprint // id -> version -> raw (unmerged) blueprint
	featureValidators *core.TypeRegistry[FeatureValidator]
	logger            core.Logger
}

// NewRegistry creates a Registry seeded with the default, permissive
// validators for the built-in feature kinds (§3); callers may override
// any of them via RegisterFeatureValidator.
func NewRegistry(logger core.Logger) *Registry {
	if logger == nil {
		logger = core.NopLogger()
	}
	r := &Registry{
		blueprints:        map[string]map[string]*DeviceBlueprint{},
		featureValidators: core.NewTypeRegistry[FeatureValidator](),
		logger:            logger.Named("blueprint.registry"),
	}
	for kind, validator := range defaultFeatureValidators() {
		r.featureValidators.Register(string(kind), validator)
	}
	return r
}

// RegisterFeatureValidator adds or replaces the validator used for a
// given feature kind (§4.1, §9: "new capabilities extend validation
// without touching the core").
func (r *Registry) RegisterFeatureValidator(kind FeatureKind, validator FeatureValidator) {
	r.featureValidators.Register(string(kind), validator)
}

// Register stores a new immutable blueprint, failing per §4.1:
// duplicate id+version, cyclic inheritance, unknown parent, a
// referenced child blueprint that is not present, or an unresolved
// peer name in a remote child.
func (r *Registry) Register(bp *DeviceBlueprint) error {
	if bp.ID.ID == "" || bp.ID.Version == "" {
		return newValidationError(ReasonInvalidProperty, "blueprint id and version must both be set")
	}

	if err := r.validateOwnMembers(bp); err != nil {
		return err
	}

	r.mu.Lock()
	if _, exists := r.blueprints[bp.ID.ID][bp.ID.Version]; exists {
		r.mu.Unlock()
		return newValidationError(ReasonDuplicateBlueprint, "blueprint %s already registered", bp.ID)
	}
	if bp.InheritsFrom != nil {
		parentVersions := r.blueprints[bp.InheritsFrom.ID]
		_, ok := parentVersions[bp.InheritsFrom.Version]
		if bp.InheritsFrom.Version == "" {
			// An unversioned parent reference resolves to the newest
			// registered version (see lookup).
			ok = len(parentVersions) > 0
		}
		if !ok {
			r.mu.Unlock()
			return newValidationError(ReasonUnknownParent, "parent blueprint %s not registered", *bp.InheritsFrom)
		}
	}
	if r.blueprints[bp.ID.ID] == nil {
		r.blueprints[bp.ID.ID] = map[string]*DeviceBlueprint{}
	}
	r.blueprints[bp.ID.ID][bp.ID.Version] = bp
	r.mu.Unlock()

	// Resolve eagerly so that merge-time problems (unknown child
	// blueprint, unresolved peer name, cyclic inheritance) are caught
	// at registration rather than on first use.
	merged, err := r.Resolve(bp.ID.ID, bp.ID.Version)
	if err != nil {
		r.mu.Lock()
		delete(r.blueprints[bp.ID.ID], bp.ID.Version)
		r.mu.Unlock()
		return err
	}

	for _, feature := range merged.Features {
		validator, ok := r.featureValidators.Get(string(feature.Kind))
		if !ok {
			r.mu.Lock()
			delete(r.blueprints[bp.ID.ID], bp.ID.Version)
			r.mu.Unlock()
			return newValidationError(ReasonUnknownFeature, "no validator registered for feature kind %q", feature.Kind)
		}
		if verr := validator(feature); verr != nil {
			r.mu.Lock()
			delete(r.blueprints[bp.ID.ID], bp.ID.Version)
			r.mu.Unlock()
			return newValidationError(ReasonInvalidFeatureConfig, "feature %q: %w", feature.Kind, verr)
		}
	}

	r.logger.Info("registered blueprint", core.StringLogField("id", bp.ID.String()))
	return nil
}

func (r *Registry) validateOwnMembers(bp *DeviceBlueprint) error {
	names := make([]string, 0, len(bp.Properties))
	for _, p := range bp.Properties {
		names = append(names, p.Name)
		if err := validatePersistentTransientInvariant(p); err != nil {
			return newValidationError(ReasonInvalidProperty, "%w", err)
		}
	}
	if err := validateNoDuplicateNames("property", names); err != nil {
		return newValidationError(ReasonInvalidProperty, "%w", err)
	}

	actionNames := make([]string, 0, len(bp.Actions))
	for _, a := range bp.Actions {
		actionNames = append(actionNames, a.Name)
	}
	if err := validateNoDuplicateNames("action", actionNames); err != nil {
		return newValidationError(ReasonInvalidProperty, "%w", err)
	}

	for childName, child := range bp.Children {
		if child.IsRemote() {
			if _, ok := bp.PeerConnections[child.Remote.PeerName]; !ok {
				return newValidationError(
					ReasonUnresolvedPeer,
					"child %q references unknown peer %q",
					childName, child.Remote.PeerName,
				)
			}
		}
	}
	return nil
}

// Resolve returns the fully inheritance-merged blueprint for id. When
// version is empty, the newest registered version is used (§4.1).
func (r *Registry) Resolve(id string, version string) (*DeviceBlueprint, error) {
	return r.resolveChain(id, version, map[string]bool{})
}

func (r *Registry) resolveChain(id, version string, visiting map[string]bool) (*DeviceBlueprint, error) {
	bp, err := r.lookup(id, version)
	if err != nil {
		return nil, err
	}

	key := bp.ID.String()
	if visiting[key] {
		return nil, newValidationError(ReasonCyclicInheritance, "cyclic inheritance detected at %s", key)
	}
	visiting[key] = true

	if bp.InheritsFrom == nil {
		return cloneBlueprint(bp), r.validateChildrenPresent(bp)
	}

	parentMerged, err := r.resolveChain(bp.InheritsFrom.ID, bp.InheritsFrom.Version, visiting)
	if err != nil {
		return nil, err
	}

	merged := merge(parentMerged, bp)
	return merged, r.validateChildrenPresent(merged)
}

func (r *Registry) validateChildrenPresent(bp *DeviceBlueprint) error {
	for childName, child := range bp.Children {
		if child.Local == nil {
			continue
		}
		r.mu.RLock()
		versions, ok := r.blueprints[child.Local.BlueprintID.ID]
		r.mu.RUnlock()
		if !ok || len(versions) == 0 {
			return newValidationError(
				ReasonUnknownChildBlueprint,
				"child %q references unregistered blueprint %s",
				childName, child.Local.BlueprintID,
			)
		}
	}
	return nil
}

// lookup finds the raw (unmerged) blueprint for id and version. An
// empty version resolves to the newest registered version by semver
// comparison (§4.1).
func (r *Registry) lookup(id, version string) (*DeviceBlueprint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions, ok := r.blueprints[id]
	if !ok || len(versions) == 0 {
		return nil, newValidationError(ReasonBlueprintNotFound, "blueprint %q not found", id)
	}

	if version != "" {
		bp, ok := versions[version]
		if !ok {
			return nil, newValidationError(ReasonBlueprintNotFound, "blueprint %q version %q not found", id, version)
		}
		return bp, nil
	}

	var newest *DeviceBlueprint
	for _, bp := range versions {
		if newest == nil || compareVersions(bp.ID.Version, newest.ID.Version) > 0 {
			newest = bp
		}
	}
	return newest, nil
}

func cloneBlueprint(bp *DeviceBlueprint) *DeviceBlueprint {
	clone := *bp
	clone.Properties = append([]PropertyDescriptor(nil), bp.Properties...)
	clone.Actions = append([]ActionDescriptor(nil), bp.Actions...)
	clone.Streams = append([]StreamDescriptor(nil), bp.Streams...)
	clone.Alarms = append([]AlarmDescriptor(nil), bp.Alarms...)
	clone.Features = append([]Feature(nil), bp.Features...)
	clone.Children = mergeMap(map[string]ChildComponentConfig{}, bp.Children)
	clone.PeerConnections = mergeMap(map[string]PeerBlueprint{}, bp.PeerConnections)
	return &clone
}
