package blueprint

import "sort"

// merge flattens parent's members with child's, child taking
// precedence by name/key, per the inheritance rule in §4.1: "parent's
// members merged first; child overrides parent by name". Lists
// (properties, actions, streams, alarms) merge by name; maps
// (children, peerConnections) merge by key; features merge by kind.
func merge(parent, child *DeviceBlueprint) *DeviceBlueprint {
	merged := &DeviceBlueprint{
		ID:              child.ID,
		SchemaVersion:   child.SchemaVersion,
		StateMigratorID: child.StateMigratorID,
		LifecyclePlans:  child.LifecyclePlans,
	}
	if merged.StateMigratorID == "" {
		merged.StateMigratorID = parent.StateMigratorID
	}
	if merged.LifecyclePlans == nil {
		merged.LifecyclePlans = parent.LifecyclePlans
	}

	merged.Properties = mergeByName(parent.Properties, child.Properties, func(p PropertyDescriptor) string { return p.Name })
	merged.Actions = mergeByName(parent.Actions, child.Actions, func(a ActionDescriptor) string { return a.Name })
	merged.Streams = mergeByName(parent.Streams, child.Streams, func(s StreamDescriptor) string { return s.Name })
	merged.Alarms = mergeByName(parent.Alarms, child.Alarms, func(a AlarmDescriptor) string { return a.Name })
	merged.Features = mergeFeatures(parent.Features, child.Features)

	merged.Children = mergeMap(parent.Children, child.Children)
	merged.PeerConnections = mergeMap(parent.PeerConnections, child.PeerConnections)

	return merged
}

func mergeByName[T any](parent, child []T, nameOf func(T) string) []T {
	byName := make(map[string]T, len(parent)+len(child))
	order := make([]string, 0, len(parent)+len(child))
	for _, item := range parent {
		name := nameOf(item)
		if _, exists := byName[name]; !exists {
			order = append(order, name)
		}
		byName[name] = item
	}
	for _, item := range child {
		name := nameOf(item)
		if _, exists := byName[name]; !exists {
			order = append(order, name)
		}
		byName[name] = item
	}
	sort.Strings(order)
	result := make([]T, 0, len(order))
	for _, name := range order {
		result = append(result, byName[name])
	}
	return result
}

func mergeFeatures(parent, child []Feature) []Feature {
	byKind := make(map[FeatureKind]Feature, len(parent)+len(child))
	order := make([]string, 0, len(parent)+len(child))
	add := func(f Feature) {
		if _, exists := byKind[f.Kind]; !exists {
			order = append(order, string(f.Kind))
		}
		byKind[f.Kind] = f
	}
	for _, f := range parent {
		add(f)
	}
	for _, f := range child {
		add(f)
	}
	sort.Strings(order)
	result := make([]Feature, 0, len(order))
	for _, kind := range order {
		result = append(result, byKind[FeatureKind(kind)])
	}
	return result
}

func mergeMap[V any](parent, child map[string]V) map[string]V {
	merged := make(map[string]V, len(parent)+len(child))
	for k, v := range parent {
		merged[k] = v
	}
	for k, v := range child {
		merged[k] = v
	}
	return merged
}
