package blueprint

import "fmt"

// FeatureValidator validates the schema-specific Config of a single
// feature kind. New capabilities register their own validator instead
// of the core registry knowing about every kind (§4.1, §9).
type FeatureValidator func(Feature) error

func validatePersistentTransientInvariant(p PropertyDescriptor) error {
	if p.Persistent && p.Transient {
		return fmt.Errorf("property %q cannot be both persistent and transient", p.Name)
	}
	return nil
}

func validateNoDuplicateNames(kind string, names []string) error {
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			return fmt.Errorf("duplicate %s name %q", kind, name)
		}
		seen[name] = true
	}
	return nil
}

// defaultFeatureValidators seeds the registry with permissive
// validators for the built-in feature kinds named in §3. They check
// only the structural minimum; stricter per-kind validation can be
// registered by a caller to override these.
func defaultFeatureValidators() map[FeatureKind]FeatureValidator {
	noop := func(Feature) error { return nil }
	requireMaxAttempts := func(f Feature) error {
		if _, ok := f.Config["maxAttempts"]; !ok {
			return fmt.Errorf("feature %q requires a %q config entry", f.Kind, "maxAttempts")
		}
		return nil
	}
	return map[FeatureKind]FeatureValidator{
		FeatureLifecycle:      requireMaxAttempts,
		FeatureStateful:       noop,
		FeatureReconfigurable: noop,
		FeatureOperationalFSM: noop,
		FeaturePlanExecutor:   noop,
		FeatureBinaryData:     noop,
		FeatureAlarms:         noop,
	}
}
