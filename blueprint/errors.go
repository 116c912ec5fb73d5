package blueprint

import "fmt"

// ReasonCode identifies why a blueprint failed to register or
// resolve, mirroring the reason-coded error shape used throughout the
// runtime (§7, §9).
type ReasonCode string

const (
	ReasonDuplicateBlueprint    ReasonCode = "duplicate_blueprint"
	ReasonCyclicInheritance     ReasonCode = "cyclic_inheritance"
	ReasonUnknownParent         ReasonCode = "unknown_parent"
	ReasonDuplicateChildName    ReasonCode = "duplicate_child_name"
	ReasonUnknownChildBlueprint ReasonCode = "unknown_child_blueprint"
	ReasonUnresolvedPeer        ReasonCode = "unresolved_peer"
	ReasonInvalidProperty       ReasonCode = "invalid_property"
	ReasonUnknownFeature        ReasonCode = "unknown_feature"
	ReasonInvalidFeatureConfig  ReasonCode = "invalid_feature_config"
	ReasonBlueprintNotFound     ReasonCode = "blueprint_not_found"
)

// ValidationError reports why register or resolve rejected a
// blueprint.
type ValidationError struct {
	ReasonCode ReasonCode
	Err        error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.ReasonCode, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func newValidationError(code ReasonCode, format string, args ...any) *ValidationError {
	return &ValidationError{ReasonCode: code, Err: fmt.Errorf(format, args...)}
}
