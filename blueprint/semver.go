package blueprint

import (
	"strings"

	"golang.org/x/mod/semver"
)

// normalizeVersion adapts a blueprint's free-form version string to
// the "vMAJOR.MINOR.PATCH" form golang.org/x/mod/semver expects.
func normalizeVersion(version string) string {
	if strings.HasPrefix(version, "v") {
		return version
	}
	return "v" + version
}

// compareVersions orders two blueprint version strings newest-last.
// Versions that are not valid semver fall back to a lexicographic
// comparison so resolve() still behaves deterministically for
// blueprints that use a non-semver version scheme.
func compareVersions(a, b string) int {
	na, nb := normalizeVersion(a), normalizeVersion(b)
	if semver.IsValid(na) && semver.IsValid(nb) {
		return semver.Compare(na, nb)
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
