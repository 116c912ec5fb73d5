package hub

import "strings"

// MatchTopic reports whether topic matches pattern under the syntax in
// §4.5:
//   - "a.b.c" matches exactly "a.b.c".
//   - "a.*.c" matches exactly one token in that position.
//   - "a.b.**" matches "a.b" and any deeper descendant ("a.b.x",
//     "a.b.x.y", ...); "**" must be the final token of the pattern.
func MatchTopic(pattern, topic string) bool {
	patternTokens := strings.Split(pattern, ".")
	topicTokens := strings.Split(topic, ".")

	for i, pt := range patternTokens {
		if pt == "**" {
			// "**" must be the trailing token; matches zero or more
			// remaining topic tokens regardless of what they are.
			return true
		}
		if i >= len(topicTokens) {
			return false
		}
		if pt == "*" {
			continue
		}
		if pt != topicTokens[i] {
			return false
		}
	}
	return len(patternTokens) == len(topicTokens)
}
