package matching

// Specificity scoring. Lower scores are more specific and win ties when
// several mocks on one port match the same request.
//
// Patterns with fewer wildcard segments score lower; among equal wildcard
// counts, a longer literal prefix scores lower.
const (
	// wildcardWeight dominates the score so one extra wildcard always
	// loses to any literal-prefix difference.
	wildcardWeight = 1 << 16

	// maxLiteralPrefix bounds the prefix contribution below one
	// wildcardWeight step.
	maxLiteralPrefix = wildcardWeight - 1
)

// Score computes the specificity score of a pattern. An exact literal
// pattern scores lowest; each wildcard segment adds a full weight step,
// and longer literal prefixes subtract within a step.
func Score(pattern string) int {
	segs := splitPath(pattern)

	wildcards := 0
	for _, seg := range segs {
		if isWildcardSegment(seg) {
			wildcards++
		}
	}

	prefixLen := 0
	for _, seg := range segs {
		if isWildcardSegment(seg) {
			break
		}
		// +1 for the separating slash.
		prefixLen += len(seg) + 1
	}
	if prefixLen > maxLiteralPrefix {
		prefixLen = maxLiteralPrefix
	}

	return wildcards*wildcardWeight + (maxLiteralPrefix - prefixLen)
}
