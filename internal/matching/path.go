// Package matching implements URL pattern matching and the specificity
// scoring used to order candidate mocks sharing a port.
package matching

import (
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchPath reports whether path matches pattern and returns any captured
// parameters. Patterns are segment-based:
//   - literal segments must match exactly
//   - ":name" segments match any single segment and capture it
//   - "*" matches a single segment; a trailing "*" or "**" matches the
//     rest of the path
//   - segments containing "*" (e.g. "*.txt") glob within the segment
func MatchPath(pattern, path string) (bool, map[string]string) {
	if pattern == path {
		return true, map[string]string{}
	}

	patternSegs := splitPath(pattern)
	pathSegs := splitPath(path)
	params := map[string]string{}
	wildcardIdx := 0

	for i, seg := range patternSegs {
		// Trailing multi-segment wildcard swallows the rest.
		if (seg == "*" || seg == "**") && i == len(patternSegs)-1 {
			if i < len(pathSegs) {
				params[strconv.Itoa(wildcardIdx)] = strings.Join(pathSegs[i:], "/")
			}
			return true, params
		}

		if i >= len(pathSegs) {
			return false, nil
		}

		switch {
		case strings.HasPrefix(seg, ":"):
			params[seg[1:]] = pathSegs[i]
		case seg == "*":
			params[strconv.Itoa(wildcardIdx)] = pathSegs[i]
			wildcardIdx++
		case strings.Contains(seg, "*"):
			ok, err := doublestar.Match(seg, pathSegs[i])
			if err != nil || !ok {
				return false, nil
			}
		default:
			if seg != pathSegs[i] {
				return false, nil
			}
		}
	}

	if len(pathSegs) != len(patternSegs) {
		return false, nil
	}
	return true, params
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// isWildcardSegment reports whether a pattern segment matches more than
// one literal value.
func isWildcardSegment(seg string) bool {
	return strings.HasPrefix(seg, ":") || strings.Contains(seg, "*")
}
