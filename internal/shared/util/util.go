// Package util holds small helpers shared across gradecheck packages.
package util

import (
	"path"
	"sort"
	"strings"
)

// NormalizePatternPath turns a file name from a rubric or the file system into
// the slash-separated relative form glob patterns match against. "." and the
// empty string both normalize to "".
func NormalizePatternPath(s string) string {
	p := path.Clean(strings.ReplaceAll(strings.TrimSpace(s), "\\", "/"))
	if p == "." {
		return ""
	}
	return strings.TrimPrefix(p, "./")
}

// ContainsPathSeparator reports whether name has a slash or backslash, that is
// whether it names a file below a directory rather than a base name.
func ContainsPathSeparator(name string) bool {
	return strings.ContainsAny(name, `/\`)
}

// SortedStringKeys returns the map's keys in sorted order.
func SortedStringKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
