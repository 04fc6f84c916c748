package source

import "regexp"

var topLevelDefRegex = regexp.MustCompile(`(?m)^(?:async[ \t]+)?def[ \t]+(\w+)[ \t]*\(`)

// ExtractOrder returns the names of top-level functions in textual order.
//
// It scans raw text rather than the parsed unit. Text inside a multi-line
// string that looks like a column-0 def header is reported too.
func ExtractOrder(text string) []string {
	matches := topLevelDefRegex.FindAllStringSubmatch(text, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}
