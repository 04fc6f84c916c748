package match

import (
	"fmt"
	"regexp"
)

var (
	WhileLoop  = MustCompile(`while\s+.+`)
	WithOpen   = MustCompile(`with\s+open\(['"]`)
	ForLoop    = MustCompile(`for\s+\w+\s+in\s+`)
	Lambda     = MustCompile(`lambda (?:[^\s]*? ?, ?)*?\w+\s*:`)
	Assert     = MustCompile(`^[ \t]*assert[ \t]*\w+`)
	InputCall  = MustCompile(`(^|[^\w\.])input\(["']`)
	OpenFile   = MustCompile(`(\w*) = open\(`)
	CloseFile  = MustCompile(`(\w*)\.close\(\)`)
	GlobalDecl = MustCompile(`^[ \t]*global[ \t]+\w*(?:, *\w+)*[ \t]*$`)

	AbsolutePathUnix    = MustCompile(`(r|f|rf|fr)?["'](/([^/ ]+ +)*[^/ ]+)+["']`)
	AbsolutePathWindows = MustCompile(`(r|f|rf|fr)?["'][A-Za-z]:([\\/]([^ ]+ +)*[^ ]+)+["']`)

	ListComprehension = MustCompile(`\[\s*[\w\.\(\)'"]+\s+(?:if .*? else [\w\.\(\)'"]+\s+)?for\s+\w+\s+in\s+[\w\.\(\)'"]+\s*(?:if .*)?\]`)

	// Matched against whole-file text.
	NameEqMain = MustCompile(`(?:if __name__\s?==\s?(?:'__main__'|"__main__")|if (?:'__main__'|"__main__")\s?==\s?__name__):`)

	DoubleQuoteDocstring = MustCompile(`"""[\s\S]*?"""`)
)

// AbsolutePath matches either the unix or the windows form.
var AbsolutePath Pattern = anyOf{AbsolutePathUnix, AbsolutePathWindows}

type anyOf []Pattern

func (a anyOf) MatchString(s string) bool {
	for _, p := range a {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// ShadowedName matches an assignment to name, or name as a parameter of the
// function called function.
func ShadowedName(function, name string) *regexp.Regexp {
	q := regexp.QuoteMeta(name)
	asVariable := fmt.Sprintf(`^\s*(?:[^\s]*? ?, ?)*?%s ?(?:\s*,\s*[^\W]+?\s*)*=.*`, q)
	asParameter := fmt.Sprintf(`def %s\((?:[^\s]*? ?, ?)*?%s(?:\s*,\s*[^\W]+?)*\):`, regexp.QuoteMeta(function), q)
	return MustCompile(fmt.Sprintf(`(%s|%s)`, asParameter, asVariable))
}
