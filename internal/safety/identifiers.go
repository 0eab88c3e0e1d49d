package safety

import "strings"

// coreTableStems is the closed vocabulary of WordPress core table names.
// A table name is only trusted if it is one of these stems, optionally
// preceded by a prefix. Extending the schema vocabulary means extending
// this list by hand.
var coreTableStems = []string{
	"commentmeta",
	"comments",
	"links",
	"options",
	"postmeta",
	"posts",
	"term_relationships",
	"term_taxonomy",
	"termmeta",
	"terms",
	"usermeta",
	"users",
}

// ValidTablePrefix reports whether s is usable as a table prefix: one or
// more letters, digits, or underscores. Quotes, backticks, semicolons, and
// whitespace all fail the character test.
func ValidTablePrefix(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentChar(s[i]) {
			return false
		}
	}
	return true
}

// ValidTableName reports whether name is safe to use in a destructive
// database statement. This is a whitelist, not a sanitizer: the name must
// match the identifier grammar and end in a recognized core table stem.
// Anything else - including well-formed identifiers that are not core
// tables - is rejected.
func ValidTableName(name string) bool {
	if !ValidTablePrefix(name) {
		return false
	}
	for _, stem := range coreTableStems {
		if name == stem {
			return true
		}
		if strings.HasSuffix(name, stem) {
			return true
		}
	}
	return false
}

// CoreTableStems returns a copy of the recognized core table vocabulary.
func CoreTableStems() []string {
	out := make([]string, len(coreTableStems))
	copy(out, coreTableStems)
	return out
}

func isIdentChar(b byte) bool {
	return b == '_' ||
		(b >= '0' && b <= '9') ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z')
}
