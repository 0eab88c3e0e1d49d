// Package safety provides the pure predicates that gate destructive
// operations: archive entry paths before extraction, and SQL identifiers
// before they are interpolated into database statements.
package safety

import "fmt"

// PathSafetyError reports an archive entry whose path would escape the
// extraction directory.
type PathSafetyError struct {
	Path string
}

func (e *PathSafetyError) Error() string {
	return fmt.Sprintf("unsafe path in archive: %q", e.Path)
}

// SafeArchivePath reports whether a relative path taken from inside an
// archive is safe to extract. It rejects:
//   - a parent-directory segment (a ".." token with a path separator, in
//     either slash direction, on both sides or at a string boundary)
//   - paths beginning with a path separator
//   - paths beginning with a drive-letter prefix (e.g. "C:\")
//
// A ".." that is part of a longer filename token ("foo..", "..rc") is
// accepted: the check targets traversal structure, not the substring.
func SafeArchivePath(name string) bool {
	if name == "" {
		return false
	}
	if isSep(name[0]) {
		return false
	}
	if len(name) >= 2 && isDriveLetter(name[0]) && name[1] == ':' {
		return false
	}
	for i := 0; i+1 < len(name); i++ {
		if name[i] != '.' || name[i+1] != '.' {
			continue
		}
		sepBefore := i == 0 || isSep(name[i-1])
		sepAfter := i+2 == len(name) || isSep(name[i+2])
		if sepBefore && sepAfter {
			return false
		}
	}
	return true
}

// CheckArchivePath is SafeArchivePath returning a *PathSafetyError instead
// of false, for callers that propagate the offending path.
func CheckArchivePath(name string) error {
	if !SafeArchivePath(name) {
		return &PathSafetyError{Path: name}
	}
	return nil
}

func isSep(b byte) bool {
	return b == '/' || b == '\\'
}

func isDriveLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
