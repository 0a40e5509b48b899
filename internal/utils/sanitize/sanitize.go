package sanitize

import "strings"

// Clean maps an arbitrary identity string to a token safe for filesystem
// paths and subprocess environment values. Every rune outside
// [0-9A-Za-z_-] becomes '_'. Total: never fails, length is preserved.
//
// Every caller-derived string must pass through here before it reaches a
// path or the install script.
func Clean(raw string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9':
			return r
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r == '_' || r == '-':
			return r
		}
		return '_'
	}, raw)
}
