package value

import "regexp"

// identifierPathPattern matches a bare identifier or dotted identifier
// path ("JSON_PAYLOAD.version.protocol") anywhere in a template string.
// Go's RE2 engine is already greedy, so at each starting position this
// matches the longest maximal path, which is what the spec's
// interpolation rule requires.
var identifierPathPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*`)

// Interpolate scans template for identifier-path tokens and replaces
// each with resolve's result. Tokens resolve returns false for are left
// untouched in the output, matching the documented convention that only
// identifiers actually bound in the environment are substituted.
func Interpolate(template string, resolve func(path string) (string, bool)) string {
	return identifierPathPattern.ReplaceAllStringFunc(template, func(match string) string {
		if v, ok := resolve(match); ok {
			return v
		}
		return match
	})
}
