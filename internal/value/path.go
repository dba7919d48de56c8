package value

import (
	"strconv"
	"strings"
)

// ResolvePath resolves a dotted identifier path ("JSON_PAYLOAD.version.protocol")
// against the environment. The first segment is a variable name; if the
// bound value is a JSON document, remaining segments walk object keys
// or, when a segment parses as a non-negative integer, array indices.
// A single-segment path with no dots is just a variable lookup.
//
// The reported ok distinguishes two distinct misses the renderer treats
// differently (spec.md §9(b)): when the base identifier itself is
// unbound, ok is false so the caller can leave the token literal. When
// the base is bound but a nested segment doesn't exist, ResolvePath
// still reports ok true and returns the empty string, so error
// templates built against a partially-shaped JSON payload still render
// instead of leaking the raw token.
func ResolvePath(env *Environment, path string) (Value, bool) {
	segments := strings.Split(path, ".")
	v, ok := env.Get(segments[0])
	if !ok {
		return Value{}, false
	}
	if len(segments) == 1 {
		return v, true
	}
	if v.Kind != KindJSON {
		return String(""), true
	}
	node := v.JSON
	for _, seg := range segments[1:] {
		if node == nil {
			return String(""), true
		}
		if idx, err := strconv.Atoi(seg); err == nil && node.Kind == NodeArray {
			n, ok := node.Index(idx)
			if !ok {
				return String(""), true
			}
			node = n
			continue
		}
		n, ok := node.Get(seg)
		if !ok {
			return String(""), true
		}
		node = n
	}
	return FromNode(node), true
}

// IsIdentifierPath reports whether s has the shape
// [A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)* used both by
// the parser's expression grammar and the renderer's template scan.
func IsIdentifierPath(s string) bool {
	if s == "" {
		return false
	}
	for _, seg := range strings.Split(s, ".") {
		if !IsIdentifier(seg) {
			return false
		}
	}
	return true
}

// IsIdentifier reports whether s matches [A-Za-z_][A-Za-z0-9_]*.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
