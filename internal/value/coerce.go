package value

import (
	"fmt"
	"strconv"
)

// ParseLeadingInt parses the leading base-10 integer prefix of s,
// tolerating trailing non-numeric characters ("616M" -> 616). This is
// how a typed INT declaration coerces a numeric-looking string.
func ParseLeadingInt(s string) (int64, error) {
	end := leadingNumberEnd(s)
	if end == 0 {
		return 0, fmt.Errorf("cannot coerce %q to int", s)
	}
	return strconv.ParseInt(s[:end], 10, 64)
}

// ParseLeadingFloat parses the leading decimal-number prefix of s,
// including an optional fractional part, tolerating a trailing suffix.
func ParseLeadingFloat(s string) (float64, error) {
	i := 0
	n := len(s)
	if i < n && (s[i] == '+' || s[i] == '-') {
		i++
	}
	start := i
	for i < n && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i < n && s[i] == '.' {
		i++
		for i < n && s[i] >= '0' && s[i] <= '9' {
			i++
		}
	}
	if i == start {
		return 0, fmt.Errorf("cannot coerce %q to float", s)
	}
	return strconv.ParseFloat(s[:i], 64)
}

func leadingNumberEnd(s string) int {
	i := 0
	n := len(s)
	if i < n && (s[i] == '+' || s[i] == '-') {
		i++
	}
	start := i
	for i < n && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == start {
		return 0
	}
	return i
}

// Coerce converts v into the requested Kind, following spec's typed
// declaration semantics: numeric strings coerce by parsing their
// leading numeric prefix, strings coerce to bytes by their raw UTF-8
// form while bytes coerce to string as lowercase hex, and coercion failure is reported as an error the caller wraps
// into a ParseError.
func Coerce(v Value, target Kind) (Value, error) {
	if v.Kind == target {
		return v, nil
	}
	switch target {
	case KindString:
		return String(v.AsString()), nil
	case KindInt:
		n, ok := v.AsInt64()
		if !ok {
			return Value{}, fmt.Errorf("cannot coerce %s to int", v.Kind)
		}
		return Int(n), nil
	case KindUint:
		n, ok := v.AsInt64()
		if !ok {
			return Value{}, fmt.Errorf("cannot coerce %s to byte/uint", v.Kind)
		}
		return Uint(uint64(n)), nil
	case KindFloat:
		f, ok := v.AsFloat64()
		if !ok {
			return Value{}, fmt.Errorf("cannot coerce %s to float", v.Kind)
		}
		return Float(f), nil
	case KindBytes:
		switch v.Kind {
		case KindString:
			return Bytes([]byte(v.Str)), nil
		case KindBytes:
			return v, nil
		}
		return Value{}, fmt.Errorf("cannot coerce %s to byte", v.Kind)
	case KindSequence:
		if v.Kind == KindSequence {
			return v, nil
		}
		return Sequence([]Value{v}), nil
	default:
		return v, nil
	}
}
