// Package value implements the tagged Value variant and the flat
// per-probe Environment that the packet builder, response reader, code
// evaluator, and output renderer all share.
package value

import (
	"fmt"
	"strconv"
)

// Kind tags the dynamic type carried by a Value.
type Kind int

const (
	KindUint Kind = iota
	KindInt
	KindFloat
	KindBool
	KindBytes
	KindString
	KindSequence
	KindJSON
)

func (k Kind) String() string {
	switch k {
	case KindUint:
		return "uint"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindBytes:
		return "bytes"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindJSON:
		return "json"
	default:
		return "unknown"
	}
}

// Value is the dynamically typed value stored in an Environment.
// Exactly one of the fields is meaningful, selected by Kind.
type Value struct {
	Kind  Kind
	Uint  uint64
	Int   int64
	Float float64
	Bool  bool
	Bytes []byte
	Str   string
	Seq   []Value
	JSON  *Node
}

func Uint(u uint64) Value        { return Value{Kind: KindUint, Uint: u} }
func Int(i int64) Value          { return Value{Kind: KindInt, Int: i} }
func Float(f float64) Value      { return Value{Kind: KindFloat, Float: f} }
func Bool(b bool) Value          { return Value{Kind: KindBool, Bool: b} }
func Bytes(b []byte) Value       { return Value{Kind: KindBytes, Bytes: b} }
func String(s string) Value      { return Value{Kind: KindString, Str: s} }
func Sequence(s []Value) Value   { return Value{Kind: KindSequence, Seq: s} }
func JSON(n *Node) Value         { return Value{Kind: KindJSON, JSON: n} }

// AsString renders the value the way template interpolation and string
// coercion need: numbers in base 10, bytes as lowercase hex, JSON nodes
// via their own stringification.
func (v Value) AsString() string {
	switch v.Kind {
	case KindUint:
		return strconv.FormatUint(v.Uint, 10)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindBytes:
		return fmt.Sprintf("%x", v.Bytes)
	case KindString:
		return v.Str
	case KindSequence:
		out := make([]string, len(v.Seq))
		for i, e := range v.Seq {
			out[i] = e.AsString()
		}
		return fmt.Sprint(out)
	case KindJSON:
		return v.JSON.AsString()
	default:
		return ""
	}
}

// AsInt64 returns the value's integral interpretation, if any.
func (v Value) AsInt64() (int64, bool) {
	switch v.Kind {
	case KindUint:
		return int64(v.Uint), true
	case KindInt:
		return v.Int, true
	case KindFloat:
		return int64(v.Float), true
	case KindString:
		n, err := ParseLeadingInt(v.Str)
		return n, err == nil
	case KindJSON:
		if v.JSON != nil && v.JSON.Kind == NodeNumber {
			return int64(v.JSON.Num), true
		}
	}
	return 0, false
}

// AsFloat64 returns the value's floating-point interpretation, if any.
func (v Value) AsFloat64() (float64, bool) {
	switch v.Kind {
	case KindUint:
		return float64(v.Uint), true
	case KindInt:
		return float64(v.Int), true
	case KindFloat:
		return v.Float, true
	case KindString:
		f, err := ParseLeadingFloat(v.Str)
		return f, err == nil
	case KindJSON:
		if v.JSON != nil && v.JSON.Kind == NodeNumber {
			return v.JSON.Num, true
		}
	}
	return 0, false
}

// Equal implements the equality used by the CODE evaluator's `==`/`!=`.
// Numeric kinds compare by value regardless of signedness; everything
// else compares by rendered string, matching the original's JSON-value
// comparison which does not distinguish numeric representations.
func Equal(a, b Value) bool {
	if af, aok := a.AsFloat64(); aok {
		if bf, bok := b.AsFloat64(); bok {
			return af == bf
		}
	}
	return a.AsString() == b.AsString()
}

// Index implements zero-based bracket indexing on sequences and byte
// strings, used by evalcode's `ident[expr]`.
func (v Value) Index(i int) (Value, bool) {
	switch v.Kind {
	case KindSequence:
		if i < 0 || i >= len(v.Seq) {
			return Value{}, false
		}
		return v.Seq[i], true
	case KindBytes:
		if i < 0 || i >= len(v.Bytes) {
			return Value{}, false
		}
		return Uint(uint64(v.Bytes[i])), true
	case KindJSON:
		if v.JSON != nil && v.JSON.Kind == NodeArray {
			if i < 0 || i >= len(v.JSON.Array) {
				return Value{}, false
			}
			return FromNode(v.JSON.Array[i]), true
		}
	}
	return Value{}, false
}

// FromNode lifts a JSON node into a Value, unwrapping scalar leaves into
// their natural Value kind so downstream coercion/comparison doesn't
// need to special-case JSON leaves.
func FromNode(n *Node) Value {
	if n == nil {
		return Value{Kind: KindJSON, JSON: n}
	}
	switch n.Kind {
	case NodeString:
		return String(n.Str)
	case NodeNumber:
		return Float(n.Num)
	case NodeBool:
		return Bool(n.Bool)
	case NodeNull:
		return String("")
	default:
		return JSON(n)
	}
}
