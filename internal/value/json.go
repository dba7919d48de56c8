package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// NodeKind tags a parsed JSON document node.
type NodeKind int

const (
	NodeObject NodeKind = iota
	NodeArray
	NodeString
	NodeNumber
	NodeBool
	NodeNull
)

// Field is one key/value pair of an object node, kept in source order.
type Field struct {
	Key   string
	Value *Node
}

// Node is a JSON document node that preserves object key order, unlike
// a map[string]interface{} decode. The packet scripting language walks
// dotted paths and numeric array indices over these.
type Node struct {
	Kind   NodeKind
	Object []Field
	Array  []*Node
	Str    string
	Num    float64
	Bool   bool
}

// ParseJSON decodes data into an order-preserving Node tree.
func ParseJSON(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	n, err := decodeNode(dec)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func decodeNode(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeValue(dec, tok)
}

func decodeValue(dec *json.Decoder, tok json.Token) (*Node, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t)
		}
	case string:
		return &Node{Kind: NodeString, Str: t}, nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: NodeNumber, Num: f}, nil
	case float64:
		return &Node{Kind: NodeNumber, Num: t}, nil
	case bool:
		return &Node{Kind: NodeBool, Bool: t}, nil
	case nil:
		return &Node{Kind: NodeNull}, nil
	default:
		return nil, fmt.Errorf("unsupported JSON token %T", tok)
	}
}

func decodeObject(dec *json.Decoder) (*Node, error) {
	n := &Node{Kind: NodeObject}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %T", keyTok)
		}
		val, err := decodeNode(dec)
		if err != nil {
			return nil, err
		}
		n.Object = append(n.Object, Field{Key: key, Value: val})
	}
	// consume closing '}'
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, err
	}
	return n, nil
}

func decodeArray(dec *json.Decoder) (*Node, error) {
	n := &Node{Kind: NodeArray}
	for dec.More() {
		val, err := decodeNode(dec)
		if err != nil {
			return nil, err
		}
		n.Array = append(n.Array, val)
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, err
	}
	return n, nil
}

// Get looks up an object field by key, returning (nil, false) if n is
// not an object or the key is absent.
func (n *Node) Get(key string) (*Node, bool) {
	if n == nil || n.Kind != NodeObject {
		return nil, false
	}
	for _, f := range n.Object {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Index looks up an array element by position.
func (n *Node) Index(i int) (*Node, bool) {
	if n == nil || n.Kind != NodeArray || i < 0 || i >= len(n.Array) {
		return nil, false
	}
	return n.Array[i], true
}

// AsString renders a leaf node as text the way dotted-path substitution
// needs: strings verbatim, numbers without a trailing ".0" when
// integral, booleans as "true"/"false", null as empty, and composite
// nodes via their compact JSON form.
func (n *Node) AsString() string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case NodeString:
		return n.Str
	case NodeNumber:
		if n.Num == float64(int64(n.Num)) {
			return strconv.FormatInt(int64(n.Num), 10)
		}
		return strconv.FormatFloat(n.Num, 'g', -1, 64)
	case NodeBool:
		return strconv.FormatBool(n.Bool)
	case NodeNull:
		return ""
	default:
		b, _ := n.MarshalCompact()
		return string(b)
	}
}

// MarshalCompact renders the node as compact JSON text, preserving key
// order, for logging and debug tracing.
func (n *Node) MarshalCompact() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.writeTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *Node) writeTo(buf *bytes.Buffer) error {
	if n == nil {
		buf.WriteString("null")
		return nil
	}
	switch n.Kind {
	case NodeObject:
		buf.WriteByte('{')
		for i, f := range n.Object {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, _ := json.Marshal(f.Key)
			buf.Write(key)
			buf.WriteByte(':')
			if err := f.Value.writeTo(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case NodeArray:
		buf.WriteByte('[')
		for i, e := range n.Array {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.writeTo(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case NodeString:
		s, err := json.Marshal(n.Str)
		if err != nil {
			return err
		}
		buf.Write(s)
	case NodeNumber:
		buf.WriteString(strconv.FormatFloat(n.Num, 'g', -1, 64))
	case NodeBool:
		buf.WriteString(strconv.FormatBool(n.Bool))
	case NodeNull:
		buf.WriteString("null")
	}
	return nil
}
