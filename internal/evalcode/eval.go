// Package evalcode implements the Response Reader and the CODE-block
// evaluator described in spec.md §4.5: the binary/HTTP cursor decoders
// for READ/EXPECT/SKIP commands, and the small imperative expression /
// control-flow sub-language (declarations, assignment, FOR/IF,
// SPLIT/REPLACE/CONTAINS, index access, dotted JSON path resolution).
package evalcode

import (
	"errors"
	"strings"

	"github.com/CaptianFluffy100/net-sentinel/internal/probeerr"
	"github.com/CaptianFluffy100/net-sentinel/internal/script"
	"github.com/CaptianFluffy100/net-sentinel/internal/value"
)

// errBreak is the sentinel execStmt/execStmts propagate to signal a
// BREAK statement. execFor consumes it to end the innermost loop; a
// BREAK that escapes every loop is reported by ExecuteCode as a
// ParseError.
var errBreak = errors.New("break")

// ExecuteCode runs every statement of block against env in order.
func ExecuteCode(block *script.CodeBlock, env *value.Environment) error {
	if block == nil {
		return nil
	}
	err := execStmts(block.Statements, env)
	if errors.Is(err, errBreak) {
		return probeerr.NewParseError("BREAK used outside of a FOR loop")
	}
	return err
}

func execStmts(stmts []script.CodeStmt, env *value.Environment) error {
	for _, s := range stmts {
		if err := execStmt(s, env); err != nil {
			return err
		}
	}
	return nil
}

func execStmt(s script.CodeStmt, env *value.Environment) error {
	switch s.Kind {
	case script.StmtDecl:
		v, err := evalExpr(s.Expr, env)
		if err != nil {
			return err
		}
		coerced, err := value.Coerce(v, declKind(s.DeclType))
		if err != nil {
			return probeerr.WrapParseError(err, "line %d: %s %s", s.Line, declName(s.DeclType), s.Name)
		}
		env.Set(s.Name, coerced)
		return nil
	case script.StmtAssign:
		v, err := evalExpr(s.Expr, env)
		if err != nil {
			return err
		}
		env.Set(s.Name, v)
		return nil
	case script.StmtReplace:
		return execReplace(s, env)
	case script.StmtFor:
		return execFor(s, env)
	case script.StmtIf:
		return execIf(s, env)
	case script.StmtBreak:
		return errBreak
	default:
		return probeerr.NewParseError("line %d: unknown code statement", s.Line)
	}
}

func execFor(s script.CodeStmt, env *value.Environment) error {
	seqVal, ok := env.Get(s.ForSeq)
	if !ok {
		return probeerr.NewParseError("line %d: undefined sequence %q", s.Line, s.ForSeq)
	}
	elems, err := toIterable(seqVal)
	if err != nil {
		return probeerr.WrapParseError(err, "line %d: FOR %s IN %s", s.Line, s.ForVar, s.ForSeq)
	}
	for _, elem := range elems {
		env.Set(s.ForVar, elem)
		err := execStmts(s.ForBody, env)
		if errors.Is(err, errBreak) {
			break
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func execIf(s script.CodeStmt, env *value.Environment) error {
	ok, err := evalCond(s.Cond, env)
	if err != nil {
		return err
	}
	if ok {
		return execStmts(s.Body, env)
	}
	for _, ei := range s.ElseIfs {
		ok, err := evalCond(ei.Cond, env)
		if err != nil {
			return err
		}
		if ok {
			return execStmts(ei.Body, env)
		}
	}
	if s.ElseBody != nil {
		return execStmts(s.ElseBody, env)
	}
	return nil
}

// execReplace is the statement form REPLACE(ident, a, b): it mutates
// the named variable in place. The expression form (inside another
// expression or declaration RHS) returns a new value instead; see
// evalExpr's ExprCall case.
func execReplace(s script.CodeStmt, env *value.Environment) error {
	v, ok := env.Get(s.Target)
	if !ok {
		return probeerr.NewParseError("line %d: undefined variable %q", s.Line, s.Target)
	}
	search, err := evalExpr(s.Search, env)
	if err != nil {
		return err
	}
	repl, err := evalExpr(s.Replace, env)
	if err != nil {
		return err
	}
	env.Set(s.Target, value.String(strings.ReplaceAll(v.AsString(), search.AsString(), repl.AsString())))
	return nil
}

func toIterable(v value.Value) ([]value.Value, error) {
	switch v.Kind {
	case value.KindSequence:
		return v.Seq, nil
	case value.KindJSON:
		if v.JSON != nil && v.JSON.Kind == value.NodeArray {
			out := make([]value.Value, len(v.JSON.Array))
			for i, n := range v.JSON.Array {
				out[i] = value.FromNode(n)
			}
			return out, nil
		}
	case value.KindBytes:
		out := make([]value.Value, len(v.Bytes))
		for i, b := range v.Bytes {
			out[i] = value.Uint(uint64(b))
		}
		return out, nil
	}
	return nil, probeerr.NewParseError("value of kind %s is not iterable", v.Kind)
}

func declKind(dt script.DeclType) value.Kind {
	switch dt {
	case script.DeclString:
		return value.KindString
	case script.DeclInt:
		return value.KindInt
	case script.DeclByte:
		return value.KindUint
	case script.DeclFloat:
		return value.KindFloat
	case script.DeclArray:
		return value.KindSequence
	default:
		return value.KindString
	}
}

func declName(dt script.DeclType) string {
	switch dt {
	case script.DeclString:
		return "STRING"
	case script.DeclInt:
		return "INT"
	case script.DeclByte:
		return "BYTE"
	case script.DeclFloat:
		return "FLOAT"
	case script.DeclArray:
		return "ARRAY"
	default:
		return "?"
	}
}

// evalExpr evaluates the small expression grammar: literal, identifier
// (possibly dotted path), bracket index access, array literal, and the
// SPLIT/REPLACE call forms.
func evalExpr(e script.Expr, env *value.Environment) (value.Value, error) {
	switch e.Kind {
	case script.ExprLiteralString:
		return value.String(e.LiteralStr), nil
	case script.ExprLiteralNumber:
		if e.IsInt {
			return value.Int(int64(e.LiteralNum)), nil
		}
		return value.Float(e.LiteralNum), nil
	case script.ExprIdent:
		v, ok := value.ResolvePath(env, e.Path)
		if !ok {
			return value.Value{}, probeerr.NewParseError("line %d: undefined identifier %q", e.Line, e.Path)
		}
		return v, nil
	case script.ExprIndex:
		base, ok := env.Get(e.IndexBase)
		if !ok {
			return value.Value{}, probeerr.NewParseError("line %d: undefined identifier %q", e.Line, e.IndexBase)
		}
		idxVal, err := evalExpr(*e.IndexExpr, env)
		if err != nil {
			return value.Value{}, err
		}
		idx, ok := idxVal.AsInt64()
		if !ok {
			return value.Value{}, probeerr.NewParseError("line %d: index expression is not numeric", e.Line)
		}
		elem, ok := base.Index(int(idx))
		if !ok {
			return value.Value{}, probeerr.NewParseError("line %d: index %d out of range for %q", e.Line, idx, e.IndexBase)
		}
		return elem, nil
	case script.ExprArray:
		elems := make([]value.Value, len(e.Elements))
		for i, el := range e.Elements {
			v, err := evalExpr(el, env)
			if err != nil {
				return value.Value{}, err
			}
			elems[i] = v
		}
		return value.Sequence(elems), nil
	case script.ExprCall:
		return evalCall(e, env)
	default:
		return value.Value{}, probeerr.NewParseError("line %d: unknown expression", e.Line)
	}
}

func evalCall(e script.Expr, env *value.Environment) (value.Value, error) {
	args := make([]value.Value, len(e.Args))
	for i, a := range e.Args {
		v, err := evalExpr(a, env)
		if err != nil {
			return value.Value{}, err
		}
		args[i] = v
	}
	switch e.CallName {
	case "SPLIT":
		if len(args) != 2 {
			return value.Value{}, probeerr.NewParseError("line %d: SPLIT expects 2 arguments", e.Line)
		}
		parts := strings.Split(args[0].AsString(), args[1].AsString())
		seq := make([]value.Value, len(parts))
		for i, p := range parts {
			seq[i] = value.String(p)
		}
		return value.Sequence(seq), nil
	case "REPLACE":
		if len(args) != 3 {
			return value.Value{}, probeerr.NewParseError("line %d: REPLACE expects 3 arguments", e.Line)
		}
		return value.String(strings.ReplaceAll(args[0].AsString(), args[1].AsString(), args[2].AsString())), nil
	default:
		return value.Value{}, probeerr.NewParseError("line %d: unknown call %q", e.Line, e.CallName)
	}
}

func evalCond(c script.Condition, env *value.Environment) (bool, error) {
	l, err := evalExpr(c.Left, env)
	if err != nil {
		return false, err
	}
	r, err := evalExpr(c.Right, env)
	if err != nil {
		return false, err
	}
	switch c.Op {
	case script.CondEq:
		return value.Equal(l, r), nil
	case script.CondNe:
		return !value.Equal(l, r), nil
	case script.CondContains:
		return containsOp(l, r), nil
	default:
		return compareOp(c.Op, l, r)
	}
}

func containsOp(haystack, needle value.Value) bool {
	switch haystack.Kind {
	case value.KindSequence:
		for _, e := range haystack.Seq {
			if value.Equal(e, needle) {
				return true
			}
		}
		return false
	case value.KindJSON:
		if haystack.JSON != nil && haystack.JSON.Kind == value.NodeArray {
			for _, n := range haystack.JSON.Array {
				if value.Equal(value.FromNode(n), needle) {
					return true
				}
			}
		}
		return false
	default:
		return strings.Contains(haystack.AsString(), needle.AsString())
	}
}

func compareOp(op script.CondOp, l, r value.Value) (bool, error) {
	cmp, numeric := 0, false
	if lf, lok := l.AsFloat64(); lok {
		if rf, rok := r.AsFloat64(); rok {
			cmp, numeric = compareFloat(lf, rf), true
		}
	}
	if !numeric {
		cmp = strings.Compare(l.AsString(), r.AsString())
	}
	switch op {
	case script.CondLt:
		return cmp < 0, nil
	case script.CondLe:
		return cmp <= 0, nil
	case script.CondGt:
		return cmp > 0, nil
	case script.CondGe:
		return cmp >= 0, nil
	default:
		return false, probeerr.NewParseError("unknown comparison operator")
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
