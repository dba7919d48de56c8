package evalcode

import (
	"testing"

	"github.com/CaptianFluffy100/net-sentinel/internal/probeerr"
	"github.com/CaptianFluffy100/net-sentinel/internal/script"
	"github.com/CaptianFluffy100/net-sentinel/internal/value"
)

func ident(path string) script.Expr { return script.Expr{Kind: script.ExprIdent, Path: path} }
func lit(s string) script.Expr      { return script.Expr{Kind: script.ExprLiteralString, LiteralStr: s} }
func call(name string, args ...script.Expr) script.Expr {
	return script.Expr{Kind: script.ExprCall, CallName: name, Args: args}
}
func index(base string, idx int) script.Expr {
	ie := script.Expr{Kind: script.ExprLiteralNumber, LiteralNum: float64(idx), IsInt: true}
	return script.Expr{Kind: script.ExprIndex, IndexBase: base, IndexExpr: &ie}
}

// TestExecuteCode_SplitReplacePipeline exercises spec.md's RAM-string
// scenario: SPLIT twice, REPLACE, coerce to INT, yielding exactly 928.
func TestExecuteCode_SplitReplacePipeline(t *testing.T) {
	env := value.NewEnvironment()
	env.Set("s", value.String("RAM: 928M/1120M (max. 10240M)"))

	block := &script.CodeBlock{Statements: []script.CodeStmt{
		{Kind: script.StmtDecl, HasType: true, DeclType: script.DeclArray, Name: "step1", Expr: call("SPLIT", ident("s"), lit("RAM: "))},
		{Kind: script.StmtDecl, HasType: true, DeclType: script.DeclString, Name: "rest", Expr: index("step1", 1)},
		{Kind: script.StmtDecl, HasType: true, DeclType: script.DeclArray, Name: "step2", Expr: call("SPLIT", ident("rest"), lit("/"))},
		{Kind: script.StmtDecl, HasType: true, DeclType: script.DeclString, Name: "used", Expr: index("step2", 0)},
		{Kind: script.StmtReplace, Target: "used", Search: lit("M"), Replace: lit("")},
		{Kind: script.StmtDecl, HasType: true, DeclType: script.DeclInt, Name: "memUsed", Expr: ident("used")},
	}}

	if err := ExecuteCode(block, env); err != nil {
		t.Fatalf("ExecuteCode: %v", err)
	}
	got, ok := env.Get("memUsed")
	if !ok || got.Kind != value.KindInt || got.Int != 928 {
		t.Fatalf("memUsed = %+v, want int 928", got)
	}
}

func TestExecuteCode_ForOverSplit(t *testing.T) {
	env := value.NewEnvironment()
	env.Set("s", value.String("a,b,c"))
	block := &script.CodeBlock{Statements: []script.CodeStmt{
		{Kind: script.StmtDecl, HasType: true, DeclType: script.DeclArray, Name: "parts", Expr: call("SPLIT", ident("s"), lit(","))},
		{Kind: script.StmtDecl, HasType: true, DeclType: script.DeclString, Name: "acc", Expr: lit("")},
		{Kind: script.StmtFor, ForVar: "p", ForSeq: "parts", ForBody: []script.CodeStmt{
			{Kind: script.StmtAssign, Name: "acc", Expr: ident("p")},
		}},
	}}
	if err := ExecuteCode(block, env); err != nil {
		t.Fatalf("ExecuteCode: %v", err)
	}
	got, _ := env.Get("acc")
	if got.AsString() != "c" {
		t.Fatalf("acc = %q, want %q (last element of the loop)", got.AsString(), "c")
	}
}

func TestExecuteBinaryResponse_ExpectByteMismatch(t *testing.T) {
	cur := &BinaryCursor{Data: []byte{0xFF, 0xFD}}
	block := &script.ResponseBlock{Reads: []script.ReadCommand{
		{Op: script.ExpectByteOp, ExpectByte: 0xFE},
	}}
	err := ExecuteBinaryResponse(block, cur, value.NewEnvironment())
	if err == nil {
		t.Fatal("expected a validation error")
	}
	var verr *probeerr.ValidationError
	if !asValidationError(err, &verr) {
		t.Fatalf("got %v (%T), want *probeerr.ValidationError", err, err)
	}
}

func asValidationError(err error, target **probeerr.ValidationError) bool {
	ve, ok := err.(*probeerr.ValidationError)
	if ok {
		*target = ve
	}
	return ok
}

func TestExecuteBinaryResponse_InsufficientData(t *testing.T) {
	cur := &BinaryCursor{Data: []byte{}}
	block := &script.ResponseBlock{Reads: []script.ReadCommand{
		{Op: script.ExpectByteOp, ExpectByte: 0xFE},
	}}
	err := ExecuteBinaryResponse(block, cur, value.NewEnvironment())
	if _, ok := err.(*probeerr.ParseError); !ok {
		t.Fatalf("got %v (%T), want *probeerr.ParseError", err, err)
	}
}
