package probe

import (
	"context"
	"testing"
	"time"

	"github.com/CaptianFluffy100/net-sentinel/internal/script"
	"github.com/CaptianFluffy100/net-sentinel/internal/transport"
)

// TestRun_NoExchangeScript exercises placeholder population, the CODE
// evaluator, and the output renderer without touching the network: a
// script with only a CODE block and an OUTPUT_SUCCESS block.
func TestRun_NoExchangeScript(t *testing.T) {
	scr := &script.Script{Blocks: []script.Block{
		{Kind: script.BlockCode, Code: &script.CodeBlock{Statements: []script.CodeStmt{
			{Kind: script.StmtDecl, HasType: true, DeclType: script.DeclString, Name: "greeting",
				Expr: script.Expr{Kind: script.ExprLiteralString, LiteralStr: "hello"}},
		}}},
		{Kind: script.BlockOutputSuccess, Output: &script.OutputBlock{Commands: []script.OutputCmd{
			{Kind: script.OutputReturn, Template: "host=HOST, port=PORT, msg=greeting"},
		}}},
	}}

	target := transport.Target{Host: "127.0.0.1", Port: 1234, Protocol: transport.TCP, Timeout: time.Second}

	res, err := Run(context.Background(), scr, target)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got err=%v label=%q", res.Err, res.Label)
	}
	want := "host=127.0.0.1, port=1234, msg=hello"
	if res.Label != want {
		t.Fatalf("label = %q, want %q", res.Label, want)
	}
}

func TestRun_EmptyScript(t *testing.T) {
	target := transport.Target{Host: "127.0.0.1", Port: 1234, Protocol: transport.TCP, Timeout: time.Second}
	if _, err := Run(context.Background(), &script.Script{}, target); err == nil {
		t.Fatal("expected an error for an empty script")
	}
}

// TestRun_TraceCallsPerBlock checks that a supplied trace func is
// called once per executed block, in order, naming its kind.
func TestRun_TraceCallsPerBlock(t *testing.T) {
	scr := &script.Script{Blocks: []script.Block{
		{Kind: script.BlockCode, Code: &script.CodeBlock{}},
		{Kind: script.BlockOutputSuccess, Output: &script.OutputBlock{Commands: []script.OutputCmd{
			{Kind: script.OutputReturn, Template: "ok"},
		}}},
	}}
	target := transport.Target{Host: "127.0.0.1", Port: 1234, Protocol: transport.TCP, Timeout: time.Second}

	var seen []string
	_, err := Run(context.Background(), scr, target, func(msg string) {
		seen = append(seen, msg)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"CODE", "OUTPUT_SUCCESS"}
	if len(seen) != len(want) {
		t.Fatalf("trace calls = %v, want %v", seen, want)
	}
	for i, kind := range want {
		if seen[i] != kind {
			t.Fatalf("trace call %d = %q, want %q", i, seen[i], kind)
		}
	}
}
