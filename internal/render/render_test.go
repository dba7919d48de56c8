package render

import (
	"testing"

	"github.com/CaptianFluffy100/net-sentinel/internal/script"
	"github.com/CaptianFluffy100/net-sentinel/internal/value"
)

func TestRender_JSONPath(t *testing.T) {
	env := value.NewEnvironment()
	env.Set("JSON_PAYLOAD", value.String(`{"version":{"protocol":773},"players":{"online":10,"max":20}}`))

	block := &script.OutputBlock{Commands: []script.OutputCmd{
		{Kind: script.OutputJSON, Var: "JSON_PAYLOAD"},
		{Kind: script.OutputReturn, Template: "protocol=JSON_PAYLOAD.version.protocol, players=JSON_PAYLOAD.players.online"},
	}}

	got := Render(block, env, "")
	want := "protocol=773, players=10"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRender_ErrorReason(t *testing.T) {
	env := value.NewEnvironment()
	block := &script.OutputBlock{Commands: []script.OutputCmd{
		{Kind: script.OutputReturn, Template: "reason=<ERROR REASON>"},
	}}

	got := Render(block, env, "expected 0xFE, got 0xFF")
	want := "reason=expected 0xFE, got 0xFF"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRender_UnknownIdentifierLeftLiteral(t *testing.T) {
	env := value.NewEnvironment()
	block := &script.OutputBlock{Commands: []script.OutputCmd{
		{Kind: script.OutputReturn, Template: "host=HOST, unknown=NOT_BOUND"},
	}}
	env.Set("HOST", value.String("10.0.0.1"))

	got := Render(block, env, "")
	want := "host=10.0.0.1, unknown=NOT_BOUND"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRender_BoundJSONMissingKeyResolvesEmpty(t *testing.T) {
	env := value.NewEnvironment()
	env.Set("JSON_PAYLOAD", value.String(`{"version":{"protocol":773}}`))

	block := &script.OutputBlock{Commands: []script.OutputCmd{
		{Kind: script.OutputJSON, Var: "JSON_PAYLOAD"},
		{Kind: script.OutputReturn, Template: "missing=[JSON_PAYLOAD.nonexistent_key]"},
	}}

	got := Render(block, env, "")
	want := "missing=[]"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
