// Package render implements the output renderer: it selects the
// success or error output block, optionally parses a variable as JSON
// in place, and interpolates the RETURN template into the final metric
// label fragment, per spec.md §4.6.
package render

import (
	"strings"

	"github.com/CaptianFluffy100/net-sentinel/internal/script"
	"github.com/CaptianFluffy100/net-sentinel/internal/value"
)

// ErrorReasonTokens are the literal tokens spec.md §4.6 says either
// authoring convention may use for the substituted error description in
// an OUTPUT_ERROR block. Both are accepted; "ERROR" resolves through the
// normal identifier-path scan since it is bound into the environment
// below.
var ErrorReasonTokens = []string{"<ERROR REASON>"}

// Render runs an output block's commands against env and returns the
// rendered label fragment. errText is the textual error description
// (empty on success); it is bound to the ERROR variable so both the
// literal "<ERROR REASON>" token and a bare "ERROR" identifier resolve
// to it.
func Render(block *script.OutputBlock, env *value.Environment, errText string) string {
	if block == nil {
		return ""
	}
	if errText != "" {
		env.Set("ERROR", value.String(errText))
	}

	var out string
	for _, cmd := range block.Commands {
		switch cmd.Kind {
		case script.OutputJSON:
			jsonify(env, cmd.Var)
		case script.OutputReturn:
			out = renderTemplate(cmd.Template, env, errText)
		}
	}
	return out
}

// jsonify attempts to parse the named variable's string value as JSON
// in place. Failure is non-fatal: the variable is left as a plain
// string and dotted-path lookups against it simply miss, so error
// templates still render.
func jsonify(env *value.Environment, name string) {
	v, ok := env.Get(name)
	if !ok || v.Kind != value.KindString {
		return
	}
	node, err := value.ParseJSON([]byte(v.Str))
	if err != nil {
		return
	}
	env.Set(name, value.JSON(node))
}

func renderTemplate(template string, env *value.Environment, errText string) string {
	for _, tok := range ErrorReasonTokens {
		template = strings.ReplaceAll(template, tok, errText)
	}
	return value.Interpolate(template, func(path string) (string, bool) {
		v, ok := value.ResolvePath(env, path)
		if !ok {
			return "", false
		}
		return v.AsString(), true
	})
}
