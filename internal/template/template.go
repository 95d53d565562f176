// Package template renders node configuration templates against an
// execution context.
//
// The syntax is the handlebars subset workflow authors use in the editor:
// {{path.to.value}} interpolates a context value by dotted path, and
// {{json path.to.value}} serializes the resolved value to indented JSON.
// Numeric path segments index into arrays.
package template

import (
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/weftlabs/weft/pkg/api"
)

// Mode selects how unresolvable references are handled.
type Mode int

const (
	// Lenient renders unresolvable references as the empty string.
	// Rendering never fails in this mode. This is forgiving substitution:
	// a typo in a path silently produces empty output, which is the
	// documented trade-off for letting templates reference keys that a
	// conditional upstream node may not have produced.
	Lenient Mode = iota

	// Strict fails rendering with an UnresolvedError naming every path
	// that was absent from the context. A key that is present but holds an
	// empty value is not a diagnostic; only genuinely absent paths are.
	Strict
)

// UnresolvedError reports template paths that did not resolve against the
// context. Only returned in Strict mode.
type UnresolvedError struct {
	Paths []string
}

func (e *UnresolvedError) Error() string {
	return "unresolved template paths: " + strings.Join(e.Paths, ", ")
}

// Resolver renders templates in a fixed mode.
type Resolver struct {
	mode Mode
}

// New returns a Resolver with the given mode.
func New(mode Mode) *Resolver {
	return &Resolver{mode: mode}
}

// Render renders tmpl against ctx.
//
// Malformed templates (an opening {{ with no closing }}) are emitted
// literally; rendering itself never panics or fails in Lenient mode.
func (r *Resolver) Render(tmpl string, ctx api.Context) (string, error) {
	var (
		b       strings.Builder
		missing []string
	)

	for {
		start := strings.Index(tmpl, "{{")
		if start < 0 {
			b.WriteString(tmpl)
			break
		}
		end := strings.Index(tmpl[start:], "}}")
		if end < 0 {
			// Unterminated expression: keep the rest verbatim.
			b.WriteString(tmpl)
			break
		}
		end += start

		b.WriteString(tmpl[:start])
		expr := strings.TrimSpace(tmpl[start+2 : end])
		tmpl = tmpl[end+2:]

		asJSON := false
		if rest, ok := strings.CutPrefix(expr, "json "); ok {
			asJSON = true
			expr = strings.TrimSpace(rest)
		}

		if expr == "" {
			continue
		}

		val, found := Lookup(ctx, expr)
		if !found {
			missing = append(missing, expr)
			continue
		}
		if asJSON {
			b.WriteString(toJSON(val))
		} else {
			b.WriteString(toString(val))
		}
	}

	if r.mode == Strict && len(missing) > 0 {
		return "", &UnresolvedError{Paths: missing}
	}
	return b.String(), nil
}

// Lookup resolves a dotted path against the context. The second return
// distinguishes "key absent" from "key present but empty": an empty value
// that exists resolves found=true.
func Lookup(ctx api.Context, path string) (any, bool) {
	var cur any = map[string]any(ctx)
	for _, seg := range strings.Split(path, ".") {
		switch v := cur.(type) {
		case map[string]any:
			next, ok := v[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case api.Context:
			next, ok := v[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, false
			}
			cur = v[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// toJSON matches JSON.stringify(value, null, 2): two-space indent.
func toJSON(v any) string {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return string(out)
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any, []any, api.Context:
		// Composite values interpolated without the json helper still render
		// usefully as compact JSON.
		out, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(out)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// DecodeEntities decodes HTML entities in rendered text. Applied to content
// destined for chat webhooks, where editor-authored templates may carry
// encoded punctuation like &amp; or &quot;.
func DecodeEntities(s string) string {
	return html.UnescapeString(s)
}
