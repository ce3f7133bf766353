// Package template parses the §6 parameter reference grammar into a small
// AST (Template). Only string parameter values are scanned; every other Go
// type is a literal. Compiled Templates are not cached: the executor
// compiles a parameter each time it dispatches the node, and the validator
// compiles required parameters at deploy time only to report syntax errors.
package template

import (
	"fmt"
	"strconv"
	"strings"
)

// RefKind discriminates which of the four reference forms a Ref names.
type RefKind int

const (
	RefNode RefKind = iota
	RefFlowVar
	RefFlowSecret
	RefInput
)

// Ref is one `{{ ... }}` reference resolved at dispatch time.
type Ref struct {
	Kind   RefKind
	NodeID string // set only for RefNode
	Path   string // json-pointer-ish dotted path; key name for vars/secrets
}

// segment is either literal text or a single reference.
type segment struct {
	literal string
	ref     *Ref
}

// Template is the compiled form of one parameter value. A Template with a
// single ref segment and no literal text resolves to the referenced value's
// native type; any other shape resolves to a string by concatenation.
type Template struct {
	raw      string
	segments []segment
}

// Source is implemented by Compile's caller needs to resolve references
// against: upstream node outputs, flow variables, revealed secrets, and the
// execution's initial input.
type Source interface {
	NodeOutput(nodeID string) (any, bool)
	Variable(key string) (any, bool)
	Secret(key string) (string, bool)
	Input() any
}

// IsTemplated reports whether s contains an unescaped `{{`.
func IsTemplated(s string) bool {
	for i := 0; i < len(s); {
		idx := strings.Index(s[i:], "{{")
		if idx == -1 {
			return false
		}
		pos := i + idx
		if pos == 0 || s[pos-1] != '\\' {
			return true
		}
		i = pos + 2
	}
	return false
}

// Compile parses raw into a Template. Literal text is passed through
// unchanged; `\{{` is unescaped to a literal `{{`.
func Compile(raw string) (*Template, error) {
	t := &Template{raw: raw}
	i := 0
	for i < len(raw) {
		// handle escape first
		if strings.HasPrefix(raw[i:], `\{{`) {
			t.appendLiteral("{{")
			i += 3
			continue
		}
		open := strings.Index(raw[i:], "{{")
		if open == -1 {
			t.appendLiteral(raw[i:])
			break
		}
		if open > 0 && raw[i+open-1] == '\\' {
			t.appendLiteral(raw[i : i+open-1])
			t.appendLiteral("{{")
			i += open + 2
			continue
		}
		if open > 0 {
			t.appendLiteral(raw[i : i+open])
		}
		start := i + open + 2
		close := strings.Index(raw[start:], "}}")
		if close == -1 {
			return nil, fmt.Errorf("template: unterminated reference in %q", raw)
		}
		exprText := strings.TrimSpace(raw[start : start+close])
		ref, err := parseRef(exprText)
		if err != nil {
			return nil, fmt.Errorf("template: %w in %q", err, raw)
		}
		t.segments = append(t.segments, segment{ref: ref})
		i = start + close + 2
	}
	return t, nil
}

func (t *Template) appendLiteral(s string) {
	if s == "" {
		return
	}
	t.segments = append(t.segments, segment{literal: s})
}

func parseRef(expr string) (*Ref, error) {
	if !strings.HasPrefix(expr, "$") {
		return nil, fmt.Errorf("reference must start with '$': %q", expr)
	}
	parts := strings.SplitN(expr[1:], ".", 2)
	switch parts[0] {
	case "nodes":
		if len(parts) != 2 {
			return nil, fmt.Errorf("$nodes reference missing node id/path: %q", expr)
		}
		rest := strings.SplitN(parts[1], ".", 2)
		nodeID := rest[0]
		path := ""
		if len(rest) == 2 {
			path = rest[1]
		}
		return &Ref{Kind: RefNode, NodeID: nodeID, Path: path}, nil
	case "flow":
		if len(parts) != 2 {
			return nil, fmt.Errorf("$flow reference missing vars/secrets: %q", expr)
		}
		rest := strings.SplitN(parts[1], ".", 2)
		if len(rest) != 2 {
			return nil, fmt.Errorf("$flow reference missing key: %q", expr)
		}
		switch rest[0] {
		case "vars":
			return &Ref{Kind: RefFlowVar, Path: rest[1]}, nil
		case "secrets":
			return &Ref{Kind: RefFlowSecret, Path: rest[1]}, nil
		default:
			return nil, fmt.Errorf("unknown $flow.%s reference: %q", rest[0], expr)
		}
	case "input":
		path := ""
		if len(parts) == 2 {
			path = parts[1]
		}
		return &Ref{Kind: RefInput, Path: path}, nil
	default:
		return nil, fmt.Errorf("unknown reference root $%s: %q", parts[0], expr)
	}
}

// Resolve evaluates the template against src. When the template is exactly
// one reference with no surrounding literal text, the referenced value's
// native type is returned; otherwise segments are stringified and
// concatenated.
func (t *Template) Resolve(src Source) (any, error) {
	if len(t.segments) == 1 && t.segments[0].ref != nil {
		return resolveRef(t.segments[0].ref, src)
	}
	var b strings.Builder
	for _, seg := range t.segments {
		if seg.ref == nil {
			b.WriteString(seg.literal)
			continue
		}
		v, err := resolveRef(seg.ref, src)
		if err != nil {
			return nil, err
		}
		b.WriteString(stringify(v))
	}
	return b.String(), nil
}

func resolveRef(ref *Ref, src Source) (any, error) {
	switch ref.Kind {
	case RefNode:
		out, ok := src.NodeOutput(ref.NodeID)
		if !ok {
			return nil, nil
		}
		return projectPath(out, ref.Path), nil
	case RefFlowVar:
		v, ok := src.Variable(ref.Path)
		if !ok {
			return nil, nil
		}
		return v, nil
	case RefFlowSecret:
		v, ok := src.Secret(ref.Path)
		if !ok {
			return nil, nil
		}
		return v, nil
	case RefInput:
		return projectPath(src.Input(), ref.Path), nil
	default:
		return nil, fmt.Errorf("unknown ref kind")
	}
}

// projectPath walks a dotted path (the "json-pointer" the spec names,
// expressed here as dot-separated keys and optional [index] segments) into
// a value built from maps/slices as produced by node outputs.
func projectPath(v any, path string) any {
	if path == "" {
		return v
	}
	cur := v
	for _, part := range strings.Split(path, ".") {
		if cur == nil {
			return nil
		}
		name, idx, hasIdx := splitIndex(part)
		if name != "" {
			m, ok := cur.(map[string]any)
			if !ok {
				return nil
			}
			cur, ok = m[name]
			if !ok {
				return nil
			}
		}
		if hasIdx {
			s, ok := cur.([]any)
			if !ok || idx < 0 || idx >= len(s) {
				return nil
			}
			cur = s[idx]
		}
	}
	return cur
}

func splitIndex(part string) (name string, idx int, hasIdx bool) {
	open := strings.Index(part, "[")
	if open == -1 {
		return part, 0, false
	}
	closeB := strings.Index(part, "]")
	if closeB == -1 || closeB < open {
		return part, 0, false
	}
	n, err := strconv.Atoi(part[open+1 : closeB])
	if err != nil {
		return part, 0, false
	}
	return part[:open], n, true
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}
