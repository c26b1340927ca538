package parser

import (
	"fmt"
	"regexp"

	"github.com/abdul-hamid-achik/spyspec/packages/spy"
	"gopkg.in/yaml.v3"
)

// value converts a YAML node into the Go value a check compares against.
// Mappings with a "match" key become matchers.
func (p *Parser) value(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.AliasNode:
		return p.value(node.Alias)
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return p.value(node.Content[0])
	case yaml.SequenceNode:
		out := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			v, err := p.value(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		if mappingValue(node, "match") != nil {
			return p.matcher(node)
		}
		out := make(map[string]any, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			v, err := p.value(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			out[node.Content[i].Value] = v
		}
		return out, nil
	default:
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, p.errorAt(node, err.Error())
		}
		return v, nil
	}
}

// matcher decodes a matcher literal:
//
//	{match: any}
//	{match: type, type: string}
//	{match: regexp, pattern: "^user-"}
//	{match: contains, value: "needle"}
//	{match: path, path: user.id, value: 7}
//	{match: not, value: <value or matcher>}
func (p *Parser) matcher(node *yaml.Node) (spy.Matcher, error) {
	kind := scalar(mappingValue(node, "match"))
	switch kind {
	case "any":
		return spy.Any(), nil

	case "type":
		name := scalar(mappingValue(node, "type"))
		m, ok := typeMatcher(name)
		if !ok {
			return nil, p.errorAt(node, fmt.Sprintf("unknown type %q in matcher", name))
		}
		return m, nil

	case "regexp":
		pattern := scalar(mappingValue(node, "pattern"))
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, p.errorAt(mappingValue(node, "pattern"), fmt.Sprintf("invalid pattern: %v", err))
		}
		return spy.Match(re), nil

	case "contains":
		return spy.Contains(scalar(mappingValue(node, "value"))), nil

	case "path":
		path := scalar(mappingValue(node, "path"))
		if path == "" {
			return nil, p.errorAt(node, "path matcher needs a \"path\"")
		}
		want, err := p.operand(node)
		if err != nil {
			return nil, err
		}
		return spy.Path(path, want), nil

	case "not":
		want, err := p.operand(node)
		if err != nil {
			return nil, err
		}
		if m, ok := want.(spy.Matcher); ok {
			return spy.Not(m), nil
		}
		return spy.Not(spy.Eq(want)), nil
	}
	return nil, p.errorAt(node, fmt.Sprintf("unknown matcher %q", kind))
}

func (p *Parser) operand(node *yaml.Node) (any, error) {
	v := mappingValue(node, "value")
	if v == nil {
		return nil, p.errorAt(node, "matcher needs a \"value\"")
	}
	return p.value(v)
}

// typeMatcher matches the JSON kinds a recording can hold.
func typeMatcher(name string) (spy.Matcher, bool) {
	switch name {
	case "string":
		return spy.TypeOf[string](), true
	case "boolean", "bool":
		return spy.TypeOf[bool](), true
	case "number":
		return spy.Func("type number", func(x any) bool {
			switch x.(type) {
			case int, int64, float64, float32, int32, uint, uint64, uint32:
				return true
			}
			return false
		}), true
	case "array":
		return spy.TypeOf[[]any](), true
	case "object":
		return spy.TypeOf[map[string]any](), true
	case "null":
		return spy.Func("type null", func(x any) bool { return x == nil }), true
	}
	return nil, false
}

func scalar(node *yaml.Node) string {
	if node == nil {
		return ""
	}
	if node.Kind == yaml.AliasNode && node.Alias != nil {
		return scalar(node.Alias)
	}
	return node.Value
}
