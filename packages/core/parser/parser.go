package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Extensions recognised as check files.
var Extensions = []string{".spy.yaml", ".spy.yml"}

// IsCheckFile reports whether path has a check file extension.
func IsCheckFile(path string) bool {
	lower := strings.ToLower(filepath.Base(path))
	for _, ext := range Extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

type rawFile struct {
	Name      string            `yaml:"name"`
	Recording string            `yaml:"recording"`
	Validate  bool              `yaml:"validate"`
	Variables map[string]string `yaml:"variables"`
	Before    []yaml.Node       `yaml:"before"`
	After     []yaml.Node       `yaml:"after"`
	WaitFor   *WaitForConfig    `yaml:"waitFor"`
	Checks    []yaml.Node       `yaml:"checks"`
}

type rawCheck struct {
	Name      string      `yaml:"name"`
	Spy       string      `yaml:"spy"`
	Call      *int        `yaml:"call"`
	Expect    string      `yaml:"expect"`
	Count     int         `yaml:"count"`
	Args      []yaml.Node `yaml:"args"`
	Other     string      `yaml:"other"`
	OtherCall *int        `yaml:"otherCall"`
	Receiver  yaml.Node   `yaml:"receiver"`
	Value     yaml.Node   `yaml:"value"`
	Message   string      `yaml:"message"`
	Tags      []string    `yaml:"tags"`
	Skip      string      `yaml:"skip"`
	Only      bool        `yaml:"only"`
}

var (
	fileFields    = fieldSet("name", "recording", "validate", "variables", "before", "after", "waitFor", "checks")
	waitForFields = fieldSet("path", "timeout", "interval")
	checkFields   = fieldSet("name", "spy", "call", "expect", "count", "args", "other", "otherCall", "receiver", "value", "message", "tags", "skip", "only")
)

func fieldSet(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

type Parser struct {
	file string
}

func NewParser(filename string) *Parser {
	return &Parser{file: filename}
}

func ParseFile(path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(content), path)
}

func Parse(input, filename string) (*File, error) {
	return NewParser(filename).Parse(input)
}

// Parse decodes one check file.
func (p *Parser) Parse(input string) (*File, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(input), &doc); err != nil {
		return nil, p.yamlError(err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, p.errorf(1, 1, "empty check file")
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, p.errorAt(root, "check file must be a mapping")
	}
	if err := p.checkFields(root, fileFields); err != nil {
		return nil, err
	}

	var raw rawFile
	if err := root.Decode(&raw); err != nil {
		return nil, p.yamlError(err)
	}

	file := &File{
		Path:      p.file,
		Name:      raw.Name,
		Recording: raw.Recording,
		Validate:  raw.Validate,
		Variables: raw.Variables,
		WaitFor:   raw.WaitFor,
	}
	if file.Name == "" {
		file.Name = defaultName(p.file)
	}
	if file.WaitFor != nil {
		if err := p.checkFields(mappingValue(root, "waitFor"), waitForFields); err != nil {
			return nil, err
		}
		if file.WaitFor.Path == "" {
			file.WaitFor.Path = file.Recording
		}
		if file.WaitFor.Timeout <= 0 {
			file.WaitFor.Timeout = 30000
		}
		if file.WaitFor.Interval <= 0 {
			file.WaitFor.Interval = 250
		}
	}

	var err error
	if file.Before, err = p.parseHooks(raw.Before); err != nil {
		return nil, err
	}
	if file.After, err = p.parseHooks(raw.After); err != nil {
		return nil, err
	}

	for i := range raw.Checks {
		check, err := p.parseCheck(&raw.Checks[i])
		if err != nil {
			return nil, err
		}
		file.Checks = append(file.Checks, check)
	}
	return file, nil
}

func (p *Parser) parseHooks(nodes []yaml.Node) ([]*Hook, error) {
	var hooks []*Hook
	for i := range nodes {
		node := &nodes[i]
		if node.Kind != yaml.ScalarNode {
			return nil, p.errorAt(node, "hook must be a command string")
		}
		cmd := strings.TrimSpace(node.Value)
		if cmd == "" {
			continue
		}
		hook := &Hook{Command: cmd, Line: node.Line}
		if strings.HasPrefix(cmd, "-") {
			hook.IgnoreError = true
			hook.Command = strings.TrimSpace(strings.TrimPrefix(cmd, "-"))
		}
		hooks = append(hooks, hook)
	}
	return hooks, nil
}

func (p *Parser) parseCheck(node *yaml.Node) (*Check, error) {
	if node.Kind != yaml.MappingNode {
		return nil, p.errorAt(node, "check must be a mapping")
	}
	if err := p.checkFields(node, checkFields); err != nil {
		return nil, err
	}

	var raw rawCheck
	if err := node.Decode(&raw); err != nil {
		return nil, p.yamlError(err)
	}

	if raw.Spy == "" {
		return nil, p.errorAt(node, "check is missing \"spy\"")
	}
	if strings.TrimSpace(raw.Expect) == "" {
		return nil, p.errorAt(node, "check is missing \"expect\"")
	}
	if raw.Call != nil && *raw.Call < 0 {
		return nil, p.errorAt(mappingValue(node, "call"), "call index must not be negative")
	}

	check := &Check{
		Name:      raw.Name,
		Spy:       raw.Spy,
		Call:      raw.Call,
		Expect:    strings.TrimSpace(raw.Expect),
		Count:     raw.Count,
		Other:     raw.Other,
		OtherCall: raw.OtherCall,
		Message:   raw.Message,
		Tags:      raw.Tags,
		Skip:      raw.Skip,
		Only:      raw.Only,
		Line:      node.Line,
	}
	if check.Name == "" {
		check.Name = fmt.Sprintf("%s %s", raw.Spy, check.Expect)
		if raw.Call != nil {
			check.Name = fmt.Sprintf("%s#%d %s", raw.Spy, *raw.Call, check.Expect)
		}
	}

	args := make([]any, 0, len(raw.Args))
	for i := range raw.Args {
		v, err := p.value(&raw.Args[i])
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	check.Args = args

	if raw.Receiver.Kind != 0 {
		v, err := p.value(&raw.Receiver)
		if err != nil {
			return nil, err
		}
		check.Receiver = v
	}
	if raw.Value.Kind != 0 {
		v, err := p.value(&raw.Value)
		if err != nil {
			return nil, err
		}
		check.Value = v
		check.HasValue = true
	}

	return check, nil
}

func (p *Parser) checkFields(node *yaml.Node, allowed map[string]bool) error {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		if !allowed[key.Value] {
			return p.errorAt(key, fmt.Sprintf("unknown field %q", key.Value))
		}
	}
	return nil
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func (p *Parser) errorAt(node *yaml.Node, msg string) *ParseError {
	if node == nil {
		return p.errorf(0, 0, "%s", msg)
	}
	return p.errorf(node.Line, node.Column, "%s", msg)
}

func (p *Parser) errorf(line, column int, format string, args ...any) *ParseError {
	return &ParseError{
		File:    p.file,
		Line:    line,
		Column:  column,
		Message: fmt.Sprintf(format, args...),
	}
}

// yamlError converts yaml.v3 errors, which embed "line N:" in their text,
// into a ParseError.
func (p *Parser) yamlError(err error) error {
	var typeErr *yaml.TypeError
	msg := err.Error()
	if errors.As(err, &typeErr) && len(typeErr.Errors) > 0 {
		msg = typeErr.Errors[0]
	}
	msg = strings.TrimPrefix(msg, "yaml: ")

	line := 0
	if strings.HasPrefix(msg, "line ") {
		rest := strings.TrimPrefix(msg, "line ")
		if n, after, ok := strings.Cut(rest, ":"); ok {
			if _, scanErr := fmt.Sscanf(n, "%d", &line); scanErr == nil {
				msg = strings.TrimSpace(after)
			}
		}
	}
	return p.errorf(line, 0, "%s", msg)
}

func defaultName(path string) string {
	base := filepath.Base(path)
	lower := strings.ToLower(base)
	for _, ext := range Extensions {
		if strings.HasSuffix(lower, ext) {
			return base[:len(base)-len(ext)]
		}
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
