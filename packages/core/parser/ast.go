package parser

import "strconv"

type File struct {
	Path      string
	Name      string
	Recording string
	Validate  bool
	Variables map[string]string
	Before    []*Hook
	After     []*Hook
	WaitFor   *WaitForConfig
	Checks    []*Check
}

// Check is one assertion against a spy, or one call of a spy.
type Check struct {
	Name string
	Spy  string
	// Call selects a single call record (0-based) instead of the whole spy.
	Call *int
	// Expect is the assertion chain, e.g. "to have always been calledWith".
	Expect string
	Count  int
	Args   []any
	// Other names the spy that calledBefore and calledAfter compare against.
	Other     string
	OtherCall *int
	Receiver  any
	Value     any
	HasValue  bool
	Message   string
	Tags      []string
	Skip      string
	Only      bool
	Line      int
}

// Hook is a shell command run before or after a file's checks.
type Hook struct {
	Command string
	// IgnoreError is set by a leading "-" on the command.
	IgnoreError bool
	Line        int
}

// WaitForConfig polls for the recording to appear before checks run.
type WaitForConfig struct {
	Path     string
	Timeout  int // milliseconds
	Interval int // milliseconds
}

type ParseError struct {
	File    string
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return e.File + ":" + strconv.Itoa(e.Line) + ":" + strconv.Itoa(e.Column) + ": " + e.Message
	}
	return "line " + strconv.Itoa(e.Line) + ": " + e.Message
}
