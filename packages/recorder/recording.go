package recorder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateSpy is returned when a recording already holds a spy with the
// same name.
var ErrDuplicateSpy = errors.New("duplicate spy")

// Recording is a named set of spies captured together, so that call order is
// comparable between them.
type Recording struct {
	ID      string
	Created time.Time

	mu    sync.RWMutex
	spies []*Spy
	index map[string]*Spy
}

// NewRecording creates an empty recording with a fresh id.
func NewRecording() *Recording {
	return &Recording{
		ID:      uuid.NewString(),
		Created: time.Now().UTC(),
		index:   make(map[string]*Spy),
	}
}

// Add registers a spy under its name.
func (r *Recording) Add(s *Spy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.index == nil {
		r.index = make(map[string]*Spy)
	}
	if _, exists := r.index[s.name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateSpy, s.name)
	}
	r.spies = append(r.spies, s)
	r.index[s.name] = s
	return nil
}

// Spy creates and registers a new spy, or returns the existing one with that name.
func (r *Recording) Spy(name string) *Spy {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.index == nil {
		r.index = make(map[string]*Spy)
	}
	if s, ok := r.index[name]; ok {
		return s
	}
	s := New(name)
	r.spies = append(r.spies, s)
	r.index[name] = s
	return s
}

// Lookup returns the spy with the given name.
func (r *Recording) Lookup(name string) (*Spy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.index[name]
	return s, ok
}

// Spies returns the spies in the order they were added.
func (r *Recording) Spies() []*Spy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Spy, len(r.spies))
	copy(out, r.spies)
	return out
}

// Names returns the spy names in the order they were added.
func (r *Recording) Names() []string {
	spies := r.Spies()
	names := make([]string, len(spies))
	for i, s := range spies {
		names[i] = s.name
	}
	return names
}

// JSON document shape. Exceptions that are errors are stored as their message.
type recordingJSON struct {
	ID      string    `json:"id"`
	Created time.Time `json:"created"`
	Spies   []spyJSON `json:"spies"`
}

type spyJSON struct {
	ID    string     `json:"id,omitempty"`
	Name  string     `json:"name"`
	Calls []callJSON `json:"calls"`
}

type callJSON struct {
	ID         uint64  `json:"id,omitempty"`
	Args       []any   `json:"args"`
	Receiver   any     `json:"receiver,omitempty"`
	Return     any     `json:"return,omitempty"`
	Exception  any     `json:"exception,omitempty"`
	New        bool    `json:"new,omitempty"`
	DurationMs float64 `json:"durationMs,omitempty"`
}

// MarshalJSON encodes the recording in the spyspec recording format.
func (r *Recording) MarshalJSON() ([]byte, error) {
	doc := recordingJSON{
		ID:      r.ID,
		Created: r.Created,
		Spies:   make([]spyJSON, 0),
	}
	for _, s := range r.Spies() {
		sj := spyJSON{ID: s.id, Name: s.name, Calls: make([]callJSON, 0)}
		for _, c := range s.Calls() {
			args := c.args
			if args == nil {
				args = []any{}
			}
			cj := callJSON{
				ID:         c.id,
				Args:       args,
				Receiver:   c.receiver,
				Return:     c.returnValue,
				Exception:  c.exception,
				New:        c.constructed,
				DurationMs: float64(c.duration) / float64(time.Millisecond),
			}
			if err, ok := c.exception.(error); ok {
				cj.Exception = err.Error()
			}
			sj.Calls = append(sj.Calls, cj)
		}
		doc.Spies = append(doc.Spies, sj)
	}
	return json.Marshal(doc)
}

// UnmarshalJSON decodes a recording. Calls without ids are numbered in
// document order.
func (r *Recording) UnmarshalJSON(data []byte) error {
	var doc recordingJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.ID = doc.ID
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.Created = doc.Created
	r.spies = nil
	r.index = make(map[string]*Spy)

	for _, sj := range doc.Spies {
		if _, exists := r.index[sj.Name]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateSpy, sj.Name)
		}
		s := &Spy{id: sj.ID, name: sj.Name}
		if s.id == "" {
			s.id = uuid.NewString()
		}
		for _, cj := range sj.Calls {
			id := cj.ID
			if id == 0 {
				id = nextID()
			} else {
				observe(id)
			}
			s.calls = append(s.calls, newCall(s, id, Invocation{
				Args:        cj.Args,
				Receiver:    cj.Receiver,
				Return:      cj.Return,
				Exception:   cj.Exception,
				Constructed: cj.New,
				Duration:    time.Duration(cj.DurationMs * float64(time.Millisecond)),
			}))
		}
		sort.SliceStable(s.calls, func(i, j int) bool { return s.calls[i].id < s.calls[j].id })
		r.spies = append(r.spies, s)
		r.index[s.name] = s
	}
	return nil
}

// Encode writes the recording as indented JSON.
func (r *Recording) Encode(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// Decode reads a recording from JSON.
func Decode(rd io.Reader) (*Recording, error) {
	r := &Recording{}
	if err := json.NewDecoder(rd).Decode(r); err != nil {
		return nil, fmt.Errorf("decoding recording: %w", err)
	}
	return r, nil
}

// Save writes the recording to a JSON file.
func (r *Recording) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.Encode(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Load reads a recording from a JSON file.
func Load(path string) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Decode(f)
}
