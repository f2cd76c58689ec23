// Package monitor keeps the latest decoded value of every command seen on a
// link, for the HTTP introspection routes and the terminal monitor.
package monitor

import (
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol"
)

// Entry is the latest state of one command id.
type Entry struct {
	ID       protocol.CommandID `json:"-"`
	Key      string             `json:"id"`
	Name     string             `json:"name"`
	Args     map[string]any     `json:"args"`
	Text     string             `json:"text"`
	Count    uint64             `json:"count"`
	LastSeen time.Time          `json:"last_seen"`
}

// Tracker records decoded commands. It is safe for concurrent use.
type Tracker struct {
	mx       sync.RWMutex
	entries  map[protocol.CommandID]Entry
	lines    []string
	maxLines int
	errors   uint64
	cb       func()
	now      func() time.Time
}

func NewTracker(maxLines int) *Tracker {
	if maxLines <= 0 {
		maxLines = 100
	}
	return &Tracker{
		entries:  make(map[protocol.CommandID]Entry),
		maxLines: maxLines,
		now:      time.Now,
	}
}

// OnChange sets a callback run after every update, outside the lock.
func (t *Tracker) OnChange(cb func()) {
	t.mx.Lock()
	t.cb = cb
	t.mx.Unlock()
}

// Observe records cmd. It copies everything it keeps.
func (t *Tracker) Observe(cmd *protocol.Command) {
	text := cmd.String()
	args := Args(cmd)
	now := t.now()

	t.mx.Lock()
	e := t.entries[cmd.ID]
	e.ID = cmd.ID
	e.Key = cmd.ID.String()
	e.Name = cmd.Name()
	e.Args = args
	e.Text = text
	e.Count++
	e.LastSeen = now
	t.entries[cmd.ID] = e
	t.appendLine(now.Format("15:04:05.000") + " " + text)
	cb := t.cb
	t.mx.Unlock()

	if cb != nil {
		cb()
	}
}

// ObserveError records a dropped frame.
func (t *Tracker) ObserveError(err error) {
	now := t.now()
	t.mx.Lock()
	t.errors++
	t.appendLine(now.Format("15:04:05.000") + " ! " + err.Error())
	cb := t.cb
	t.mx.Unlock()

	if cb != nil {
		cb()
	}
}

func (t *Tracker) appendLine(s string) {
	t.lines = append(t.lines, s)
	if len(t.lines) > t.maxLines {
		t.lines = t.lines[len(t.lines)-t.maxLines:]
	}
}

// Entries returns every tracked command ordered by id.
func (t *Tracker) Entries() []Entry {
	t.mx.RLock()
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	t.mx.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].ID, out[j].ID
		if a.Project != b.Project {
			return a.Project < b.Project
		}
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		return a.Command < b.Command
	})
	return out
}

func (t *Tracker) Get(id protocol.CommandID) (Entry, bool) {
	t.mx.RLock()
	defer t.mx.RUnlock()
	e, ok := t.entries[id]
	return e, ok
}

// Lines returns up to the n most recent log lines.
func (t *Tracker) Lines(n int) []string {
	t.mx.RLock()
	defer t.mx.RUnlock()
	if n <= 0 {
		return nil
	}
	start := 0
	if len(t.lines) > n {
		start = len(t.lines) - n
	}
	return append([]string(nil), t.lines[start:]...)
}

func (t *Tracker) Errors() uint64 {
	t.mx.RLock()
	defer t.mx.RUnlock()
	return t.errors
}

// Args maps argument names to native values, with enum members by name.
// The result always encodes as JSON: NaN and infinities become the strings
// "NaN", "+Inf" and "-Inf".
func Args(cmd *protocol.Command) map[string]any {
	out := make(map[string]any, len(cmd.Args))
	if cmd.Spec == nil {
		return out
	}
	for i, spec := range cmd.Spec.Args {
		if i >= len(cmd.Args) {
			break
		}
		v := cmd.Args[i]
		switch {
		case spec.Type == protocol.TypeEnum && spec.Enum != nil:
			out[spec.Name] = spec.Enum.Label(v.Enum())
		case spec.Type == protocol.TypeListFlags:
			out[spec.Name] = v.ListFlags().String()
		case spec.Type == protocol.TypeFloat || spec.Type == protocol.TypeDouble:
			out[spec.Name] = jsonFloat(v)
		default:
			out[spec.Name] = v.Native()
		}
	}
	return out
}

func jsonFloat(v protocol.Value) any {
	f := v.Float64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return v.Native()
}
