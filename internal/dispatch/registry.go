package dispatch

import (
	"sync"
	"sync/atomic"

	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol"
)

// Listener receives decoded commands. The command is only valid for the
// duration of the call.
type Listener interface {
	OnCommand(cmd *protocol.Command) error
}

// ListenerFunc adapts a plain function to Listener.
type ListenerFunc func(cmd *protocol.Command) error

func (f ListenerFunc) OnCommand(cmd *protocol.Command) error {
	return f(cmd)
}

// Token identifies one registration for Unregister.
type Token uint64

type entry struct {
	token    Token
	listener Listener
}

// routes is one immutable registry generation.
type routes struct {
	exact   map[protocol.CommandID][]entry
	classes map[protocol.ClassKey][]entry
	size    int
}

// Registry maps command ids to ordered listener lists.
//
// Writers serialize on mu and publish a fresh routes value; readers load the
// current generation without locking. Slices inside a published generation
// are never written again.
type Registry struct {
	mu      sync.Mutex
	current atomic.Pointer[routes]
	next    Token
	where   map[Token]route
}

type route struct {
	class bool
	id    protocol.CommandID
}

func NewRegistry() *Registry {
	r := &Registry{where: make(map[Token]route)}
	r.current.Store(&routes{
		exact:   map[protocol.CommandID][]entry{},
		classes: map[protocol.ClassKey][]entry{},
	})
	return r
}

// Register appends l to the delivery list of id.
func (r *Registry) Register(id protocol.CommandID, l Listener) Token {
	return r.add(route{id: id}, l)
}

// RegisterClass appends l to the wildcard list of a whole class. Class
// listeners run after the exact listeners of a command.
func (r *Registry) RegisterClass(project, class uint8, l Listener) Token {
	return r.add(route{class: true, id: protocol.CommandID{Project: project, Class: class}}, l)
}

func (r *Registry) add(at route, l Listener) Token {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	tok := r.next
	cur := r.current.Load()
	next := cur.clone()
	e := entry{token: tok, listener: l}
	if at.class {
		key := at.id.ClassKey()
		next.classes[key] = appendCopy(cur.classes[key], e)
	} else {
		next.exact[at.id] = appendCopy(cur.exact[at.id], e)
	}
	next.size++
	r.where[tok] = at
	r.current.Store(next)
	return tok
}

// Unregister removes the registration behind tok. Dispatches already running
// keep their snapshot.
func (r *Registry) Unregister(tok Token) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	at, ok := r.where[tok]
	if !ok {
		return false
	}
	delete(r.where, tok)
	cur := r.current.Load()
	next := cur.clone()
	if at.class {
		key := at.id.ClassKey()
		if list := without(cur.classes[key], tok); len(list) > 0 {
			next.classes[key] = list
		} else {
			delete(next.classes, key)
		}
	} else {
		if list := without(cur.exact[at.id], tok); len(list) > 0 {
			next.exact[at.id] = list
		} else {
			delete(next.exact, at.id)
		}
	}
	next.size--
	r.current.Store(next)
	return true
}

// Snapshot returns the listeners for id in delivery order.
func (r *Registry) Snapshot(id protocol.CommandID) []Listener {
	cur := r.current.Load()
	exact := cur.exact[id]
	class := cur.classes[id.ClassKey()]
	if len(exact)+len(class) == 0 {
		return nil
	}
	out := make([]Listener, 0, len(exact)+len(class))
	for _, e := range exact {
		out = append(out, e.listener)
	}
	for _, e := range class {
		out = append(out, e.listener)
	}
	return out
}

// Len counts live registrations.
func (r *Registry) Len() int {
	return r.current.Load().size
}

func (rt *routes) clone() *routes {
	out := &routes{
		exact:   make(map[protocol.CommandID][]entry, len(rt.exact)+1),
		classes: make(map[protocol.ClassKey][]entry, len(rt.classes)+1),
		size:    rt.size,
	}
	for k, v := range rt.exact {
		out.exact[k] = v
	}
	for k, v := range rt.classes {
		out.classes[k] = v
	}
	return out
}

func appendCopy(list []entry, e entry) []entry {
	out := make([]entry, len(list), len(list)+1)
	copy(out, list)
	return append(out, e)
}

func without(list []entry, tok Token) []entry {
	out := make([]entry, 0, len(list))
	for _, e := range list {
		if e.token != tok {
			out = append(out, e)
		}
	}
	return out
}
