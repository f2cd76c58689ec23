package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol"
)

// ValidationError reports a command spec the builder refused.
type ValidationError struct {
	ID     protocol.CommandID
	Name   string
	Arg    string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Arg == "" {
		return fmt.Sprintf("schema: command=%s name=%q: %s", e.ID, e.Name, e.Reason)
	}
	return fmt.Sprintf("schema: command=%s name=%q arg=%q: %s", e.ID, e.Name, e.Arg, e.Reason)
}

// Table is the immutable registry of command specs. It is never mutated
// after Build, so concurrent readers need no locking.
type Table struct {
	byID   map[protocol.CommandID]*protocol.CommandSpec
	byName map[string]protocol.CommandID
	enums  map[string]*protocol.EnumSpec
	specs  []*protocol.CommandSpec
}

// Lookup resolves a command id to its spec.
func (t *Table) Lookup(id protocol.CommandID) (*protocol.CommandSpec, bool) {
	spec, ok := t.byID[id]
	return spec, ok
}

// LookupByName resolves project, class and command names (case-insensitive).
func (t *Table) LookupByName(project, class, command string) (protocol.CommandID, bool) {
	id, ok := t.byName[nameKey(project, class, command)]
	return id, ok
}

// LookupFullName resolves a dotted project.class.command name.
func (t *Table) LookupFullName(full string) (protocol.CommandID, bool) {
	parts := strings.Split(full, ".")
	if len(parts) != 3 {
		return protocol.CommandID{}, false
	}
	return t.LookupByName(parts[0], parts[1], parts[2])
}

// Enum returns a declared enum by name.
func (t *Table) Enum(name string) (*protocol.EnumSpec, bool) {
	e, ok := t.enums[name]
	return e, ok
}

// Specs returns every spec ordered by command id.
func (t *Table) Specs() []*protocol.CommandSpec {
	out := make([]*protocol.CommandSpec, len(t.specs))
	copy(out, t.specs)
	return out
}

func (t *Table) Len() int {
	return len(t.specs)
}

// Builder collects specs and validates them into a Table.
type Builder struct {
	specs []protocol.CommandSpec
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Add queues specs for Build.
func (b *Builder) Add(specs ...protocol.CommandSpec) *Builder {
	b.specs = append(b.specs, specs...)
	return b
}

// Build validates every queued spec and freezes the table.
func (b *Builder) Build() (*Table, error) {
	t := &Table{
		byID:   make(map[protocol.CommandID]*protocol.CommandSpec, len(b.specs)),
		byName: make(map[string]protocol.CommandID, len(b.specs)),
		enums:  make(map[string]*protocol.EnumSpec),
		specs:  make([]*protocol.CommandSpec, 0, len(b.specs)),
	}
	for i := range b.specs {
		spec := cloneSpec(b.specs[i])
		if err := validateSpec(spec); err != nil {
			log.Error().Err(err).Msg("schema.Build rejected spec")
			return nil, err
		}
		if prev, ok := t.byID[spec.ID]; ok {
			return nil, ValidationError{ID: spec.ID, Name: spec.FullName(),
				Reason: fmt.Sprintf("duplicate id, already declared by %s", prev.FullName())}
		}
		key := nameKey(spec.Project, spec.Class, spec.Name)
		if prev, ok := t.byName[key]; ok {
			return nil, ValidationError{ID: spec.ID, Name: spec.FullName(),
				Reason: fmt.Sprintf("duplicate name, already declared by %s", prev)}
		}
		for _, arg := range spec.Args {
			if arg.Enum == nil {
				continue
			}
			if prev, ok := t.enums[arg.Enum.Name]; ok && prev != arg.Enum {
				return nil, ValidationError{ID: spec.ID, Name: spec.FullName(), Arg: arg.Name,
					Reason: fmt.Sprintf("enum %q declared twice", arg.Enum.Name)}
			}
			t.enums[arg.Enum.Name] = arg.Enum
		}
		t.byID[spec.ID] = spec
		t.byName[key] = spec.ID
		t.specs = append(t.specs, spec)
	}
	sort.Slice(t.specs, func(i, j int) bool {
		return lessID(t.specs[i].ID, t.specs[j].ID)
	})
	log.Debug().Int("commands", len(t.specs)).Int("enums", len(t.enums)).Msg("schema.Build ok")
	return t, nil
}

func validateSpec(spec *protocol.CommandSpec) error {
	invalid := func(arg, reason string) error {
		return ValidationError{ID: spec.ID, Name: spec.FullName(), Arg: arg, Reason: reason}
	}
	if strings.TrimSpace(spec.Project) == "" || strings.TrimSpace(spec.Class) == "" ||
		strings.TrimSpace(spec.Name) == "" {
		return invalid("", "project, class and name are required")
	}
	seen := make(map[string]struct{}, len(spec.Args))
	flags := 0
	for _, arg := range spec.Args {
		if strings.TrimSpace(arg.Name) == "" {
			return invalid(arg.Name, "argument name is required")
		}
		if _, dup := seen[arg.Name]; dup {
			return invalid(arg.Name, "duplicate argument name")
		}
		seen[arg.Name] = struct{}{}
		if !arg.Type.Valid() {
			return invalid(arg.Name, fmt.Sprintf("invalid type %s", arg.Type))
		}
		switch {
		case arg.Type == protocol.TypeEnum && arg.Enum == nil:
			return invalid(arg.Name, "enum argument without enum spec")
		case arg.Type == protocol.TypeEnum && !arg.Enum.Member(arg.Enum.Unknown):
			return invalid(arg.Name, fmt.Sprintf("enum %q sentinel %d is not a member", arg.Enum.Name, arg.Enum.Unknown))
		case arg.Type != protocol.TypeEnum && arg.Enum != nil:
			return invalid(arg.Name, "enum spec on non-enum argument")
		case arg.Type == protocol.TypeListFlags:
			flags++
		}
	}
	if spec.List && flags != 1 {
		return invalid("", fmt.Sprintf("list command needs exactly one list flags argument, has %d", flags))
	}
	if !spec.List && flags != 0 {
		return invalid("", "list flags argument on a non-list command")
	}
	return nil
}

func cloneSpec(in protocol.CommandSpec) *protocol.CommandSpec {
	out := in
	out.Args = make([]protocol.ArgumentSpec, len(in.Args))
	copy(out.Args, in.Args)
	return &out
}

func nameKey(project, class, command string) string {
	return strings.ToLower(strings.TrimSpace(project)) + "." +
		strings.ToLower(strings.TrimSpace(class)) + "." +
		strings.ToLower(strings.TrimSpace(command))
}

func lessID(a, b protocol.CommandID) bool {
	if a.Project != b.Project {
		return a.Project < b.Project
	}
	if a.Class != b.Class {
		return a.Class < b.Class
	}
	return a.Command < b.Command
}
