package protocol

import (
	"fmt"
	"strings"
)

// Command is one decoded command instance. It is owned by the dispatcher for
// the duration of one dispatch; listeners copy what they keep.
type Command struct {
	ID   CommandID
	Spec *CommandSpec
	Args []Value
}

// Name returns the dotted spec name, or the numeric id when unresolved.
func (c *Command) Name() string {
	if c.Spec == nil {
		return c.ID.String()
	}
	return c.Spec.FullName()
}

// Arg looks up an argument by declared name.
func (c *Command) Arg(name string) (Value, bool) {
	if c.Spec == nil {
		return Value{}, false
	}
	for i, a := range c.Spec.Args {
		if a.Name == name && i < len(c.Args) {
			return c.Args[i], true
		}
	}
	return Value{}, false
}

// ListFlags returns the entry flags of a list command.
func (c *Command) ListFlags() (ListFlags, bool) {
	if c.Spec == nil || !c.Spec.List {
		return 0, false
	}
	idx := c.Spec.ListFlagsIndex()
	if idx < 0 || idx >= len(c.Args) {
		return 0, false
	}
	return c.Args[idx].ListFlags(), true
}

// Validate checks arity, types and ranges against the resolved spec.
func (c *Command) Validate() error {
	if c.Spec == nil {
		return MismatchError{ID: c.ID, Reason: "command spec not resolved"}
	}
	if c.Spec.ID != c.ID {
		return MismatchError{ID: c.ID, Reason: fmt.Sprintf("spec id %s does not match", c.Spec.ID)}
	}
	if len(c.Args) != len(c.Spec.Args) {
		return MismatchError{
			ID:     c.ID,
			Reason: fmt.Sprintf("arity %d, want %d", len(c.Args), len(c.Spec.Args)),
		}
	}
	empty := false
	for i, spec := range c.Spec.Args {
		if err := c.Args[i].Fits(spec); err != nil {
			return MismatchError{ID: c.ID, Arg: spec.Name, Reason: err.Error()}
		}
		if spec.Type == TypeListFlags && c.Args[i].ListFlags().Empty() {
			empty = true
		}
	}
	if empty {
		// Decoding resets these fields, so anything else would not round-trip.
		for i, spec := range c.Spec.Args {
			if spec.Type != TypeListFlags && c.Args[i] != spec.Default() {
				return MismatchError{ID: c.ID, Arg: spec.Name, Reason: "empty list entry must carry the type default"}
			}
		}
	}
	return nil
}

// Clone returns a copy whose argument slice is not shared.
func (c *Command) Clone() *Command {
	out := &Command{ID: c.ID, Spec: c.Spec}
	if c.Args != nil {
		out.Args = make([]Value, len(c.Args))
		copy(out.Args, c.Args)
	}
	return out
}

func (c *Command) String() string {
	var b strings.Builder
	b.WriteString(c.Name())
	b.WriteByte('{')
	for i, v := range c.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		if c.Spec != nil && i < len(c.Spec.Args) {
			spec := c.Spec.Args[i]
			b.WriteString(spec.Name)
			b.WriteByte('=')
			if spec.Type == TypeEnum && spec.Enum != nil {
				b.WriteString(spec.Enum.Label(v.Enum()))
				continue
			}
		}
		b.WriteString(v.String())
	}
	b.WriteByte('}')
	return b.String()
}
