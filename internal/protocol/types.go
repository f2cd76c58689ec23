package protocol

import (
	"fmt"
	"strings"
)

// HeaderSize is the fixed command frame header: project, class, command (LE).
const HeaderSize = 4

// CommandID is the (project, class, command) key of one command.
type CommandID struct {
	Project uint8
	Class   uint8
	Command uint16
}

func (id CommandID) String() string {
	return fmt.Sprintf("%d.%d.%d", id.Project, id.Class, id.Command)
}

// ClassKey identifies every command of one class.
type ClassKey struct {
	Project uint8
	Class   uint8
}

func (id CommandID) ClassKey() ClassKey {
	return ClassKey{Project: id.Project, Class: id.Class}
}

// ArgType is the primitive wire type of one argument.
type ArgType uint8

const (
	TypeInvalid ArgType = iota
	TypeI8
	TypeU8
	TypeI16
	TypeU16
	TypeI32
	TypeU32
	TypeI64
	TypeU64
	TypeFloat
	TypeDouble
	TypeString
	TypeEnum
	TypeListFlags
)

var argTypeNames = map[ArgType]string{
	TypeI8:        "i8",
	TypeU8:        "u8",
	TypeI16:       "i16",
	TypeU16:       "u16",
	TypeI32:       "i32",
	TypeU32:       "u32",
	TypeI64:       "i64",
	TypeU64:       "u64",
	TypeFloat:     "float",
	TypeDouble:    "double",
	TypeString:    "string",
	TypeEnum:      "enum",
	TypeListFlags: "list_flags",
}

func (t ArgType) String() string {
	if name, ok := argTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// Valid reports whether t is a declared wire type.
func (t ArgType) Valid() bool {
	_, ok := argTypeNames[t]
	return ok
}

// Size returns the fixed wire width of t, or 0 for variable width strings.
func (t ArgType) Size() int {
	switch t {
	case TypeI8, TypeU8, TypeListFlags:
		return 1
	case TypeI16, TypeU16:
		return 2
	case TypeI32, TypeU32, TypeFloat, TypeEnum:
		return 4
	case TypeI64, TypeU64, TypeDouble:
		return 8
	default:
		return 0
	}
}

// Signed reports whether values of t live in Value.Int.
func (t ArgType) Signed() bool {
	switch t {
	case TypeI8, TypeI16, TypeI32, TypeI64, TypeEnum:
		return true
	}
	return false
}

// ListFlags is the per-entry bitfield carried by list commands.
type ListFlags uint8

const (
	ListFirst ListFlags = 1 << iota
	ListLast
	ListEmpty
	ListRemove
)

func (f ListFlags) Has(flag ListFlags) bool {
	return f&flag == flag
}

// First, Last and Empty account for Empty implying both ends of the list.
func (f ListFlags) First() bool { return f.Has(ListFirst) || f.Has(ListEmpty) }
func (f ListFlags) Last() bool  { return f.Has(ListLast) || f.Has(ListEmpty) }
func (f ListFlags) Empty() bool { return f.Has(ListEmpty) }

func (f ListFlags) String() string {
	if f == 0 {
		return "none"
	}
	parts := make([]string, 0, 4)
	for _, it := range []struct {
		flag ListFlags
		name string
	}{{ListFirst, "first"}, {ListLast, "last"}, {ListEmpty, "empty"}, {ListRemove, "remove"}} {
		if f.Has(it.flag) {
			parts = append(parts, it.name)
		}
	}
	if rest := f &^ (ListFirst | ListLast | ListEmpty | ListRemove); rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%02x", uint8(rest)))
	}
	return strings.Join(parts, "|")
}

// Buffer is the transport delivery class a command is declared with.
type Buffer uint8

const (
	BufferNonAck Buffer = iota
	BufferAck
	BufferHighPrio
)

func (b Buffer) String() string {
	switch b {
	case BufferNonAck:
		return "non_ack"
	case BufferAck:
		return "ack"
	case BufferHighPrio:
		return "high_prio"
	default:
		return fmt.Sprintf("buffer(%d)", uint8(b))
	}
}

// EnumValue is one named member of an enum.
type EnumValue struct {
	Name  string
	Value int32
}

// EnumSpec is a named value set backed by a 4-byte signed integer.
// Unknown is the member every unmapped integer decodes to.
type EnumSpec struct {
	Name    string
	Values  []EnumValue
	Unknown int32

	byValue map[int32]string
	byName  map[string]int32
}

// DefineEnum indexes values and records the sentinel member.
func DefineEnum(name string, unknown int32, values ...EnumValue) *EnumSpec {
	e := &EnumSpec{
		Name:    name,
		Values:  values,
		Unknown: unknown,
		byValue: make(map[int32]string, len(values)),
		byName:  make(map[string]int32, len(values)),
	}
	for _, v := range values {
		e.byValue[v.Value] = v.Name
		e.byName[strings.ToLower(v.Name)] = v.Value
	}
	return e
}

// Member reports whether v is declared.
func (e *EnumSpec) Member(v int32) bool {
	_, ok := e.byValue[v]
	return ok
}

// Resolve maps a wire integer to a declared member, falling back to Unknown.
func (e *EnumSpec) Resolve(v int32) (int32, bool) {
	if e.Member(v) {
		return v, true
	}
	return e.Unknown, false
}

// Label returns the member name for v.
func (e *EnumSpec) Label(v int32) string {
	if name, ok := e.byValue[v]; ok {
		return name
	}
	return fmt.Sprintf("%s(%d)", e.Name, v)
}

// Parse finds a member by case-insensitive name.
func (e *EnumSpec) Parse(name string) (int32, bool) {
	v, ok := e.byName[strings.ToLower(strings.TrimSpace(name))]
	return v, ok
}

// ArgumentSpec declares one positional argument.
type ArgumentSpec struct {
	Name string
	Type ArgType
	Enum *EnumSpec
}

// Default is the value an Empty list entry carries for this argument.
// Enums resolve 0 so the default is always a member.
func (a ArgumentSpec) Default() Value {
	if a.Type == TypeEnum && a.Enum != nil {
		v, _ := a.Enum.Resolve(0)
		return NewEnumValue(v)
	}
	return Zero(a.Type)
}

// CommandSpec is the authoritative shape of one command.
type CommandSpec struct {
	ID      CommandID
	Project string
	Class   string
	Name    string
	Args    []ArgumentSpec
	List    bool
	Buffer  Buffer
}

// FullName is the dotted project.class.command name.
func (s *CommandSpec) FullName() string {
	return s.Project + "." + s.Class + "." + s.Name
}

// ListFlagsIndex returns the position of the list flags argument, or -1.
func (s *CommandSpec) ListFlagsIndex() int {
	for i, a := range s.Args {
		if a.Type == TypeListFlags {
			return i
		}
	}
	return -1
}

// MinSize is the smallest encoded frame size, header included.
func (s *CommandSpec) MinSize() int {
	n := HeaderSize
	for _, a := range s.Args {
		if a.Type == TypeString {
			n++
			continue
		}
		n += a.Type.Size()
	}
	return n
}
