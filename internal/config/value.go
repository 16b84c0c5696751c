package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the dynamic type held by a Value.
type Kind uint8

const (
	Null Kind = iota
	Bool
	Int
	Float
	String
	Array
	Object
)

// String returns the lower-case kind name used in error messages.
func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "str"
	case Array:
		return "list"
	case Object:
		return "dict"
	default:
		return "unknown"
	}
}

// Number is the set of numeric kinds.
var Number = []Kind{Int, Float}

// Value is one node of a decoded configuration tree.
//
// The zero Value is Null. Values are immutable once built; the accessors
// never panic and report whether the value had the requested kind.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	arr  []Value
	obj  *Members
}

// Member is one key/value pair of an object, in source order.
type Member struct {
	Key   string
	Value Value
}

// Members is an ordered set of object members.
type Members struct {
	list  []Member
	index map[string]int
}

// NullValue returns the null value.
func NullValue() Value { return Value{} }

// BoolValue wraps b.
func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }

// IntValue wraps an integral number.
func IntValue(i int64) Value { return Value{kind: Int, i: i, f: float64(i)} }

// FloatValue wraps a fractional number. The value keeps the Float kind even
// when f has no fractional part, like the literal 10.0.
func FloatValue(f float64) Value { return Value{kind: Float, f: f} }

// StringValue wraps s.
func StringValue(s string) Value { return Value{kind: String, s: s} }

// ArrayValue wraps items. The slice is copied.
func ArrayValue(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: Array, arr: cp}
}

// ObjectValue builds an object from members in the given order. A repeated
// key keeps its first position and takes the last value.
func ObjectValue(members ...Member) Value {
	m := &Members{index: make(map[string]int, len(members))}
	for _, mem := range members {
		m.set(mem.Key, mem.Value)
	}
	return Value{kind: Object, obj: m}
}

// M is shorthand for building a Member.
func M(key string, v Value) Member { return Member{Key: key, Value: v} }

func (m *Members) set(key string, v Value) {
	if i, ok := m.index[key]; ok {
		m.list[i].Value = v
		return
	}
	m.index[key] = len(m.list)
	m.list = append(m.list, Member{Key: key, Value: v})
}

// Kind reports the dynamic kind.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == Null }

// IsNumber reports whether v is an int or a float.
func (v Value) IsNumber() bool { return v.kind == Int || v.kind == Float }

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == Bool }

// AsInt returns the integral payload. Floats are not converted.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == Int }

// AsFloat returns the numeric payload of an int or a float.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case Int:
		return float64(v.i), true
	case Float:
		return v.f, true
	}
	return 0, false
}

// AsString returns the string payload.
func (v Value) AsString() (string, bool) { return v.s, v.kind == String }

// AsArray returns the array items. The returned slice must not be modified.
func (v Value) AsArray() ([]Value, bool) { return v.arr, v.kind == Array }

// Len returns the number of array items or object members, 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case Array:
		return len(v.arr)
	case Object:
		return len(v.obj.list)
	}
	return 0
}

// Get returns the member named key of an object.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != Object {
		return Value{}, false
	}
	i, ok := v.obj.index[key]
	if !ok {
		return Value{}, false
	}
	return v.obj.list[i].Value, true
}

// Has reports whether an object has a member named key.
func (v Value) Has(key string) bool {
	_, ok := v.Get(key)
	return ok
}

// Lookup returns the member named key, or def when it is absent. A member
// that is present but null is returned as null.
func (v Value) Lookup(key string, def Value) Value {
	if got, ok := v.Get(key); ok {
		return got
	}
	return def
}

// Members returns the object members in source order. The returned slice must
// not be modified.
func (v Value) Members() []Member {
	if v.kind != Object {
		return nil
	}
	return v.obj.list
}

// Keys returns the object keys in source order.
func (v Value) Keys() []string {
	members := v.Members()
	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = m.Key
	}
	return keys
}

// IsEmpty reports whether v is null, an empty object or an empty array.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case Null:
		return true
	case Array, Object:
		return v.Len() == 0
	}
	return false
}

// String renders v in a compact JSON-like form for error messages.
func (v Value) String() string {
	var sb strings.Builder
	v.write(&sb)
	return sb.String()
}

func (v Value) write(sb *strings.Builder) {
	switch v.kind {
	case Null:
		sb.WriteString("null")
	case Bool:
		sb.WriteString(strconv.FormatBool(v.b))
	case Int:
		sb.WriteString(strconv.FormatInt(v.i, 10))
	case Float:
		s := strconv.FormatFloat(v.f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEn") {
			s += ".0"
		}
		sb.WriteString(s)
	case String:
		sb.WriteString(strconv.Quote(v.s))
	case Array:
		sb.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				sb.WriteString(", ")
			}
			item.write(sb)
		}
		sb.WriteByte(']')
	case Object:
		sb.WriteByte('{')
		for i, m := range v.obj.list {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(strconv.Quote(m.Key))
			sb.WriteString(": ")
			m.Value.write(sb)
		}
		sb.WriteByte('}')
	default:
		fmt.Fprintf(sb, "<%s>", v.kind)
	}
}

// FromGo converts a tree of plain Go values (as produced by encoding/json or
// written in tests) into a Value. Maps lose their order and are emitted with
// sorted keys; use Parse when order matters.
func FromGo(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return NullValue(), nil
	case Value:
		return t, nil
	case bool:
		return BoolValue(t), nil
	case int:
		return IntValue(int64(t)), nil
	case int32:
		return IntValue(int64(t)), nil
	case int64:
		return IntValue(t), nil
	case float32:
		return FloatValue(float64(t)), nil
	case float64:
		return FloatValue(t), nil
	case string:
		return StringValue(t), nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			v, err := FromGo(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return Value{kind: Array, arr: items}, nil
	case []int:
		items := make([]Value, len(t))
		for i, n := range t {
			items[i] = IntValue(int64(n))
		}
		return Value{kind: Array, arr: items}, nil
	case []float64:
		items := make([]Value, len(t))
		for i, n := range t {
			items[i] = FloatValue(n)
		}
		return Value{kind: Array, arr: items}, nil
	case []string:
		items := make([]Value, len(t))
		for i, s := range t {
			items[i] = StringValue(s)
		}
		return Value{kind: Array, arr: items}, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		members := make([]Member, 0, len(t))
		for _, k := range keys {
			v, err := FromGo(t[k])
			if err != nil {
				return Value{}, err
			}
			members = append(members, M(k, v))
		}
		return ObjectValue(members...), nil
	}
	return Value{}, fmt.Errorf("unsupported config value of type %T", x)
}
