package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var parserAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Parse decodes a JSON document into a Value, keeping object members in the
// order they appear and remembering whether each number literal was integral.
func Parse(data []byte) (Value, error) {
	if !json.Valid(data) {
		return Value{}, errors.New("failed to parse config: invalid JSON document")
	}
	iter := jsoniter.ParseBytes(parserAPI, data)
	v := readValue(iter)
	if iter.Error != nil && !errors.Is(iter.Error, io.EOF) {
		return Value{}, fmt.Errorf("failed to parse config: %w", iter.Error)
	}
	return v, nil
}

// ParseString is Parse for string input.
func ParseString(s string) (Value, error) {
	return Parse([]byte(s))
}

// UnmarshalJSON lets a Value be the target of encoding/json, preserving
// member order.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MarshalJSON renders v as JSON with members in source order.
func (v Value) MarshalJSON() ([]byte, error) {
	var sb strings.Builder
	if err := v.writeJSON(&sb); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

func (v Value) writeJSON(sb *strings.Builder) error {
	switch v.kind {
	case Null:
		sb.WriteString("null")
	case Bool:
		sb.WriteString(strconv.FormatBool(v.b))
	case Int:
		sb.WriteString(strconv.FormatInt(v.i, 10))
	case Float:
		b, err := json.Marshal(v.f)
		if err != nil {
			return err
		}
		sb.Write(b)
	case String:
		b, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		sb.Write(b)
	case Array:
		sb.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				sb.WriteByte(',')
			}
			if err := item.writeJSON(sb); err != nil {
				return err
			}
		}
		sb.WriteByte(']')
	case Object:
		sb.WriteByte('{')
		for i, m := range v.obj.list {
			if i > 0 {
				sb.WriteByte(',')
			}
			key, err := json.Marshal(m.Key)
			if err != nil {
				return err
			}
			sb.Write(key)
			sb.WriteByte(':')
			if err := m.Value.writeJSON(sb); err != nil {
				return err
			}
		}
		sb.WriteByte('}')
	}
	return nil
}

func readValue(iter *jsoniter.Iterator) Value {
	switch iter.WhatIsNext() {
	case jsoniter.NilValue:
		iter.ReadNil()
		return NullValue()
	case jsoniter.BoolValue:
		return BoolValue(iter.ReadBool())
	case jsoniter.NumberValue:
		return numberValue(iter, iter.ReadNumber())
	case jsoniter.StringValue:
		return StringValue(iter.ReadString())
	case jsoniter.ArrayValue:
		items := []Value{}
		iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
			items = append(items, readValue(it))
			return it.Error == nil
		})
		return Value{kind: Array, arr: items}
	case jsoniter.ObjectValue:
		obj := &Members{index: map[string]int{}}
		iter.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
			obj.set(field, readValue(it))
			return it.Error == nil
		})
		return Value{kind: Object, obj: obj}
	default:
		if iter.Error == nil {
			iter.ReportError("readValue", "unexpected token")
		}
		return NullValue()
	}
}

func numberValue(iter *jsoniter.Iterator, n json.Number) Value {
	lit := string(n)
	if !strings.ContainsAny(lit, ".eE") {
		if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return IntValue(i)
		}
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		iter.ReportError("readNumber", fmt.Sprintf("invalid number %q", lit))
		return NullValue()
	}
	return FloatValue(f)
}
