package secokv

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/illarion/secokv/internal/codec"
)

// Kind identifies the JSON type held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is an immutable JSON value. The zero Value is null.
//
// Numbers keep their literal text, so a value read from disk is written back
// byte for byte. Composite values are copied on construction and on access;
// a Value handed to the store can't be changed behind its back.
type Value struct {
	kind Kind
	b    bool
	s    string // string contents or number literal
	arr  []Value
	obj  map[string]Value
}

// Null returns the JSON null value.
func Null() Value { return Value{} }

// Bool returns a JSON boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// String returns a JSON string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Int returns a JSON number holding n.
func Int(n int64) Value { return Value{kind: KindNumber, s: strconv.FormatInt(n, 10)} }

// Float returns a JSON number holding f. NaN and infinities have no JSON
// form; storing them fails at write time.
func Float(f float64) Value {
	return Value{kind: KindNumber, s: strconv.FormatFloat(f, 'g', -1, 64)}
}

// Number returns a JSON number from its literal text.
func Number(n json.Number) (Value, error) {
	v, err := ParseValue([]byte(n))
	if err != nil || v.kind != KindNumber {
		return Value{}, fmt.Errorf("invalid number literal %q", string(n))
	}
	return v, nil
}

// Array returns a JSON array of items.
func Array(items ...Value) Value {
	return Value{kind: KindArray, arr: slices.Clone(items)}
}

// Object returns a JSON object with the given fields.
func Object(fields map[string]Value) Value {
	obj := maps.Clone(fields)
	if obj == nil {
		obj = map[string]Value{}
	}
	return Value{kind: KindObject, obj: obj}
}

// ValueOf converts any JSON-marshalable Go value into a Value.
func ValueOf(v any) (Value, error) {
	if val, ok := v.(Value); ok {
		return val, nil
	}
	b, err := codec.Marshal(v)
	if err != nil {
		return Value{}, err
	}
	return ParseValue(b)
}

// MustValueOf is like ValueOf but panics on error.
func MustValueOf(v any) Value {
	val, err := ValueOf(v)
	if err != nil {
		panic(err)
	}
	return val
}

// ParseValue parses JSON text.
func ParseValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, err
	}
	if dec.More() {
		return Value{}, fmt.Errorf("unexpected data after JSON value")
	}
	return fromInterface(raw)
}

func fromInterface(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(x), nil
	case json.Number:
		return Value{kind: KindNumber, s: x.String()}, nil
	case string:
		return String(x), nil
	case []any:
		arr := make([]Value, len(x))
		for i, item := range x {
			v, err := fromInterface(item)
			if err != nil {
				return Value{}, err
			}
			arr[i] = v
		}
		return Value{kind: KindArray, arr: arr}, nil
	case map[string]any:
		obj := make(map[string]Value, len(x))
		for k, item := range x {
			v, err := fromInterface(item)
			if err != nil {
				return Value{}, err
			}
			obj[k] = v
		}
		return Value{kind: KindObject, obj: obj}, nil
	default:
		return Value{}, fmt.Errorf("unsupported JSON type %T", raw)
	}
}

// Kind returns the JSON type of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is JSON null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsNumber returns the number literal held by v.
func (v Value) AsNumber() (json.Number, bool) { return json.Number(v.s), v.kind == KindNumber }

// AsInt returns v as an int64 if it is an integral number in range.
func (v Value) AsInt() (int64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	n, err := strconv.ParseInt(v.s, 10, 64)
	return n, err == nil
}

// AsFloat returns v as a float64.
func (v Value) AsFloat() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.s, 64)
	return f, err == nil
}

// Len returns the number of items of an array or fields of an object.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return len(v.obj)
	default:
		return 0
	}
}

// Items returns a copy of the items of an array.
func (v Value) Items() []Value { return slices.Clone(v.arr) }

// Index returns the i-th item of an array, or null when out of range.
func (v Value) Index(i int) Value {
	if i < 0 || i >= len(v.arr) {
		return Null()
	}
	return v.arr[i]
}

// Field returns the named field of an object.
func (v Value) Field(name string) (Value, bool) {
	f, ok := v.obj[name]
	return f, ok
}

// Fields returns a copy of the fields of an object.
func (v Value) Fields() map[string]Value { return maps.Clone(v.obj) }

// Keys returns the sorted field names of an object.
func (v Value) Keys() []string { return slices.Sorted(maps.Keys(v.obj)) }

// Interface converts v to plain Go values: nil, bool, json.Number, string,
// []any or map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return json.Number(v.s)
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr))
		for i, item := range v.arr {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, item := range v.obj {
			out[k] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

// Decode unmarshals v into out, which must be a pointer.
func (v Value) Decode(out any) error {
	b, err := v.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// Equal reports whether v and o hold the same JSON value. Numbers compare by
// literal text.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber, KindString:
		return v.s == o.s
	case KindArray:
		return slices.EqualFunc(v.arr, o.arr, Value.Equal)
	case KindObject:
		return maps.EqualFunc(v.obj, o.obj, Value.Equal)
	default:
		return false
	}
}

// String returns the canonical JSON text of v.
func (v Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return "<invalid: " + err.Error() + ">"
	}
	return string(b)
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return codec.Marshal(v.Interface())
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseValue(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Document is the full key to value mapping held by a store.
type Document map[string]Value

// Clone returns a copy of d. Values are immutable, so a shallow copy is
// independent of d.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	maps.Copy(out, d)
	return out
}

// Equal reports whether d and o hold the same keys and values.
func (d Document) Equal(o Document) bool {
	return maps.EqualFunc(d, o, Value.Equal)
}

// DocumentOf converts a Go map or struct that marshals to a JSON object
// into a Document.
func DocumentOf(v any) (Document, error) {
	val, err := ValueOf(v)
	if err != nil {
		return nil, err
	}
	if val.Kind() != KindObject {
		return nil, fmt.Errorf("document must be a JSON object, got %s", val.Kind())
	}
	return Document(val.obj), nil
}

// ParseDocument parses a JSON object into a Document.
func ParseDocument(data []byte) (Document, error) {
	val, err := ParseValue(data)
	if err != nil {
		return nil, err
	}
	if val.Kind() != KindObject {
		return nil, fmt.Errorf("document must be a JSON object, got %s", val.Kind())
	}
	return Document(val.obj), nil
}
