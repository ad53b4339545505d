package main

import "strconv"

// Kind discriminates the wire value variants carried by the protocol:
// arrays, integers, simple strings, bulk strings, nulls, and errors.
type Kind int

const (
	KindInteger Kind = iota
	KindSimpleString
	KindBulkString
	KindNullBulkString
	KindNullArray
	KindError
	KindArray
)

// Value is the tagged union of everything the wire format can carry.
// Only the fields relevant to Kind are meaningful; e.g. Items is only
// populated for KindArray.
type Value struct {
	Kind  Kind
	Int   int64
	Str   string
	Items []Value
}

func IntegerValue(n int64) Value       { return Value{Kind: KindInteger, Int: n} }
func SimpleStringValue(s string) Value { return Value{Kind: KindSimpleString, Str: s} }
func BulkStringValue(s string) Value   { return Value{Kind: KindBulkString, Str: s} }
func NullBulkStringValue() Value       { return Value{Kind: KindNullBulkString} }
func NullArrayValue() Value            { return Value{Kind: KindNullArray} }
func ErrorValue(msg string) Value      { return Value{Kind: KindError, Str: msg} }
func ArrayValue(items []Value) Value   { return Value{Kind: KindArray, Items: items} }

// Format produces the canonical byte encoding of v. The formatter is
// total: every well-formed Value yields bytes, never an error.
func (v Value) Format() []byte {
	return v.appendTo(make([]byte, 0, 32))
}

func (v Value) appendTo(buf []byte) []byte {
	switch v.Kind {
	case KindInteger:
		buf = append(buf, ':')
		buf = strconv.AppendInt(buf, v.Int, 10)
		buf = append(buf, '\r', '\n')
	case KindSimpleString:
		buf = append(buf, '+')
		buf = append(buf, v.Str...)
		buf = append(buf, '\r', '\n')
	case KindError:
		buf = append(buf, '-')
		buf = append(buf, v.Str...)
		buf = append(buf, '\r', '\n')
	case KindBulkString:
		buf = append(buf, '$')
		buf = strconv.AppendInt(buf, int64(len(v.Str)), 10)
		buf = append(buf, '\r', '\n')
		buf = append(buf, v.Str...)
		buf = append(buf, '\r', '\n')
	case KindNullBulkString:
		buf = append(buf, '$', '-', '1', '\r', '\n')
	case KindNullArray:
		buf = append(buf, '*', '-', '1', '\r', '\n')
	case KindArray:
		buf = append(buf, '*')
		buf = strconv.AppendInt(buf, int64(len(v.Items)), 10)
		buf = append(buf, '\r', '\n')
		for _, item := range v.Items {
			buf = item.appendTo(buf)
		}
	}
	return buf
}
