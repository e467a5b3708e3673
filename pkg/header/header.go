// Package header implements the length-prefixed field block used in bag
// record headers.
//
// A header is a concatenation of fields, each encoded as
//
//	<name>=<value_len><value>
//
// where <value_len> is a 4-byte little-endian integer and <value> is an
// opaque byte string. The codec never interprets values.
package header

import (
	"encoding/binary"

	"github.com/dd0wney/cluso-bag/pkg/pools"
)

// FieldDelim separates a field name from its length-prefixed value.
const FieldDelim = '='

// Field is a single (name, value) pair in a header block.
type Field struct {
	Name  string
	Value []byte
}

// Fields is an ordered list of header fields with map-style lookup.
type Fields []Field

// Get returns the value of the first field with the given name.
func (f Fields) Get(name string) ([]byte, bool) {
	for i := range f {
		if f[i].Name == name {
			return f[i].Value, true
		}
	}
	return nil, false
}

// EncodedLen returns the number of bytes Encode will produce.
func (f Fields) EncodedLen() int {
	n := 0
	for i := range f {
		n += len(f[i].Name) + 1 + 4 + len(f[i].Value)
	}
	return n
}

// String constructs a field with a string value.
func String(name, value string) Field {
	return Field{Name: name, Value: []byte(value)}
}

// Byte constructs a single-byte field.
func Byte(name string, value byte) Field {
	return Field{Name: name, Value: []byte{value}}
}

// Uint32 constructs a 4-byte little-endian field.
func Uint32(name string, value uint32) Field {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], value)
	return Field{Name: name, Value: b[:]}
}

// Uint64 constructs an 8-byte little-endian field.
func Uint64(name string, value uint64) Field {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], value)
	return Field{Name: name, Value: b[:]}
}

// Encode serializes the fields into a freshly pooled buffer. The returned
// slice may be handed back via pools.PutBytes once written out.
func Encode(fields Fields) []byte {
	return EncodeTo(pools.GetBytes(fields.EncodedLen()), fields)
}

// EncodeTo appends the encoded fields to buf and returns the extended slice.
func EncodeTo(buf []byte, fields Fields) []byte {
	var lenb [4]byte
	for i := range fields {
		f := &fields[i]
		buf = append(buf, f.Name...)
		buf = append(buf, FieldDelim)
		binary.LittleEndian.PutUint32(lenb[:], uint32(len(f.Value)))
		buf = append(buf, lenb[:]...)
		buf = append(buf, f.Value...)
	}
	return buf
}

// Decode parses an encoded header block back into its field list.
// It returns ErrTruncated if a field is cut short and ErrBadLength if a
// declared value length exceeds the remaining buffer.
func Decode(buf []byte) (Fields, error) {
	fields := make(Fields, 0, 8)
	for len(buf) > 0 {
		eq := -1
		for i, c := range buf {
			if c == FieldDelim {
				eq = i
				break
			}
		}
		if eq < 0 {
			return nil, ErrTruncated
		}
		name := string(buf[:eq])
		rest := buf[eq+1:]
		if len(rest) < 4 {
			return nil, ErrTruncated
		}
		vlen := binary.LittleEndian.Uint32(rest[:4])
		rest = rest[4:]
		if uint64(vlen) > uint64(len(rest)) {
			return nil, ErrBadLength
		}
		value := make([]byte, vlen)
		copy(value, rest[:vlen])
		fields = append(fields, Field{Name: name, Value: value})
		buf = rest[vlen:]
	}
	return fields, nil
}
