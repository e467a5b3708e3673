package header

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	fields := Fields{
		Byte("op", 0x02),
		String("topic", "/chatter"),
		String("md5", "0123456789abcdef0123456789abcdef"),
		Uint32("sec", 42),
		Uint64("index_pos", 4096),
	}

	buf := Encode(fields)

	decoded, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(decoded) != len(fields) {
		t.Fatalf("expected %d fields, got %d", len(fields), len(decoded))
	}
	for i := range fields {
		if decoded[i].Name != fields[i].Name {
			t.Errorf("field %d: expected name %q, got %q", i, fields[i].Name, decoded[i].Name)
		}
		if !bytes.Equal(decoded[i].Value, fields[i].Value) {
			t.Errorf("field %d (%s): value mismatch", i, fields[i].Name)
		}
	}
}

func TestDecode_PreservesOrderAndLookup(t *testing.T) {
	buf := Encode(Fields{
		String("a", "first"),
		String("b", "second"),
	})

	fields, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	v, ok := fields.Get("b")
	if !ok || string(v) != "second" {
		t.Errorf("Get(b) = %q, %v", v, ok)
	}
	if _, ok := fields.Get("missing"); ok {
		t.Error("Get(missing) should report absence")
	}
}

func TestDecode_EmptyValue(t *testing.T) {
	buf := Encode(Fields{String("def", "")})

	fields, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	v, ok := fields.Get("def")
	if !ok || len(v) != 0 {
		t.Errorf("expected present empty value, got %q, %v", v, ok)
	}
}

func TestDecode_Truncated(t *testing.T) {
	// Name with no delimiter
	if _, err := Decode([]byte("orphan")); !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated for missing delimiter, got %v", err)
	}

	// Delimiter but too few length bytes
	if _, err := Decode([]byte("op=\x01")); !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated for short length, got %v", err)
	}
}

func TestDecode_BadLength(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("topic=")
	var lenb [4]byte
	binary.LittleEndian.PutUint32(lenb[:], 1000)
	buf.Write(lenb[:])
	buf.WriteString("short")

	if _, err := Decode(buf.Bytes()); !errors.Is(err, ErrBadLength) {
		t.Errorf("expected ErrBadLength, got %v", err)
	}
}

func TestEncodedLen(t *testing.T) {
	fields := Fields{
		Byte("op", 0x01),
		String("topic", "/a"),
	}
	if got, want := fields.EncodedLen(), len(Encode(fields)); got != want {
		t.Errorf("EncodedLen() = %d, Encode produced %d bytes", got, want)
	}
}

func TestUint32Uint64Fields(t *testing.T) {
	f := Uint32("sec", 0xdeadbeef)
	if binary.LittleEndian.Uint32(f.Value) != 0xdeadbeef {
		t.Error("Uint32 field not little-endian")
	}

	g := Uint64("index_pos", 0x0102030405060708)
	if binary.LittleEndian.Uint64(g.Value) != 0x0102030405060708 {
		t.Error("Uint64 field not little-endian")
	}
}
