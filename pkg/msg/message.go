// Package msg defines the boundary between the bag container and the host
// messaging type system.
//
// The container never interprets message payloads. Everything it needs from
// a message type comes through the Message interface: a datatype name, a
// 32-hex-character schema fingerprint (a leading '*' means "accept any"),
// an IDL definition string, and serialize/deserialize over a byte buffer.
package msg

// Message is implemented by any type that can be recorded to or replayed
// from a bag.
type Message interface {
	// Datatype returns the fully-qualified datatype name.
	Datatype() string

	// MD5Sum returns the 32-hex-character schema fingerprint, or a value
	// with a leading '*' to skip compatibility checks.
	MD5Sum() string

	// Definition returns the IDL definition string. May be empty for
	// types recovered from legacy recordings.
	Definition() string

	// SerializedLength returns the exact number of bytes Serialize will
	// produce for the current value.
	SerializedLength() uint32

	// Serialize appends the wire form of the message to buf and returns
	// the extended slice.
	Serialize(buf []byte) []byte

	// Deserialize replaces the message value with the one decoded from
	// buf.
	Deserialize(buf []byte) error

	// ConnectionHeader returns transport metadata attached to the
	// message, or nil. Recognized keys include "latching" and
	// "callerid".
	ConnectionHeader() map[string]string

	// SetConnectionHeader attaches transport metadata to the message.
	SetConnectionHeader(hdr map[string]string)
}

// WildcardMD5 reports whether a fingerprint opts out of compatibility
// checking.
func WildcardMD5(sum string) bool {
	return len(sum) > 0 && sum[0] == '*'
}
