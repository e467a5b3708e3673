package bag

import (
	"encoding/binary"
)

// Mode selects how a bag file is opened.
type Mode int

const (
	// Read opens an existing bag for random-access playback.
	Read Mode = 1 << iota
	// Write creates or truncates a bag for single-pass recording.
	Write
	// Append is reserved; Open rejects it.
	Append
)

// MsgInfo is the identity of a recorded topic: its name, datatype,
// schema fingerprint, and IDL definition. Immutable once created.
type MsgInfo struct {
	Topic    string
	Datatype string
	MD5Sum   string
	MsgDef   string
}

// IndexEntry points at one data record: the message timestamp and the byte
// offset of the record in the file.
type IndexEntry struct {
	Time Time
	Pos  uint64
}

// topicRecord couples a topic's identity with its in-memory index. The
// record pointer is handed out at admission so index appends never touch
// the topic map itself.
type topicRecord struct {
	info  *MsgInfo
	index []IndexEntry
}

// encodeIndexEntry appends the 16-byte wire form of e to buf.
func encodeIndexEntry(buf []byte, e IndexEntry) []byte {
	var b [indexEntrySize]byte
	binary.LittleEndian.PutUint32(b[0:4], e.Time.Sec)
	binary.LittleEndian.PutUint32(b[4:8], e.Time.NSec)
	binary.LittleEndian.PutUint64(b[8:16], e.Pos)
	return append(buf, b[:]...)
}

// decodeIndexEntry parses one 16-byte index entry.
func decodeIndexEntry(b []byte) IndexEntry {
	return IndexEntry{
		Time: Time{
			Sec:  binary.LittleEndian.Uint32(b[0:4]),
			NSec: binary.LittleEndian.Uint32(b[4:8]),
		},
		Pos: binary.LittleEndian.Uint64(b[8:16]),
	}
}
