package bag

// Version is the bag format version this library reads and writes.
const Version = "1.2"

// VersionLine is the first line of every bag file.
const VersionLine = "#ROSRECORD V" + Version + "\n"

// Record opcodes, carried in the single-byte "op" header field.
const (
	OpMsgDef     byte = 0x01
	OpMsgData    byte = 0x02
	OpFileHeader byte = 0x03
	OpIndexData  byte = 0x04
)

// FileHeaderLength is the minimum total size of the file-header record.
// The padding lets the record be rewritten in place once the index offset
// is known.
const FileHeaderLength = 4096

// IndexVersion is the version stamped on every index-block record.
const IndexVersion uint32 = 0

// indexEntrySize is the fixed on-disk size of one index entry:
// sec(4 LE) | nsec(4 LE) | pos(8 LE).
const indexEntrySize = 16

// Header field names
const (
	opFieldName       = "op"
	topicFieldName    = "topic"
	md5FieldName      = "md5"
	typeFieldName     = "type"
	defFieldName      = "def"
	secFieldName      = "sec"
	nsecFieldName     = "nsec"
	verFieldName      = "ver"
	countFieldName    = "count"
	indexPosFieldName = "index_pos"
	latchingFieldName = "latching"
	calleridFieldName = "callerid"
)

// opName maps an opcode to its metrics label.
func opName(op byte) string {
	switch op {
	case OpMsgDef:
		return "msg_def"
	case OpMsgData:
		return "msg_data"
	case OpFileHeader:
		return "file_header"
	case OpIndexData:
		return "index_data"
	default:
		return "unknown"
	}
}
