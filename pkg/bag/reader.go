package bag

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/dd0wney/cluso-bag/pkg/logging"
)

// readVersion parses the version line and rejects anything but the
// library's current major.minor.
func (b *Bag) readVersion() error {
	// The version line is short; read a bounded prefix and reposition
	// past the newline.
	buf := make([]byte, 64)
	n, err := b.readFile.Read(buf)
	if err != nil {
		return opError("readVersion", err)
	}
	buf = buf[:n]

	nl := -1
	for i, c := range buf {
		if c == '\n' {
			nl = i
			break
		}
	}
	if nl < 0 {
		return formatError("readVersion", "missing version line")
	}
	line := string(buf[:nl])
	if err := b.seekRead(uint64(nl + 1)); err != nil {
		return err
	}

	var major, minor int
	if _, err := fmt.Sscanf(line, "#ROSRECORD V%d.%d", &major, &minor); err != nil {
		return formatError("readVersion", "unparseable version line")
	}

	var curMajor, curMinor int
	fmt.Sscanf(Version, "%d.%d", &curMajor, &curMinor)

	// Any mismatch is rejected. The original recorder only failed when
	// both components differed, which let some incompatible versions
	// through.
	if major != curMajor || minor != curMinor {
		return opError("readVersion", fmt.Errorf("%w: %d.%d", ErrUnsupportedVersion, major, minor))
	}
	return nil
}

// readFileHeader extracts the index offset from the file-header record and
// skips its padding. A zero index offset means the bag was never closed
// and cannot be read.
func (b *Bag) readFileHeader() error {
	fields, dataLen, err := b.readRecordHeader()
	if err != nil {
		if err == io.EOF {
			return formatError("readFileHeader", "unexpected end of file")
		}
		return err
	}

	op, err := opField("readFileHeader", fields)
	if err != nil {
		return err
	}
	if op != OpFileHeader {
		return formatError("readFileHeader", "first record is not a file header")
	}

	v, err := checkField("readFileHeader", fields, indexPosFieldName, 8, 8)
	if err != nil {
		return err
	}
	b.indexDataPos = binary.LittleEndian.Uint64(v)

	if b.indexDataPos == 0 {
		return formatError("readFileHeader", "bag has no index (never closed)")
	}

	return b.skipRead(dataLen)
}

// readIndex loads every trailing index block, rebuilding the per-topic
// index maps a writer would have held.
func (b *Bag) readIndex() error {
	if err := b.seekRead(b.indexDataPos); err != nil {
		return err
	}

	for {
		fields, dataLen, err := b.readRecordHeader()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		op, err := opField("readIndex", fields)
		if err != nil {
			return err
		}
		if op != OpIndexData {
			return formatError("readIndex", "non-index record after index offset")
		}

		v, err := checkField("readIndex", fields, verFieldName, 4, 4)
		if err != nil {
			return err
		}
		if ver := binary.LittleEndian.Uint32(v); ver != IndexVersion {
			return formatError("readIndex", fmt.Sprintf("unsupported index version %d", ver))
		}

		topicVal, err := checkField("readIndex", fields, topicFieldName, 1, unboundedField)
		if err != nil {
			return err
		}
		topic := string(topicVal)

		if _, err := checkField("readIndex", fields, typeFieldName, 1, unboundedField); err != nil {
			return err
		}

		v, err = checkField("readIndex", fields, countFieldName, 4, 4)
		if err != nil {
			return err
		}
		count := binary.LittleEndian.Uint32(v)

		if uint64(count)*indexEntrySize != uint64(dataLen) {
			return topicError("readIndex", topic, fmt.Errorf("%w: index size mismatch", ErrBadFormat))
		}

		body := make([]byte, dataLen)
		if _, err := io.ReadFull(b.readFile, body); err != nil {
			return topicError("readIndex", topic, err)
		}

		rec := b.topics[topic]
		if rec == nil {
			rec = &topicRecord{}
			b.topics[topic] = rec
		}
		for i := uint32(0); i < count; i++ {
			rec.index = append(rec.index, decodeIndexEntry(body[i*indexEntrySize:]))
		}

		b.log.Debug("loaded index block", logging.Topic(topic), logging.Count(int(count)))
	}

	return nil
}

// readDefs populates MsgInfo for every indexed topic from the first
// definition record at the topic's first message position.
func (b *Bag) readDefs() error {
	for _, topic := range sortedTopics(b.topics) {
		rec := b.topics[topic]
		if len(rec.index) == 0 {
			continue
		}
		if err := b.readDef(rec.index[0].Pos); err != nil {
			return err
		}
	}
	return nil
}

// readDef reads a definition record at pos and records the topic identity
// if it is not yet known. The def field may legitimately be empty: bags
// recorded from the playback of pre-1.2 data carry no definition.
func (b *Bag) readDef(pos uint64) error {
	if err := b.seekRead(pos); err != nil {
		return err
	}

	fields, _, err := b.readRecordHeader()
	if err != nil {
		if err == io.EOF {
			return posError("readDef", pos, fmt.Errorf("%w: unexpected end of file", ErrBadFormat))
		}
		return err
	}

	op, err := opField("readDef", fields)
	if err != nil {
		return err
	}
	if op != OpMsgDef {
		return posError("readDef", pos, fmt.Errorf("%w: expected definition record", ErrBadFormat))
	}

	topicVal, err := checkField("readDef", fields, topicFieldName, 1, unboundedField)
	if err != nil {
		return err
	}
	topic := string(topicVal)

	md5Val, err := checkField("readDef", fields, md5FieldName, 32, 32)
	if err != nil {
		return err
	}

	typeVal, err := checkField("readDef", fields, typeFieldName, 1, unboundedField)
	if err != nil {
		return err
	}

	defVal, err := checkField("readDef", fields, defFieldName, 0, unboundedField)
	if err != nil {
		return err
	}

	rec := b.topics[topic]
	if rec == nil {
		rec = &topicRecord{}
		b.topics[topic] = rec
	}
	// Readers take the first definition found for a topic.
	if rec.info == nil {
		rec.info = &MsgInfo{
			Topic:    topic,
			Datatype: string(typeVal),
			MD5Sum:   string(md5Val),
			MsgDef:   string(defVal),
		}
	}
	return nil
}
