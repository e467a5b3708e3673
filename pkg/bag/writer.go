package bag

import (
	"time"

	"github.com/dd0wney/cluso-bag/pkg/header"
	"github.com/dd0wney/cluso-bag/pkg/logging"
	"github.com/dd0wney/cluso-bag/pkg/msg"
)

// writeVersion emits the ASCII version line.
func (b *Bag) writeVersion() error {
	return b.writefil([]byte(VersionLine))
}

// writeFileHeader emits the file-header record at the current position,
// padded so its total size is at least FileHeaderLength. The padding lets
// the record be rewritten in place at close, when indexDataPos is known.
func (b *Bag) writeFileHeader() error {
	b.recordMu.Lock()
	defer b.recordMu.Unlock()

	b.fileHeaderPos = b.recordPos

	fields := header.Fields{
		header.Byte(opFieldName, OpFileHeader),
		header.Uint64(indexPosFieldName, b.indexDataPos),
	}

	headerLen := fields.EncodedLen()
	var dataLen uint32
	if headerLen < FileHeaderLength {
		dataLen = uint32(FileHeaderLength - headerLen)
	}
	if err := b.writeHeader(fields, dataLen); err != nil {
		return err
	}
	if dataLen > 0 {
		padding := make([]byte, dataLen)
		for i := range padding {
			padding[i] = ' '
		}
		if err := b.writefil(padding); err != nil {
			return err
		}
	}
	return nil
}

// Write serializes one message and appends it to the bag under the given
// topic and timestamp. The first message on a topic also records the
// topic's message definition. Safe for concurrent producers.
func (b *Bag) Write(topic string, t Time, m msg.Message) error {
	if b.writeFile == nil || !b.writeMode() {
		return topicError("write", topic, ErrNotOpen)
	}

	if !b.writingCheck() {
		b.met.RecordDiscard()
		return nil
	}

	start := time.Now()

	// Topic admission: first writer wins; later writers see a populated
	// record.
	b.topicsMu.Lock()
	rec, ok := b.topics[topic]
	if !ok {
		rec = &topicRecord{info: &MsgInfo{
			Topic:    topic,
			Datatype: m.Datatype(),
			MD5Sum:   m.MD5Sum(),
			MsgDef:   m.Definition(),
		}}
		b.topics[topic] = rec
	}
	info := rec.info
	b.topicsMu.Unlock()

	b.maybeCheckDisk()

	// Latching and callerid pass through from the connection header.
	latching := false
	callerid := ""
	if hdr := m.ConnectionHeader(); hdr != nil {
		if v, ok := hdr[latchingFieldName]; ok && v != "0" {
			latching = true
		}
		callerid = hdr[calleridFieldName]
	}

	b.recordMu.Lock()
	defer b.recordMu.Unlock()

	// The definition record goes with whichever message on the topic is
	// emitted first, so it always precedes the topic's first data record.
	needsDef := len(rec.index) == 0

	// The index entry is appended before any bytes are written so that
	// Pos names the next record to be emitted.
	rec.index = append(rec.index, IndexEntry{Time: t, Pos: b.recordPos})
	b.met.SetIndexEntries(topic, len(rec.index))

	if needsDef {
		defFields := header.Fields{
			header.Byte(opFieldName, OpMsgDef),
			header.String(topicFieldName, topic),
			header.String(md5FieldName, info.MD5Sum),
			header.String(typeFieldName, info.Datatype),
			header.String(defFieldName, info.MsgDef),
		}
		if err := b.writeHeader(defFields, 0); err != nil {
			b.log.Error("failed to write definition record", logging.Topic(topic), logging.Error(err))
			return topicError("write", topic, err)
		}
		b.met.RecordsWrittenTotal.WithLabelValues(opName(OpMsgDef)).Inc()
	}

	length := m.SerializedLength()
	b.growMessageBuf(int(length))
	payload := m.Serialize(b.messageBuf[:0])

	dataFields := header.Fields{
		header.Byte(opFieldName, OpMsgData),
		header.String(topicFieldName, topic),
		header.String(md5FieldName, info.MD5Sum),
		header.String(typeFieldName, info.Datatype),
		header.Uint32(secFieldName, t.Sec),
		header.Uint32(nsecFieldName, t.NSec),
	}
	if latching {
		dataFields = append(dataFields,
			header.String(latchingFieldName, "1"),
			header.String(calleridFieldName, callerid),
		)
	}

	if err := b.writeRecord(dataFields, payload); err != nil {
		b.log.Error("failed to write data record", logging.Topic(topic), logging.Error(err))
		return topicError("write", topic, err)
	}

	b.met.RecordWrite(opName(OpMsgData), uint64(length), time.Since(start))
	return nil
}

// WriteInstance copies a message yielded by another bag's view into this
// bag without knowing its concrete type.
func (b *Bag) WriteInstance(topic string, t Time, mi MessageInstance) error {
	raw := msg.NewRawMessage(mi.Datatype(), mi.MD5Sum(), mi.Def(), nil)
	if ok, err := mi.Instantiate(raw); err != nil {
		return err
	} else if !ok {
		return topicError("write", topic, ErrInvalidPosition)
	}
	return b.Write(topic, t, raw)
}

// writingCheck reports whether writes are enabled, logging a rate-limited
// warning while they are not.
func (b *Bag) writingCheck() bool {
	b.diskMu.Lock()
	defer b.diskMu.Unlock()

	if b.writingEnabled {
		return true
	}
	now := time.Now()
	if now.After(b.warnNext) {
		b.warnNext = now.Add(b.cfg.WarnInterval)
		b.log.Warn("not logging message because logging disabled; most likely cause is a full disk")
	}
	return false
}

// writeIndex emits one index-block record per topic, then rewrites the
// file header in place with the index offset.
func (b *Bag) writeIndex() error {
	b.recordMu.Lock()

	b.indexDataPos = b.recordPos

	b.topicsMu.Lock()
	topics := sortedTopics(b.topics)
	recs := make(map[string]*topicRecord, len(topics))
	for _, topic := range topics {
		recs[topic] = b.topics[topic]
	}
	b.topicsMu.Unlock()

	for _, topic := range topics {
		topicIndex := recs[topic].index
		info := recs[topic].info

		fields := header.Fields{
			header.Byte(opFieldName, OpIndexData),
			header.String(topicFieldName, topic),
			header.String(typeFieldName, info.Datatype),
			header.Uint32(verFieldName, IndexVersion),
			header.Uint32(countFieldName, uint32(len(topicIndex))),
		}

		body := make([]byte, 0, len(topicIndex)*indexEntrySize)
		for _, entry := range topicIndex {
			body = encodeIndexEntry(body, entry)
		}

		if err := b.writeRecord(fields, body); err != nil {
			b.recordMu.Unlock()
			return topicError("writeIndex", topic, err)
		}
		b.met.RecordsWrittenTotal.WithLabelValues(opName(OpIndexData)).Inc()
	}
	b.recordMu.Unlock()

	if err := b.seekWrite(b.fileHeaderPos); err != nil {
		return err
	}
	return b.writeFileHeader()
}
