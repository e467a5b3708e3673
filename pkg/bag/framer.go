package bag

import (
	"encoding/binary"
	"io"

	"github.com/dd0wney/cluso-bag/pkg/header"
	"github.com/dd0wney/cluso-bag/pkg/pools"
)

// A record is hdr_len(4 LE) | header | data_len(4 LE) | data.
//
// The write side goes through writefil so recordPos stays a faithful shadow
// of the stream position.

// writefil writes raw bytes and advances the shadow position counter.
func (b *Bag) writefil(p []byte) error {
	n, err := b.writer.Write(p)
	b.recordPos += uint64(n)
	if err != nil {
		return opError("write", err)
	}
	return nil
}

// writeHeader emits the framing for a record whose body will follow:
// hdr_len, encoded fields, data_len.
func (b *Bag) writeHeader(fields header.Fields, dataLen uint32) error {
	hdr := header.Encode(fields)
	defer pools.PutBytes(hdr)

	var lenb [4]byte
	binary.LittleEndian.PutUint32(lenb[:], uint32(len(hdr)))
	if err := b.writefil(lenb[:]); err != nil {
		return err
	}
	if err := b.writefil(hdr); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(lenb[:], dataLen)
	return b.writefil(lenb[:])
}

// writeRecord emits a complete record: header framing plus body.
func (b *Bag) writeRecord(fields header.Fields, data []byte) error {
	if err := b.writeHeader(fields, uint32(len(data))); err != nil {
		return err
	}
	return b.writefil(data)
}

// seekWrite repositions the write stream. Only used for the single seek
// back to the file-header slot at close.
func (b *Bag) seekWrite(pos uint64) error {
	if err := b.writer.Flush(); err != nil {
		return opError("seek", err)
	}
	if _, err := b.writeFile.Seek(int64(pos), io.SeekStart); err != nil {
		return opError("seek", err)
	}
	b.recordPos = pos
	return nil
}

// readRecordHeader reads the next record's framing and decodes its header,
// leaving the stream positioned at the record body. Returns io.EOF cleanly
// at end of file.
func (b *Bag) readRecordHeader() (header.Fields, uint32, error) {
	var lenb [4]byte
	if _, err := io.ReadFull(b.readFile, lenb[:]); err != nil {
		if err == io.EOF {
			return nil, 0, io.EOF
		}
		return nil, 0, opError("readHeader", err)
	}
	hdrLen := binary.LittleEndian.Uint32(lenb[:])

	b.growHeaderBuf(int(hdrLen))
	hdr := b.headerBuf[:hdrLen]
	if _, err := io.ReadFull(b.readFile, hdr); err != nil {
		return nil, 0, opError("readHeader", err)
	}

	fields, err := header.Decode(hdr)
	if err != nil {
		return nil, 0, formatError("readHeader", err.Error())
	}

	if _, err := io.ReadFull(b.readFile, lenb[:]); err != nil {
		return nil, 0, opError("readHeader", err)
	}
	dataLen := binary.LittleEndian.Uint32(lenb[:])

	return fields, dataLen, nil
}

// seekRead repositions the read stream.
func (b *Bag) seekRead(pos uint64) error {
	if _, err := b.readFile.Seek(int64(pos), io.SeekStart); err != nil {
		return posError("seek", pos, err)
	}
	return nil
}

// skipRead advances the read stream past a record body.
func (b *Bag) skipRead(n uint32) error {
	if _, err := b.readFile.Seek(int64(n), io.SeekCurrent); err != nil {
		return opError("seek", err)
	}
	return nil
}

// growHeaderBuf ensures the header scratch buffer holds n bytes, growing
// geometrically.
func (b *Bag) growHeaderBuf(n int) {
	if cap(b.headerBuf) >= n {
		return
	}
	size := cap(b.headerBuf)
	if size == 0 {
		size = n
	}
	for size < n {
		size *= 2
	}
	b.headerBuf = make([]byte, 0, size)
}

// growMessageBuf ensures the message scratch buffer holds n bytes, growing
// geometrically.
func (b *Bag) growMessageBuf(n int) {
	if cap(b.messageBuf) >= n {
		return
	}
	size := cap(b.messageBuf)
	if size == 0 {
		size = n
	}
	for size < n {
		size *= 2
	}
	b.messageBuf = make([]byte, 0, size)
}

// unboundedField relaxes the upper length bound on variable-size fields.
const unboundedField = int(^uint(0) >> 1)

// checkField returns a header field value after validating its length
// bounds.
func checkField(op string, fields header.Fields, name string, minLen, maxLen int) ([]byte, error) {
	v, ok := fields.Get(name)
	if !ok {
		return nil, formatError(op, "required "+name+" field missing")
	}
	if len(v) < minLen || len(v) > maxLen {
		return nil, formatError(op, name+" field is wrong size")
	}
	return v, nil
}

// opField extracts and validates the single-byte opcode field.
func opField(op string, fields header.Fields) (byte, error) {
	v, err := checkField(op, fields, opFieldName, 1, 1)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}
