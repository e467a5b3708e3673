package bag

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/dd0wney/cluso-bag/pkg/header"
	"github.com/dd0wney/cluso-bag/pkg/msg"
)

// MessageInstance is a lightweight lazy handle to one recorded message: a
// back-reference into the owning bag's topic table and index. It carries no
// payload; Instantiate seeks and deserializes on demand.
//
// Instances are trivially copyable values but are only valid while the bag
// that produced them stays open.
type MessageInstance struct {
	info  *MsgInfo
	entry *IndexEntry
	bag   *Bag
}

// Topic returns the topic the message was recorded on.
func (mi MessageInstance) Topic() string {
	return mi.info.Topic
}

// Datatype returns the recorded datatype name.
func (mi MessageInstance) Datatype() string {
	return mi.info.Datatype
}

// MD5Sum returns the recorded schema fingerprint.
func (mi MessageInstance) MD5Sum() string {
	return mi.info.MD5Sum
}

// Def returns the recorded IDL definition string.
func (mi MessageInstance) Def() string {
	return mi.info.MsgDef
}

// Time returns the message timestamp.
func (mi MessageInstance) Time() Time {
	return mi.entry.Time
}

// IsType reports whether m's identity matches the recorded one exactly.
func (mi MessageInstance) IsType(m msg.Message) bool {
	return m.MD5Sum() == mi.info.MD5Sum && m.Datatype() == mi.info.Datatype
}

// Instantiate materializes the message into m. It returns (false, nil)
// when m's fingerprint does not match the recorded one (a leading '*'
// skips the check), and an error for I/O or format failures. Not safe for
// concurrent use on the same bag.
func (mi MessageInstance) Instantiate(m msg.Message) (bool, error) {
	if !msg.WildcardMD5(m.MD5Sum()) && m.MD5Sum() != mi.info.MD5Sum {
		mi.bag.met.RecordInstantiate("fingerprint_mismatch", 0)
		return false, nil
	}
	return mi.bag.instantiate(mi.entry.Pos, mi.info, m)
}

// instantiate seeks to pos, skips any definition records, validates the
// data record and deserializes its body into m.
func (b *Bag) instantiate(pos uint64, info *MsgInfo, m msg.Message) (bool, error) {
	if b.readFile == nil || !b.readMode() {
		return false, opError("instantiate", ErrNotOpen)
	}

	start := time.Now()

	if err := b.seekRead(pos); err != nil {
		return false, err
	}

	// Definition records carry no body, so no skipping is needed between
	// reads.
	var (
		fields  header.Fields
		dataLen uint32
	)
	for {
		f, n, err := b.readRecordHeader()
		if err != nil {
			if err == io.EOF {
				return false, posError("instantiate", pos, ErrInvalidPosition)
			}
			return false, err
		}
		op, err := opField("instantiate", f)
		if err != nil {
			return false, err
		}
		if op == OpMsgDef {
			continue
		}
		if op != OpMsgData {
			return false, posError("instantiate", pos, ErrInvalidPosition)
		}
		fields, dataLen = f, n
		break
	}

	if _, err := checkField("instantiate", fields, topicFieldName, 1, unboundedField); err != nil {
		return false, err
	}
	md5Val, err := checkField("instantiate", fields, md5FieldName, 32, 32)
	if err != nil {
		return false, err
	}
	if !bytes.Equal(md5Val, []byte(info.MD5Sum)) {
		return false, posError("instantiate", pos, fmt.Errorf("%w: record fingerprint differs from index", ErrBadFormat))
	}
	if _, err := checkField("instantiate", fields, typeFieldName, 1, unboundedField); err != nil {
		return false, err
	}

	b.growMessageBuf(int(dataLen))
	body := b.messageBuf[:dataLen]
	if _, err := io.ReadFull(b.readFile, body); err != nil {
		return false, posError("instantiate", pos, err)
	}

	connHeader := map[string]string{
		"md5sum":             info.MD5Sum,
		"type":               info.Datatype,
		"message_definition": info.MsgDef,
	}
	if v, ok := fields.Get(latchingFieldName); ok {
		connHeader[latchingFieldName] = string(v)
	}
	if v, ok := fields.Get(calleridFieldName); ok {
		connHeader[calleridFieldName] = string(v)
	}
	m.SetConnectionHeader(connHeader)

	if err := m.Deserialize(body); err != nil {
		b.met.RecordInstantiate("deserialize_error", time.Since(start))
		return false, posError("instantiate", pos, err)
	}

	b.met.RecordInstantiate("ok", time.Since(start))
	return true, nil
}
