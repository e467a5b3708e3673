package msg

// RawMessage carries an opaque serialized payload together with the type
// metadata recorded alongside it. Until a fingerprint is given to
// NewRawMessage or adopted from a connection header on Deserialize, it
// reports the wildcard fingerprint "*" and can instantiate any topic; after
// that it reports the stored fingerprint. It is the vehicle for copying
// records between bags without the concrete message type.
type RawMessage struct {
	Data []byte

	datatype   string
	md5sum     string
	definition string
	connHeader map[string]string
}

// NewRawMessage builds a raw message for writing under the given type
// identity.
func NewRawMessage(datatype, md5sum, definition string, data []byte) *RawMessage {
	return &RawMessage{
		Data:       data,
		datatype:   datatype,
		md5sum:     md5sum,
		definition: definition,
	}
}

func (m *RawMessage) Datatype() string {
	if m.datatype != "" {
		return m.datatype
	}
	if m.connHeader != nil {
		return m.connHeader["type"]
	}
	return ""
}

func (m *RawMessage) MD5Sum() string {
	if m.md5sum != "" {
		return m.md5sum
	}
	return "*"
}

func (m *RawMessage) Definition() string {
	if m.definition != "" {
		return m.definition
	}
	if m.connHeader != nil {
		return m.connHeader["message_definition"]
	}
	return ""
}

func (m *RawMessage) SerializedLength() uint32 {
	return uint32(len(m.Data))
}

func (m *RawMessage) Serialize(buf []byte) []byte {
	return append(buf, m.Data...)
}

func (m *RawMessage) Deserialize(buf []byte) error {
	m.Data = append(m.Data[:0], buf...)
	if m.connHeader != nil {
		m.datatype = m.connHeader["type"]
		m.definition = m.connHeader["message_definition"]
		if sum, ok := m.connHeader["md5sum"]; ok {
			m.md5sum = sum
		}
	}
	return nil
}

func (m *RawMessage) ConnectionHeader() map[string]string {
	return m.connHeader
}

func (m *RawMessage) SetConnectionHeader(hdr map[string]string) {
	m.connHeader = hdr
}
