package bag

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-bag/pkg/header"
	"github.com/dd0wney/cluso-bag/pkg/logging"
)

func TestWriter_VersionLine(t *testing.T) {
	path := writeTestBag(t, []writeOp{{"/a", NewTime(1, 0), "x"}})

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "#ROSRECORD V1.2\n"),
		"bag must start with the version line")
}

// readRecordAt parses one record's framing directly from the file.
func readRecordAt(t *testing.T, f *os.File, pos int64) (header.Fields, uint32, int64) {
	t.Helper()
	_, err := f.Seek(pos, io.SeekStart)
	require.NoError(t, err)

	var lenb [4]byte
	_, err = io.ReadFull(f, lenb[:])
	require.NoError(t, err)
	hdrLen := binary.LittleEndian.Uint32(lenb[:])

	hdr := make([]byte, hdrLen)
	_, err = io.ReadFull(f, hdr)
	require.NoError(t, err)

	fields, err := header.Decode(hdr)
	require.NoError(t, err)

	_, err = io.ReadFull(f, lenb[:])
	require.NoError(t, err)
	dataLen := binary.LittleEndian.Uint32(lenb[:])

	next := pos + 4 + int64(hdrLen) + 4 + int64(dataLen)
	return fields, dataLen, next
}

func TestWriter_FileHeaderRewrittenWithIndexPos(t *testing.T) {
	path := writeTestBag(t, []writeOp{
		{"/a", NewTime(1, 0), "x"},
		{"/b", NewTime(2, 0), "y"},
	})

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	fileHeaderPos := int64(len(VersionLine))
	fields, _, afterFileHeader := readRecordAt(t, f, fileHeaderPos)

	op, ok := fields.Get("op")
	require.True(t, ok)
	require.Equal(t, OpFileHeader, op[0])

	v, ok := fields.Get("index_pos")
	require.True(t, ok)
	indexPos := binary.LittleEndian.Uint64(v)
	require.NotZero(t, indexPos, "index_pos must be rewritten at close")

	// The padded record must be at least FileHeaderLength in total
	totalLen := int(afterFileHeader - fileHeaderPos - 8)
	assert.GreaterOrEqual(t, totalLen, FileHeaderLength)

	// Walk forward from the file header; the first index record found must
	// sit exactly at index_pos.
	pos := afterFileHeader
	for {
		fields, _, next := readRecordAt(t, f, pos)
		op, ok := fields.Get("op")
		require.True(t, ok)
		if op[0] == OpIndexData {
			assert.Equal(t, indexPos, uint64(pos), "index_pos must point at the first index block")
			break
		}
		pos = next
	}
}

func TestWriter_EmitsOneDefinitionPerTopic(t *testing.T) {
	path := writeTestBag(t, []writeOp{
		{"/a", NewTime(1, 0), "m1"},
		{"/a", NewTime(2, 0), "m2"},
		{"/a", NewTime(3, 0), "m3"},
	})

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	defs, datas := 0, 0
	_, _, pos := readRecordAt(t, f, int64(len(VersionLine))) // skip file header
	for {
		fields, _, next := readRecordAt(t, f, pos)
		op, ok := fields.Get("op")
		require.True(t, ok)
		switch op[0] {
		case OpMsgDef:
			defs++
		case OpMsgData:
			datas++
		}
		if op[0] == OpIndexData {
			break
		}
		pos = next
	}

	assert.Equal(t, 1, defs, "definition record written once per topic")
	assert.Equal(t, 3, datas)
}

func TestWriter_LatchingCalleridPassthrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latch.bag")
	b, err := OpenWithConfig(path, Write, DefaultConfig(), logging.NewNopLogger())
	require.NoError(t, err)

	m := newTestMessage("latched")
	m.SetConnectionHeader(map[string]string{
		"latching": "1",
		"callerid": "/talker",
	})
	require.NoError(t, b.Write("/a", NewTime(1, 0), m))

	plain := newTestMessage("plain")
	require.NoError(t, b.Write("/a", NewTime(2, 0), plain))
	require.NoError(t, b.Close())

	rb := openTestBag(t, path)
	v := NewView()
	v.AddQuery(rb, NewFullQuery())

	it := v.Iter()
	require.True(t, it.Next())
	got := &testMessage{}
	ok, err := it.Value().Instantiate(got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", got.ConnectionHeader()["latching"])
	assert.Equal(t, "/talker", got.ConnectionHeader()["callerid"])

	require.True(t, it.Next())
	got2 := &testMessage{}
	_, err = it.Value().Instantiate(got2)
	require.NoError(t, err)
	_, hasLatch := got2.ConnectionHeader()["latching"]
	assert.False(t, hasLatch, "unlatched message must not carry latching field")
}

func TestWriter_ConcurrentProducers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "concurrent.bag")
	b, err := OpenWithConfig(path, Write, DefaultConfig(), logging.NewNopLogger())
	require.NoError(t, err)

	const perTopic = 50
	topics := []string{"/a", "/b", "/c", "/d"}

	var wg sync.WaitGroup
	for _, topic := range topics {
		wg.Add(1)
		go func(topic string) {
			defer wg.Done()
			for i := 0; i < perTopic; i++ {
				if err := b.Write(topic, NewTime(uint32(i), 0), newTestMessage(topic)); err != nil {
					t.Errorf("write %s: %v", topic, err)
					return
				}
			}
		}(topic)
	}
	wg.Wait()
	require.NoError(t, b.Close())

	rb := openTestBag(t, path)
	for _, topic := range topics {
		assert.Equal(t, perTopic, rb.MessageCount(topic))
	}

	v := NewView()
	v.AddQuery(rb, NewFullQuery())
	assert.Equal(t, perTopic*len(topics), v.Size())

	msgs := drain(t, v)
	assert.Len(t, msgs, perTopic*len(topics))
	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].time.Before(msgs[i-1].time), "merge must be time-ordered")
	}
}

func TestWriter_UnclosedBagIsUnreadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unclosed.bag")
	b, err := OpenWithConfig(path, Write, DefaultConfig(), logging.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, b.Write("/a", NewTime(1, 0), newTestMessage("x")))
	require.NoError(t, b.Flush())

	_, err = OpenWithConfig(path, Read, DefaultConfig(), logging.NewNopLogger())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadFormat), "unindexed bag must fail bootstrap, got %v", err)

	require.NoError(t, b.Close())
}

func TestWriteInstance_CopiesBetweenBags(t *testing.T) {
	src := writeTestBag(t, []writeOp{
		{"/a", NewTime(1, 0), "one"},
		{"/b", NewTime(2, 0), "two"},
	})
	rb := openTestBag(t, src)

	dstPath := filepath.Join(t.TempDir(), "copy.bag")
	wb, err := OpenWithConfig(dstPath, Write, DefaultConfig(), logging.NewNopLogger())
	require.NoError(t, err)

	v := NewView()
	v.AddQuery(rb, NewFullQuery())
	for it := v.Iter(); it.Next(); {
		mi := it.Value()
		require.NoError(t, wb.WriteInstance(mi.Topic(), mi.Time(), mi))
	}
	require.NoError(t, wb.Close())

	rb2 := openTestBag(t, dstPath)
	v2 := NewView()
	v2.AddQuery(rb2, NewFullQuery())
	msgs := drain(t, v2)
	require.Len(t, msgs, 2)
	assert.Equal(t, yielded{"/a", NewTime(1, 0), "one"}, msgs[0])
	assert.Equal(t, yielded{"/b", NewTime(2, 0), "two"}, msgs[1])

	// Identity must survive the copy, including the definition string
	info := rb2.Info("/a")
	require.NotNil(t, info)
	assert.Equal(t, testDatatype, info.Datatype)
	assert.Equal(t, testMD5, info.MD5Sum)
	assert.Equal(t, testDef, info.MsgDef)
}
