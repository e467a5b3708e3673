// Package bag implements a seekable, self-indexed container file for
// recording and replaying streams of timestamped, typed messages on named
// topics.
//
// A bag is written in a single append-only pass and later opened for
// random-access reading filtered by topic and time range. The file carries
// its own index: a trailing block of per-topic (timestamp, offset) entries
// whose position is patched into the file header when the bag is closed.
package bag

import (
	"bufio"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-bag/pkg/logging"
	"github.com/dd0wney/cluso-bag/pkg/metrics"
)

// Bag is an open container file, in either recording or playback mode.
//
// A writing Bag is safe for concurrent producers; record emission is
// serialized internally. A reading Bag owns a single seek position, so
// Instantiate calls must be externally synchronized if shared across
// goroutines.
type Bag struct {
	mode Mode
	path string
	id   string
	cfg  Config
	log  logging.Logger
	met  *metrics.Registry

	writeFile *os.File
	writer    *bufio.Writer
	readFile  *os.File

	// recordPos shadows the write stream position; it is authoritative
	// for IndexEntry.Pos because the stream is only ever repositioned by
	// the single seek back to the file-header slot at close.
	recordPos     uint64
	fileHeaderPos uint64
	indexDataPos  uint64

	topicsMu sync.Mutex
	topics   map[string]*topicRecord

	recordMu sync.Mutex

	// Reusable scratch buffers, grown geometrically. headerBuf holds record
	// headers read back from the file; messageBuf holds serialized payloads.
	headerBuf  []byte
	messageBuf []byte

	writingEnabled bool
	diskMu         sync.Mutex
	checkDiskNext  time.Time
	warnNext       time.Time
}

// Open opens the bag at path with default configuration, logger, and
// metrics registry.
func Open(path string, mode Mode) (*Bag, error) {
	return OpenWithConfig(path, mode, DefaultConfig(), logging.DefaultLogger())
}

// OpenWithConfig opens the bag at path with explicit configuration and
// logger. Only Read and Write modes are supported; Append and simultaneous
// Read|Write are rejected.
func OpenWithConfig(path string, mode Mode, cfg Config, logger logging.Logger) (*Bag, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := &Bag{
		mode:           mode,
		path:           path,
		id:             uuid.NewString(),
		cfg:            cfg,
		met:            metrics.DefaultRegistry(),
		topics:         make(map[string]*topicRecord),
		writingEnabled: true,
	}
	b.log = logger.With(logging.Component("bag"), logging.BagID(b.id), logging.Path(path))

	if mode&Append != 0 {
		return nil, opError("open", ErrUnsupportedMode)
	}
	if mode&Read != 0 && mode&Write != 0 {
		return nil, opError("open", ErrUnsupportedMode)
	}

	switch {
	case mode&Write != 0:
		if err := b.openWrite(); err != nil {
			return nil, err
		}
	case mode&Read != 0:
		if err := b.openRead(); err != nil {
			return nil, err
		}
	default:
		return nil, opError("open", ErrUnsupportedMode)
	}

	b.met.BagsOpen.Inc()
	b.log.Info("bag opened", logging.String("mode", b.modeString()))
	return b, nil
}

func (b *Bag) openWrite() error {
	f, err := os.OpenFile(b.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return opError("open", err)
	}
	b.writeFile = f
	b.writer = bufio.NewWriter(f)
	b.recordPos = 0

	b.checkDiskNext = time.Now().Add(b.cfg.DiskCheckInterval)
	b.warnNext = time.Time{}
	b.checkDisk()

	if err := b.writeVersion(); err != nil {
		f.Close()
		return err
	}
	if err := b.writeFileHeader(); err != nil {
		f.Close()
		return err
	}
	return nil
}

func (b *Bag) openRead() error {
	f, err := os.Open(b.path)
	if err != nil {
		return opError("open", err)
	}
	b.readFile = f

	if err := b.readVersion(); err != nil {
		f.Close()
		return err
	}
	if err := b.readFileHeader(); err != nil {
		f.Close()
		return err
	}
	if err := b.readIndex(); err != nil {
		f.Close()
		return err
	}
	if err := b.readDefs(); err != nil {
		f.Close()
		return err
	}
	return nil
}

// Close flushes and closes the bag. In write mode it first appends the
// trailing index and rewrites the file header with the index offset; the
// file descriptor is closed even if that fails. Close is idempotent.
func (b *Bag) Close() error {
	var indexErr error

	if b.writeFile != nil {
		timer := logging.StartTimer(b.log, "bag closed")
		indexErr = b.writeIndex()

		if err := b.writer.Flush(); err != nil && indexErr == nil {
			indexErr = opError("close", err)
		}
		if err := b.writeFile.Sync(); err != nil && indexErr == nil {
			indexErr = opError("close", err)
		}
		if err := b.writeFile.Close(); err != nil && indexErr == nil {
			indexErr = opError("close", err)
		}
		b.writeFile = nil
		b.writer = nil

		b.topicsMu.Lock()
		b.topics = make(map[string]*topicRecord)
		b.topicsMu.Unlock()

		b.met.BagsOpen.Dec()
		if indexErr != nil {
			timer.EndError(indexErr)
		} else {
			timer.End()
		}
		return indexErr
	}

	if b.readFile != nil {
		err := b.readFile.Close()
		b.readFile = nil
		b.met.BagsOpen.Dec()
		if err != nil {
			return opError("close", err)
		}
		return nil
	}

	return nil
}

// Flush forces buffered record bytes to disk without closing the bag.
// The file stays unreadable by this library until Close writes the index.
func (b *Bag) Flush() error {
	if b.writeFile == nil {
		return opError("flush", ErrNotOpen)
	}
	b.recordMu.Lock()
	defer b.recordMu.Unlock()
	if err := b.writer.Flush(); err != nil {
		return opError("flush", err)
	}
	if err := b.writeFile.Sync(); err != nil {
		return opError("flush", err)
	}
	return nil
}

// Path returns the file path the bag was opened with.
func (b *Bag) Path() string {
	return b.path
}

// ID returns the handle identifier assigned to this open bag.
func (b *Bag) ID() string {
	return b.id
}

// Topics returns the names of all recorded topics, sorted.
func (b *Bag) Topics() []string {
	b.topicsMu.Lock()
	defer b.topicsMu.Unlock()
	return sortedTopics(b.topics)
}

// Info returns the identity of a recorded topic, or nil.
func (b *Bag) Info(topic string) *MsgInfo {
	b.topicsMu.Lock()
	defer b.topicsMu.Unlock()
	if rec := b.topics[topic]; rec != nil {
		return rec.info
	}
	return nil
}

// MessageCount returns the number of indexed messages on a topic.
func (b *Bag) MessageCount(topic string) int {
	b.topicsMu.Lock()
	defer b.topicsMu.Unlock()
	if rec := b.topics[topic]; rec != nil {
		return len(rec.index)
	}
	return 0
}

func (b *Bag) readMode() bool  { return b.mode&Read != 0 }
func (b *Bag) writeMode() bool { return b.mode&Write != 0 }

func (b *Bag) modeString() string {
	if b.writeMode() {
		return "write"
	}
	return "read"
}

func sortedTopics[V any](m map[string]V) []string {
	topics := make([]string, 0, len(m))
	for t := range m {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}
