package bag

import (
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"github.com/dd0wney/cluso-bag/pkg/logging"
)

// SetWritingEnabled lets an external supervisor toggle recording. While
// disabled, Write discards messages apart from a rate-limited warning; the
// next internal disk check may re-enable it.
func (b *Bag) SetWritingEnabled(enabled bool) {
	b.diskMu.Lock()
	defer b.diskMu.Unlock()
	b.writingEnabled = enabled
}

// maybeCheckDisk runs a free-space check if the rate limiter allows one.
func (b *Bag) maybeCheckDisk() {
	b.diskMu.Lock()
	defer b.diskMu.Unlock()

	now := time.Now()
	if now.Before(b.checkDiskNext) {
		return
	}
	b.checkDiskNext = now.Add(b.cfg.DiskCheckInterval)
	b.checkDiskLocked()
}

// checkDisk runs an immediate free-space check.
func (b *Bag) checkDisk() {
	b.diskMu.Lock()
	defer b.diskMu.Unlock()
	b.checkDiskLocked()
}

// checkDiskLocked toggles writingEnabled from the filesystem's free space.
// A statfs failure is logged and leaves the current state alone.
func (b *Bag) checkDiskLocked() {
	var stat unix.Statfs_t
	dir := filepath.Dir(b.path)
	if err := unix.Statfs(dir, &stat); err != nil {
		b.log.Warn("failed to check filesystem stats", logging.Error(err))
		b.met.RecordDiskCheck("error", 0)
		return
	}

	freeSpace := uint64(stat.Bsize) * stat.Bavail

	switch {
	case freeSpace < b.cfg.MinFreeBytes:
		b.log.Error("disk space low, disabling recording", logging.Bytes(freeSpace))
		b.writingEnabled = false
		b.met.RecordDiskCheck("disabled", freeSpace)
	case freeSpace < b.cfg.WarnFreeBytes:
		b.log.Warn("disk space getting low", logging.Bytes(freeSpace))
		b.writingEnabled = true
		b.met.RecordDiskCheck("low", freeSpace)
	default:
		b.writingEnabled = true
		b.met.RecordDiskCheck("ok", freeSpace)
	}
}
